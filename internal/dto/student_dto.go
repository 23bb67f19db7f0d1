package dto

import "github.com/noah-isme/activity-portal-api/internal/models"

// StudentProfileResponse serializes a student profile.
type StudentProfileResponse struct {
	UserID    uint   `json:"user_id"`
	RealName  string `json:"real_name"`
	StudentID string `json:"student_id"`
	Grade     string `json:"grade"`
	Major     string `json:"major"`
	College   string `json:"college"`
	Phone     string `json:"phone"`
	QQ        string `json:"qq"`
}

// NewStudentProfileResponse converts a profile model into a DTO.
func NewStudentProfileResponse(profile models.StudentProfile) StudentProfileResponse {
	return StudentProfileResponse{
		UserID:    profile.UserID,
		RealName:  profile.RealName,
		StudentID: profile.StudentID,
		Grade:     profile.Grade,
		Major:     profile.Major,
		College:   profile.College,
		Phone:     profile.Phone,
		QQ:        profile.QQ,
	}
}

// StudentProfileUpdateRequest replaces the editable profile fields. The student id is fixed.
type StudentProfileUpdateRequest struct {
	RealName string `json:"real_name" validate:"required,max=64"`
	Grade    string `json:"grade" validate:"required,max=20"`
	Major    string `json:"major" validate:"required,max=64"`
	College  string `json:"college" validate:"required,max=64"`
	Phone    string `json:"phone" validate:"required,cnmobile"`
	QQ       string `json:"qq" validate:"required,qq"`
}

// StudentDashboardResponse lists the student's own activities and suggestions.
type StudentDashboardResponse struct {
	Registered  []ActivityResponse `json:"registered_activities"`
	Suggestions []ActivityResponse `json:"upcoming_activities"`
}
