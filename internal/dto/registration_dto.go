package dto

import (
	"time"

	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

// RegistrationResponse serializes a registration.
type RegistrationResponse struct {
	ID           uint                      `json:"id"`
	UserID       uint                      `json:"user_id"`
	ActivityID   uint                      `json:"activity_id"`
	RegisterTime time.Time                 `json:"register_time"`
	Status       models.RegistrationStatus `json:"status"`
	Remark       string                    `json:"remark"`
}

// NewRegistrationResponse converts a registration model into a DTO.
func NewRegistrationResponse(registration models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:           registration.ID,
		UserID:       registration.UserID,
		ActivityID:   registration.ActivityID,
		RegisterTime: registration.RegisterTime,
		Status:       registration.Status,
		Remark:       registration.Remark,
	}
}

// MyRegistrationListRequest filters the caller's registrations.
type MyRegistrationListRequest struct {
	Scope    string
	Page     int
	PageSize int
}

// MyRegistrationItem pairs a registration with its activity.
type MyRegistrationItem struct {
	Registration RegistrationResponse `json:"registration"`
	Activity     *ActivityResponse    `json:"activity,omitempty"`
}

// MyRegistrationListResponse wraps the caller's paginated registrations.
type MyRegistrationListResponse struct {
	Items      []MyRegistrationItem `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// RosterEntryResponse is one row of an activity roster.
type RosterEntryResponse struct {
	RegistrationID uint                      `json:"registration_id"`
	UserID         uint                      `json:"user_id"`
	Username       string                    `json:"username"`
	RealName       string                    `json:"real_name"`
	StudentID      string                    `json:"student_id"`
	Grade          string                    `json:"grade"`
	Major          string                    `json:"major"`
	College        string                    `json:"college"`
	Phone          string                    `json:"phone"`
	QQ             string                    `json:"qq"`
	RegisterTime   time.Time                 `json:"register_time"`
	Status         models.RegistrationStatus `json:"status"`
}

// NewRosterEntryResponse converts a roster row into a DTO.
func NewRosterEntryResponse(entry repository.RosterEntry) RosterEntryResponse {
	return RosterEntryResponse{
		RegistrationID: entry.RegistrationID,
		UserID:         entry.UserID,
		Username:       entry.Username,
		RealName:       entry.RealName,
		StudentID:      entry.StudentID,
		Grade:          entry.Grade,
		Major:          entry.Major,
		College:        entry.College,
		Phone:          entry.Phone,
		QQ:             entry.QQ,
		RegisterTime:   entry.RegisterTime,
		Status:         entry.Status,
	}
}

// NewRosterEntryResponses converts a slice of roster rows.
func NewRosterEntryResponses(entries []repository.RosterEntry) []RosterEntryResponse {
	items := make([]RosterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, NewRosterEntryResponse(entry))
	}
	return items
}

// RosterListResponse is the admin registrations page of one activity.
type RosterListResponse struct {
	Activity   ActivityResponse      `json:"activity"`
	Items      []RosterEntryResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// CheckInRequest identifies the student to check in.
type CheckInRequest struct {
	StudentID string `json:"student_id" validate:"required,min=5,max=20"`
}

// CheckInResponse reports the resulting registration and whether it changed.
type CheckInResponse struct {
	Registration RegistrationResponse `json:"registration"`
	RealName     string               `json:"real_name"`
	StudentID    string               `json:"student_id"`
	Changed      bool                 `json:"changed"`
}

// CheckInSheetResponse splits the roster by attendance.
type CheckInSheetResponse struct {
	Activity ActivityResponse      `json:"activity"`
	Attended []RosterEntryResponse `json:"attended"`
	Pending  []RosterEntryResponse `json:"pending"`
}
