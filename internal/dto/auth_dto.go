package dto

import (
	"time"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// SignupRequest captures the student sign-up form.
type SignupRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=20,username"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	RealName        string `json:"real_name" validate:"required,max=64"`
	StudentID       string `json:"student_id" validate:"required,min=5,max=20"`
	Grade           string `json:"grade" validate:"required,max=20"`
	Major           string `json:"major" validate:"required,max=64"`
	College         string `json:"college" validate:"required,max=64"`
	Phone           string `json:"phone" validate:"required,cnmobile"`
	QQ              string `json:"qq" validate:"required,qq"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest changes the caller's password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        uint                    `json:"id"`
	Username  string                  `json:"username"`
	Email     string                  `json:"email"`
	Role      models.Role             `json:"role"`
	CreatedAt time.Time               `json:"created_at"`
	LastLogin *time.Time              `json:"last_login"`
	Profile   *StudentProfileResponse `json:"profile,omitempty"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	response := UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	}
	if user.StudentProfile != nil {
		profile := NewStudentProfileResponse(*user.StudentProfile)
		response.Profile = &profile
	}
	return response
}

// LoginResponse returns the session token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
