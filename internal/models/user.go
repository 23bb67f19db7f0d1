package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of principals known to the portal.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleStudent Role = "Student"
)

// ErrUnknownRole is returned by ParseRole for anything outside the closed role set.
var ErrUnknownRole = fmt.Errorf("unknown role")

// ParseRole converts free text into a Role. Matching ignores case and surrounding space.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin":
		return RoleAdmin, nil
	case "student":
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

func (r Role) String() string {
	return string(r)
}

// User is an account able to sign in. Students own exactly one StudentProfile.
type User struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Username       string          `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email          string          `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash   string          `gorm:"size:255;not null" json:"-"`
	Role           Role            `gorm:"size:20;not null;default:Student" json:"role"`
	CreatedAt      time.Time       `json:"created_at"`
	LastLogin      *time.Time      `json:"last_login"`
	StudentProfile *StudentProfile `gorm:"foreignKey:UserID" json:"student_profile,omitempty"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
