// Package authz maps an authenticated principal and a requested action to an allow/deny decision.
package authz

import (
	"errors"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

var (
	// ErrUnauthenticated is returned when an action needs a signed-in principal.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the principal's role may not perform the action.
	ErrForbidden = errors.New("insufficient permissions")
)

// Principal identifies the caller of a service operation. The zero value is anonymous.
type Principal struct {
	UserID uint
	Role   models.Role
}

// Anonymous returns a principal with no identity.
func Anonymous() Principal {
	return Principal{}
}

// NewPrincipal builds an authenticated principal. Unknown roles yield an anonymous principal.
func NewPrincipal(userID uint, role models.Role) Principal {
	if userID == 0 || !role.Valid() {
		return Principal{}
	}
	return Principal{UserID: userID, Role: role}
}

// Authenticated reports whether the principal carries a user identity.
func (p Principal) Authenticated() bool {
	return p.UserID != 0 && p.Role.Valid()
}

// IsAdmin reports whether the principal is an authenticated administrator.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == models.RoleAdmin
}

// IsStudent reports whether the principal is an authenticated student.
func (p Principal) IsStudent() bool {
	return p.Authenticated() && p.Role == models.RoleStudent
}

// Action names an operation guarded by Authorize.
type Action string

const (
	ActionLogin              Action = "auth.login"
	ActionSignup             Action = "auth.signup"
	ActionBrowseActivities   Action = "activity.browse"
	ActionReadAnnouncements  Action = "announcement.read"
	ActionChangePassword     Action = "auth.change_password"
	ActionLogout             Action = "auth.logout"
	ActionViewNotifications  Action = "notification.view"
	ActionRegister           Action = "registration.create"
	ActionCancel             Action = "registration.cancel"
	ActionViewOwnActivities  Action = "registration.list_own"
	ActionManageOwnProfile   Action = "profile.manage"
	ActionManageActivities   Action = "activity.manage"
	ActionViewRegistrations  Action = "registration.list_activity"
	ActionCheckIn            Action = "registration.check_in"
	ActionViewReports        Action = "report.view"
	ActionExportRoster       Action = "report.export"
	ActionManageStudents     Action = "student.manage"
	ActionViewLogs           Action = "log.view"
	ActionBackup             Action = "backup.manage"
	ActionManageAnnouncement Action = "announcement.manage"
)

type audience int

const (
	audiencePublic audience = iota
	audienceAuthenticated
	audienceStudent
	audienceAdmin
)

var policy = map[Action]audience{
	ActionLogin:              audiencePublic,
	ActionSignup:             audiencePublic,
	ActionBrowseActivities:   audiencePublic,
	ActionReadAnnouncements:  audiencePublic,
	ActionChangePassword:     audienceAuthenticated,
	ActionLogout:             audienceAuthenticated,
	ActionViewNotifications:  audienceAuthenticated,
	ActionRegister:           audienceStudent,
	ActionCancel:             audienceStudent,
	ActionViewOwnActivities:  audienceStudent,
	ActionManageOwnProfile:   audienceStudent,
	ActionManageActivities:   audienceAdmin,
	ActionViewRegistrations:  audienceAdmin,
	ActionCheckIn:            audienceAdmin,
	ActionViewReports:        audienceAdmin,
	ActionExportRoster:       audienceAdmin,
	ActionManageStudents:     audienceAdmin,
	ActionViewLogs:           audienceAdmin,
	ActionBackup:             audienceAdmin,
	ActionManageAnnouncement: audienceAdmin,
}

// Authorize returns nil when principal may perform action.
// Unknown actions are denied.
func Authorize(principal Principal, action Action) error {
	required, ok := policy[action]
	if !ok {
		return ErrForbidden
	}

	switch required {
	case audiencePublic:
		return nil
	case audienceAuthenticated:
		if !principal.Authenticated() {
			return ErrUnauthenticated
		}
		return nil
	case audienceStudent:
		if !principal.Authenticated() {
			return ErrUnauthenticated
		}
		if principal.Role != models.RoleStudent {
			return ErrForbidden
		}
		return nil
	case audienceAdmin:
		if !principal.Authenticated() {
			return ErrUnauthenticated
		}
		if principal.Role != models.RoleAdmin {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
