package models

import "time"

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
	RegistrationStatusAttended   RegistrationStatus = "attended"
)

// CanTransitionTo encodes the registration state machine:
// registered -> cancelled, registered -> attended, nothing out of cancelled or attended.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	if s != RegistrationStatusRegistered {
		return false
	}
	return next == RegistrationStatusCancelled || next == RegistrationStatusAttended
}

// Registration is a student's claim on a seat. Rows are never hard-deleted.
// At most one non-cancelled row may exist per (user, activity).
type Registration struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	UserID       uint               `gorm:"not null;index;uniqueIndex:idx_registrations_active_pair,where:status <> 'cancelled'" json:"user_id"`
	ActivityID   uint               `gorm:"not null;index;uniqueIndex:idx_registrations_active_pair,where:status <> 'cancelled'" json:"activity_id"`
	RegisterTime time.Time          `gorm:"not null;index" json:"register_time"`
	Status       RegistrationStatus `gorm:"size:20;not null;default:registered;index" json:"status"`
	Remark       string             `gorm:"size:255" json:"remark"`
	Activity     *Activity          `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	User         *User              `gorm:"foreignKey:UserID" json:"-"`
}
