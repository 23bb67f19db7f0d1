package models

import (
	"errors"
	"time"
)

// ActivityStatus is the lifecycle state of an activity.
type ActivityStatus string

const (
	ActivityStatusActive    ActivityStatus = "active"
	ActivityStatusCancelled ActivityStatus = "cancelled"
	ActivityStatusCompleted ActivityStatus = "completed"
)

// Valid reports whether s is a declared activity status.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityStatusActive, ActivityStatusCancelled, ActivityStatusCompleted:
		return true
	}
	return false
}

var (
	// ErrScheduleInverted is returned when an activity ends before it starts.
	ErrScheduleInverted = errors.New("end time must not be before start time")
	// ErrNegativeCapacity is returned for max_participants below zero.
	ErrNegativeCapacity = errors.New("max participants must not be negative")
)

// Activity is an event students can register for. MaxParticipants of zero means unlimited.
type Activity struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Title                string         `gorm:"size:128;not null" json:"title"`
	Description          string         `gorm:"type:text;not null" json:"description"`
	Location             string         `gorm:"size:128;not null" json:"location"`
	StartTime            time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime              time.Time      `gorm:"not null" json:"end_time"`
	RegistrationDeadline time.Time      `gorm:"not null;index" json:"registration_deadline"`
	MaxParticipants      int            `gorm:"not null;default:0" json:"max_participants"`
	CreatedBy            uint           `gorm:"index;not null" json:"created_by"`
	Status               ActivityStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// ValidateSchedule checks the structural invariants of an activity.
// A deadline after the start time is tolerated.
func (a Activity) ValidateSchedule() error {
	if a.EndTime.Before(a.StartTime) {
		return ErrScheduleInverted
	}
	if a.MaxParticipants < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// IsOpenForRegistration is true while the activity is active and the deadline has not passed.
func (a Activity) IsOpenForRegistration(now time.Time) bool {
	return a.Status == ActivityStatusActive && !now.After(a.RegistrationDeadline)
}

// IsFull reports whether registeredCount has reached a positive capacity.
func (a Activity) IsFull(registeredCount int64) bool {
	return a.MaxParticipants > 0 && registeredCount >= int64(a.MaxParticipants)
}

// CanRegister combines the open, capacity and duplicate checks.
func (a Activity) CanRegister(now time.Time, registeredCount int64, hasActiveRegistration bool) bool {
	return a.IsOpenForRegistration(now) && !a.IsFull(registeredCount) && !hasActiveRegistration
}

// HasStarted reports whether the start time is at or before now.
func (a Activity) HasStarted(now time.Time) bool {
	return !a.StartTime.After(now)
}

// RemainingSeats returns the free seats, or -1 when capacity is unlimited.
func (a Activity) RemainingSeats(registeredCount int64) int64 {
	if a.MaxParticipants <= 0 {
		return -1
	}
	remaining := int64(a.MaxParticipants) - registeredCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
