package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// Scopes for a student's own registrations.
const (
	ScopeAll       = "all"
	ScopeUpcoming  = "upcoming"
	ScopePast      = "past"
	ScopeCancelled = "cancelled"
)

var (
	// ErrUnsupportedScope is returned for unknown registration scopes.
	ErrUnsupportedScope = errors.New("unsupported registration scope")
	// ErrRegistrationChanged signals that a conditional status update matched no row.
	ErrRegistrationChanged = errors.New("registration changed concurrently")
)

// SeatState is the locked view of an activity handed to a reservation guard.
type SeatState struct {
	Activity   models.Activity
	Registered int64
	Existing   *models.Registration
}

// CancelState is the locked view handed to a cancellation guard.
type CancelState struct {
	Activity     models.Activity
	Registration *models.Registration
}

// MyRegistrationFilter narrows a student's own registrations.
type MyRegistrationFilter struct {
	UserID   uint
	Scope    string
	Now      time.Time
	Page     int
	PageSize int
}

// RosterEntry is one registration joined with its student profile.
type RosterEntry struct {
	RegistrationID uint
	UserID         uint
	Username       string
	RealName       string
	StudentID      string
	Grade          string
	Major          string
	College        string
	Phone          string
	QQ             string
	RegisterTime   time.Time
	Status         models.RegistrationStatus
	Remark         string
}

// RegistrationRepository persists registrations and serializes seat allocation.
type RegistrationRepository interface {
	Reserve(ctx context.Context, userID, activityID uint, at time.Time, guard func(SeatState) error) (models.Registration, error)
	Cancel(ctx context.Context, userID, activityID uint, guard func(CancelState) error) (models.Registration, error)
	MarkAttended(ctx context.Context, userID, activityID uint) (models.Registration, bool, error)
	Current(ctx context.Context, userID, activityID uint) (*models.Registration, error)
	CountRegistered(ctx context.Context, activityID uint) (int64, error)
	ListMine(ctx context.Context, filter MyRegistrationFilter) ([]models.Registration, int64, error)
	UpcomingForUser(ctx context.Context, userID uint, from, to time.Time) ([]models.Registration, error)
	ListForActivity(ctx context.Context, activityID uint, page, pageSize int) ([]RosterEntry, int64, error)
	RosterByStatus(ctx context.Context, activityID uint, statuses ...models.RegistrationStatus) ([]RosterEntry, error)
}

type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository constructs the registration repository.
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Reserve allocates a seat. The activity row stays locked while the registered
// count is re-read, the guard runs and the new row is inserted, so concurrent
// reservations for the same activity are serialized. A guard error aborts the
// transaction and is returned as is.
func (r *registrationRepository) Reserve(ctx context.Context, userID, activityID uint, at time.Time, guard func(SeatState) error) (models.Registration, error) {
	var registration models.Registration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state SeatState
		if err := lockActivity(tx, activityID, &state.Activity); err != nil {
			return err
		}

		if err := tx.Model(&models.Registration{}).
			Where("activity_id = ? AND status = ?", activityID, models.RegistrationStatusRegistered).
			Count(&state.Registered).Error; err != nil {
			return err
		}

		existing, err := currentRegistration(tx, userID, activityID)
		if err != nil {
			return err
		}
		state.Existing = existing

		if err := guard(state); err != nil {
			return err
		}

		registration = models.Registration{
			UserID:       userID,
			ActivityID:   activityID,
			RegisterTime: at,
			Status:       models.RegistrationStatusRegistered,
		}
		return tx.Create(&registration).Error
	})
	if err != nil {
		return models.Registration{}, err
	}

	return registration, nil
}

// Cancel moves the caller's registered row to cancelled after the guard approves.
func (r *registrationRepository) Cancel(ctx context.Context, userID, activityID uint, guard func(CancelState) error) (models.Registration, error) {
	var registration models.Registration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state CancelState
		if err := lockActivity(tx, activityID, &state.Activity); err != nil {
			return err
		}

		existing, err := currentRegistration(tx, userID, activityID)
		if err != nil {
			return err
		}
		state.Registration = existing

		if err := guard(state); err != nil {
			return err
		}
		if existing == nil {
			return gorm.ErrRecordNotFound
		}

		result := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", existing.ID, models.RegistrationStatusRegistered).
			Update("status", models.RegistrationStatusCancelled)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRegistrationChanged
		}

		registration = *existing
		registration.Status = models.RegistrationStatusCancelled
		return nil
	})
	if err != nil {
		return models.Registration{}, err
	}

	return registration, nil
}

// MarkAttended sets the user's non-cancelled registration to attended. The
// boolean reports whether the status changed; an attended row is left alone.
func (r *registrationRepository) MarkAttended(ctx context.Context, userID, activityID uint) (models.Registration, bool, error) {
	var (
		registration models.Registration
		changed      bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := currentRegistration(tx, userID, activityID)
		if err != nil {
			return err
		}
		if existing == nil {
			return gorm.ErrRecordNotFound
		}

		registration = *existing
		if existing.Status == models.RegistrationStatusAttended {
			return nil
		}

		result := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", existing.ID, models.RegistrationStatusRegistered).
			Update("status", models.RegistrationStatusAttended)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRegistrationChanged
		}

		registration.Status = models.RegistrationStatusAttended
		changed = true
		return nil
	})
	if err != nil {
		return models.Registration{}, false, err
	}

	return registration, changed, nil
}

// Current returns the user's non-cancelled registration for the activity, or nil.
func (r *registrationRepository) Current(ctx context.Context, userID, activityID uint) (*models.Registration, error) {
	return currentRegistration(r.db.WithContext(ctx), userID, activityID)
}

func (r *registrationRepository) CountRegistered(ctx context.Context, activityID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("activity_id = ? AND status = ?", activityID, models.RegistrationStatusRegistered).
		Count(&count).Error
	return count, err
}

func (r *registrationRepository) ListMine(ctx context.Context, filter MyRegistrationFilter) ([]models.Registration, int64, error) {
	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}

	query := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Joins("JOIN activities ON activities.id = registrations.activity_id").
		Where("registrations.user_id = ?", filter.UserID)

	switch filter.Scope {
	case "", ScopeAll:
	case ScopeUpcoming:
		query = query.Where("activities.start_time > ? AND registrations.status = ?", now, models.RegistrationStatusRegistered)
	case ScopePast:
		query = query.Where("activities.end_time < ? AND registrations.status <> ?", now, models.RegistrationStatusCancelled)
	case ScopeCancelled:
		query = query.Where("registrations.status = ?", models.RegistrationStatusCancelled)
	default:
		return nil, 0, ErrUnsupportedScope
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPage(query, filter.Page, filter.PageSize)

	var registrations []models.Registration
	err := query.
		Preload("Activity").
		Order("activities.start_time DESC, registrations.id DESC").
		Find(&registrations).Error
	if err != nil {
		return nil, 0, err
	}

	return registrations, total, nil
}

// UpcomingForUser lists registered rows whose activity starts within [from, to].
func (r *registrationRepository) UpcomingForUser(ctx context.Context, userID uint, from, to time.Time) ([]models.Registration, error) {
	var registrations []models.Registration
	err := r.db.WithContext(ctx).
		Joins("JOIN activities ON activities.id = registrations.activity_id").
		Where("registrations.user_id = ? AND registrations.status = ?", userID, models.RegistrationStatusRegistered).
		Where("activities.status = ? AND activities.start_time >= ? AND activities.start_time <= ?", models.ActivityStatusActive, from, to).
		Preload("Activity").
		Order("activities.start_time ASC").
		Find(&registrations).Error
	return registrations, err
}

func (r *registrationRepository) ListForActivity(ctx context.Context, activityID uint, page, pageSize int) ([]RosterEntry, int64, error) {
	query := rosterQuery(r.db.WithContext(ctx), activityID)

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []RosterEntry
	if err := applyPage(query, page, pageSize).Select(rosterColumns).Order(rosterOrder).Scan(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *registrationRepository) RosterByStatus(ctx context.Context, activityID uint, statuses ...models.RegistrationStatus) ([]RosterEntry, error) {
	query := rosterQuery(r.db.WithContext(ctx), activityID)
	if len(statuses) > 0 {
		query = query.Where("registrations.status IN ?", statuses)
	}

	var entries []RosterEntry
	if err := query.Select(rosterColumns).Order(rosterOrder).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func currentRegistration(tx *gorm.DB, userID, activityID uint) (*models.Registration, error) {
	var registration models.Registration
	err := tx.
		Where("user_id = ? AND activity_id = ? AND status <> ?", userID, activityID, models.RegistrationStatusCancelled).
		Order("id DESC").
		Take(&registration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

const (
	rosterColumns = `registrations.id AS registration_id, registrations.user_id, users.username,
		student_profiles.real_name, student_profiles.student_id, student_profiles.grade,
		student_profiles.major, student_profiles.college, student_profiles.phone, student_profiles.qq,
		registrations.register_time, registrations.status, registrations.remark`
	rosterOrder = "registrations.register_time ASC, registrations.id ASC"
)

// rosterQuery joins registrations with accounts and profiles for one activity.
func rosterQuery(db *gorm.DB, activityID uint) *gorm.DB {
	return db.
		Table("registrations").
		Joins("JOIN users ON users.id = registrations.user_id").
		Joins("LEFT JOIN student_profiles ON student_profiles.user_id = registrations.user_id").
		Where("registrations.activity_id = ?", activityID)
}
