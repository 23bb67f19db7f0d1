package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// Activity list visibilities.
const (
	VisibilityAll  = "all"
	VisibilityOpen = "open"
	VisibilityPast = "past"
)

// ErrUnsupportedVisibility is returned for unknown list visibilities.
var ErrUnsupportedVisibility = errors.New("unsupported activity visibility")

// DeleteOutcome reports what DeleteOrCancel did to the activity row.
type DeleteOutcome string

const (
	DeleteOutcomeDeleted   DeleteOutcome = "deleted"
	DeleteOutcomeCancelled DeleteOutcome = "cancelled"
)

// ActivityFilter narrows activity listings. Now anchors the open/past visibilities.
type ActivityFilter struct {
	Visibility string
	Status     models.ActivityStatus
	Query      string
	Now        time.Time
	Page       int
	PageSize   int
}

// ActivityRepository persists activities.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id uint) (models.Activity, error)
	Mutate(ctx context.Context, id uint, mutate func(activity *models.Activity) error) (models.Activity, error)
	DeleteOrCancel(ctx context.Context, id uint) (DeleteOutcome, models.Activity, error)
	List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error)
	Latest(ctx context.Context, limit int) ([]models.Activity, error)
	MostPopularOpen(ctx context.Context, now time.Time, limit int) ([]models.Activity, error)
	ClosingSoon(ctx context.Context, now time.Time, limit int) ([]models.Activity, error)
	OpenNotRegisteredBy(ctx context.Context, userID uint, now time.Time, limit int) ([]models.Activity, error)
	DeadlineBetween(ctx context.Context, from, to time.Time) ([]models.Activity, error)
	RegisteredCounts(ctx context.Context, ids []uint) (map[uint]int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs the activity repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

// Mutate loads the activity under a row lock, applies mutate and saves the result.
// An error from mutate rolls the transaction back and is returned unchanged.
func (r *activityRepository) Mutate(ctx context.Context, id uint, mutate func(activity *models.Activity) error) (models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActivity(tx, id, &activity); err != nil {
			return err
		}
		if err := mutate(&activity); err != nil {
			return err
		}
		return tx.Save(&activity).Error
	})
	if err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

// DeleteOrCancel hard-deletes an activity without registrations of any status and
// otherwise marks it cancelled, keeping every registration row.
func (r *activityRepository) DeleteOrCancel(ctx context.Context, id uint) (DeleteOutcome, models.Activity, error) {
	var (
		activity models.Activity
		outcome  DeleteOutcome
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActivity(tx, id, &activity); err != nil {
			return err
		}

		var registrations int64
		if err := tx.Model(&models.Registration{}).Where("activity_id = ?", id).Count(&registrations).Error; err != nil {
			return err
		}

		if registrations == 0 {
			outcome = DeleteOutcomeDeleted
			return tx.Delete(&models.Activity{}, id).Error
		}

		outcome = DeleteOutcomeCancelled
		activity.Status = models.ActivityStatusCancelled
		return tx.Model(&activity).Update("status", models.ActivityStatusCancelled).Error
	})
	if err != nil {
		return "", models.Activity{}, err
	}

	return outcome, activity, nil
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Activity{})

	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}

	switch filter.Visibility {
	case "", VisibilityAll:
	case VisibilityOpen:
		query = query.Where("status = ? AND registration_deadline >= ?", models.ActivityStatusActive, now)
	case VisibilityPast:
		query = query.Where("status = ? OR registration_deadline < ?", models.ActivityStatusCompleted, now)
	default:
		return nil, 0, ErrUnsupportedVisibility
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPage(query, filter.Page, filter.PageSize)

	var activities []models.Activity
	if err := query.Order("created_at DESC, id DESC").Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

func (r *activityRepository) Latest(ctx context.Context, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ActivityStatusActive).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// MostPopularOpen orders open activities by their registered headcount.
func (r *activityRepository) MostPopularOpen(ctx context.Context, now time.Time, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Model(&models.Activity{}).
		Select("activities.*").
		Joins("LEFT JOIN registrations ON registrations.activity_id = activities.id AND registrations.status = ?", models.RegistrationStatusRegistered).
		Where("activities.status = ? AND activities.registration_deadline >= ?", models.ActivityStatusActive, now).
		Group("activities.id").
		Order("COUNT(registrations.id) DESC, activities.id ASC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

func (r *activityRepository) ClosingSoon(ctx context.Context, now time.Time, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Where("status = ? AND registration_deadline >= ?", models.ActivityStatusActive, now).
		Order("registration_deadline ASC, id ASC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// OpenNotRegisteredBy lists open activities the user has never registered for.
func (r *activityRepository) OpenNotRegisteredBy(ctx context.Context, userID uint, now time.Time, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Where("status = ? AND registration_deadline >= ?", models.ActivityStatusActive, now).
		Where("NOT EXISTS (SELECT 1 FROM registrations WHERE registrations.activity_id = activities.id AND registrations.user_id = ?)", userID).
		Order("registration_deadline ASC, id ASC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

func (r *activityRepository) DeadlineBetween(ctx context.Context, from, to time.Time) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Where("status = ? AND registration_deadline >= ? AND registration_deadline <= ?", models.ActivityStatusActive, from, to).
		Order("registration_deadline ASC, id ASC").
		Find(&activities).Error
	return activities, err
}

// RegisteredCounts returns the number of registered rows per activity id.
func (r *activityRepository) RegisteredCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		ActivityID uint
		Total      int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Select("activity_id, COUNT(*) AS total").
		Where("activity_id IN ? AND status = ?", ids, models.RegistrationStatusRegistered).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.ActivityID] = row.Total
	}
	return counts, nil
}

// lockActivity reads the activity row with SELECT ... FOR UPDATE.
func lockActivity(tx *gorm.DB, id uint, activity *models.Activity) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(activity, id).Error
}
