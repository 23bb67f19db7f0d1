package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// SystemLogFilter narrows system log queries.
type SystemLogFilter struct {
	Page     int
	PageSize int
	UserID   *uint
	Action   string
}

// SystemLogRepository persists the append-only audit trail.
type SystemLogRepository interface {
	Create(ctx context.Context, entry *models.SystemLog) error
	List(ctx context.Context, filter SystemLogFilter) ([]models.SystemLog, int64, error)
	Actions(ctx context.Context) ([]string, error)
}

type systemLogRepository struct {
	db *gorm.DB
}

// NewSystemLogRepository constructs the system log repository.
func NewSystemLogRepository(db *gorm.DB) SystemLogRepository {
	return &systemLogRepository{db: db}
}

func (r *systemLogRepository) Create(ctx context.Context, entry *models.SystemLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *systemLogRepository) List(ctx context.Context, filter SystemLogFilter) ([]models.SystemLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SystemLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPage(query, filter.Page, filter.PageSize)

	var entries []models.SystemLog
	if err := query.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *systemLogRepository) Actions(ctx context.Context) ([]string, error) {
	var actions []string
	err := r.db.WithContext(ctx).
		Model(&models.SystemLog{}).
		Distinct("action").
		Order("action ASC").
		Pluck("action", &actions).Error
	return actions, err
}
