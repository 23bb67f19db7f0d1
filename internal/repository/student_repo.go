package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// StudentFilter narrows the admin student listing.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}

// StudentRepository provides access to student profiles.
type StudentRepository interface {
	GetByUserID(ctx context.Context, userID uint) (models.StudentProfile, error)
	GetByStudentNumber(ctx context.Context, studentNumber string) (models.StudentProfile, error)
	Update(ctx context.Context, userID uint, updates map[string]interface{}) (models.StudentProfile, error)
	List(ctx context.Context, filter StudentFilter) ([]models.StudentProfile, int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID uint) (models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return models.StudentProfile{}, err
	}
	return profile, nil
}

func (r *studentRepository) GetByStudentNumber(ctx context.Context, studentNumber string) (models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentNumber).First(&profile).Error; err != nil {
		return models.StudentProfile{}, err
	}
	return profile, nil
}

func (r *studentRepository) Update(ctx context.Context, userID uint, updates map[string]interface{}) (models.StudentProfile, error) {
	result := r.db.WithContext(ctx).Model(&models.StudentProfile{}).Where("user_id = ?", userID).Updates(updates)
	if result.Error != nil {
		return models.StudentProfile{}, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByUserID(ctx, userID); err != nil {
			return models.StudentProfile{}, err
		}
	}
	return r.GetByUserID(ctx, userID)
}

// List searches real name, student id, college and major.
func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.StudentProfile, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentProfile{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(real_name) LIKE ? OR LOWER(student_id) LIKE ? OR LOWER(college) LIKE ? OR LOWER(major) LIKE ?",
			like, like, like, like,
		)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPage(query, filter.Page, filter.PageSize)

	var profiles []models.StudentProfile
	if err := query.Order("student_id ASC").Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func applyPage(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}
