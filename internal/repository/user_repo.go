package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// UserRepository persists accounts and their student profiles.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	TakenFields(ctx context.Context, username, email, studentID string) ([]string, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
	CountAdmins(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user and, when present, its student profile in one transaction.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("StudentProfile").First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("StudentProfile").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// TakenFields returns the names of the sign-up fields that already exist.
func (r *userRepository) TakenFields(ctx context.Context, username, email, studentID string) ([]string, error) {
	db := r.db.WithContext(ctx)
	taken := make([]string, 0, 3)

	checks := []struct {
		field string
		model interface{}
		where string
		value string
	}{
		{"username", &models.User{}, "username = ?", username},
		{"email", &models.User{}, "email = ?", email},
		{"student_id", &models.StudentProfile{}, "student_id = ?", studentID},
	}

	for _, check := range checks {
		if check.value == "" {
			continue
		}
		var count int64
		if err := db.Model(check.model).Where(check.where, check.value).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			taken = append(taken, check.field)
		}
	}

	return taken, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at).Error
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error
	return count, err
}
