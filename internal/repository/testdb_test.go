package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// newTestDB opens a private in-memory database with a single connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, username, studentID, college, grade string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@campus.edu",
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		StudentProfile: &models.StudentProfile{
			RealName:  strings.ToUpper(username[:1]) + username[1:],
			StudentID: studentID,
			Grade:     grade,
			Major:     "Computer Science",
			College:   college,
			Phone:     "13800000000",
			QQ:        "123456",
		},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedActivity(t *testing.T, db *gorm.DB, title string, capacity int, deadline time.Time) models.Activity {
	t.Helper()
	activity := models.Activity{
		Title:                title,
		Description:          title + " description",
		Location:             "Main Hall",
		StartTime:            deadline.Add(24 * time.Hour),
		EndTime:              deadline.Add(26 * time.Hour),
		RegistrationDeadline: deadline,
		MaxParticipants:      capacity,
		CreatedBy:            1,
		Status:               models.ActivityStatusActive,
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}
