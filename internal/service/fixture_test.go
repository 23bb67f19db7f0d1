package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// recorderSpy captures audit entries in memory.
type recorderSpy struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (r *recorderSpy) RecordAction(ctx context.Context, entry LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorderSpy) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type fixture struct {
	db            *gorm.DB
	users         repository.UserRepository
	students      repository.StudentRepository
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	reports       repository.ReportRepository
	recorder      *recorderSpy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
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

	return &fixture{
		db:            db,
		users:         repository.NewUserRepository(db),
		students:      repository.NewStudentRepository(db),
		activities:    repository.NewActivityRepository(db),
		registrations: repository.NewRegistrationRepository(db),
		reports:       repository.NewReportRepository(db),
		recorder:      &recorderSpy{},
	}
}

func (f *fixture) student(t *testing.T, username, studentID, college, grade string) authz.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        username + "@campus.edu",
		PasswordHash: string(hash),
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
	require.NoError(t, f.db.Create(&user).Error)
	return authz.NewPrincipal(user.ID, models.RoleStudent)
}

var adminSeq int64

func (f *fixture) admin(t *testing.T) authz.Principal {
	t.Helper()
	seq := atomic.AddInt64(&adminSeq, 1)
	user := models.User{
		Username:     fmt.Sprintf("admin%d", seq),
		Email:        fmt.Sprintf("admin%d@campus.edu", seq),
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return authz.NewPrincipal(user.ID, models.RoleAdmin)
}

func (f *fixture) activity(t *testing.T, title string, capacity int, deadline time.Time) models.Activity {
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
	require.NoError(t, f.db.Create(&activity).Error)
	return activity
}

func (f *fixture) registrationService() *registrationService {
	return NewRegistrationService(f.registrations, f.activities, f.students, NewValidator(), f.recorder, testLogger()).(*registrationService)
}

func (f *fixture) activityService() *activityService {
	return NewActivityService(f.activities, f.registrations, NewValidator(), f.recorder, testLogger()).(*activityService)
}
