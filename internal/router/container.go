package router

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/config"
	"github.com/noah-isme/activity-portal-api/internal/handler"
	"github.com/noah-isme/activity-portal-api/internal/repository"
	"github.com/noah-isme/activity-portal-api/internal/service"
)

const announcementCacheTTL = 5 * time.Minute

// Components are the long-lived resources the services are built from. Redis is optional.
type Components struct {
	Config config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Logger zerolog.Logger
}

// Container exposes the built dependencies plus the services main needs directly.
type Container struct {
	Dependencies Dependencies
	Auth         service.AuthService
}

// Build constructs repositories, services and handlers.
func Build(components Components) (Container, error) {
	cfg := components.Config
	db := components.DB
	logger := components.Logger

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	validate := service.NewValidator()

	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db)
	activities := repository.NewActivityRepository(db)
	registrations := repository.NewRegistrationRepository(db)
	reports := repository.NewReportRepository(db)
	announcements := repository.NewAnnouncementRepository(db)
	systemLogs := repository.NewSystemLogRepository(db)

	var tokens repository.TokenRevocationStore
	if components.Redis != nil {
		tokens = repository.NewTokenRevocationStore(components.Redis)
	}

	logService := service.NewSystemLogService(systemLogs, logger)
	authService := service.NewAuthService(users, tokens, validate, logService, service.AuthConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTTTL,
	}, logger)
	activityService := service.NewActivityService(activities, registrations, validate, logService, logger)
	registrationService := service.NewRegistrationService(registrations, activities, students, validate, logService, logger)
	studentService := service.NewStudentService(students, activities, registrations, validate, logService, logger)
	reportService := service.NewReportService(reports, location, logService, logger)
	backupService := service.NewBackupService(reports, cfg.BackupDir, logService, logger)
	announcementService := service.NewAnnouncementService(announcements, components.Redis, announcementCacheTTL, validate, logService, logger)
	notificationService := service.NewNotificationService(activities, registrations, location, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return Container{}, err
	}

	return Container{
		Auth: authService,
		Dependencies: Dependencies{
			Verifier:                 authService,
			Database:                 sqlDB,
			AuthHandler:              handler.NewAuthHandler(authService, logger),
			ActivityHandler:          handler.NewActivityHandler(activityService, logger),
			AnnouncementHandler:      handler.NewAnnouncementHandler(announcementService, logger),
			NotificationHandler:      handler.NewNotificationHandler(notificationService, logger),
			StudentHandler:           handler.NewStudentHandler(studentService, activityService, registrationService, logger),
			AdminActivityHandler:     handler.NewAdminActivityHandler(activityService, registrationService, reportService, logger),
			AdminStudentHandler:      handler.NewAdminStudentHandler(studentService, logger),
			AdminAnalyticsHandler:    handler.NewAdminAnalyticsHandler(reportService, logger),
			AdminSystemHandler:       handler.NewAdminSystemHandler(logService, backupService, logger),
			AdminAnnouncementHandler: handler.NewAdminAnnouncementHandler(announcementService, logger),
		},
	}, nil
}
