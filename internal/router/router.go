package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/config"
	"github.com/noah-isme/activity-portal-api/internal/handler"
	"github.com/noah-isme/activity-portal-api/internal/middleware"
	"github.com/noah-isme/activity-portal-api/internal/observability"
	"github.com/noah-isme/activity-portal-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Verifier                 service.TokenVerifier
	Database                 handler.Pinger
	AuthHandler              *handler.AuthHandler
	ActivityHandler          *handler.ActivityHandler
	AnnouncementHandler      *handler.AnnouncementHandler
	NotificationHandler      *handler.NotificationHandler
	StudentHandler           *handler.StudentHandler
	AdminActivityHandler     *handler.AdminActivityHandler
	AdminStudentHandler      *handler.AdminStudentHandler
	AdminAnalyticsHandler    *handler.AdminAnalyticsHandler
	AdminSystemHandler       *handler.AdminSystemHandler
	AdminAnnouncementHandler *handler.AdminAnnouncementHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Every /api/v1 request resolves its caller; anonymous callers pass through
	// and the per-group guards decide.
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, middleware.Authenticate(deps.Verifier, true))
	api.Get("/health", handler.HealthCheck(cfg, deps.Database))

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.RegisterPublic(auth, middleware.RateLimit("login", cfg.LoginRateMax, cfg.LoginRateWin))
		deps.AuthHandler.RegisterSession(auth, middleware.RequireAction(authz.ActionLogout))
	}

	if deps.ActivityHandler != nil {
		api.Get("/home", deps.ActivityHandler.Home)
		deps.ActivityHandler.Register(api.Group("/activities"))
	}

	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.Register(api.Group("/announcements"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", middleware.RequireAction(authz.ActionViewNotifications)))
	}

	if deps.StudentHandler != nil {
		student := api.Group("/student", middleware.RequireAction(authz.ActionViewOwnActivities))
		deps.StudentHandler.Register(student)
	}

	// Admin area: the group guard rejects non-admins; services re-check the exact action.
	admin := api.Group("/admin", middleware.RequireAction(authz.ActionViewReports))

	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
	}
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"))
	}
	if deps.AdminAnalyticsHandler != nil {
		deps.AdminAnalyticsHandler.Register(admin)
	}
	if deps.AdminSystemHandler != nil {
		deps.AdminSystemHandler.Register(admin)
	}
	if deps.AdminAnnouncementHandler != nil {
		deps.AdminAnnouncementHandler.Register(admin.Group("/announcements"))
	}
}
