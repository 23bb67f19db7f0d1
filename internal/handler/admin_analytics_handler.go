package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// AdminAnalyticsHandler serves the admin dashboard, statistics and charts.
type AdminAnalyticsHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewAdminAnalyticsHandler constructs the handler.
func NewAdminAnalyticsHandler(service service.ReportService, logger zerolog.Logger) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_analytics_handler").Logger(),
	}
}

// Register wires analytics routes.
func (h *AdminAnalyticsHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/statistics", h.statistics)
	router.Get("/statistics/chart", h.chart)
}

func (h *AdminAnalyticsHandler) dashboard(c *fiber.Ctx) error {
	dashboard, err := h.service.Dashboard(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, h.logger, err, "admin_dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *AdminAnalyticsHandler) statistics(c *fiber.Ctx) error {
	days, err := parseQueryInt(c, "days")
	if err != nil {
		return badRequest(c, "invalid days")
	}

	stats, err := h.service.Statistics(c.UserContext(), principal(c), days)
	if err != nil {
		return respondError(c, h.logger, err, "statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}

func (h *AdminAnalyticsHandler) chart(c *fiber.Ctx) error {
	days, err := parseQueryInt(c, "days")
	if err != nil {
		return badRequest(c, "invalid days")
	}

	chart, err := h.service.Chart(c.UserContext(), principal(c), c.Query("type"), days)
	if err != nil {
		return respondError(c, h.logger, err, "chart")
	}
	return utils.SendSuccess(c, "chart retrieved", chart)
}
