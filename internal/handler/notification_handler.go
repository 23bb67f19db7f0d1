package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// NotificationHandler serves the polled reminder list.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register wires notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, h.logger, err, "notifications")
	}
	return utils.OK(c, items, "notifications retrieved", fiber.Map{"count": len(items)})
}
