package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// AnnouncementHandler handles public announcement endpoints.
type AnnouncementHandler struct {
	service service.AnnouncementService
	logger  zerolog.Logger
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(service service.AnnouncementService, logger zerolog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		service: service,
		logger:  logger.With().Str("component", "announcement_handler").Logger(),
	}
}

// Register wires routes for announcements.
func (h *AnnouncementHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *AnnouncementHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.service.ListPublished(c.UserContext(), page, pageSize)
	if err != nil {
		return respondError(c, h.logger, err, "list_announcements")
	}

	c.Set("X-Cache-Hit", strconv.FormatBool(result.CacheHit))
	return utils.SendSuccess(c, "announcements retrieved", result)
}

func (h *AnnouncementHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.service.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "get_announcement")
	}
	return utils.SendSuccess(c, "announcement retrieved", item)
}
