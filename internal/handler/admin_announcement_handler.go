package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// AdminAnnouncementHandler manages announcements for administrators.
type AdminAnnouncementHandler struct {
	service service.AnnouncementService
	logger  zerolog.Logger
}

// NewAdminAnnouncementHandler constructs the handler.
func NewAdminAnnouncementHandler(service service.AnnouncementService, logger zerolog.Logger) *AdminAnnouncementHandler {
	return &AdminAnnouncementHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_announcement_handler").Logger(),
	}
}

// Register wires admin announcement routes.
func (h *AdminAnnouncementHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminAnnouncementHandler) list(c *fiber.Ctx) error {
	page, _, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.service.List(c.UserContext(), principal(c), c.Query("status"), page)
	if err != nil {
		return respondError(c, h.logger, err, "admin_list_announcements")
	}
	return utils.OK(c, result.Items, "announcements retrieved", result.Pagination)
}

func (h *AdminAnnouncementHandler) create(c *fiber.Ctx) error {
	var payload dto.AnnouncementCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	item, err := h.service.Create(c.UserContext(), principal(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "create_announcement")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "announcement created", item)
}

func (h *AdminAnnouncementHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.service.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "admin_get_announcement")
	}
	return utils.SendSuccess(c, "announcement retrieved", item)
}

func (h *AdminAnnouncementHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.AnnouncementUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	item, err := h.service.Update(c.UserContext(), principal(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "update_announcement")
	}
	return utils.SendSuccess(c, "announcement updated", item)
}

func (h *AdminAnnouncementHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), principal(c), id); err != nil {
		return respondError(c, h.logger, err, "delete_announcement")
	}
	return utils.SendSuccess(c, "announcement deleted", fiber.Map{"id": id})
}
