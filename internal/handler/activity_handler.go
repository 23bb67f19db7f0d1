package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// ActivityHandler serves the public catalogue and the activity detail page.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires the catalogue routes. The caller may be anonymous.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.detail)
}

// Home serves the landing page sections.
func (h *ActivityHandler) Home(c *fiber.Ctx) error {
	home, err := h.service.Home(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "home")
	}
	return utils.SendSuccess(c, "home retrieved", home)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.service.List(c.UserContext(), principal(c), dto.ActivityListRequest{
		Visibility: c.Query("filter"),
		Status:     c.Query("status"),
		Query:      c.Query("q"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "list_activities")
	}

	return utils.OK(c, result.Items, "activities retrieved", result.Pagination)
}

func (h *ActivityHandler) detail(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	detail, err := h.service.Detail(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "activity_detail")
	}

	return utils.SendSuccess(c, "activity retrieved", detail)
}
