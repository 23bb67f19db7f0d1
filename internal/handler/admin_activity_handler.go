package handler

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/repository"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// AdminActivityHandler serves activity management, rosters, export and check-in.
type AdminActivityHandler struct {
	activities    service.ActivityService
	registrations service.RegistrationService
	reports       service.ReportService
	logger        zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(activities service.ActivityService, registrations service.RegistrationService, reports service.ReportService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		activities:    activities,
		registrations: registrations,
		reports:       reports,
		logger:        logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches the admin activity routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/complete", h.complete)
	router.Get("/:id/registrations", h.roster)
	router.Get("/:id/export", h.export)
	router.Get("/:id/checkin", h.checkInSheet)
	router.Post("/:id/checkin", h.checkIn)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.activities.List(c.UserContext(), principal(c), dto.ActivityListRequest{
		Visibility: c.Query("filter"),
		Status:     c.Query("status"),
		Query:      c.Query("q"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "admin_list_activities")
	}

	return utils.OK(c, result.Items, "activities retrieved", result.Pagination)
}

func (h *AdminActivityHandler) create(c *fiber.Ctx) error {
	var payload dto.ActivityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	activity, err := h.activities.Create(c.UserContext(), principal(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "create_activity")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity created", activity)
}

func (h *AdminActivityHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	activity, err := h.activities.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "get_activity")
	}

	return utils.SendSuccess(c, "activity retrieved", activity)
}

func (h *AdminActivityHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ActivityUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	activity, err := h.activities.Update(c.UserContext(), principal(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "update_activity")
	}

	return utils.SendSuccess(c, "activity updated", activity)
}

func (h *AdminActivityHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.activities.DeleteOrCancel(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "delete_activity")
	}

	message := "activity deleted"
	if result.Outcome == string(repository.DeleteOutcomeCancelled) {
		message = "activity has registrations and was cancelled instead"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *AdminActivityHandler) complete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	activity, err := h.activities.Complete(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "complete_activity")
	}

	return utils.SendSuccess(c, "activity completed", activity)
}

func (h *AdminActivityHandler) roster(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, _, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	roster, err := h.registrations.ListForActivity(c.UserContext(), principal(c), id, page)
	if err != nil {
		return respondError(c, h.logger, err, "activity_roster")
	}

	return utils.SendSuccess(c, "registrations retrieved", roster)
}

func (h *AdminActivityHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	file, err := h.reports.ExportRoster(c.UserContext(), principal(c), id, c.Query("format"))
	if err != nil {
		return respondError(c, h.logger, err, "export_roster")
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(file.Filename))
	return c.Status(fiber.StatusOK).Send(file.Body)
}

func (h *AdminActivityHandler) checkInSheet(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	sheet, err := h.registrations.CheckInSheet(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "checkin_sheet")
	}

	return utils.SendSuccess(c, "check-in sheet retrieved", sheet)
}

func (h *AdminActivityHandler) checkIn(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.CheckInRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	result, err := h.registrations.CheckIn(c.UserContext(), principal(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "checkin")
	}

	message := fmt.Sprintf("%s checked in", result.RealName)
	if !result.Changed {
		message = fmt.Sprintf("%s was already checked in", result.RealName)
	}
	return utils.SendSuccess(c, message, result)
}

// contentDisposition sends an ASCII fallback plus the RFC 5987 UTF-8 name, since
// roster filenames carry CJK characters.
func contentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="roster%s"; filename*=UTF-8''%s`, filepath.Ext(filename), url.PathEscape(filename))
}
