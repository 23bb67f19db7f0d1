package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// StudentHandler serves the student area: dashboard, profile and registrations.
type StudentHandler struct {
	students      service.StudentService
	activities    service.ActivityService
	registrations service.RegistrationService
	logger        zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, activities service.ActivityService, registrations service.RegistrationService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students:      students,
		activities:    activities,
		registrations: registrations,
		logger:        logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches the student routes to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/profile", h.profile)
	router.Put("/profile", h.updateProfile)
	router.Get("/registrations", h.registrationsList)
	router.Get("/activities/:id", h.activityDetail)
	router.Post("/activities/:id/register", h.register)
	router.Post("/activities/:id/cancel", h.cancel)
}

func (h *StudentHandler) dashboard(c *fiber.Ctx) error {
	dashboard, err := h.students.Dashboard(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, h.logger, err, "student_dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *StudentHandler) profile(c *fiber.Ctx) error {
	profile, err := h.students.Profile(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, h.logger, err, "student_profile")
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *StudentHandler) updateProfile(c *fiber.Ctx) error {
	var payload dto.StudentProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	profile, err := h.students.UpdateProfile(c.UserContext(), principal(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "update_profile")
	}
	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *StudentHandler) registrationsList(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.registrations.ListMine(c.UserContext(), principal(c), dto.MyRegistrationListRequest{
		Scope:    c.Query("filter"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "my_registrations")
	}

	return utils.OK(c, result.Items, "registrations retrieved", result.Pagination)
}

func (h *StudentHandler) activityDetail(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	detail, err := h.activities.Detail(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "student_activity_detail")
	}
	return utils.SendSuccess(c, "activity retrieved", detail)
}

func (h *StudentHandler) register(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	registration, err := h.registrations.Register(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "register")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", registration)
}

func (h *StudentHandler) cancel(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	registration, err := h.registrations.Cancel(c.UserContext(), principal(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "cancel_registration")
	}
	return utils.SendSuccess(c, "registration cancelled", registration)
}
