package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/middleware"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// AuthHandler serves sign-up, login, logout and password changes.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic wires the unauthenticated routes. loginLimiter guards the login endpoint.
func (h *AuthHandler) RegisterPublic(router fiber.Router, loginLimiter fiber.Handler) {
	router.Post("/register", h.register)
	if loginLimiter != nil {
		router.Post("/login", loginLimiter, h.login)
		return
	}
	router.Post("/login", h.login)
}

// RegisterSession wires routes that require a verified session behind authenticate.
func (h *AuthHandler) RegisterSession(router fiber.Router, authenticate fiber.Handler) {
	router.Post("/logout", authenticate, h.logout)
	router.Post("/password", authenticate, h.changePassword)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.SignupRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	user, err := h.service.RegisterAccount(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "signup")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful, please log in", user)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	session, err := h.service.Authenticate(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "login")
	}

	return utils.SendSuccess(c, "login successful", session)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.Logout(c.UserContext(), claims); err != nil {
		return respondError(c, h.logger, err, "logout")
	}

	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := h.service.ChangePassword(c.UserContext(), principal(c), payload); err != nil {
		return respondError(c, h.logger, err, "change_password")
	}

	return utils.SendSuccess(c, "password updated", nil)
}
