package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// AdminSystemHandler serves the audit log and backups.
type AdminSystemHandler struct {
	logs    service.SystemLogService
	backups service.BackupService
	logger  zerolog.Logger
}

// NewAdminSystemHandler constructs the handler.
func NewAdminSystemHandler(logs service.SystemLogService, backups service.BackupService, logger zerolog.Logger) *AdminSystemHandler {
	return &AdminSystemHandler{
		logs:    logs,
		backups: backups,
		logger:  logger.With().Str("component", "admin_system_handler").Logger(),
	}
}

// Register wires the log and backup routes.
func (h *AdminSystemHandler) Register(router fiber.Router) {
	router.Get("/logs", h.listLogs)
	router.Get("/backups", h.listBackups)
	router.Post("/backups", h.createBackup)
	router.Get("/backups/:name", h.downloadBackup)
}

func (h *AdminSystemHandler) listLogs(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	userID, err := parseQueryInt(c, "user_id")
	if err != nil || userID < 0 {
		return badRequest(c, "invalid user_id")
	}

	logs, err := h.logs.List(c.UserContext(), principal(c), dto.SystemLogListRequest{
		Page:     page,
		PageSize: pageSize,
		UserID:   uint(userID),
		Action:   c.Query("action"),
	})
	if err != nil {
		return respondError(c, h.logger, err, "list_logs")
	}
	return utils.SendSuccess(c, "logs retrieved", logs)
}

func (h *AdminSystemHandler) listBackups(c *fiber.Ctx) error {
	files, err := h.backups.List(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, h.logger, err, "list_backups")
	}
	return utils.SendSuccess(c, "backups retrieved", files)
}

func (h *AdminSystemHandler) createBackup(c *fiber.Ctx) error {
	file, err := h.backups.Create(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, h.logger, err, "create_backup")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "backup created", file)
}

func (h *AdminSystemHandler) downloadBackup(c *fiber.Ctx) error {
	name := c.Params("name")
	body, err := h.backups.Read(c.UserContext(), principal(c), name)
	if err != nil {
		return respondError(c, h.logger, err, "download_backup")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(body)
}
