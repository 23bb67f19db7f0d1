package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

// Audit actions written to the system log.
const (
	ActionUserSignup         = "user_signup"
	ActionUserLogin          = "user_login"
	ActionUserLogout         = "user_logout"
	ActionPasswordChange     = "password_change"
	ActionProfileUpdate      = "profile_update"
	ActionActivityRegister   = "activity_register"
	ActionActivityUnregister = "activity_cancel_registration"
	ActionActivityCheckIn    = "activity_checkin"
	ActionActivityCreate     = "activity_create"
	ActionActivityUpdate     = "activity_update"
	ActionActivityDelete     = "activity_delete"
	ActionActivityCancel     = "activity_cancel"
	ActionActivityComplete   = "activity_complete"
	ActionRosterExport       = "roster_export"
	ActionSystemBackup       = "system_backup"
	ActionAnnouncementCreate = "announcement_create"
	ActionAnnouncementUpdate = "announcement_update"
	ActionAnnouncementDelete = "announcement_delete"
)

const systemLogPageSize = 20

// LogEntry captures the details required to persist an audit entry.
type LogEntry struct {
	UserID   uint
	Action   string
	Details  string
	Metadata map[string]interface{}
}

// ActionRecorder appends audit entries. Recording is best-effort: failures are
// logged and never reach the business caller.
type ActionRecorder interface {
	RecordAction(ctx context.Context, entry LogEntry)
}

// SystemLogService exposes methods to query and persist system logs.
type SystemLogService interface {
	ActionRecorder
	List(ctx context.Context, principal authz.Principal, req dto.SystemLogListRequest) (dto.SystemLogListResponse, error)
}

type systemLogService struct {
	repo   repository.SystemLogRepository
	logger zerolog.Logger
}

// NewSystemLogService constructs the system log service.
func NewSystemLogService(repo repository.SystemLogRepository, logger zerolog.Logger) SystemLogService {
	return &systemLogService{
		repo:   repo,
		logger: logger.With().Str("component", "system_log_service").Logger(),
	}
}

func (s *systemLogService) RecordAction(ctx context.Context, entry LogEntry) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action == "" {
		s.logger.Warn().Msg("dropping system log entry without action")
		return
	}

	model := models.SystemLog{
		Action:    action,
		Details:   entry.Details,
		IPAddress: SourceAddress(ctx),
		Metadata:  sanitizeMetadata(entry.Metadata),
	}
	if entry.UserID != 0 {
		userID := entry.UserID
		model.UserID = &userID
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist system log")
	}
}

func (s *systemLogService) List(ctx context.Context, principal authz.Principal, req dto.SystemLogListRequest) (dto.SystemLogListResponse, error) {
	if err := authz.Authorize(principal, authz.ActionViewLogs); err != nil {
		return dto.SystemLogListResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = systemLogPageSize
	}

	filter := repository.SystemLogFilter{
		Page:     req.Page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(req.Action),
	}
	if req.UserID > 0 {
		filter.UserID = &req.UserID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.SystemLogListResponse{}, err
	}

	actions, err := s.repo.Actions(ctx)
	if err != nil {
		return dto.SystemLogListResponse{}, err
	}

	items := make([]dto.SystemLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewSystemLogResponse(entry))
	}

	return dto.SystemLogListResponse{
		Items:      items,
		Actions:    actions,
		Pagination: dto.NewPaginationMeta(req.Page, pageSize, total),
	}, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
