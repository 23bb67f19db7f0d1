package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/observability"
	"github.com/noah-isme/activity-portal-api/internal/repository"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

const (
	announcementPageSize    = 10
	announcementCachePrefix = "announcements:published:v1:"
)

// AnnouncementService exposes public and admin announcement operations.
type AnnouncementService interface {
	ListPublished(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error)
	List(ctx context.Context, principal authz.Principal, status string, page int) (dto.AnnouncementListResponse, error)
	Get(ctx context.Context, principal authz.Principal, id uint) (dto.AnnouncementResponse, error)
	Create(ctx context.Context, principal authz.Principal, req dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error)
	Update(ctx context.Context, principal authz.Principal, id uint, req dto.AnnouncementUpdateRequest) (dto.AnnouncementResponse, error)
	Delete(ctx context.Context, principal authz.Principal, id uint) error
}

type announcementService struct {
	repo      repository.AnnouncementRepository
	cache     *redis.Client
	ttl       time.Duration
	validator *validator.Validate
	recorder  ActionRecorder
	logger    zerolog.Logger
}

// NewAnnouncementService constructs the announcement service. cache may be nil.
func NewAnnouncementService(repo repository.AnnouncementRepository, cache *redis.Client, ttl time.Duration, validator *validator.Validate, recorder ActionRecorder, logger zerolog.Logger) AnnouncementService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &announcementService{
		repo:      repo,
		cache:     cache,
		ttl:       ttl,
		validator: validator,
		recorder:  recorder,
		logger:    logger.With().Str("component", "announcement_service").Logger(),
	}
}

func (s *announcementService) ListPublished(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error) {
	start := time.Now()
	defer func() {
		observability.AnnouncementsLatency().Observe(time.Since(start).Seconds())
	}()

	page = maxInt(page, 1)
	if pageSize <= 0 || pageSize > 50 {
		pageSize = announcementPageSize
	}

	cacheKey := ""
	if s.cache != nil {
		cacheKey = fmt.Sprintf("%s%d:%d", announcementCachePrefix, page, pageSize)
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.AnnouncementListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.AnnouncementsRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read announcement cache")
		}
	}

	response, err := s.list(ctx, models.AnnouncementStatusPublished, page, pageSize)
	if err != nil {
		observability.AnnouncementsRequests().WithLabelValues("error").Inc()
		return dto.AnnouncementListResponse{}, err
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache announcements")
			}
		}
	}

	observability.AnnouncementsRequests().WithLabelValues("miss").Inc()
	return response, nil
}

func (s *announcementService) List(ctx context.Context, principal authz.Principal, status string, page int) (dto.AnnouncementListResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageAnnouncement); err != nil {
		return dto.AnnouncementListResponse{}, err
	}

	filter := models.AnnouncementStatus(strings.ToLower(strings.TrimSpace(status)))
	if filter != "" && filter != models.AnnouncementStatusDraft && filter != models.AnnouncementStatusPublished {
		return dto.AnnouncementListResponse{}, NewValidationError(map[string]string{"status": "must be one of: draft published"})
	}

	return s.list(ctx, filter, maxInt(page, 1), announcementPageSize)
}

// Get returns a published announcement to anyone and drafts to administrators only.
func (s *announcementService) Get(ctx context.Context, principal authz.Principal, id uint) (dto.AnnouncementResponse, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
		}
		return dto.AnnouncementResponse{}, err
	}

	if item.Status != models.AnnouncementStatusPublished && !principal.IsAdmin() {
		return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
	}

	return s.toResponse(item), nil
}

func (s *announcementService) Create(ctx context.Context, principal authz.Principal, req dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageAnnouncement); err != nil {
		return dto.AnnouncementResponse{}, err
	}
	if err := validateStruct(s.validator, req); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	status := models.AnnouncementStatus(req.Status)
	if status == "" {
		status = models.AnnouncementStatusDraft
	}

	item := models.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		CreatedBy: principal.UserID,
		Status:    status,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	s.record(ctx, principal, ActionAnnouncementCreate, item)

	return s.toResponse(item), nil
}

func (s *announcementService) Update(ctx context.Context, principal authz.Principal, id uint, req dto.AnnouncementUpdateRequest) (dto.AnnouncementResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageAnnouncement); err != nil {
		return dto.AnnouncementResponse{}, err
	}
	if err := validateStruct(s.validator, req); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Status != nil {
		updates["status"] = models.AnnouncementStatus(*req.Status)
	}

	item, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
		}
		return dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	s.record(ctx, principal, ActionAnnouncementUpdate, item)

	return s.toResponse(item), nil
}

func (s *announcementService) Delete(ctx context.Context, principal authz.Principal, id uint) error {
	if err := authz.Authorize(principal, authz.ActionManageAnnouncement); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}

	s.invalidate(ctx)
	s.record(ctx, principal, ActionAnnouncementDelete, models.Announcement{ID: id})
	return nil
}

func (s *announcementService) list(ctx context.Context, status models.AnnouncementStatus, page, pageSize int) (dto.AnnouncementListResponse, error) {
	items, total, err := s.repo.List(ctx, repository.AnnouncementFilter{Status: status, Page: page, PageSize: pageSize})
	if err != nil {
		return dto.AnnouncementListResponse{}, err
	}

	responses := make([]dto.AnnouncementResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toResponse(item))
	}

	return dto.AnnouncementListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *announcementService) toResponse(item models.Announcement) dto.AnnouncementResponse {
	html, err := utils.RenderMarkdown(item.Content)
	if err != nil {
		s.logger.Warn().Err(err).Uint("announcement_id", item.ID).Msg("failed to render announcement markdown")
	}
	return dto.AnnouncementResponse{
		ID:        item.ID,
		Title:     item.Title,
		Content:   item.Content,
		HTML:      html,
		CreatedBy: item.CreatedBy,
		Status:    item.Status,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// invalidate drops every cached page of the public list.
func (s *announcementService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, announcementCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", iter.Val()).Msg("failed to drop announcement cache key")
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan announcement cache")
	}
}

func (s *announcementService) record(ctx context.Context, principal authz.Principal, action string, item models.Announcement) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordAction(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   action,
		Details:  fmt.Sprintf("announcement %d %q", item.ID, item.Title),
		Metadata: map[string]interface{}{"announcement_id": item.ID},
	})
}
