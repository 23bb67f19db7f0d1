package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

const (
	activityPageSize    = 10
	homeLatestLimit     = 6
	homePopularLimit    = 3
	homeClosingSoonSize = 3
)

// ActivityService manages the activity lifecycle and its read models.
type ActivityService interface {
	Create(ctx context.Context, principal authz.Principal, req dto.ActivityCreateRequest) (dto.ActivityResponse, error)
	Update(ctx context.Context, principal authz.Principal, id uint, req dto.ActivityUpdateRequest) (dto.ActivityResponse, error)
	DeleteOrCancel(ctx context.Context, principal authz.Principal, id uint) (dto.ActivityDeleteResponse, error)
	Complete(ctx context.Context, principal authz.Principal, id uint) (dto.ActivityResponse, error)
	List(ctx context.Context, principal authz.Principal, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	Get(ctx context.Context, id uint) (dto.ActivityResponse, error)
	Detail(ctx context.Context, principal authz.Principal, id uint) (dto.ActivityDetailResponse, error)
	Home(ctx context.Context) (dto.HomeResponse, error)
}

type activityService struct {
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	recorder      ActionRecorder
	logger        zerolog.Logger
	now           func() time.Time
}

// NewActivityService constructs the activity lifecycle manager.
func NewActivityService(
	activities repository.ActivityRepository,
	registrations repository.RegistrationRepository,
	validator *validator.Validate,
	recorder ActionRecorder,
	logger zerolog.Logger,
) ActivityService {
	return &activityService{
		activities:    activities,
		registrations: registrations,
		validator:     validator,
		sanitizer:     bluemonday.UGCPolicy(),
		recorder:      recorder,
		logger:        logger.With().Str("component", "activity_service").Logger(),
		now:           time.Now,
	}
}

func (s *activityService) Create(ctx context.Context, principal authz.Principal, req dto.ActivityCreateRequest) (dto.ActivityResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageActivities); err != nil {
		return dto.ActivityResponse{}, err
	}
	if err := validateStruct(s.validator, req); err != nil {
		return dto.ActivityResponse{}, err
	}

	activity := models.Activity{
		Title:                strings.TrimSpace(req.Title),
		Description:          s.sanitizer.Sanitize(req.Description),
		Location:             strings.TrimSpace(req.Location),
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxParticipants:      req.MaxParticipants,
		CreatedBy:            principal.UserID,
		Status:               models.ActivityStatusActive,
	}
	if err := scheduleError(activity); err != nil {
		return dto.ActivityResponse{}, err
	}

	if err := s.activities.Create(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, err
	}

	s.record(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   ActionActivityCreate,
		Details:  fmt.Sprintf("created activity %q", activity.Title),
		Metadata: map[string]interface{}{"activity_id": activity.ID},
	})

	return dto.NewActivityResponse(activity, 0, s.now()), nil
}

func (s *activityService) Update(ctx context.Context, principal authz.Principal, id uint, req dto.ActivityUpdateRequest) (dto.ActivityResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageActivities); err != nil {
		return dto.ActivityResponse{}, err
	}
	if err := validateStruct(s.validator, req); err != nil {
		return dto.ActivityResponse{}, err
	}

	activity, err := s.activities.Mutate(ctx, id, func(activity *models.Activity) error {
		if req.Title != nil {
			activity.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			activity.Description = s.sanitizer.Sanitize(*req.Description)
		}
		if req.Location != nil {
			activity.Location = strings.TrimSpace(*req.Location)
		}
		if req.StartTime != nil {
			activity.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			activity.EndTime = *req.EndTime
		}
		if req.RegistrationDeadline != nil {
			activity.RegistrationDeadline = *req.RegistrationDeadline
		}
		if req.MaxParticipants != nil {
			activity.MaxParticipants = *req.MaxParticipants
		}
		return scheduleError(*activity)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	registered, err := s.registrations.CountRegistered(ctx, activity.ID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	s.record(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   ActionActivityUpdate,
		Details:  fmt.Sprintf("updated activity %q", activity.Title),
		Metadata: map[string]interface{}{"activity_id": activity.ID},
	})

	return dto.NewActivityResponse(activity, registered, s.now()), nil
}

func (s *activityService) DeleteOrCancel(ctx context.Context, principal authz.Principal, id uint) (dto.ActivityDeleteResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageActivities); err != nil {
		return dto.ActivityDeleteResponse{}, err
	}

	outcome, activity, err := s.activities.DeleteOrCancel(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityDeleteResponse{}, ErrActivityNotFound
		}
		return dto.ActivityDeleteResponse{}, err
	}

	action := ActionActivityDelete
	if outcome == repository.DeleteOutcomeCancelled {
		action = ActionActivityCancel
	}
	s.record(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   action,
		Details:  fmt.Sprintf("%s activity %q", outcome, activity.Title),
		Metadata: map[string]interface{}{"activity_id": id},
	})

	return dto.ActivityDeleteResponse{ID: id, Outcome: string(outcome)}, nil
}

func (s *activityService) Complete(ctx context.Context, principal authz.Principal, id uint) (dto.ActivityResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageActivities); err != nil {
		return dto.ActivityResponse{}, err
	}

	activity, err := s.activities.Mutate(ctx, id, func(activity *models.Activity) error {
		if activity.Status != models.ActivityStatusActive {
			return ErrActivityNotActive
		}
		activity.Status = models.ActivityStatusCompleted
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	registered, err := s.registrations.CountRegistered(ctx, activity.ID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	s.record(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   ActionActivityComplete,
		Details:  fmt.Sprintf("completed activity %q", activity.Title),
		Metadata: map[string]interface{}{"activity_id": activity.ID},
	})

	return dto.NewActivityResponse(activity, registered, s.now()), nil
}

func (s *activityService) List(ctx context.Context, principal authz.Principal, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if err := authz.Authorize(principal, authz.ActionBrowseActivities); err != nil {
		return dto.ActivityListResponse{}, err
	}

	page := maxInt(req.Page, 1)
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = activityPageSize
	}

	now := s.now()
	filter := repository.ActivityFilter{
		Visibility: strings.ToLower(strings.TrimSpace(req.Visibility)),
		Query:      req.Query,
		Now:        now,
		Page:       page,
		PageSize:   pageSize,
	}

	if status := strings.ToLower(strings.TrimSpace(req.Status)); status != "" && principal.IsAdmin() {
		parsed := models.ActivityStatus(status)
		if !parsed.Valid() {
			return dto.ActivityListResponse{}, NewValidationError(map[string]string{"status": "must be one of: active cancelled completed"})
		}
		filter.Status = parsed
	}

	activities, total, err := s.activities.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrUnsupportedVisibility) {
			return dto.ActivityListResponse{}, NewValidationError(map[string]string{"filter": "must be one of: all open past"})
		}
		return dto.ActivityListResponse{}, err
	}

	items, err := s.withCounts(ctx, activities, now)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	return dto.ActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *activityService) Get(ctx context.Context, id uint) (dto.ActivityResponse, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	registered, err := s.registrations.CountRegistered(ctx, id)
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(activity, registered, s.now()), nil
}

// Detail recomputes the per-student view of an activity on every call.
func (s *activityService) Detail(ctx context.Context, principal authz.Principal, id uint) (dto.ActivityDetailResponse, error) {
	if err := authz.Authorize(principal, authz.ActionBrowseActivities); err != nil {
		return dto.ActivityDetailResponse{}, err
	}

	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityDetailResponse{}, ErrActivityNotFound
		}
		return dto.ActivityDetailResponse{}, err
	}

	registered, err := s.registrations.CountRegistered(ctx, id)
	if err != nil {
		return dto.ActivityDetailResponse{}, err
	}

	now := s.now()
	response := dto.ActivityDetailResponse{Activity: dto.NewActivityResponse(activity, registered, now)}
	if !principal.IsStudent() {
		return response, nil
	}

	current, err := s.registrations.Current(ctx, principal.UserID, id)
	if err != nil {
		return dto.ActivityDetailResponse{}, err
	}
	if current != nil {
		registration := dto.NewRegistrationResponse(*current)
		response.Registration = &registration
		response.CanCancel = current.Status == models.RegistrationStatusRegistered && !activity.HasStarted(now)
	}
	response.CanRegister = activity.CanRegister(now, registered, current != nil)

	return response, nil
}

func (s *activityService) Home(ctx context.Context) (dto.HomeResponse, error) {
	now := s.now()

	latest, err := s.activities.Latest(ctx, homeLatestLimit)
	if err != nil {
		return dto.HomeResponse{}, err
	}
	popular, err := s.activities.MostPopularOpen(ctx, now, homePopularLimit)
	if err != nil {
		return dto.HomeResponse{}, err
	}
	closing, err := s.activities.ClosingSoon(ctx, now, homeClosingSoonSize)
	if err != nil {
		return dto.HomeResponse{}, err
	}

	all := make([]models.Activity, 0, len(latest)+len(popular)+len(closing))
	all = append(all, latest...)
	all = append(all, popular...)
	all = append(all, closing...)
	counts, err := s.activities.RegisteredCounts(ctx, activityIDs(all))
	if err != nil {
		return dto.HomeResponse{}, err
	}

	return dto.HomeResponse{
		Latest:      toActivityResponses(latest, counts, now),
		Popular:     toActivityResponses(popular, counts, now),
		ClosingSoon: toActivityResponses(closing, counts, now),
	}, nil
}

func (s *activityService) withCounts(ctx context.Context, activities []models.Activity, now time.Time) ([]dto.ActivityResponse, error) {
	counts, err := s.activities.RegisteredCounts(ctx, activityIDs(activities))
	if err != nil {
		return nil, err
	}
	return toActivityResponses(activities, counts, now), nil
}

func (s *activityService) record(ctx context.Context, entry LogEntry) {
	if s.recorder != nil {
		s.recorder.RecordAction(ctx, entry)
	}
}

func scheduleError(activity models.Activity) error {
	switch err := activity.ValidateSchedule(); {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrScheduleInverted):
		return NewValidationError(map[string]string{"end_time": err.Error()})
	case errors.Is(err, models.ErrNegativeCapacity):
		return NewValidationError(map[string]string{"max_participants": err.Error()})
	default:
		return err
	}
}

func activityIDs(activities []models.Activity) []uint {
	seen := make(map[uint]struct{}, len(activities))
	ids := make([]uint, 0, len(activities))
	for _, activity := range activities {
		if _, ok := seen[activity.ID]; ok {
			continue
		}
		seen[activity.ID] = struct{}{}
		ids = append(ids, activity.ID)
	}
	return ids
}

func toActivityResponses(activities []models.Activity, counts map[uint]int64, now time.Time) []dto.ActivityResponse {
	items := make([]dto.ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		items = append(items, dto.NewActivityResponse(activity, counts[activity.ID], now))
	}
	return items
}
