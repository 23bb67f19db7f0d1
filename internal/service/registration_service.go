package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/observability"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

const (
	myRegistrationPageSize = 10
	rosterPageSize         = 20
)

// RegistrationService allocates seats and tracks attendance.
type RegistrationService interface {
	Register(ctx context.Context, principal authz.Principal, activityID uint) (dto.RegistrationResponse, error)
	Cancel(ctx context.Context, principal authz.Principal, activityID uint) (dto.RegistrationResponse, error)
	CheckIn(ctx context.Context, principal authz.Principal, activityID uint, req dto.CheckInRequest) (dto.CheckInResponse, error)
	ListMine(ctx context.Context, principal authz.Principal, req dto.MyRegistrationListRequest) (dto.MyRegistrationListResponse, error)
	ListForActivity(ctx context.Context, principal authz.Principal, activityID uint, page int) (dto.RosterListResponse, error)
	CheckInSheet(ctx context.Context, principal authz.Principal, activityID uint) (dto.CheckInSheetResponse, error)
}

type registrationService struct {
	registrations repository.RegistrationRepository
	activities    repository.ActivityRepository
	students      repository.StudentRepository
	validator     *validator.Validate
	recorder      ActionRecorder
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewRegistrationService constructs the registration engine.
func NewRegistrationService(
	registrations repository.RegistrationRepository,
	activities repository.ActivityRepository,
	students repository.StudentRepository,
	validator *validator.Validate,
	recorder ActionRecorder,
	logger zerolog.Logger,
) RegistrationService {
	return &registrationService{
		registrations: registrations,
		activities:    activities,
		students:      students,
		validator:     validator,
		recorder:      recorder,
		logger:        logger.With().Str("component", "registration_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/activity-portal-api/internal/service/registration"),
		now:           time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, principal authz.Principal, activityID uint) (dto.RegistrationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registration.register", trace.WithAttributes(
		attribute.Int64("activity.id", int64(activityID)),
		attribute.Int64("user.id", int64(principal.UserID)),
	))
	defer span.End()

	registration, err := s.register(ctx, principal, activityID)
	outcome := registrationOutcome(err)
	observability.RegistrationAttempts().WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("registration.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if outcome == observability.OutcomeError {
			s.logger.Error().Err(err).Uint("activity_id", activityID).Uint("user_id", principal.UserID).Msg("registration failed")
		}
		return dto.RegistrationResponse{}, err
	}

	s.record(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   ActionActivityRegister,
		Details:  fmt.Sprintf("registered for activity %d", activityID),
		Metadata: map[string]interface{}{"activity_id": activityID, "registration_id": registration.ID},
	})

	return dto.NewRegistrationResponse(registration), nil
}

func (s *registrationService) register(ctx context.Context, principal authz.Principal, activityID uint) (models.Registration, error) {
	if err := authz.Authorize(principal, authz.ActionRegister); err != nil {
		return models.Registration{}, err
	}

	now := s.now()
	registration, err := s.registrations.Reserve(ctx, principal.UserID, activityID, now, func(state repository.SeatState) error {
		switch {
		case !state.Activity.IsOpenForRegistration(now):
			return ErrRegistrationClosed
		case state.Existing != nil:
			return ErrAlreadyRegistered
		case state.Activity.IsFull(state.Registered):
			return ErrActivityFull
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return models.Registration{}, ErrActivityNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return models.Registration{}, ErrAlreadyRegistered
		}
		return models.Registration{}, err
	}

	return registration, nil
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeRegistered
	case errors.Is(err, ErrActivityNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrRegistrationClosed):
		return observability.OutcomeClosed
	case errors.Is(err, ErrAlreadyRegistered):
		return observability.OutcomeAlreadyRegistered
	case errors.Is(err, ErrActivityFull):
		return observability.OutcomeFull
	default:
		return observability.OutcomeError
	}
}

func (s *registrationService) Cancel(ctx context.Context, principal authz.Principal, activityID uint) (dto.RegistrationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registration.cancel", trace.WithAttributes(
		attribute.Int64("activity.id", int64(activityID)),
		attribute.Int64("user.id", int64(principal.UserID)),
	))
	defer span.End()

	if err := authz.Authorize(principal, authz.ActionCancel); err != nil {
		span.RecordError(err)
		return dto.RegistrationResponse{}, err
	}

	now := s.now()
	registration, err := s.registrations.Cancel(ctx, principal.UserID, activityID, func(state repository.CancelState) error {
		switch {
		case state.Registration == nil:
			return ErrRegistrationNotFound
		case state.Registration.Status == models.RegistrationStatusAttended:
			return ErrAlreadyAttended
		case state.Activity.HasStarted(now):
			return ErrActivityStarted
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			err = ErrActivityNotFound
		case errors.Is(err, repository.ErrRegistrationChanged):
			err = ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return dto.RegistrationResponse{}, err
	}

	s.record(ctx, LogEntry{
		UserID:   principal.UserID,
		Action:   ActionActivityUnregister,
		Details:  fmt.Sprintf("cancelled registration for activity %d", activityID),
		Metadata: map[string]interface{}{"activity_id": activityID, "registration_id": registration.ID},
	})

	return dto.NewRegistrationResponse(registration), nil
}

func (s *registrationService) CheckIn(ctx context.Context, principal authz.Principal, activityID uint, req dto.CheckInRequest) (dto.CheckInResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registration.check_in", trace.WithAttributes(
		attribute.Int64("activity.id", int64(activityID)),
	))
	defer span.End()

	if err := authz.Authorize(principal, authz.ActionCheckIn); err != nil {
		span.RecordError(err)
		return dto.CheckInResponse{}, err
	}

	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := validateStruct(s.validator, req); err != nil {
		return dto.CheckInResponse{}, err
	}

	if _, err := s.activities.GetByID(ctx, activityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckInResponse{}, ErrActivityNotFound
		}
		span.RecordError(err)
		return dto.CheckInResponse{}, err
	}

	profile, err := s.students.GetByStudentNumber(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckInResponse{}, ErrStudentNotFound
		}
		span.RecordError(err)
		return dto.CheckInResponse{}, err
	}

	registration, changed, err := s.registrations.MarkAttended(ctx, profile.UserID, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repository.ErrRegistrationChanged) {
			return dto.CheckInResponse{}, ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "check-in failed")
		return dto.CheckInResponse{}, err
	}
	span.SetAttributes(attribute.Bool("registration.changed", changed))

	if changed {
		s.record(ctx, LogEntry{
			UserID:   principal.UserID,
			Action:   ActionActivityCheckIn,
			Details:  fmt.Sprintf("checked in %s (%s) for activity %d", profile.RealName, profile.StudentID, activityID),
			Metadata: map[string]interface{}{"activity_id": activityID, "student_id": profile.StudentID},
		})
	}

	return dto.CheckInResponse{
		Registration: dto.NewRegistrationResponse(registration),
		RealName:     profile.RealName,
		StudentID:    profile.StudentID,
		Changed:      changed,
	}, nil
}

func (s *registrationService) ListMine(ctx context.Context, principal authz.Principal, req dto.MyRegistrationListRequest) (dto.MyRegistrationListResponse, error) {
	if err := authz.Authorize(principal, authz.ActionViewOwnActivities); err != nil {
		return dto.MyRegistrationListResponse{}, err
	}

	page := maxInt(req.Page, 1)
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = myRegistrationPageSize
	}

	now := s.now()
	registrations, total, err := s.registrations.ListMine(ctx, repository.MyRegistrationFilter{
		UserID:   principal.UserID,
		Scope:    strings.ToLower(strings.TrimSpace(req.Scope)),
		Now:      now,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUnsupportedScope) {
			return dto.MyRegistrationListResponse{}, NewValidationError(map[string]string{"filter": "must be one of: all upcoming past cancelled"})
		}
		return dto.MyRegistrationListResponse{}, err
	}

	ids := make([]uint, 0, len(registrations))
	for _, registration := range registrations {
		ids = append(ids, registration.ActivityID)
	}
	counts, err := s.activities.RegisteredCounts(ctx, ids)
	if err != nil {
		return dto.MyRegistrationListResponse{}, err
	}

	items := make([]dto.MyRegistrationItem, 0, len(registrations))
	for _, registration := range registrations {
		item := dto.MyRegistrationItem{Registration: dto.NewRegistrationResponse(registration)}
		if registration.Activity != nil {
			activity := dto.NewActivityResponse(*registration.Activity, counts[registration.ActivityID], now)
			item.Activity = &activity
		}
		items = append(items, item)
	}

	return dto.MyRegistrationListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *registrationService) ListForActivity(ctx context.Context, principal authz.Principal, activityID uint, page int) (dto.RosterListResponse, error) {
	if err := authz.Authorize(principal, authz.ActionViewRegistrations); err != nil {
		return dto.RosterListResponse{}, err
	}

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return dto.RosterListResponse{}, err
	}

	page = maxInt(page, 1)
	entries, total, err := s.registrations.ListForActivity(ctx, activityID, page, rosterPageSize)
	if err != nil {
		return dto.RosterListResponse{}, err
	}

	registered, err := s.registrations.CountRegistered(ctx, activityID)
	if err != nil {
		return dto.RosterListResponse{}, err
	}

	return dto.RosterListResponse{
		Activity:   dto.NewActivityResponse(activity, registered, s.now()),
		Items:      dto.NewRosterEntryResponses(entries),
		Pagination: dto.NewPaginationMeta(page, rosterPageSize, total),
	}, nil
}

func (s *registrationService) CheckInSheet(ctx context.Context, principal authz.Principal, activityID uint) (dto.CheckInSheetResponse, error) {
	if err := authz.Authorize(principal, authz.ActionCheckIn); err != nil {
		return dto.CheckInSheetResponse{}, err
	}

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return dto.CheckInSheetResponse{}, err
	}

	entries, err := s.registrations.RosterByStatus(ctx, activityID, models.RegistrationStatusRegistered, models.RegistrationStatusAttended)
	if err != nil {
		return dto.CheckInSheetResponse{}, err
	}

	var (
		attended []repository.RosterEntry
		pending  []repository.RosterEntry
		waiting  int64
	)
	for _, entry := range entries {
		if entry.Status == models.RegistrationStatusAttended {
			attended = append(attended, entry)
			continue
		}
		pending = append(pending, entry)
		waiting++
	}

	return dto.CheckInSheetResponse{
		Activity: dto.NewActivityResponse(activity, waiting, s.now()),
		Attended: dto.NewRosterEntryResponses(attended),
		Pending:  dto.NewRosterEntryResponses(pending),
	}, nil
}

func (s *registrationService) loadActivity(ctx context.Context, id uint) (models.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *registrationService) record(ctx context.Context, entry LogEntry) {
	if s.recorder != nil {
		s.recorder.RecordAction(ctx, entry)
	}
}
