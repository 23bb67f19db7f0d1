package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

const (
	studentPageSize        = 20
	dashboardSuggestionMax = 5
)

// StudentService serves the student's own profile and dashboard plus the admin student list.
type StudentService interface {
	Profile(ctx context.Context, principal authz.Principal) (dto.StudentProfileResponse, error)
	UpdateProfile(ctx context.Context, principal authz.Principal, req dto.StudentProfileUpdateRequest) (dto.StudentProfileResponse, error)
	Dashboard(ctx context.Context, principal authz.Principal) (dto.StudentDashboardResponse, error)
	List(ctx context.Context, principal authz.Principal, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error)
}

type studentService struct {
	students      repository.StudentRepository
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	validator     *validator.Validate
	recorder      ActionRecorder
	logger        zerolog.Logger
	now           func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(
	students repository.StudentRepository,
	activities repository.ActivityRepository,
	registrations repository.RegistrationRepository,
	validator *validator.Validate,
	recorder ActionRecorder,
	logger zerolog.Logger,
) StudentService {
	return &studentService{
		students:      students,
		activities:    activities,
		registrations: registrations,
		validator:     validator,
		recorder:      recorder,
		logger:        logger.With().Str("component", "student_service").Logger(),
		now:           time.Now,
	}
}

func (s *studentService) Profile(ctx context.Context, principal authz.Principal) (dto.StudentProfileResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageOwnProfile); err != nil {
		return dto.StudentProfileResponse{}, err
	}

	profile, err := s.students.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentProfileResponse{}, ErrStudentNotFound
		}
		return dto.StudentProfileResponse{}, err
	}

	return dto.NewStudentProfileResponse(profile), nil
}

func (s *studentService) UpdateProfile(ctx context.Context, principal authz.Principal, req dto.StudentProfileUpdateRequest) (dto.StudentProfileResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageOwnProfile); err != nil {
		return dto.StudentProfileResponse{}, err
	}
	if err := validateStruct(s.validator, req); err != nil {
		return dto.StudentProfileResponse{}, err
	}

	updates := map[string]interface{}{
		"real_name": strings.TrimSpace(req.RealName),
		"grade":     strings.TrimSpace(req.Grade),
		"major":     strings.TrimSpace(req.Major),
		"college":   strings.TrimSpace(req.College),
		"phone":     strings.TrimSpace(req.Phone),
		"qq":        strings.TrimSpace(req.QQ),
	}

	profile, err := s.students.Update(ctx, principal.UserID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentProfileResponse{}, ErrStudentNotFound
		}
		return dto.StudentProfileResponse{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordAction(ctx, LogEntry{UserID: principal.UserID, Action: ActionProfileUpdate, Details: "profile updated"})
	}

	return dto.NewStudentProfileResponse(profile), nil
}

// Dashboard lists the caller's non-cancelled activities and open activities
// they have never registered for.
func (s *studentService) Dashboard(ctx context.Context, principal authz.Principal) (dto.StudentDashboardResponse, error) {
	if err := authz.Authorize(principal, authz.ActionViewOwnActivities); err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	now := s.now()
	registrations, _, err := s.registrations.ListMine(ctx, repository.MyRegistrationFilter{
		UserID: principal.UserID,
		Scope:  repository.ScopeAll,
		Now:    now,
	})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	mine := make([]models.Activity, 0, len(registrations))
	for _, registration := range registrations {
		if registration.Status == models.RegistrationStatusCancelled || registration.Activity == nil {
			continue
		}
		mine = append(mine, *registration.Activity)
	}

	suggestions, err := s.activities.OpenNotRegisteredBy(ctx, principal.UserID, now, dashboardSuggestionMax)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	all := append(append([]models.Activity{}, mine...), suggestions...)
	counts, err := s.activities.RegisteredCounts(ctx, activityIDs(all))
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	return dto.StudentDashboardResponse{
		Registered:  toActivityResponses(mine, counts, now),
		Suggestions: toActivityResponses(suggestions, counts, now),
	}, nil
}

func (s *studentService) List(ctx context.Context, principal authz.Principal, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error) {
	if err := authz.Authorize(principal, authz.ActionManageStudents); err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	page := maxInt(req.Page, 1)
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = studentPageSize
	}

	profiles, total, err := s.students.List(ctx, repository.StudentFilter{
		Search:   strings.TrimSpace(req.Search),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	items := make([]dto.StudentProfileResponse, 0, len(profiles))
	for _, profile := range profiles {
		items = append(items, dto.NewStudentProfileResponse(profile))
	}

	return dto.AdminStudentListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}
