package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

// Notification kinds.
const (
	NotificationActivityStarting = "activity_starting"
	NotificationDeadlineClosing  = "deadline_closing"
)

const notificationWindow = 24 * time.Hour

// NotificationService builds poll-based reminders for the signed-in user.
type NotificationService interface {
	List(ctx context.Context, principal authz.Principal) ([]dto.NotificationResponse, error)
}

type notificationService struct {
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	location      *time.Location
	logger        zerolog.Logger
	now           func() time.Time
}

// NewNotificationService constructs the notification service.
func NewNotificationService(activities repository.ActivityRepository, registrations repository.RegistrationRepository, location *time.Location, logger zerolog.Logger) NotificationService {
	if location == nil {
		location = time.UTC
	}
	return &notificationService{
		activities:    activities,
		registrations: registrations,
		location:      location,
		logger:        logger.With().Str("component", "notification_service").Logger(),
		now:           time.Now,
	}
}

// List returns, for students, their registered activities starting within 24
// hours and, for administrators, active activities whose deadline falls within 24 hours.
func (s *notificationService) List(ctx context.Context, principal authz.Principal) ([]dto.NotificationResponse, error) {
	if err := authz.Authorize(principal, authz.ActionViewNotifications); err != nil {
		return nil, err
	}

	now := s.now()
	until := now.Add(notificationWindow)
	notifications := make([]dto.NotificationResponse, 0)

	if principal.IsStudent() {
		registrations, err := s.registrations.UpcomingForUser(ctx, principal.UserID, now, until)
		if err != nil {
			return nil, err
		}
		for _, registration := range registrations {
			if registration.Activity == nil {
				continue
			}
			activity := registration.Activity
			notifications = append(notifications, dto.NotificationResponse{
				Kind:       NotificationActivityStarting,
				Title:      "活动即将开始",
				Message:    fmt.Sprintf("您报名的活动「%s」将于 %s 在%s开始", activity.Title, activity.StartTime.In(s.location).Format("01-02 15:04"), activity.Location),
				ActivityID: activity.ID,
				At:         activity.StartTime,
			})
		}
	}

	if principal.IsAdmin() {
		activities, err := s.activities.DeadlineBetween(ctx, now, until)
		if err != nil {
			return nil, err
		}
		for _, activity := range activities {
			notifications = append(notifications, dto.NotificationResponse{
				Kind:       NotificationDeadlineClosing,
				Title:      "报名即将截止",
				Message:    fmt.Sprintf("活动「%s」将于 %s 截止报名", activity.Title, activity.RegistrationDeadline.In(s.location).Format("01-02 15:04")),
				ActivityID: activity.ID,
				At:         activity.RegistrationDeadline,
			})
		}
	}

	s.logger.Debug().Uint("user_id", principal.UserID).Int("count", len(notifications)).Msg("notifications computed")
	return notifications, nil
}
