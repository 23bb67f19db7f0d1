package dto

import (
	"time"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// ActivityCreateRequest captures the fields of a new activity.
type ActivityCreateRequest struct {
	Title                string    `json:"title" validate:"required,max=128"`
	Description          string    `json:"description" validate:"required"`
	Location             string    `json:"location" validate:"required,max=128"`
	StartTime            time.Time `json:"start_time" validate:"required"`
	EndTime              time.Time `json:"end_time" validate:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required"`
	MaxParticipants      int       `json:"max_participants" validate:"gte=0"`
}

// ActivityUpdateRequest patches an activity. Nil fields are left unchanged.
type ActivityUpdateRequest struct {
	Title                *string    `json:"title" validate:"omitempty,min=1,max=128"`
	Description          *string    `json:"description" validate:"omitempty,min=1"`
	Location             *string    `json:"location" validate:"omitempty,min=1,max=128"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants" validate:"omitempty,gte=0"`
}

// ActivityListRequest defines filters for listing activities.
type ActivityListRequest struct {
	Visibility string
	Status     string
	Query      string
	Page       int
	PageSize   int
}

// ActivityResponse serializes an activity with its live seat counters.
type ActivityResponse struct {
	ID                   uint                  `json:"id"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Location             string                `json:"location"`
	StartTime            time.Time             `json:"start_time"`
	EndTime              time.Time             `json:"end_time"`
	RegistrationDeadline time.Time             `json:"registration_deadline"`
	MaxParticipants      int                   `json:"max_participants"`
	CreatedBy            uint                  `json:"created_by"`
	Status               models.ActivityStatus `json:"status"`
	RegisteredCount      int64                 `json:"registered_count"`
	RemainingSeats       int64                 `json:"remaining_seats"`
	IsFull               bool                  `json:"is_full"`
	IsOpen               bool                  `json:"is_open"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// NewActivityResponse converts an activity and its registered count into a DTO.
func NewActivityResponse(activity models.Activity, registered int64, now time.Time) ActivityResponse {
	return ActivityResponse{
		ID:                   activity.ID,
		Title:                activity.Title,
		Description:          activity.Description,
		Location:             activity.Location,
		StartTime:            activity.StartTime,
		EndTime:              activity.EndTime,
		RegistrationDeadline: activity.RegistrationDeadline,
		MaxParticipants:      activity.MaxParticipants,
		CreatedBy:            activity.CreatedBy,
		Status:               activity.Status,
		RegisteredCount:      registered,
		RemainingSeats:       activity.RemainingSeats(registered),
		IsFull:               activity.IsFull(registered),
		IsOpen:               activity.IsOpenForRegistration(now),
		CreatedAt:            activity.CreatedAt,
		UpdatedAt:            activity.UpdatedAt,
	}
}

// ActivityListResponse wraps paginated activities.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// ActivityDetailResponse is the student view of one activity.
type ActivityDetailResponse struct {
	Activity     ActivityResponse      `json:"activity"`
	Registration *RegistrationResponse `json:"registration"`
	CanRegister  bool                  `json:"can_register"`
	CanCancel    bool                  `json:"can_cancel"`
}

// HomeResponse feeds the public landing page.
type HomeResponse struct {
	Latest      []ActivityResponse `json:"latest"`
	Popular     []ActivityResponse `json:"popular"`
	ClosingSoon []ActivityResponse `json:"closing_soon"`
}

// ActivityDeleteResponse reports whether the activity was removed or cancelled.
type ActivityDeleteResponse struct {
	ID      uint   `json:"id"`
	Outcome string `json:"outcome"`
}
