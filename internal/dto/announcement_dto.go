package dto

import (
	"time"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// AnnouncementCreateRequest captures a new announcement.
type AnnouncementCreateRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
	Status  string `json:"status" validate:"omitempty,oneof=draft published"`
}

// AnnouncementUpdateRequest patches an announcement.
type AnnouncementUpdateRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content *string `json:"content" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,oneof=draft published"`
}

// AnnouncementResponse carries the markdown source and its sanitized HTML.
type AnnouncementResponse struct {
	ID        uint                      `json:"id"`
	Title     string                    `json:"title"`
	Content   string                    `json:"content"`
	HTML      string                    `json:"html"`
	CreatedBy uint                      `json:"created_by"`
	Status    models.AnnouncementStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// AnnouncementListResponse wraps paginated announcements.
type AnnouncementListResponse struct {
	Items      []AnnouncementResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
	CacheHit   bool                   `json:"cache_hit"`
}
