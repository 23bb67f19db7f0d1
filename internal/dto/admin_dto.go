package dto

import (
	"math"
	"time"

	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives the page count from the total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page <= 0 {
		page = 1
	}

	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	} else {
		meta.TotalPages = 1
	}
	return meta
}

// AdminStudentListRequest defines filters for listing students.
type AdminStudentListRequest struct {
	Search   string
	Page     int
	PageSize int
}

// AdminStudentListResponse wraps paginated student profiles.
type AdminStudentListResponse struct {
	Items      []StudentProfileResponse `json:"items"`
	Pagination PaginationMeta           `json:"pagination"`
}

// AdminDashboardResponse summarises the portal for administrators.
type AdminDashboardResponse struct {
	TotalActivities    int64              `json:"total_activities"`
	ActiveActivities   int64              `json:"active_activities"`
	TotalStudents      int64              `json:"total_students"`
	TotalRegistrations int64              `json:"total_registrations"`
	RecentActivities   []ActivityResponse `json:"recent_activities"`
}

// SystemLogListRequest defines filters for retrieving system logs.
type SystemLogListRequest struct {
	Page     int
	PageSize int
	UserID   uint
	Action   string
}

// SystemLogResponse serializes system log entries.
type SystemLogResponse struct {
	ID        uint                   `json:"id"`
	UserID    *uint                  `json:"user_id"`
	Action    string                 `json:"action"`
	Details   string                 `json:"details"`
	IPAddress string                 `json:"ip_address"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewSystemLogResponse converts a log model into a DTO.
func NewSystemLogResponse(entry models.SystemLog) SystemLogResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}

	return SystemLogResponse{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Details:   entry.Details,
		IPAddress: entry.IPAddress,
		Metadata:  metadata,
		CreatedAt: entry.CreatedAt,
	}
}

// SystemLogListResponse wraps paginated log entries and the known actions.
type SystemLogListResponse struct {
	Items      []SystemLogResponse `json:"items"`
	Actions    []string            `json:"actions"`
	Pagination PaginationMeta      `json:"pagination"`
}

// GroupCountResponse is one labelled bucket of a grouped count.
type GroupCountResponse struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// NewGroupCountResponses converts repository buckets, naming empty labels.
func NewGroupCountResponses(rows []repository.GroupCount) []GroupCountResponse {
	items := make([]GroupCountResponse, 0, len(rows))
	for _, row := range rows {
		label := row.Label
		if label == "" {
			label = "未填写"
		}
		items = append(items, GroupCountResponse{Label: label, Total: row.Total})
	}
	return items
}
