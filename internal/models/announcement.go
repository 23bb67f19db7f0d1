package models

import "time"

// AnnouncementStatus controls public visibility of an announcement.
type AnnouncementStatus string

const (
	AnnouncementStatusDraft     AnnouncementStatus = "draft"
	AnnouncementStatusPublished AnnouncementStatus = "published"
)

// Announcement is a markdown notice published by administrators.
type Announcement struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	Title     string             `gorm:"size:255;not null" json:"title"`
	Content   string             `gorm:"type:text;not null" json:"content"`
	CreatedBy uint               `gorm:"index;not null" json:"created_by"`
	Status    AnnouncementStatus `gorm:"size:20;not null;default:draft;index" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
