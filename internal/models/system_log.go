package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemLog is an append-only audit entry.
type SystemLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    *uint             `gorm:"index" json:"user_id"`
	Action    string            `gorm:"size:64;not null;index" json:"action"`
	Details   string            `gorm:"type:text" json:"details"`
	IPAddress string            `gorm:"size:64" json:"ip_address"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&StudentProfile{},
		&Activity{},
		&Registration{},
		&Announcement{},
		&SystemLog{},
	}
}
