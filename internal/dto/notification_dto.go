package dto

import "time"

// NotificationResponse is one poll-based reminder.
type NotificationResponse struct {
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	ActivityID uint      `json:"activity_id"`
	At         time.Time `json:"at"`
}
