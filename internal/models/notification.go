package models

import "time"

// Notification is one fan-out row per recipient per case event, read/unread
// per user.
type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	LeadID    int       `json:"lead_id"`
	Event     string    `json:"event"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
