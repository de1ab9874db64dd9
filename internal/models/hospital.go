package models

import "time"

// Hospital is a master record; suggest-hospitals validates against it.
type Hospital struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	City      string       `json:"city"`
	Rooms     []RoomOption `json:"rooms"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}
