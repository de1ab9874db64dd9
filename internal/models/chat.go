package models

import "time"

// CaseMessage is one message in the chat scoped to a lead. System milestone
// messages carry SenderID 0 and System=true.
type CaseMessage struct {
	ID        int       `json:"id"`
	LeadID    int       `json:"lead_id"`
	SenderID  int       `json:"sender_id"`
	System    bool      `json:"system"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
