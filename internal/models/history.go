package models

import "time"

// CaseStageHistory is the append-only audit log: one row per stage change,
// never updated or deleted.
type CaseStageHistory struct {
	ID          int       `json:"id"`
	LeadID      int       `json:"lead_id"`
	FromStage   CaseStage `json:"from_stage"`
	ToStage     CaseStage `json:"to_stage"`
	ChangedByID int       `json:"changed_by_id"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}
