package models

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// RoomOption is one room suggestion (stored as JSONB on the pre-auth row).
type RoomOption struct {
	Name string `json:"name"`
	Rent string `json:"rent"`
}

// PreAuthorization is populated in two passes: Insurance suggests hospitals
// and rooms, then BD raises the request against one of them, then Insurance
// approves or rejects. Exactly one per KYP submission.
type PreAuthorization struct {
	ID              int `json:"id"`
	KYPSubmissionID int `json:"kyp_submission_id"`
	LeadID          int `json:"lead_id"`

	SuggestedHospitals []string     `json:"suggested_hospitals"`
	SuggestedRooms     []RoomOption `json:"suggested_rooms"`

	RequestedHospitalName string     `json:"requested_hospital_name"`
	RequestedRoomType     string     `json:"requested_room_type"`
	RaisedByID            int        `json:"raised_by_id"`
	RaisedAt              *time.Time `json:"raised_at,omitempty"`

	ApprovalStatus ApprovalStatus `json:"approval_status"`
	ApprovedAmount int64          `json:"approved_amount"`
	DecidedByID    int            `json:"decided_by_id"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Raised reports whether BD has already raised this pre-auth.
func (p *PreAuthorization) Raised() bool {
	return p.RaisedAt != nil
}
