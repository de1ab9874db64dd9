package models

import "time"

// KYPStatus tracks the intake follow-up, separate from the lead's case stage.
type KYPStatus string

const (
	KYPPending          KYPStatus = "PENDING"
	KYPFollowUpComplete KYPStatus = "FOLLOW_UP_COMPLETE"
	KYPPreAuthComplete  KYPStatus = "PRE_AUTH_COMPLETE"
)

// KYPSubmission is the "Know Your Patient" intake. Exactly one per lead.
type KYPSubmission struct {
	ID             int       `json:"id"`
	LeadID         int       `json:"lead_id"`
	Status         KYPStatus `json:"status"`
	PatientDOB     string    `json:"patient_dob"`
	IDProofType    string    `json:"id_proof_type"`
	IDProofNumber  string    `json:"id_proof_number"`
	InsurerName    string    `json:"insurer_name"`
	PolicyNumber   string    `json:"policy_number"`
	SumInsured     string    `json:"sum_insured"`
	MedicalHistory string    `json:"medical_history"`
	SubmittedByID  int       `json:"submitted_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
