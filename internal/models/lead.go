package models

import "time"

// CaseStage is the lead's position in the fixed case pipeline.
type CaseStage string

const (
	StageNewLead            CaseStage = "NEW_LEAD"
	StageKYPBasicPending    CaseStage = "KYP_BASIC_PENDING"
	StageKYPBasicComplete   CaseStage = "KYP_BASIC_COMPLETE"
	StageHospitalsSuggested CaseStage = "HOSPITALS_SUGGESTED"
	StageKYPComplete        CaseStage = "KYP_COMPLETE"
	StagePreAuthRaised      CaseStage = "PREAUTH_RAISED"
	StagePreAuthComplete    CaseStage = "PREAUTH_COMPLETE"
	StageInitiated          CaseStage = "INITIATED"
	StageDischarged         CaseStage = "DISCHARGED"
	StagePLPending          CaseStage = "PL_PENDING"
	StageOutstanding        CaseStage = "OUTSTANDING"

	// Legacy stages kept for rows written before the basic/detailed KYP split
	// and the INITIATED/DISCHARGED admission rework. No action produces them.
	StageKYPPending CaseStage = "KYP_PENDING"
	StageAdmitted   CaseStage = "ADMITTED"
	StageIPDDone    CaseStage = "IPD_DONE"
)

func (s CaseStage) Valid() bool {
	switch s {
	case StageNewLead, StageKYPBasicPending, StageKYPBasicComplete,
		StageHospitalsSuggested, StageKYPComplete, StagePreAuthRaised,
		StagePreAuthComplete, StageInitiated, StageDischarged,
		StagePLPending, StageOutstanding,
		StageKYPPending, StageAdmitted, StageIPDDone:
		return true
	}
	return false
}

// Lead is the central patient record tracked through the pipeline.
// CaseStage is never bound from a request body; it only moves through
// guarded case actions.
type Lead struct {
	ID           int       `json:"id"`
	PatientName  string    `json:"patient_name"`
	PatientPhone string    `json:"patient_phone"`
	City         string    `json:"city"`
	InsurerName  string    `json:"insurer_name"`
	PolicyNumber string    `json:"policy_number"`
	Source       string    `json:"source"`
	CaseStage    CaseStage `json:"case_stage"`
	AssignedBDID int       `json:"assigned_bd_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
