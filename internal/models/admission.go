package models

import "time"

// IPDStatus is the admission sub-status. Only DISCHARGED moves the case
// stage; the others update the record in place.
type IPDStatus string

const (
	IPDAdmissionPlanned IPDStatus = "ADMISSION_PLANNED"
	IPDAdmittedDone     IPDStatus = "ADMITTED_DONE"
	IPDPostponed        IPDStatus = "POSTPONED"
	IPDCancelled        IPDStatus = "CANCELLED"
	IPDDischarged       IPDStatus = "DISCHARGED"
)

func (s IPDStatus) Valid() bool {
	switch s {
	case IPDAdmissionPlanned, IPDAdmittedDone, IPDPostponed, IPDCancelled, IPDDischarged:
		return true
	}
	return false
}

// AdmissionRecord is created once when the case reaches INITIATED.
type AdmissionRecord struct {
	ID                   int        `json:"id"`
	LeadID               int        `json:"lead_id"`
	HospitalName         string     `json:"hospital_name"`
	RoomType             string     `json:"room_type"`
	PlannedAdmissionDate *time.Time `json:"planned_admission_date,omitempty"`
	IPDStatus            IPDStatus  `json:"ipd_status"`
	IPDDischargeDate     *time.Time `json:"ipd_discharge_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
