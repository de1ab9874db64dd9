package services

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

// ChatPoster posts system-authored milestone messages into a case chat.
type ChatPoster interface {
	PostSystemMessage(leadID int, text string) error
}

// Notifier fans notification rows out to a role group or a single user.
type Notifier interface {
	NotifyRoles(roleIDs []int, leadID int, event, message string) error
	NotifyUser(userID, leadID int, event, message string) error
}

// CaseService is the transition engine. Every case mutation goes through one
// transaction: lock the lead row, consult the transition table, apply the
// domain write, compare-and-swap the stage, append the history row. Chat and
// notification fan-out runs after commit and never rolls the transition back.
type CaseService struct {
	store    repositories.CaseStore
	chat     ChatPoster
	notifier Notifier
}

func NewCaseService(store repositories.CaseStore, chat ChatPoster, notifier Notifier) *CaseService {
	return &CaseService{store: store, chat: chat, notifier: notifier}
}

type SubmitKYPInput struct {
	PatientDOB     string `json:"patient_dob"`
	IDProofType    string `json:"id_proof_type"`
	IDProofNumber  string `json:"id_proof_number"`
	InsurerName    string `json:"insurer_name"`
	PolicyNumber   string `json:"policy_number"`
	SumInsured     string `json:"sum_insured"`
	MedicalHistory string `json:"medical_history"`
	Note           string `json:"note"`
}

type SuggestHospitalsInput struct {
	Hospitals []string            `json:"hospitals"`
	Rooms     []models.RoomOption `json:"rooms"`
	Note      string              `json:"note"`
}

type RaisePreAuthInput struct {
	RequestedHospitalName string `json:"requested_hospital_name"`
	RequestedRoomType     string `json:"requested_room_type"`
	Note                  string `json:"note"`
}

type DecidePreAuthInput struct {
	ApprovalStatus string `json:"approval_status"`
	ApprovedAmount int64  `json:"approved_amount"`
	Note           string `json:"note"`
}

type InitiateInput struct {
	PlannedAdmissionDate string `json:"planned_admission_date"`
	Note                 string `json:"note"`
}

type IPDMarkInput struct {
	Status        string `json:"status"`
	DischargeDate string `json:"discharge_date"`
	Note          string `json:"note"`
}

// transition runs one guarded stage change. work performs the action's domain
// writes inside the same transaction as the stage write and the history row.
func (s *CaseService) transition(ctx context.Context, p authz.Principal, leadID int,
	action workflow.Action, note string,
	work func(tx repositories.CaseTx, lead *models.Lead) error) (*models.Lead, workflow.Rule, error) {

	rule, ok := workflow.RuleFor(action)
	if !ok {
		return nil, rule, workflow.Validationf("unknown case action %q", action)
	}

	var lead *models.Lead
	err := s.store.Transact(ctx, func(tx repositories.CaseTx) error {
		l, err := tx.LeadForUpdate(leadID)
		if err != nil {
			return err
		}
		if l == nil {
			return workflow.NotFoundf("lead %d not found", leadID)
		}
		if _, err := workflow.Guard(l, p.RoleID, action); err != nil {
			return err
		}
		// pin the source stage here so the CAS and the history row agree
		// even if a store hands back a shared struct
		from := l.CaseStage
		if work != nil {
			if err := work(tx, l); err != nil {
				return err
			}
		}
		if err := tx.SetLeadStage(l.ID, from, rule.To); err != nil {
			if err == repositories.ErrStageConflict {
				return workflow.Conflictf("case stage changed concurrently, retry")
			}
			return err
		}
		if err := tx.InsertHistory(&models.CaseStageHistory{
			LeadID:      l.ID,
			FromStage:   from,
			ToStage:     rule.To,
			ChangedByID: p.UserID,
			Note:        note,
		}); err != nil {
			return err
		}
		l.CaseStage = rule.To
		lead = l
		return nil
	})
	if err != nil {
		return nil, rule, err
	}
	return lead, rule, nil
}

// SubmitKYP moves NEW_LEAD to KYP_BASIC_PENDING and creates the one KYP
// submission the lead will ever have.
func (s *CaseService) SubmitKYP(ctx context.Context, p authz.Principal, leadID int, in SubmitKYPInput) (*models.KYPSubmission, error) {
	if strings.TrimSpace(in.IDProofType) == "" || strings.TrimSpace(in.IDProofNumber) == "" {
		return nil, workflow.Validationf("id_proof_type and id_proof_number are required")
	}
	var kyp *models.KYPSubmission
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionSubmitKYP, noteOr(in.Note, "KYP submitted"),
		func(tx repositories.CaseTx, l *models.Lead) error {
			existing, err := tx.KYPByLeadID(l.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return workflow.Conflictf("KYP has already been submitted for this lead")
			}
			kyp = &models.KYPSubmission{
				LeadID:         l.ID,
				Status:         models.KYPPending,
				PatientDOB:     in.PatientDOB,
				IDProofType:    in.IDProofType,
				IDProofNumber:  in.IDProofNumber,
				InsurerName:    in.InsurerName,
				PolicyNumber:   in.PolicyNumber,
				SumInsured:     in.SumInsured,
				MedicalHistory: in.MedicalHistory,
				SubmittedByID:  p.UserID,
			}
			return tx.InsertKYP(kyp)
		})
	if err != nil {
		return nil, err
	}
	s.fanout(lead, rule, "KYP_SUBMITTED", "", "New KYP submitted for "+lead.PatientName+".")
	return kyp, nil
}

// CompleteKYPBasic marks the intake follow-up done.
func (s *CaseService) CompleteKYPBasic(ctx context.Context, p authz.Principal, leadID int, note string) (*models.Lead, error) {
	lead, _, err := s.transition(ctx, p, leadID, workflow.ActionCompleteKYPBasic, noteOr(note, "basic KYP complete"),
		func(tx repositories.CaseTx, l *models.Lead) error {
			kyp, err := tx.KYPByLeadID(l.ID)
			if err != nil {
				return err
			}
			if kyp == nil {
				return workflow.NotFoundf("KYP submission not found for lead %d", l.ID)
			}
			return tx.SetKYPStatus(kyp.ID, models.KYPFollowUpComplete)
		})
	return lead, err
}

// SuggestHospitals is Insurance's first pass over the pre-authorization:
// it creates the lead's single pre-auth row carrying the suggestions.
func (s *CaseService) SuggestHospitals(ctx context.Context, p authz.Principal, leadID int, in SuggestHospitalsInput) (*models.PreAuthorization, error) {
	if len(in.Hospitals) == 0 {
		return nil, workflow.Validationf("at least one hospital suggestion is required")
	}
	if len(in.Rooms) == 0 {
		return nil, workflow.Validationf("at least one room suggestion is required")
	}
	for _, r := range in.Rooms {
		if strings.TrimSpace(r.Name) == "" {
			return nil, workflow.Validationf("every room suggestion needs a name")
		}
	}

	var pa *models.PreAuthorization
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionSuggestHospitals, noteOr(in.Note, "hospitals suggested"),
		func(tx repositories.CaseTx, l *models.Lead) error {
			kyp, err := tx.KYPByLeadID(l.ID)
			if err != nil {
				return err
			}
			if kyp == nil {
				return workflow.NotFoundf("KYP submission not found for lead %d", l.ID)
			}
			existing, err := tx.PreAuthByLeadID(l.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return workflow.Conflictf("hospitals have already been suggested for this lead")
			}
			for _, name := range in.Hospitals {
				h, err := tx.HospitalByName(name)
				if err != nil {
					return err
				}
				if h == nil {
					return workflow.Validationf("hospital %q is not an active hospital in the master", name)
				}
			}
			pa = &models.PreAuthorization{
				KYPSubmissionID:    kyp.ID,
				LeadID:             l.ID,
				SuggestedHospitals: in.Hospitals,
				SuggestedRooms:     in.Rooms,
				ApprovalStatus:     models.ApprovalPending,
			}
			return tx.InsertPreAuth(pa)
		})
	if err != nil {
		return nil, err
	}
	s.fanout(lead, rule, "HOSPITALS_SUGGESTED", "", "Insurance suggested hospitals for "+lead.PatientName+".")
	return pa, nil
}

// CompleteKYP closes the detailed KYP pass; the case becomes raisable.
func (s *CaseService) CompleteKYP(ctx context.Context, p authz.Principal, leadID int, note string) (*models.Lead, error) {
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionCompleteKYP, noteOr(note, "KYP complete"), nil)
	if err != nil {
		return nil, err
	}
	s.fanout(lead, rule, "KYP_COMPLETE", "", "KYP completed for "+lead.PatientName+"; pre-auth can be raised.")
	return lead, nil
}

// RaisePreAuth is BD's second pass: the requested hospital and room must be
// among Insurance's suggestions, and a pre-auth can only be raised once.
func (s *CaseService) RaisePreAuth(ctx context.Context, p authz.Principal, leadID int, in RaisePreAuthInput) (*models.PreAuthorization, error) {
	hospital := strings.TrimSpace(in.RequestedHospitalName)
	room := strings.TrimSpace(in.RequestedRoomType)
	if hospital == "" || room == "" {
		return nil, workflow.Validationf("requested_hospital_name and requested_room_type are required")
	}

	var pa *models.PreAuthorization
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionRaisePreAuth, noteOr(in.Note, "pre-auth raised"),
		func(tx repositories.CaseTx, l *models.Lead) error {
			existing, err := tx.PreAuthByLeadID(l.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				return workflow.NotFoundf("pre-authorization not found for lead %d", l.ID)
			}
			if existing.Raised() {
				return workflow.Conflictf("Pre-authorization has already been raised")
			}
			if !containsString(existing.SuggestedHospitals, hospital) {
				return workflow.Validationf("Selected hospital must be one of Insurance's suggested hospitals.")
			}
			if !containsRoom(existing.SuggestedRooms, room) {
				return workflow.Validationf("Selected room type must be one of Insurance's suggested rooms.")
			}
			now := time.Now()
			if err := tx.MarkPreAuthRaised(existing.ID, hospital, room, p.UserID, now); err != nil {
				return err
			}
			existing.RequestedHospitalName = hospital
			existing.RequestedRoomType = room
			existing.RaisedByID = p.UserID
			existing.RaisedAt = &now
			existing.ApprovalStatus = models.ApprovalPending
			pa = existing
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.fanout(lead, rule, "PREAUTH_RAISED", "",
		"Pre-auth raised for "+lead.PatientName+" at "+hospital+".")
	return pa, nil
}

// DecidePreAuth is Insurance's approval or rejection of a raised pre-auth,
// addressed by pre-auth id. Approval completes the KYP submission and the
// pre-auth stage; rejection sends the case back so BD can raise again.
func (s *CaseService) DecidePreAuth(ctx context.Context, p authz.Principal, preAuthID int, in DecidePreAuthInput) (*models.PreAuthorization, error) {
	status := models.ApprovalStatus(strings.ToUpper(strings.TrimSpace(in.ApprovalStatus)))
	var action workflow.Action
	switch status {
	case models.ApprovalApproved:
		action = workflow.ActionApprovePreAuth
		if in.ApprovedAmount <= 0 {
			return nil, workflow.Validationf("approved_amount must be a positive amount")
		}
	case models.ApprovalRejected:
		action = workflow.ActionRejectPreAuth
	default:
		return nil, workflow.Validationf("approval_status must be APPROVED or REJECTED")
	}

	rule, _ := workflow.RuleFor(action)
	if !authz.Allowed(p.RoleID, rule.Capability) {
		return nil, workflow.Forbiddenf("role is not permitted to perform %s", action)
	}

	var pa *models.PreAuthorization
	var lead *models.Lead
	err := s.store.Transact(ctx, func(tx repositories.CaseTx) error {
		found, err := tx.PreAuthByID(preAuthID)
		if err != nil {
			return err
		}
		if found == nil {
			return workflow.NotFoundf("pre-authorization %d not found", preAuthID)
		}
		l, err := tx.LeadForUpdate(found.LeadID)
		if err != nil {
			return err
		}
		if l == nil {
			return workflow.NotFoundf("lead %d not found", found.LeadID)
		}
		// re-read under the lead lock; pre-auth writes are serialized by it
		found, err = tx.PreAuthByID(preAuthID)
		if err != nil {
			return err
		}
		if found == nil {
			return workflow.NotFoundf("pre-authorization %d not found", preAuthID)
		}
		if found.ApprovalStatus == models.ApprovalApproved {
			return workflow.Validationf("Pre-authorization has already been approved")
		}
		if _, err := workflow.Guard(l, p.RoleID, action); err != nil {
			return err
		}
		from := l.CaseStage

		now := time.Now()
		switch status {
		case models.ApprovalApproved:
			if err := tx.SetPreAuthDecision(found.ID, models.ApprovalApproved, in.ApprovedAmount, p.UserID, now); err != nil {
				return err
			}
			if err := tx.SetKYPStatus(found.KYPSubmissionID, models.KYPPreAuthComplete); err != nil {
				return err
			}
			found.ApprovalStatus = models.ApprovalApproved
			found.ApprovedAmount = in.ApprovedAmount
		case models.ApprovalRejected:
			if err := tx.SetPreAuthDecision(found.ID, models.ApprovalRejected, 0, p.UserID, now); err != nil {
				return err
			}
			if err := tx.ClearPreAuthRequest(found.ID); err != nil {
				return err
			}
			found.ApprovalStatus = models.ApprovalRejected
			found.RequestedHospitalName = ""
			found.RequestedRoomType = ""
			found.RaisedAt = nil
		}
		found.DecidedByID = p.UserID
		found.DecidedAt = &now

		if err := tx.SetLeadStage(l.ID, from, rule.To); err != nil {
			if err == repositories.ErrStageConflict {
				return workflow.Conflictf("case stage changed concurrently, retry")
			}
			return err
		}
		if err := tx.InsertHistory(&models.CaseStageHistory{
			LeadID:      l.ID,
			FromStage:   from,
			ToStage:     rule.To,
			ChangedByID: p.UserID,
			Note:        noteOr(in.Note, "pre-auth "+strings.ToLower(string(status))),
		}); err != nil {
			return err
		}
		l.CaseStage = rule.To
		pa, lead = found, l
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch status {
	case models.ApprovalApproved:
		s.fanout(lead, rule, "PREAUTH_APPROVED",
			"Pre-authorization approved by insurance. Approved amount: "+itoa64(in.ApprovedAmount)+".",
			"Pre-authorization approved for "+lead.PatientName+".")
	case models.ApprovalRejected:
		s.fanout(lead, rule, "PREAUTH_REJECTED", "",
			"Pre-authorization rejected for "+lead.PatientName+"; it can be raised again.")
	}
	return pa, nil
}

// Initiate creates the lead's single admission record and moves the case to
// INITIATED. Hospital and room come from the approved pre-auth.
func (s *CaseService) Initiate(ctx context.Context, p authz.Principal, leadID int, in InitiateInput) (*models.AdmissionRecord, error) {
	var planned *time.Time
	if strings.TrimSpace(in.PlannedAdmissionDate) != "" {
		d, err := time.Parse("2006-01-02", in.PlannedAdmissionDate)
		if err != nil {
			return nil, workflow.Validationf("planned_admission_date must be YYYY-MM-DD")
		}
		planned = &d
	}

	var adm *models.AdmissionRecord
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionInitiate, noteOr(in.Note, "admission initiated"),
		func(tx repositories.CaseTx, l *models.Lead) error {
			existing, err := tx.AdmissionByLeadID(l.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return workflow.Conflictf("admission record already exists for this lead")
			}
			pa, err := tx.PreAuthByLeadID(l.ID)
			if err != nil {
				return err
			}
			if pa == nil {
				return workflow.NotFoundf("pre-authorization not found for lead %d", l.ID)
			}
			adm = &models.AdmissionRecord{
				LeadID:               l.ID,
				HospitalName:         pa.RequestedHospitalName,
				RoomType:             pa.RequestedRoomType,
				PlannedAdmissionDate: planned,
				IPDStatus:            models.IPDAdmissionPlanned,
			}
			return tx.InsertAdmission(adm)
		})
	if err != nil {
		return nil, err
	}
	s.fanout(lead, rule, "ADMISSION_INITIATED",
		"Admission initiated at "+adm.HospitalName+" ("+adm.RoomType+" room).",
		"Admission initiated for "+lead.PatientName+".")
	return adm, nil
}

// MarkIPD updates the admission sub-status. Only the DISCHARGED outcome moves
// the case stage and appends history; the other outcomes update the record in
// place and post a chat message.
func (s *CaseService) MarkIPD(ctx context.Context, p authz.Principal, leadID int, in IPDMarkInput) (*models.AdmissionRecord, *models.Lead, error) {
	status := models.IPDStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	switch status {
	case models.IPDAdmittedDone, models.IPDPostponed, models.IPDCancelled, models.IPDDischarged:
	default:
		return nil, nil, workflow.Validationf("status must be one of ADMITTED_DONE, POSTPONED, CANCELLED, DISCHARGED")
	}

	if status == models.IPDDischarged {
		return s.markDischarged(ctx, p, leadID, in)
	}

	rule, _ := workflow.RuleFor(workflow.ActionIPDMark)
	var adm *models.AdmissionRecord
	var lead *models.Lead
	err := s.store.Transact(ctx, func(tx repositories.CaseTx) error {
		l, err := tx.LeadForUpdate(leadID)
		if err != nil {
			return err
		}
		if l == nil {
			return workflow.NotFoundf("lead %d not found", leadID)
		}
		if _, err := workflow.Guard(l, p.RoleID, workflow.ActionIPDMark); err != nil {
			return err
		}
		a, err := tx.AdmissionByLeadID(l.ID)
		if err != nil {
			return err
		}
		if a == nil {
			return workflow.NotFoundf("admission record not found for lead %d", l.ID)
		}
		// sub-status only: no stage write, no history row
		if err := tx.SetAdmissionIPD(a.ID, status, nil); err != nil {
			return err
		}
		a.IPDStatus = status
		adm, lead = a, l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if rule.ChatWorthy && s.chat != nil {
		if err := s.chat.PostSystemMessage(lead.ID, ipdChatText(status, adm, nil)); err != nil {
			log.Printf("[case][fanout] chat message failed leadID=%d: %v", lead.ID, err)
		}
	}
	return adm, lead, nil
}

func (s *CaseService) markDischarged(ctx context.Context, p authz.Principal, leadID int, in IPDMarkInput) (*models.AdmissionRecord, *models.Lead, error) {
	if strings.TrimSpace(in.DischargeDate) == "" {
		return nil, nil, workflow.Validationf("discharge_date is required when status is DISCHARGED")
	}
	d, err := time.Parse("2006-01-02", in.DischargeDate)
	if err != nil {
		return nil, nil, workflow.Validationf("discharge_date must be YYYY-MM-DD")
	}

	var adm *models.AdmissionRecord
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionIPDMark, noteOr(in.Note, "patient discharged"),
		func(tx repositories.CaseTx, l *models.Lead) error {
			a, err := tx.AdmissionByLeadID(l.ID)
			if err != nil {
				return err
			}
			if a == nil {
				return workflow.NotFoundf("admission record not found for lead %d", l.ID)
			}
			if err := tx.SetAdmissionIPD(a.ID, models.IPDDischarged, &d); err != nil {
				return err
			}
			a.IPDStatus = models.IPDDischarged
			a.IPDDischargeDate = &d
			adm = a
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	s.fanout(lead, rule, "IPD_DISCHARGED",
		ipdChatText(models.IPDDischarged, adm, &d),
		"Patient "+lead.PatientName+" discharged.")
	return adm, lead, nil
}

// MarkPLPending flags a discharged case for payment-ledger follow-up.
func (s *CaseService) MarkPLPending(ctx context.Context, p authz.Principal, leadID int, note string) (*models.Lead, error) {
	lead, _, err := s.transition(ctx, p, leadID, workflow.ActionMarkPLPending, noteOr(note, "PL pending"), nil)
	return lead, err
}

// MarkOutstanding flags an unsettled case.
func (s *CaseService) MarkOutstanding(ctx context.Context, p authz.Principal, leadID int, note string) (*models.Lead, error) {
	lead, rule, err := s.transition(ctx, p, leadID, workflow.ActionMarkOutstanding, noteOr(note, "marked outstanding"), nil)
	if err != nil {
		return nil, err
	}
	s.fanout(lead, rule, "CASE_OUTSTANDING", "", "Case for "+lead.PatientName+" marked outstanding.")
	return lead, nil
}

// fanout runs the post-commit side effects: best-effort, logged and swallowed.
func (s *CaseService) fanout(lead *models.Lead, rule workflow.Rule, event, chatText, notifyMsg string) {
	if rule.ChatWorthy && chatText != "" && s.chat != nil {
		if err := s.chat.PostSystemMessage(lead.ID, chatText); err != nil {
			log.Printf("[case][fanout] chat message failed leadID=%d event=%s: %v", lead.ID, event, err)
		}
	}
	if s.notifier == nil || notifyMsg == "" || rule.Notify == workflow.NotifyNone {
		return
	}
	var err error
	switch rule.Notify {
	case workflow.NotifyAssignedBD:
		if lead.AssignedBDID != 0 {
			err = s.notifier.NotifyUser(lead.AssignedBDID, lead.ID, event, notifyMsg)
		}
	case workflow.NotifyInsuranceHeads:
		err = s.notifier.NotifyRoles([]int{authz.RoleInsuranceHead}, lead.ID, event, notifyMsg)
	case workflow.NotifyInsuranceTeam:
		err = s.notifier.NotifyRoles([]int{authz.RoleInsurance, authz.RoleInsuranceHead}, lead.ID, event, notifyMsg)
	case workflow.NotifyOperations:
		err = s.notifier.NotifyRoles([]int{authz.RoleOperations}, lead.ID, event, notifyMsg)
	}
	if err != nil {
		log.Printf("[case][fanout] notification failed leadID=%d event=%s: %v", lead.ID, event, err)
	}
}

func ipdChatText(status models.IPDStatus, adm *models.AdmissionRecord, discharge *time.Time) string {
	switch status {
	case models.IPDAdmittedDone:
		return "Patient admitted at " + adm.HospitalName + "."
	case models.IPDPostponed:
		return "Admission at " + adm.HospitalName + " has been postponed."
	case models.IPDCancelled:
		return "Admission at " + adm.HospitalName + " has been cancelled."
	case models.IPDDischarged:
		if discharge != nil {
			return "Patient discharged on " + discharge.Format("2006-01-02") + "."
		}
		return "Patient discharged."
	}
	return ""
}

func noteOr(note, fallback string) string {
	if strings.TrimSpace(note) != "" {
		return note
	}
	return fallback
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsRoom(rooms []models.RoomOption, name string) bool {
	for _, r := range rooms {
		if r.Name == name {
			return true
		}
	}
	return false
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}
