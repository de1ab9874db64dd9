package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

// fakeState is an in-memory copy of everything CaseTx touches. Transact
// clones it, runs the closure against the clone, and commits by swapping the
// clone in, so a failed transaction leaves the original untouched.
type fakeState struct {
	leads      map[int]*models.Lead
	kyps       map[int]*models.KYPSubmission
	preAuths   map[int]*models.PreAuthorization
	admissions map[int]*models.AdmissionRecord
	hospitals  map[string]*models.Hospital
	history    []*models.CaseStageHistory
	nextID     int

	// shareLeads makes LeadForUpdate return the live struct instead of a
	// detached copy, to check the engine tolerates a store that aliases
	shareLeads bool
}

func newFakeState() *fakeState {
	return &fakeState{
		leads:      map[int]*models.Lead{},
		kyps:       map[int]*models.KYPSubmission{},
		preAuths:   map[int]*models.PreAuthorization{},
		admissions: map[int]*models.AdmissionRecord{},
		hospitals:  map[string]*models.Hospital{},
		nextID:     100,
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	c.nextID = s.nextID
	c.shareLeads = s.shareLeads
	for id, l := range s.leads {
		cp := *l
		c.leads[id] = &cp
	}
	for id, k := range s.kyps {
		cp := *k
		c.kyps[id] = &cp
	}
	for id, p := range s.preAuths {
		cp := *p
		cp.SuggestedHospitals = append([]string(nil), p.SuggestedHospitals...)
		cp.SuggestedRooms = append([]models.RoomOption(nil), p.SuggestedRooms...)
		c.preAuths[id] = &cp
	}
	for id, a := range s.admissions {
		cp := *a
		c.admissions[id] = &cp
	}
	for name, h := range s.hospitals {
		cp := *h
		c.hospitals[name] = &cp
	}
	for _, h := range s.history {
		cp := *h
		c.history = append(c.history, &cp)
	}
	return c
}

type fakeStore struct {
	state *fakeState
}

func (s *fakeStore) Transact(ctx context.Context, fn func(tx repositories.CaseTx) error) error {
	next := s.state.clone()
	if err := fn(&fakeTx{state: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

type fakeTx struct {
	state *fakeState
}

// LeadForUpdate hands out a detached copy, like the SQL store scanning a
// fresh row; the stage write goes through SetLeadStage, never the pointer.
func (t *fakeTx) LeadForUpdate(id int) (*models.Lead, error) {
	l, ok := t.state.leads[id]
	if !ok {
		return nil, nil
	}
	if t.state.shareLeads {
		return l, nil
	}
	cp := *l
	return &cp, nil
}

func (t *fakeTx) SetLeadStage(id int, from, to models.CaseStage) error {
	l, ok := t.state.leads[id]
	if !ok || l.CaseStage != from {
		return repositories.ErrStageConflict
	}
	l.CaseStage = to
	return nil
}

func (t *fakeTx) InsertHistory(h *models.CaseStageHistory) error {
	t.state.nextID++
	h.ID = t.state.nextID
	h.CreatedAt = time.Now()
	t.state.history = append(t.state.history, h)
	return nil
}

func (t *fakeTx) KYPByLeadID(leadID int) (*models.KYPSubmission, error) {
	for _, k := range t.state.kyps {
		if k.LeadID == leadID {
			return k, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) InsertKYP(k *models.KYPSubmission) error {
	t.state.nextID++
	k.ID = t.state.nextID
	t.state.kyps[k.ID] = k
	return nil
}

func (t *fakeTx) SetKYPStatus(id int, status models.KYPStatus) error {
	k, ok := t.state.kyps[id]
	if !ok {
		return errors.New("kyp not found")
	}
	k.Status = status
	return nil
}

func (t *fakeTx) PreAuthByID(id int) (*models.PreAuthorization, error) {
	return t.state.preAuths[id], nil
}

func (t *fakeTx) PreAuthByLeadID(leadID int) (*models.PreAuthorization, error) {
	for _, p := range t.state.preAuths {
		if p.LeadID == leadID {
			return p, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) InsertPreAuth(p *models.PreAuthorization) error {
	t.state.nextID++
	p.ID = t.state.nextID
	t.state.preAuths[p.ID] = p
	return nil
}

func (t *fakeTx) MarkPreAuthRaised(id int, hospital, room string, byID int, at time.Time) error {
	p, ok := t.state.preAuths[id]
	if !ok {
		return errors.New("pre-auth not found")
	}
	p.RequestedHospitalName = hospital
	p.RequestedRoomType = room
	p.RaisedByID = byID
	p.RaisedAt = &at
	p.ApprovalStatus = models.ApprovalPending
	return nil
}

func (t *fakeTx) SetPreAuthDecision(id int, status models.ApprovalStatus, amount int64, byID int, at time.Time) error {
	p, ok := t.state.preAuths[id]
	if !ok {
		return errors.New("pre-auth not found")
	}
	p.ApprovalStatus = status
	p.ApprovedAmount = amount
	p.DecidedByID = byID
	p.DecidedAt = &at
	return nil
}

func (t *fakeTx) ClearPreAuthRequest(id int) error {
	p, ok := t.state.preAuths[id]
	if !ok {
		return errors.New("pre-auth not found")
	}
	p.RequestedHospitalName = ""
	p.RequestedRoomType = ""
	p.RaisedAt = nil
	return nil
}

func (t *fakeTx) AdmissionByLeadID(leadID int) (*models.AdmissionRecord, error) {
	for _, a := range t.state.admissions {
		if a.LeadID == leadID {
			return a, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) InsertAdmission(a *models.AdmissionRecord) error {
	t.state.nextID++
	a.ID = t.state.nextID
	t.state.admissions[a.ID] = a
	return nil
}

func (t *fakeTx) SetAdmissionIPD(id int, status models.IPDStatus, dischargeDate *time.Time) error {
	a, ok := t.state.admissions[id]
	if !ok {
		return errors.New("admission not found")
	}
	a.IPDStatus = status
	if dischargeDate != nil {
		a.IPDDischargeDate = dischargeDate
	}
	return nil
}

func (t *fakeTx) HospitalByName(name string) (*models.Hospital, error) {
	h, ok := t.state.hospitals[name]
	if !ok || !h.Active {
		return nil, nil
	}
	return h, nil
}

type chatRecorder struct {
	messages []string
	err      error
}

func (c *chatRecorder) PostSystemMessage(leadID int, text string) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, text)
	return nil
}

type notifyCall struct {
	roleIDs []int
	userID  int
	event   string
}

type notifyRecorder struct {
	calls []notifyCall
	err   error
}

func (n *notifyRecorder) NotifyRoles(roleIDs []int, leadID int, event, message string) error {
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, notifyCall{roleIDs: roleIDs, event: event})
	return nil
}

func (n *notifyRecorder) NotifyUser(userID, leadID int, event, message string) error {
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, notifyCall{userID: userID, event: event})
	return nil
}

type fixture struct {
	store    *fakeStore
	chat     *chatRecorder
	notifier *notifyRecorder
	svc      *CaseService
}

const (
	leadID = 1
	bdID   = 7
)

var (
	bd            = authz.Principal{UserID: bdID, RoleID: authz.RoleBD}
	insurance     = authz.Principal{UserID: 8, RoleID: authz.RoleInsurance}
	insuranceHead = authz.Principal{UserID: 9, RoleID: authz.RoleInsuranceHead}
	operations    = authz.Principal{UserID: 11, RoleID: authz.RoleOperations}
)

func newFixture(stage models.CaseStage) *fixture {
	state := newFakeState()
	state.leads[leadID] = &models.Lead{
		ID:           leadID,
		PatientName:  "Asel Nurlanova",
		CaseStage:    stage,
		AssignedBDID: bdID,
	}
	state.hospitals["City Care"] = &models.Hospital{ID: 1, Name: "City Care", Active: true}
	state.hospitals["Green Valley"] = &models.Hospital{ID: 2, Name: "Green Valley", Active: true}

	f := &fixture{
		store:    &fakeStore{state: state},
		chat:     &chatRecorder{},
		notifier: &notifyRecorder{},
	}
	f.svc = NewCaseService(f.store, f.chat, f.notifier)
	return f
}

func (f *fixture) lead() *models.Lead { return f.store.state.leads[leadID] }

func (f *fixture) seedKYP(status models.KYPStatus) *models.KYPSubmission {
	k := &models.KYPSubmission{ID: 50, LeadID: leadID, Status: status, IDProofType: "passport", IDProofNumber: "N123"}
	f.store.state.kyps[k.ID] = k
	return k
}

func (f *fixture) seedPreAuth(raised bool, status models.ApprovalStatus) *models.PreAuthorization {
	p := &models.PreAuthorization{
		ID:                 60,
		KYPSubmissionID:    50,
		LeadID:             leadID,
		SuggestedHospitals: []string{"City Care", "Green Valley"},
		SuggestedRooms:     []models.RoomOption{{Name: "Deluxe", Rent: "4500"}, {Name: "Shared", Rent: "1500"}},
		ApprovalStatus:     status,
	}
	if raised {
		now := time.Now()
		p.RequestedHospitalName = "City Care"
		p.RequestedRoomType = "Deluxe"
		p.RaisedByID = bdID
		p.RaisedAt = &now
	}
	f.store.state.preAuths[p.ID] = p
	return p
}

func (f *fixture) seedAdmission(status models.IPDStatus) *models.AdmissionRecord {
	a := &models.AdmissionRecord{ID: 70, LeadID: leadID, HospitalName: "City Care", RoomType: "Deluxe", IPDStatus: status}
	f.store.state.admissions[a.ID] = a
	return a
}

func TestSubmitKYP(t *testing.T) {
	f := newFixture(models.StageNewLead)

	kyp, err := f.svc.SubmitKYP(context.Background(), bd, leadID, SubmitKYPInput{
		IDProofType:   "passport",
		IDProofNumber: "N123",
		SumInsured:    "500000",
	})
	require.NoError(t, err)
	assert.Equal(t, models.KYPPending, kyp.Status)
	assert.Equal(t, bdID, kyp.SubmittedByID)

	assert.Equal(t, models.StageKYPBasicPending, f.lead().CaseStage)
	require.Len(t, f.store.state.history, 1)
	assert.Equal(t, models.StageNewLead, f.store.state.history[0].FromStage)
	assert.Equal(t, models.StageKYPBasicPending, f.store.state.history[0].ToStage)
	assert.Equal(t, bdID, f.store.state.history[0].ChangedByID)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "KYP_SUBMITTED", f.notifier.calls[0].event)
	assert.Equal(t, []int{authz.RoleInsuranceHead}, f.notifier.calls[0].roleIDs)
}

func TestSubmitKYPRequiresIDProof(t *testing.T) {
	f := newFixture(models.StageNewLead)
	_, err := f.svc.SubmitKYP(context.Background(), bd, leadID, SubmitKYPInput{})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
	assert.Equal(t, models.StageNewLead, f.lead().CaseStage)
}

func TestSubmitKYPTwiceConflicts(t *testing.T) {
	f := newFixture(models.StageNewLead)
	f.seedKYP(models.KYPPending)

	_, err := f.svc.SubmitKYP(context.Background(), bd, leadID, SubmitKYPInput{
		IDProofType: "passport", IDProofNumber: "N123",
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindConflict, workflow.KindOf(err))
	assert.Equal(t, models.StageNewLead, f.lead().CaseStage)
	assert.Empty(t, f.store.state.history)
}

func TestSubmitKYPWrongRole(t *testing.T) {
	f := newFixture(models.StageNewLead)
	_, err := f.svc.SubmitKYP(context.Background(), operations, leadID, SubmitKYPInput{
		IDProofType: "passport", IDProofNumber: "N123",
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
	assert.Equal(t, models.StageNewLead, f.lead().CaseStage)
}

func TestSubmitKYPUnknownLead(t *testing.T) {
	f := newFixture(models.StageNewLead)
	_, err := f.svc.SubmitKYP(context.Background(), bd, 999, SubmitKYPInput{
		IDProofType: "passport", IDProofNumber: "N123",
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindNotFound, workflow.KindOf(err))
}

func TestCompleteKYPBasic(t *testing.T) {
	f := newFixture(models.StageKYPBasicPending)
	kyp := f.seedKYP(models.KYPPending)

	lead, err := f.svc.CompleteKYPBasic(context.Background(), insurance, leadID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StageKYPBasicComplete, lead.CaseStage)
	assert.Equal(t, models.KYPFollowUpComplete, f.store.state.kyps[kyp.ID].Status)
	require.Len(t, f.store.state.history, 1)
}

func TestSuggestHospitals(t *testing.T) {
	f := newFixture(models.StageKYPBasicComplete)
	f.seedKYP(models.KYPFollowUpComplete)

	pa, err := f.svc.SuggestHospitals(context.Background(), insurance, leadID, SuggestHospitalsInput{
		Hospitals: []string{"City Care", "Green Valley"},
		Rooms:     []models.RoomOption{{Name: "Deluxe", Rent: "4500"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, pa.ApprovalStatus)
	assert.Equal(t, models.StageHospitalsSuggested, f.lead().CaseStage)

	// assigned BD gets a direct notification
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, bdID, f.notifier.calls[0].userID)
}

func TestSuggestHospitalsUnknownMaster(t *testing.T) {
	f := newFixture(models.StageKYPBasicComplete)
	f.seedKYP(models.KYPFollowUpComplete)

	_, err := f.svc.SuggestHospitals(context.Background(), insurance, leadID, SuggestHospitalsInput{
		Hospitals: []string{"Nowhere Clinic"},
		Rooms:     []models.RoomOption{{Name: "Deluxe"}},
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
	assert.Equal(t, models.StageKYPBasicComplete, f.lead().CaseStage)
	assert.Empty(t, f.store.state.preAuths)
}

func TestSuggestHospitalsTwiceConflicts(t *testing.T) {
	f := newFixture(models.StageKYPBasicComplete)
	f.seedKYP(models.KYPFollowUpComplete)
	f.seedPreAuth(false, models.ApprovalPending)

	_, err := f.svc.SuggestHospitals(context.Background(), insurance, leadID, SuggestHospitalsInput{
		Hospitals: []string{"City Care"},
		Rooms:     []models.RoomOption{{Name: "Deluxe"}},
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindConflict, workflow.KindOf(err))
}

func TestRaisePreAuth(t *testing.T) {
	f := newFixture(models.StageKYPComplete)
	f.seedKYP(models.KYPFollowUpComplete)
	f.seedPreAuth(false, models.ApprovalPending)

	pa, err := f.svc.RaisePreAuth(context.Background(), bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "City Care",
		RequestedRoomType:     "Deluxe",
	})
	require.NoError(t, err)
	assert.True(t, pa.Raised())
	assert.Equal(t, "City Care", pa.RequestedHospitalName)
	assert.Equal(t, models.StagePreAuthRaised, f.lead().CaseStage)

	require.Len(t, f.notifier.calls, 1)
	assert.ElementsMatch(t, []int{authz.RoleInsurance, authz.RoleInsuranceHead}, f.notifier.calls[0].roleIDs)
}

func TestRaisePreAuthRejectsUnsuggestedHospital(t *testing.T) {
	f := newFixture(models.StageKYPComplete)
	f.seedKYP(models.KYPFollowUpComplete)
	f.seedPreAuth(false, models.ApprovalPending)

	_, err := f.svc.RaisePreAuth(context.Background(), bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "Nowhere Clinic",
		RequestedRoomType:     "Deluxe",
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
	assert.EqualError(t, err, "Selected hospital must be one of Insurance's suggested hospitals.")
	assert.Equal(t, models.StageKYPComplete, f.lead().CaseStage)
}

func TestRaisePreAuthRejectsUnsuggestedRoom(t *testing.T) {
	f := newFixture(models.StageKYPComplete)
	f.seedKYP(models.KYPFollowUpComplete)
	f.seedPreAuth(false, models.ApprovalPending)

	_, err := f.svc.RaisePreAuth(context.Background(), bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "City Care",
		RequestedRoomType:     "Presidential",
	})
	require.Error(t, err)
	assert.EqualError(t, err, "Selected room type must be one of Insurance's suggested rooms.")
}

func TestRaisePreAuthTwiceConflicts(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	f.seedKYP(models.KYPFollowUpComplete)
	f.seedPreAuth(true, models.ApprovalPending)

	_, err := f.svc.RaisePreAuth(context.Background(), bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "City Care",
		RequestedRoomType:     "Deluxe",
	})
	require.Error(t, err)
	// the stage guard fires first: the case is no longer in KYP_COMPLETE
	assert.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}

func TestRaisePreAuthWrongRole(t *testing.T) {
	f := newFixture(models.StageKYPComplete)
	f.seedKYP(models.KYPFollowUpComplete)
	f.seedPreAuth(false, models.ApprovalPending)

	_, err := f.svc.RaisePreAuth(context.Background(), insurance, leadID, RaisePreAuthInput{
		RequestedHospitalName: "City Care",
		RequestedRoomType:     "Deluxe",
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}

func TestApprovePreAuth(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	kyp := f.seedKYP(models.KYPFollowUpComplete)
	pa := f.seedPreAuth(true, models.ApprovalPending)

	got, err := f.svc.DecidePreAuth(context.Background(), insurance, pa.ID, DecidePreAuthInput{
		ApprovalStatus: "APPROVED",
		ApprovedAmount: 250000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, got.ApprovalStatus)
	assert.Equal(t, int64(250000), got.ApprovedAmount)

	assert.Equal(t, models.StagePreAuthComplete, f.lead().CaseStage)
	assert.Equal(t, models.KYPPreAuthComplete, f.store.state.kyps[kyp.ID].Status)

	require.Len(t, f.chat.messages, 1)
	assert.Contains(t, f.chat.messages[0], "250000")
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, bdID, f.notifier.calls[0].userID)
}

func TestApprovePreAuthTwice(t *testing.T) {
	f := newFixture(models.StagePreAuthComplete)
	f.seedKYP(models.KYPPreAuthComplete)
	pa := f.seedPreAuth(true, models.ApprovalApproved)

	_, err := f.svc.DecidePreAuth(context.Background(), insurance, pa.ID, DecidePreAuthInput{
		ApprovalStatus: "APPROVED",
		ApprovedAmount: 250000,
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
	assert.EqualError(t, err, "Pre-authorization has already been approved")
	assert.Equal(t, models.StagePreAuthComplete, f.lead().CaseStage)
}

func TestRejectPreAuthAllowsRaisingAgain(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	f.seedKYP(models.KYPFollowUpComplete)
	pa := f.seedPreAuth(true, models.ApprovalPending)

	got, err := f.svc.DecidePreAuth(context.Background(), insuranceHead, pa.ID, DecidePreAuthInput{
		ApprovalStatus: "REJECTED",
		Note:           "insufficient cover",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, got.ApprovalStatus)
	assert.False(t, got.Raised())
	assert.Empty(t, got.RequestedHospitalName)
	assert.Equal(t, models.StageKYPComplete, f.lead().CaseStage)

	// BD can raise again after the rejection
	_, err = f.svc.RaisePreAuth(context.Background(), bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "Green Valley",
		RequestedRoomType:     "Shared",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StagePreAuthRaised, f.lead().CaseStage)
}

func TestDecidePreAuthValidation(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	f.seedKYP(models.KYPFollowUpComplete)
	pa := f.seedPreAuth(true, models.ApprovalPending)

	_, err := f.svc.DecidePreAuth(context.Background(), insurance, pa.ID, DecidePreAuthInput{ApprovalStatus: "MAYBE"})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))

	_, err = f.svc.DecidePreAuth(context.Background(), insurance, pa.ID, DecidePreAuthInput{ApprovalStatus: "APPROVED"})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
}

func TestDecidePreAuthWrongRole(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	f.seedKYP(models.KYPFollowUpComplete)
	pa := f.seedPreAuth(true, models.ApprovalPending)

	_, err := f.svc.DecidePreAuth(context.Background(), bd, pa.ID, DecidePreAuthInput{
		ApprovalStatus: "APPROVED",
		ApprovedAmount: 100,
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}

func TestDecidePreAuthNotFound(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	_, err := f.svc.DecidePreAuth(context.Background(), insurance, 999, DecidePreAuthInput{
		ApprovalStatus: "APPROVED",
		ApprovedAmount: 100,
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindNotFound, workflow.KindOf(err))
}

func TestInitiate(t *testing.T) {
	f := newFixture(models.StagePreAuthComplete)
	f.seedKYP(models.KYPPreAuthComplete)
	f.seedPreAuth(true, models.ApprovalApproved)

	adm, err := f.svc.Initiate(context.Background(), bd, leadID, InitiateInput{
		PlannedAdmissionDate: "2026-09-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "City Care", adm.HospitalName)
	assert.Equal(t, "Deluxe", adm.RoomType)
	assert.Equal(t, models.IPDAdmissionPlanned, adm.IPDStatus)
	require.NotNil(t, adm.PlannedAdmissionDate)

	assert.Equal(t, models.StageInitiated, f.lead().CaseStage)
	require.Len(t, f.chat.messages, 1)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, []int{authz.RoleOperations}, f.notifier.calls[0].roleIDs)
}

func TestInitiateTwiceConflicts(t *testing.T) {
	f := newFixture(models.StagePreAuthComplete)
	f.seedKYP(models.KYPPreAuthComplete)
	f.seedPreAuth(true, models.ApprovalApproved)
	f.seedAdmission(models.IPDAdmissionPlanned)

	_, err := f.svc.Initiate(context.Background(), bd, leadID, InitiateInput{})
	require.Error(t, err)
	assert.Equal(t, workflow.KindConflict, workflow.KindOf(err))
}

func TestInitiateBadDate(t *testing.T) {
	f := newFixture(models.StagePreAuthComplete)
	_, err := f.svc.Initiate(context.Background(), bd, leadID, InitiateInput{
		PlannedAdmissionDate: "15/09/2026",
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
}

func TestMarkIPDSubStatusOnly(t *testing.T) {
	f := newFixture(models.StageInitiated)
	f.seedAdmission(models.IPDAdmissionPlanned)

	adm, lead, err := f.svc.MarkIPD(context.Background(), bd, leadID, IPDMarkInput{Status: "POSTPONED"})
	require.NoError(t, err)
	assert.Equal(t, models.IPDPostponed, adm.IPDStatus)

	// sub-status updates never move the stage or write history
	assert.Equal(t, models.StageInitiated, lead.CaseStage)
	assert.Equal(t, models.StageInitiated, f.lead().CaseStage)
	assert.Empty(t, f.store.state.history)

	require.Len(t, f.chat.messages, 1)
	assert.Contains(t, f.chat.messages[0], "postponed")
}

func TestMarkIPDDischarged(t *testing.T) {
	f := newFixture(models.StageInitiated)
	f.seedAdmission(models.IPDAdmittedDone)

	adm, lead, err := f.svc.MarkIPD(context.Background(), bd, leadID, IPDMarkInput{
		Status:        "DISCHARGED",
		DischargeDate: "2026-09-20",
	})
	require.NoError(t, err)
	assert.Equal(t, models.IPDDischarged, adm.IPDStatus)
	require.NotNil(t, adm.IPDDischargeDate)
	assert.Equal(t, models.StageDischarged, lead.CaseStage)

	require.Len(t, f.store.state.history, 1)
	assert.Equal(t, models.StageInitiated, f.store.state.history[0].FromStage)
	assert.Equal(t, models.StageDischarged, f.store.state.history[0].ToStage)
}

func TestMarkIPDDischargedRequiresDate(t *testing.T) {
	f := newFixture(models.StageInitiated)
	f.seedAdmission(models.IPDAdmittedDone)

	_, _, err := f.svc.MarkIPD(context.Background(), bd, leadID, IPDMarkInput{Status: "DISCHARGED"})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
	assert.Equal(t, models.StageInitiated, f.lead().CaseStage)
}

func TestMarkIPDInvalidStatus(t *testing.T) {
	f := newFixture(models.StageInitiated)
	_, _, err := f.svc.MarkIPD(context.Background(), bd, leadID, IPDMarkInput{Status: "LOST"})
	require.Error(t, err)
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
}

func TestSettlementStages(t *testing.T) {
	f := newFixture(models.StageDischarged)

	lead, err := f.svc.MarkPLPending(context.Background(), operations, leadID, "ledger opened")
	require.NoError(t, err)
	assert.Equal(t, models.StagePLPending, lead.CaseStage)

	lead, err = f.svc.MarkOutstanding(context.Background(), operations, leadID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StageOutstanding, lead.CaseStage)

	require.Len(t, f.store.state.history, 2)
	assert.Equal(t, "ledger opened", f.store.state.history[0].Note)
}

func TestSettlementWrongRole(t *testing.T) {
	f := newFixture(models.StageDischarged)
	_, err := f.svc.MarkPLPending(context.Background(), bd, leadID, "")
	require.Error(t, err)
	assert.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
	assert.Equal(t, models.StageDischarged, f.lead().CaseStage)
}

func TestFanoutFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(models.StageNewLead)
	f.chat.err = errors.New("chat down")
	f.notifier.err = errors.New("notifier down")

	_, err := f.svc.SubmitKYP(context.Background(), bd, leadID, SubmitKYPInput{
		IDProofType: "passport", IDProofNumber: "N123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageKYPBasicPending, f.lead().CaseStage)
	require.Len(t, f.store.state.history, 1)
}

func TestHistorySourceStageWithSharedLeadStruct(t *testing.T) {
	// A store is free to return the same struct it mutates on the stage
	// write; the history row must still record where the case came from.
	f := newFixture(models.StageNewLead)
	f.store.state.shareLeads = true

	_, err := f.svc.SubmitKYP(context.Background(), bd, leadID, SubmitKYPInput{
		IDProofType: "passport", IDProofNumber: "N123",
	})
	require.NoError(t, err)
	require.Len(t, f.store.state.history, 1)
	assert.Equal(t, models.StageNewLead, f.store.state.history[0].FromStage)
	assert.Equal(t, models.StageKYPBasicPending, f.store.state.history[0].ToStage)
}

func TestDecideHistorySourceStageWithSharedLeadStruct(t *testing.T) {
	f := newFixture(models.StagePreAuthRaised)
	f.store.state.shareLeads = true
	f.seedKYP(models.KYPFollowUpComplete)
	pa := f.seedPreAuth(true, models.ApprovalPending)

	_, err := f.svc.DecidePreAuth(context.Background(), insurance, pa.ID, DecidePreAuthInput{
		ApprovalStatus: "APPROVED",
		ApprovedAmount: 250000,
	})
	require.NoError(t, err)
	require.Len(t, f.store.state.history, 1)
	assert.Equal(t, models.StagePreAuthRaised, f.store.state.history[0].FromStage)
	assert.Equal(t, models.StagePreAuthComplete, f.store.state.history[0].ToStage)
}

func TestGuardFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(models.StageNewLead)

	_, err := f.svc.RaisePreAuth(context.Background(), bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "City Care",
		RequestedRoomType:     "Deluxe",
	})
	require.Error(t, err)
	assert.Equal(t, models.StageNewLead, f.lead().CaseStage)
	assert.Empty(t, f.store.state.history)
	assert.Empty(t, f.chat.messages)
	assert.Empty(t, f.notifier.calls)
}

func TestFullPipeline(t *testing.T) {
	f := newFixture(models.StageNewLead)
	ctx := context.Background()

	_, err := f.svc.SubmitKYP(ctx, bd, leadID, SubmitKYPInput{IDProofType: "passport", IDProofNumber: "N123"})
	require.NoError(t, err)
	_, err = f.svc.CompleteKYPBasic(ctx, insurance, leadID, "")
	require.NoError(t, err)
	pa, err := f.svc.SuggestHospitals(ctx, insurance, leadID, SuggestHospitalsInput{
		Hospitals: []string{"City Care"},
		Rooms:     []models.RoomOption{{Name: "Deluxe", Rent: "4500"}},
	})
	require.NoError(t, err)
	_, err = f.svc.CompleteKYP(ctx, insurance, leadID, "")
	require.NoError(t, err)
	_, err = f.svc.RaisePreAuth(ctx, bd, leadID, RaisePreAuthInput{
		RequestedHospitalName: "City Care", RequestedRoomType: "Deluxe",
	})
	require.NoError(t, err)
	_, err = f.svc.DecidePreAuth(ctx, insuranceHead, pa.ID, DecidePreAuthInput{
		ApprovalStatus: "APPROVED", ApprovedAmount: 300000,
	})
	require.NoError(t, err)
	_, err = f.svc.Initiate(ctx, bd, leadID, InitiateInput{PlannedAdmissionDate: "2026-09-15"})
	require.NoError(t, err)
	_, _, err = f.svc.MarkIPD(ctx, bd, leadID, IPDMarkInput{Status: "ADMITTED_DONE"})
	require.NoError(t, err)
	_, _, err = f.svc.MarkIPD(ctx, bd, leadID, IPDMarkInput{Status: "DISCHARGED", DischargeDate: "2026-09-20"})
	require.NoError(t, err)
	_, err = f.svc.MarkPLPending(ctx, operations, leadID, "")
	require.NoError(t, err)
	_, err = f.svc.MarkOutstanding(ctx, operations, leadID, "")
	require.NoError(t, err)

	assert.Equal(t, models.StageOutstanding, f.lead().CaseStage)
	// one history row per stage transition; the ADMITTED_DONE sub-status
	// update writes none
	assert.Len(t, f.store.state.history, 10)
}
