package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/services"
)

// stubState backs a single-lead store; just enough CaseTx for endpoint tests.
type stubState struct {
	lead    *models.Lead
	kyp     *models.KYPSubmission
	preAuth *models.PreAuthorization
}

type stubStore struct{ s *stubState }

func (st *stubStore) Transact(ctx context.Context, fn func(tx repositories.CaseTx) error) error {
	return fn(&stubTx{s: st.s})
}

type stubTx struct{ s *stubState }

func (t *stubTx) LeadForUpdate(id int) (*models.Lead, error) {
	if t.s.lead != nil && t.s.lead.ID == id {
		return t.s.lead, nil
	}
	return nil, nil
}

func (t *stubTx) SetLeadStage(id int, from, to models.CaseStage) error {
	if t.s.lead == nil || t.s.lead.CaseStage != from {
		return repositories.ErrStageConflict
	}
	t.s.lead.CaseStage = to
	return nil
}

func (t *stubTx) InsertHistory(h *models.CaseStageHistory) error { return nil }

func (t *stubTx) KYPByLeadID(leadID int) (*models.KYPSubmission, error) { return t.s.kyp, nil }
func (t *stubTx) InsertKYP(k *models.KYPSubmission) error               { return nil }
func (t *stubTx) SetKYPStatus(id int, status models.KYPStatus) error    { return nil }

func (t *stubTx) PreAuthByID(id int) (*models.PreAuthorization, error) {
	if t.s.preAuth != nil && t.s.preAuth.ID == id {
		return t.s.preAuth, nil
	}
	return nil, nil
}

func (t *stubTx) PreAuthByLeadID(leadID int) (*models.PreAuthorization, error) {
	return t.s.preAuth, nil
}

func (t *stubTx) InsertPreAuth(p *models.PreAuthorization) error { return nil }
func (t *stubTx) MarkPreAuthRaised(id int, hospital, room string, byID int, at time.Time) error {
	return nil
}
func (t *stubTx) SetPreAuthDecision(id int, status models.ApprovalStatus, amount int64, byID int, at time.Time) error {
	return nil
}
func (t *stubTx) ClearPreAuthRequest(id int) error { return nil }

func (t *stubTx) AdmissionByLeadID(leadID int) (*models.AdmissionRecord, error) { return nil, nil }
func (t *stubTx) InsertAdmission(a *models.AdmissionRecord) error               { return nil }
func (t *stubTx) SetAdmissionIPD(id int, status models.IPDStatus, dischargeDate *time.Time) error {
	return nil
}

func (t *stubTx) HospitalByName(name string) (*models.Hospital, error) { return nil, nil }

func newTestRouter(state *stubState, userID, roleID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := services.NewCaseService(&stubStore{s: state}, nil, nil)
	h := NewCaseHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
			c.Set("role_id", roleID)
		}
		c.Next()
	})
	r.POST("/leads/:id/complete-kyp", h.CompleteKYP)
	r.POST("/leads/:id/submit-kyp", h.SubmitKYP)
	r.POST("/pre-auth/:id/decide", h.DecidePreAuth)
	return r
}

func doPost(t *testing.T, r *gin.Engine, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestCompleteKYPOK(t *testing.T) {
	state := &stubState{lead: &models.Lead{ID: 1, CaseStage: models.StageHospitalsSuggested}}
	r := newTestRouter(state, 8, authz.RoleInsurance)

	w, env := doPost(t, r, "/leads/1/complete-kyp", `{"note":"all documents verified"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, models.StageKYPComplete, state.lead.CaseStage)
}

func TestCompleteKYPUnauthenticated(t *testing.T) {
	state := &stubState{lead: &models.Lead{ID: 1, CaseStage: models.StageHospitalsSuggested}}
	r := newTestRouter(state, 0, 0)

	w, env := doPost(t, r, "/leads/1/complete-kyp", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestCompleteKYPWrongRole(t *testing.T) {
	state := &stubState{lead: &models.Lead{ID: 1, CaseStage: models.StageHospitalsSuggested}}
	r := newTestRouter(state, 7, authz.RoleBD)

	w, env := doPost(t, r, "/leads/1/complete-kyp", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, models.StageHospitalsSuggested, state.lead.CaseStage)
}

func TestCompleteKYPWrongStage(t *testing.T) {
	state := &stubState{lead: &models.Lead{ID: 1, CaseStage: models.StageNewLead}}
	r := newTestRouter(state, 8, authz.RoleInsurance)

	w, env := doPost(t, r, "/leads/1/complete-kyp", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, env.Error, "invalid stage transition")
}

func TestCompleteKYPUnknownLead(t *testing.T) {
	state := &stubState{lead: &models.Lead{ID: 1, CaseStage: models.StageHospitalsSuggested}}
	r := newTestRouter(state, 8, authz.RoleInsurance)

	w, env := doPost(t, r, "/leads/42/complete-kyp", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestCompleteKYPBadID(t *testing.T) {
	state := &stubState{lead: &models.Lead{ID: 1, CaseStage: models.StageHospitalsSuggested}}
	r := newTestRouter(state, 8, authz.RoleInsurance)

	w, _ := doPost(t, r, "/leads/abc/complete-kyp", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitKYPConflict(t *testing.T) {
	state := &stubState{
		lead: &models.Lead{ID: 1, CaseStage: models.StageNewLead},
		kyp:  &models.KYPSubmission{ID: 50, LeadID: 1},
	}
	r := newTestRouter(state, 7, authz.RoleBD)

	w, env := doPost(t, r, "/leads/1/submit-kyp",
		`{"id_proof_type":"passport","id_proof_number":"N123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
}

func TestDecidePreAuthAlreadyApproved(t *testing.T) {
	state := &stubState{
		lead: &models.Lead{ID: 1, CaseStage: models.StagePreAuthComplete},
		preAuth: &models.PreAuthorization{
			ID:             60,
			LeadID:         1,
			ApprovalStatus: models.ApprovalApproved,
		},
	}
	r := newTestRouter(state, 8, authz.RoleInsurance)

	w, env := doPost(t, r, "/pre-auth/60/decide",
		`{"approval_status":"APPROVED","approved_amount":250000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Pre-authorization has already been approved", env.Error)
}
