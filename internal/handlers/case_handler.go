package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebridge/internal/services"
)

// CaseHandler exposes one POST per case action. Guard checks, stage writes
// and fan-out live in the case service; handlers only bind and respond.
type CaseHandler struct {
	Service *services.CaseService
}

func NewCaseHandler(service *services.CaseService) *CaseHandler {
	return &CaseHandler{Service: service}
}

// SubmitKYP handles POST /leads/:id/submit-kyp.
func (h *CaseHandler) SubmitKYP(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.SubmitKYPInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, err.Error())
		return
	}
	kyp, err := h.Service.SubmitKYP(c.Request.Context(), p, leadID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, kyp, "KYP submitted")
}

// CompleteKYPBasic handles POST /leads/:id/complete-kyp-basic.
func (h *CaseHandler) CompleteKYPBasic(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	note, ok := h.bindNote(c)
	if !ok {
		return
	}
	lead, err := h.Service.CompleteKYPBasic(c.Request.Context(), p, leadID, note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, lead, "basic KYP completed")
}

// The simple transitions share a note-only body.
type noteBody struct {
	Note string `json:"note"`
}

func (h *CaseHandler) bindNote(c *gin.Context) (string, bool) {
	var body noteBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidation(c, err.Error())
			return "", false
		}
	}
	return body.Note, true
}

// SuggestHospitals handles POST /leads/:id/suggest-hospitals.
func (h *CaseHandler) SuggestHospitals(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.SuggestHospitalsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, err.Error())
		return
	}
	pa, err := h.Service.SuggestHospitals(c.Request.Context(), p, leadID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, pa, "hospitals suggested")
}

// CompleteKYP handles POST /leads/:id/complete-kyp.
func (h *CaseHandler) CompleteKYP(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	note, ok := h.bindNote(c)
	if !ok {
		return
	}
	lead, err := h.Service.CompleteKYP(c.Request.Context(), p, leadID, note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, lead, "KYP completed")
}

// RaisePreAuth handles POST /leads/:id/raise-preauth.
func (h *CaseHandler) RaisePreAuth(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.RaisePreAuthInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, err.Error())
		return
	}
	pa, err := h.Service.RaisePreAuth(c.Request.Context(), p, leadID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, pa, "pre-auth raised")
}

// DecidePreAuth handles POST /pre-auth/:id/decide (approve or reject).
func (h *CaseHandler) DecidePreAuth(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	preAuthID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.DecidePreAuthInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, err.Error())
		return
	}
	pa, err := h.Service.DecidePreAuth(c.Request.Context(), p, preAuthID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, pa, "pre-auth decision recorded")
}

// Initiate handles POST /leads/:id/initiate.
func (h *CaseHandler) Initiate(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.InitiateInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			respondValidation(c, err.Error())
			return
		}
	}
	adm, err := h.Service.Initiate(c.Request.Context(), p, leadID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, adm, "admission initiated")
}

// IPDMark handles POST /leads/:id/ipd-mark.
func (h *CaseHandler) IPDMark(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.IPDMarkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, err.Error())
		return
	}
	adm, lead, err := h.Service.MarkIPD(c.Request.Context(), p, leadID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"admission": adm, "lead": lead}, "IPD status updated")
}

// MarkPLPending handles POST /leads/:id/mark-pl-pending.
func (h *CaseHandler) MarkPLPending(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	note, ok := h.bindNote(c)
	if !ok {
		return
	}
	lead, err := h.Service.MarkPLPending(c.Request.Context(), p, leadID, note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, lead, "case marked PL pending")
}

// MarkOutstanding handles POST /leads/:id/mark-outstanding.
func (h *CaseHandler) MarkOutstanding(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	note, ok := h.bindNote(c)
	if !ok {
		return
	}
	lead, err := h.Service.MarkOutstanding(c.Request.Context(), p, leadID, note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, lead, "case marked outstanding")
}
