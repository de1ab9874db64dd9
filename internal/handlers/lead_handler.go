package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/services"
)

type LeadHandler struct {
	Service *services.LeadService
}

func NewLeadHandler(service *services.LeadService) *LeadHandler {
	return &LeadHandler{Service: service}
}

// createLeadRequest deliberately has no case_stage field; new leads always
// start at NEW_LEAD.
type createLeadRequest struct {
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	City         string `json:"city"`
	InsurerName  string `json:"insurer_name"`
	PolicyNumber string `json:"policy_number"`
	Source       string `json:"source"`
	AssignedBDID int    `json:"assigned_bd_id"`
}

func (h *LeadHandler) Create(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if !authz.Allowed(p.RoleID, authz.CapLeadsWrite) {
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: "forbidden"})
		return
	}
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	lead := &models.Lead{
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		City:         req.City,
		InsurerName:  req.InsurerName,
		PolicyNumber: req.PolicyNumber,
		Source:       req.Source,
	}
	// only elevated roles may hand the lead to another BD on creation
	if req.AssignedBDID != 0 && authz.IsElevated(p.RoleID) {
		lead.AssignedBDID = req.AssignedBDID
	}
	if err := h.Service.Create(lead, p); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, lead, "lead created")
}

func (h *LeadHandler) GetByID(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.Service.Detail(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if detail.Lead.AssignedBDID != p.UserID && !authz.IsElevated(p.RoleID) && !authz.IsReadOnly(p.RoleID) {
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: "forbidden"})
		return
	}
	respondOK(c, http.StatusOK, detail, "")
}

func (h *LeadHandler) Update(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	current, err := h.Service.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if current == nil {
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: "lead not found"})
		return
	}
	// BD edits only their own case; elevated roles edit any
	if current.AssignedBDID != p.UserID && !authz.IsElevated(p.RoleID) {
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: "forbidden"})
		return
	}

	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	current.PatientName = req.PatientName
	current.PatientPhone = req.PatientPhone
	current.City = req.City
	current.InsurerName = req.InsurerName
	current.PolicyNumber = req.PolicyNumber
	current.Source = req.Source

	if err := h.Service.Update(current); err != nil {
		respondError(c, err)
		return
	}
	updated, _ := h.Service.GetByID(id)
	respondOK(c, http.StatusOK, updated, "lead updated")
}

func (h *LeadHandler) List(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	stage := models.CaseStage(c.Query("stage"))
	if stage != "" {
		leads, err := h.Service.Filter(stage, filterOwner(p), c.Query("sort_by"), c.Query("order"), limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, leads, "")
		return
	}

	var leads []*models.Lead
	var err error
	if authz.IsElevated(p.RoleID) || authz.IsReadOnly(p.RoleID) {
		leads, err = h.Service.ListPaginated(limit, offset)
	} else {
		leads, err = h.Service.ListMy(p.UserID, limit, offset)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, leads, "")
}

// BD sees only their own leads in filtered listings as well.
func filterOwner(p authz.Principal) int {
	if authz.IsElevated(p.RoleID) || authz.IsReadOnly(p.RoleID) {
		return 0
	}
	return p.UserID
}

type assignRequest struct {
	AssigneeID int `json:"assignee_id"`
}

func (h *LeadHandler) Assign(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if !authz.Allowed(p.RoleID, authz.CapLeadsAssign) {
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: "forbidden"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	if req.AssigneeID <= 0 {
		respondValidation(c, "assignee_id is required")
		return
	}
	if err := h.Service.AssignBD(id, req.AssigneeID); err != nil {
		respondError(c, err)
		return
	}
	updated, _ := h.Service.GetByID(id)
	respondOK(c, http.StatusOK, updated, "lead assigned")
}

// History handles GET /leads/:id/history: the append-only stage audit trail.
func (h *LeadHandler) History(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	lead, err := h.Service.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if lead == nil {
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: "lead not found"})
		return
	}
	if lead.AssignedBDID != p.UserID && !authz.IsElevated(p.RoleID) && !authz.IsReadOnly(p.RoleID) {
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: "forbidden"})
		return
	}
	history, err := h.Service.History(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, history, "")
}
