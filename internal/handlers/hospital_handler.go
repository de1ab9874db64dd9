package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebridge/internal/models"
	"carebridge/internal/services"
)

type HospitalHandler struct {
	Service *services.HospitalService
}

func NewHospitalHandler(service *services.HospitalService) *HospitalHandler {
	return &HospitalHandler{Service: service}
}

type hospitalRequest struct {
	Name  string              `json:"name"`
	City  string              `json:"city"`
	Rooms []models.RoomOption `json:"rooms"`
}

func (h *HospitalHandler) Create(c *gin.Context) {
	var req hospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	hosp := &models.Hospital{Name: req.Name, City: req.City, Rooms: req.Rooms}
	if err := h.Service.Create(hosp); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, hosp, "hospital created")
}

func (h *HospitalHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req hospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	hosp := &models.Hospital{ID: id, Name: req.Name, City: req.City, Rooms: req.Rooms, Active: true}
	if err := h.Service.Update(hosp); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, hosp, "hospital updated")
}

func (h *HospitalHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	hosp, err := h.Service.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, hosp, "")
}

func (h *HospitalHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	activeOnly := c.Query("all") != "true"
	hospitals, err := h.Service.List(activeOnly, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, hospitals, "")
}

func (h *HospitalHandler) Deactivate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Service.Deactivate(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "hospital deactivated")
}
