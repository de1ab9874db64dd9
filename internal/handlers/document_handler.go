package handlers

import (
	"github.com/gin-gonic/gin"

	"carebridge/internal/services"
)

type DocumentHandler struct {
	Service *services.DocumentService
}

func NewDocumentHandler(service *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

// PreAuthForm renders the pre-authorization request form for a case and
// streams the PDF.
func (h *DocumentHandler) PreAuthForm(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	path, err := h.Service.PreAuthForm(p, leadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}

func (h *DocumentHandler) DischargeSummary(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	path, err := h.Service.DischargeSummary(p, leadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
