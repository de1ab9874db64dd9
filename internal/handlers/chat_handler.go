package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carebridge/internal/services"
)

type ChatHandler struct {
	Service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{Service: service}
}

func (h *ChatHandler) List(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)
	messages, err := h.Service.GetMessages(p, leadID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, messages, "")
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	leadID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondValidation(c, "text is required")
		return
	}
	msg, err := h.Service.SendMessage(p, leadID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, msg, "message sent")
}
