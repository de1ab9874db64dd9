package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebridge/internal/services"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

func (h *NotificationHandler) List(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	unreadOnly := c.Query("unread") == "true"
	items, err := h.Service.ListForUser(p.UserID, unreadOnly, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, items, "")
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Service.MarkRead(id, p.UserID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if err := h.Service.MarkAllRead(p.UserID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "all notifications marked as read")
}
