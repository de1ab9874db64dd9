package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carebridge/internal/authz"
	"carebridge/internal/workflow"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondOK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch workflow.KindOf(err) {
	case workflow.KindUnauthenticated:
		status = http.StatusUnauthorized
	case workflow.KindForbidden:
		status = http.StatusForbidden
	case workflow.KindNotFound:
		status = http.StatusNotFound
	case workflow.KindValidation:
		status = http.StatusBadRequest
	case workflow.KindConflict:
		status = http.StatusConflict
	default:
		// storage and other unforeseen failures: log details, hide them
		log.Printf("[http] unexpected error: %v", err)
		msg = "unexpected error"
	}
	c.JSON(status, envelope{Success: false, Error: msg})
}

func respondValidation(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: msg})
}

// tolerant to value types in the context (int / int64 / float64 / string)
func getIntFromCtx(c *gin.Context, key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

// principal builds the explicit caller value handed into services.
func principal(c *gin.Context) (authz.Principal, bool) {
	userID, okU := getIntFromCtx(c, "user_id")
	roleID, okR := getIntFromCtx(c, "role_id")
	if !okU || !okR {
		return authz.Principal{}, false
	}
	return authz.Principal{UserID: userID, RoleID: roleID}, true
}

func requirePrincipal(c *gin.Context) (authz.Principal, bool) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, envelope{Success: false, Error: "not authenticated"})
	}
	return p, ok
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondValidation(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "100"))
	if err != nil || size < 1 {
		size = 100
	}
	return size, (page - 1) * size
}
