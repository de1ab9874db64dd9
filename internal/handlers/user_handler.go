package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebridge/internal/models"
	"carebridge/internal/services"
)

type UserHandler struct {
	Service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.Service.GetUserByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: "user not found"})
		return
	}
	respondOK(c, http.StatusOK, user, "")
}

func (h *UserHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.Service.ListUsers(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, users, "")
}

type updateUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	RoleID int    `json:"role_id"`
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	current, err := h.Service.GetUserByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if current == nil {
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: "user not found"})
		return
	}
	user := &models.User{
		ID:     id,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		RoleID: req.RoleID,
	}
	if err := h.Service.UpdateUser(user); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "user updated")
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteUser(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "user deleted")
}
