package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carebridge/internal/middleware"
	"carebridge/internal/models"
	"carebridge/internal/services"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

type AuthHandler struct {
	Users services.UserService
	Auth  services.AuthService
}

func NewAuthHandler(users services.UserService, auth services.AuthService) *AuthHandler {
	return &AuthHandler{Users: users, Auth: auth}
}

type tokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

func (h *AuthHandler) issueTokens(user *models.User) (*tokenPair, error) {
	claims := middleware.Claims{
		UserID: user.ID,
		RoleID: user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.JWTKey)
	if err != nil {
		return nil, err
	}

	refresh, err := h.Auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := h.Users.UpdateRefresh(user.ID, refresh, time.Now().Add(refreshTokenTTL)); err != nil {
		return nil, err
	}
	return &tokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		respondValidation(c, "email and password are required")
		return
	}

	user, err := h.Users.GetUserByEmail(req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil || !h.Auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, envelope{Success: false, Error: "invalid email or password"})
		return
	}

	pair, err := h.issueTokens(user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, pair, "login successful")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates the refresh token: the presented token is invalidated and a
// new pair is issued.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		respondValidation(c, "refresh_token is required")
		return
	}

	user, err := h.Users.GetByRefreshToken(req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil || user.RefreshRevoked ||
		user.RefreshExpiresAt == nil || user.RefreshExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusUnauthorized, envelope{Success: false, Error: "invalid or expired refresh token"})
		return
	}

	pair, err := h.issueTokens(user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, pair, "token refreshed")
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	RoleID   int    `json:"role_id"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err.Error())
		return
	}
	user := &models.User{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		RoleID: req.RoleID,
	}
	if err := h.Users.CreateUserWithPassword(user, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, user, "user registered")
}
