package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves the public signup, login and refresh endpoints plus
// /auth/me and /auth/logout. The public ones sit outside AuthMiddleware
// because the caller has no access token yet; that is what they produce.
type AuthHandler struct {
	accounts *service.AccountService
	sessions *service.SessionService
	logger   *zap.Logger
}

func NewAuthHandler(accounts *service.AccountService, sessions *service.SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		logger:   logger,
	}
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	TenantName  string `json:"tenant_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// authResponse is what signup, login and refresh return. The client sends
// the token back as "Authorization: Bearer <token>" and trades the refresh
// token for a new pair at /auth/refresh before expires_at.
type authResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user"`
}

func (h *AuthHandler) respond(c *gin.Context, status int, user *models.User, pair *service.TokenPair) {
	c.JSON(status, authResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         user,
	})
}

func (h *AuthHandler) issue(c *gin.Context, status int, user *models.User) {
	pair, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	h.respond(c, status, user, pair)
}

// Signup handles POST /v1/auth/signup. It creates a tenant with its first
// admin user and logs that user in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Signup(c.Request.Context(), service.SignupInput{
		TenantName:  req.TenantName,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.issue(c, http.StatusCreated, user)
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.issue(c, http.StatusOK, user)
}

// Refresh handles POST /v1/auth/refresh. The presented refresh token is
// revoked and a new pair returned.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, user, pair)
}

// Logout handles POST /v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.sessions.Logout(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.accounts.Get(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
