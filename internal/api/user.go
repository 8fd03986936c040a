package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

// UserHandler handles user administration within the caller's tenant.
type UserHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

func NewUserHandler(accounts *service.AccountService, logger *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

type createUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role" binding:"omitempty,oneof=admin provider user client support"`
}

// Create handles POST /v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.CreateUser(c.Request.Context(), service.NewUserInput{
		TenantID:    middleware.GetTenantID(c),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// List handles GET /v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.accounts.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Get handles GET /v1/users/:userId
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	user, err := h.accounts.Get(c.Request.Context(), middleware.GetTenantID(c), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
