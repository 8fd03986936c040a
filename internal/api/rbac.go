package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/rbac"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

// RBACHandler administers roles and role assignments, and reports the
// caller's own resolved permissions.
type RBACHandler struct {
	roles       *service.RoleService
	permissions rbac.ContextSource
	logger      *zap.Logger
}

func NewRBACHandler(roles *service.RoleService, permissions rbac.ContextSource, logger *zap.Logger) *RBACHandler {
	return &RBACHandler{roles: roles, permissions: permissions, logger: logger}
}

type createRoleRequest struct {
	Name          string      `json:"name" binding:"required,max=100"`
	Description   *string     `json:"description"`
	PermissionIDs []uuid.UUID `json:"permission_ids" binding:"required,min=1"`
}

// updateRoleRequest: an absent permission_ids keeps the current set.
type updateRoleRequest struct {
	Name          *string      `json:"name" binding:"omitempty,max=100"`
	Description   *string      `json:"description"`
	PermissionIDs *[]uuid.UUID `json:"permission_ids"`
}

type assignRoleRequest struct {
	RoleID    uuid.UUID  `json:"role_id" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ListPermissions handles GET /v1/rbac/permissions
func (h *RBACHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roles.ListPermissions(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// ListRoles handles GET /v1/rbac/roles
func (h *RBACHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// GetRole handles GET /v1/rbac/roles/:roleId
func (h *RBACHandler) GetRole(c *gin.Context) {
	roleID, ok := uuidParam(c, "roleId")
	if !ok {
		return
	}
	role, err := h.roles.Get(c.Request.Context(), middleware.GetTenantID(c), roleID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// CreateRole handles POST /v1/rbac/roles
func (h *RBACHandler) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	caller := middleware.GetUserID(c)
	role, err := h.roles.Create(c.Request.Context(), models.NewRole{
		TenantID:      middleware.GetTenantID(c),
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
		CreatedBy:     &caller,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

// UpdateRole handles PUT /v1/rbac/roles/:roleId
func (h *RBACHandler) UpdateRole(c *gin.Context) {
	roleID, ok := uuidParam(c, "roleId")
	if !ok {
		return
	}
	var req updateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := middleware.GetUserID(c)
	upd := models.RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
		UpdatedBy:   &caller,
	}
	if req.PermissionIDs != nil {
		upd.PermissionIDs = *req.PermissionIDs
		upd.ReplacePerms = true
	}

	role, err := h.roles.Update(c.Request.Context(), middleware.GetTenantID(c), roleID, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// DeleteRole handles DELETE /v1/rbac/roles/:roleId
func (h *RBACHandler) DeleteRole(c *gin.Context) {
	roleID, ok := uuidParam(c, "roleId")
	if !ok {
		return
	}
	if err := h.roles.Delete(c.Request.Context(), middleware.GetTenantID(c), roleID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UserRoles handles GET /v1/rbac/users/:userId/roles
func (h *RBACHandler) UserRoles(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	roles, err := h.roles.UserRoles(c.Request.Context(), middleware.GetTenantID(c), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// AssignRole handles POST /v1/rbac/users/:userId/roles
func (h *RBACHandler) AssignRole(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	var req assignRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	tenantID := middleware.GetTenantID(c)
	caller := middleware.GetUserID(c)
	if err := h.roles.Assign(c.Request.Context(), tenantID, userID, req.RoleID, &caller, req.ExpiresAt); err != nil {
		respondError(c, h.logger, err)
		return
	}
	roles, err := h.roles.UserRoles(c.Request.Context(), tenantID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, roles)
}

// RemoveRole handles DELETE /v1/rbac/users/:userId/roles/:roleId
func (h *RBACHandler) RemoveRole(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	roleID, ok := uuidParam(c, "roleId")
	if !ok {
		return
	}
	if err := h.roles.Remove(c.Request.Context(), middleware.GetTenantID(c), userID, roleID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyPermissions handles GET /v1/rbac/me/permissions. Any authenticated user
// may read their own permission context.
func (h *RBACHandler) MyPermissions(c *gin.Context) {
	pc, err := h.permissions.Context(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}
