package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

type WaitlistHandler struct {
	waitlist *service.WaitlistService
	logger   *zap.Logger
}

func NewWaitlistHandler(waitlist *service.WaitlistService, logger *zap.Logger) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist, logger: logger}
}

type createWaitlistRequest struct {
	ClientUserID   uuid.UUID      `json:"client_user_id" binding:"required"`
	ProviderUserID *uuid.UUID     `json:"provider_user_id"`
	Priority       string         `json:"priority" binding:"omitempty,oneof=low medium high"`
	RequestedStart *time.Time     `json:"requested_start"`
	RequestedEnd   *time.Time     `json:"requested_end"`
	AutoPromote    bool           `json:"auto_promote"`
	Notes          *string        `json:"notes"`
	Metadata       map[string]any `json:"metadata"`
}

type updateWaitlistRequest struct {
	ClientUserID   *uuid.UUID     `json:"client_user_id"`
	ProviderUserID *uuid.UUID     `json:"provider_user_id"`
	Priority       *string        `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status         *string        `json:"status" binding:"omitempty,oneof=active promoted cancelled"`
	RequestedStart *time.Time     `json:"requested_start"`
	RequestedEnd   *time.Time     `json:"requested_end"`
	AutoPromote    *bool          `json:"auto_promote"`
	Notes          *string        `json:"notes"`
	Metadata       map[string]any `json:"metadata"`
}

type cancelWaitlistRequest struct {
	Reason string `json:"reason"`
}

// Create handles POST /v1/waitlist
func (h *WaitlistHandler) Create(c *gin.Context) {
	var req createWaitlistRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.waitlist.Create(c.Request.Context(), models.NewWaitlistEntry{
		TenantID:       middleware.GetTenantID(c),
		ClientUserID:   req.ClientUserID,
		ProviderUserID: req.ProviderUserID,
		Priority:       models.WaitlistPriority(req.Priority),
		RequestedStart: req.RequestedStart,
		RequestedEnd:   req.RequestedEnd,
		AutoPromote:    req.AutoPromote,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// List handles GET /v1/waitlist?status=&providerUserId=&priority=
func (h *WaitlistHandler) List(c *gin.Context) {
	var filter models.WaitlistFilter
	if raw := c.Query("status"); raw != "" {
		status := models.WaitlistStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.WaitlistPriority(raw)
		filter.Priority = &priority
	}
	provider, ok := optionalUUID(c, "providerUserId")
	if !ok {
		return
	}
	filter.ProviderUserID = provider

	entries, err := h.waitlist.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Get handles GET /v1/waitlist/:id
func (h *WaitlistHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.waitlist.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Update handles PUT /v1/waitlist/:id
func (h *WaitlistHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateWaitlistRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := models.WaitlistUpdate{
		ClientUserID:   req.ClientUserID,
		ProviderUserID: req.ProviderUserID,
		RequestedStart: req.RequestedStart,
		RequestedEnd:   req.RequestedEnd,
		AutoPromote:    req.AutoPromote,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
	}
	if req.Priority != nil {
		priority := models.WaitlistPriority(*req.Priority)
		upd.Priority = &priority
	}
	if req.Status != nil {
		status := models.WaitlistStatus(*req.Status)
		upd.Status = &status
	}

	entry, err := h.waitlist.Update(c.Request.Context(), middleware.GetTenantID(c), id, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Promote handles POST /v1/waitlist/:id/promote
func (h *WaitlistHandler) Promote(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.waitlist.Promote(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Cancel handles POST /v1/waitlist/:id/cancel. The body is optional.
func (h *WaitlistHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req cancelWaitlistRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	entry, err := h.waitlist.Cancel(c.Request.Context(), middleware.GetTenantID(c), id, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Delete handles DELETE /v1/waitlist/:id
func (h *WaitlistHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.waitlist.Delete(c.Request.Context(), middleware.GetTenantID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
