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

type GroupHandler struct {
	groups *service.GroupService
	logger *zap.Logger
}

func NewGroupHandler(groups *service.GroupService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

type groupProviderRequest struct {
	UserID     uuid.UUID  `json:"user_id" binding:"required"`
	CalendarID *uuid.UUID `json:"calendar_id"`
}

type groupParticipantRequest struct {
	UserID   uuid.UUID      `json:"user_id" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type createGroupRequest struct {
	Name            string                    `json:"name" binding:"required,max=255"`
	Description     *string                   `json:"description"`
	StartTime       time.Time                 `json:"start_time" binding:"required"`
	EndTime         time.Time                 `json:"end_time" binding:"required"`
	DurationMinutes *int                      `json:"duration_minutes" binding:"omitempty,min=1"`
	MaxParticipants *int                      `json:"max_participants" binding:"omitempty,min=1"`
	Providers       []groupProviderRequest    `json:"providers" binding:"required,min=1,dive"`
	Participants    []groupParticipantRequest `json:"participants" binding:"dive"`
	Metadata        map[string]any            `json:"metadata"`
}

type updateGroupRequest struct {
	Name            *string        `json:"name" binding:"omitempty,max=255"`
	Description     *string        `json:"description"`
	StartTime       *time.Time     `json:"start_time"`
	EndTime         *time.Time     `json:"end_time"`
	DurationMinutes *int           `json:"duration_minutes" binding:"omitempty,min=1"`
	MaxParticipants *int           `json:"max_participants" binding:"omitempty,min=1"`
	Status          *string        `json:"status" binding:"omitempty,oneof=scheduled confirmed completed cancelled"`
	Metadata        map[string]any `json:"metadata"`
}

type providerResponseRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed declined"`
}

type participantResponseRequest struct {
	Status   string         `json:"status" binding:"required,oneof=invited confirmed declined cancelled"`
	Metadata map[string]any `json:"metadata"`
}

// Create handles POST /v1/group-appointments. Every provider calendar is
// checked before anything is written, and the group is stored in one
// transaction.
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.CreateGroupInput{
		TenantID:        middleware.GetTenantID(c),
		CreatedBy:       middleware.GetUserID(c),
		Name:            req.Name,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		Metadata:        req.Metadata,
	}
	for _, p := range req.Providers {
		in.Providers = append(in.Providers, models.ProviderInput{UserID: p.UserID, CalendarID: p.CalendarID})
	}
	for _, p := range req.Participants {
		in.Participants = append(in.Participants, models.ParticipantInput{UserID: p.UserID, Metadata: p.Metadata})
	}

	group, err := h.groups.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// List handles GET /v1/group-appointments?status=&providerUserId=&participantUserId=
func (h *GroupHandler) List(c *gin.Context) {
	var filter models.GroupAppointmentFilter
	if raw := c.Query("status"); raw != "" {
		status := models.GroupAppointmentStatus(raw)
		filter.Status = &status
	}
	provider, ok := optionalUUID(c, "providerUserId")
	if !ok {
		return
	}
	participant, ok := optionalUUID(c, "participantUserId")
	if !ok {
		return
	}
	filter.ProviderUserID = provider
	filter.ParticipantUserID = participant

	groups, err := h.groups.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// Get handles GET /v1/group-appointments/:id
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	group, err := h.groups.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Update handles PUT /v1/group-appointments/:id
func (h *GroupHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := models.GroupAppointmentUpdate{
		Name:            req.Name,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		Metadata:        req.Metadata,
	}
	if req.Status != nil {
		status := models.GroupAppointmentStatus(*req.Status)
		upd.Status = &status
	}

	group, err := h.groups.Update(c.Request.Context(), middleware.GetTenantID(c), id, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Cancel handles POST /v1/group-appointments/:id/cancel
func (h *GroupHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	group, err := h.groups.Cancel(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// RespondAsProvider handles
// POST /v1/group-appointments/:id/providers/:providerUserId/respond
func (h *GroupHandler) RespondAsProvider(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	providerID, ok := uuidParam(c, "providerUserId")
	if !ok {
		return
	}
	var req providerResponseRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.groups.RespondAsProvider(c.Request.Context(), middleware.GetTenantID(c), id, providerID, models.ProviderResponse(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// RespondAsParticipant handles
// POST /v1/group-appointments/:id/participants/:participantUserId/respond
func (h *GroupHandler) RespondAsParticipant(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	participantID, ok := uuidParam(c, "participantUserId")
	if !ok {
		return
	}
	var req participantResponseRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.groups.RespondAsParticipant(c.Request.Context(), middleware.GetTenantID(c), id, participantID,
		models.ParticipantResponse(req.Status), req.Metadata)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Delete handles DELETE /v1/group-appointments/:id
func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.groups.Delete(c.Request.Context(), middleware.GetTenantID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
