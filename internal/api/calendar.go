package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

type CalendarHandler struct {
	calendars *service.CalendarService
	logger    *zap.Logger
}

func NewCalendarHandler(calendars *service.CalendarService, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{calendars: calendars, logger: logger}
}

type createCalendarRequest struct {
	ProviderUserID uuid.UUID   `json:"provider_user_id" binding:"required"`
	ServiceType    string      `json:"service_type" binding:"required,max=100"`
	Timezone       string      `json:"timezone" binding:"required,timezone"`
	IsActive       *bool       `json:"is_active"`
	Color          *string     `json:"color" binding:"omitempty,hexcolor"`
	Skills         []uuid.UUID `json:"skills"`
}

// updateCalendarRequest uses a pointer for Skills so that an absent field
// leaves the skill set alone while an empty list clears it.
type updateCalendarRequest struct {
	ProviderUserID *uuid.UUID   `json:"provider_user_id"`
	ServiceType    *string      `json:"service_type" binding:"omitempty,max=100"`
	Timezone       *string      `json:"timezone" binding:"omitempty,timezone"`
	IsActive       *bool        `json:"is_active"`
	Color          *string      `json:"color" binding:"omitempty,hexcolor"`
	Skills         *[]uuid.UUID `json:"skills"`
}

// Create handles POST /v1/calendars
func (h *CalendarHandler) Create(c *gin.Context) {
	var req createCalendarRequest
	if !bindJSON(c, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	cal, err := h.calendars.Create(c.Request.Context(), models.NewCalendar{
		TenantID:       middleware.GetTenantID(c),
		ProviderUserID: req.ProviderUserID,
		ServiceType:    req.ServiceType,
		Timezone:       req.Timezone,
		IsActive:       active,
		Color:          req.Color,
		SkillIDs:       req.Skills,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cal)
}

// List handles GET /v1/calendars?isActive=&providerUserId=
func (h *CalendarHandler) List(c *gin.Context) {
	var filter models.CalendarFilter
	switch c.Query("isActive") {
	case "":
	case "true":
		filter.IsActive = ptrTo(true)
	case "false":
		filter.IsActive = ptrTo(false)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isActive"})
		return
	}
	provider, ok := optionalUUID(c, "providerUserId")
	if !ok {
		return
	}
	filter.ProviderUserID = provider

	cals, err := h.calendars.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cals)
}

// Get handles GET /v1/calendars/:calendarId
func (h *CalendarHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	cal, err := h.calendars.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// Update handles PUT /v1/calendars/:calendarId
func (h *CalendarHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	var req updateCalendarRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := models.CalendarUpdate{
		ProviderUserID: req.ProviderUserID,
		ServiceType:    req.ServiceType,
		Timezone:       req.Timezone,
		IsActive:       req.IsActive,
		Color:          req.Color,
	}
	if req.Skills != nil {
		upd.SkillIDs = *req.Skills
		if upd.SkillIDs == nil {
			upd.SkillIDs = []uuid.UUID{}
		}
		upd.ReplaceSkills = true
	}

	cal, err := h.calendars.Update(c.Request.Context(), middleware.GetTenantID(c), id, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// Delete handles DELETE /v1/calendars/:calendarId
func (h *CalendarHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	if err := h.calendars.Delete(c.Request.Context(), middleware.GetTenantID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func ptrTo[T any](v T) *T { return &v }
