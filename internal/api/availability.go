package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/service"
	"github.com/lalith-99/slotbook/internal/timezone"
	"go.uber.org/zap"
)

// AvailabilityHandler serves the weekly slot templates of a calendar and the
// tenant-wide availability search.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
	logger       *zap.Logger
}

func NewAvailabilityHandler(availability *service.AvailabilityService, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, logger: logger}
}

type createSlotRequest struct {
	DayOfWeek *int           `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime string         `json:"start_time" binding:"required,clocktime"`
	EndTime   string         `json:"end_time" binding:"required,clocktime"`
	Capacity  int            `json:"capacity" binding:"omitempty,min=1"`
	Metadata  map[string]any `json:"metadata"`
}

type updateSlotRequest struct {
	DayOfWeek *int           `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	StartTime *string        `json:"start_time" binding:"omitempty,clocktime"`
	EndTime   *string        `json:"end_time" binding:"omitempty,clocktime"`
	Capacity  *int           `json:"capacity" binding:"omitempty,min=1"`
	Metadata  map[string]any `json:"metadata"`
}

// searchRequest takes start and end as strings: a value without a UTC
// offset is read as wall time in Timezone.
type searchRequest struct {
	SkillIDs        []uuid.UUID `json:"skill_ids"`
	Start           string      `json:"start" binding:"required"`
	End             string      `json:"end" binding:"required"`
	DurationMinutes int         `json:"duration_minutes" binding:"required,min=15,max=10080"`
	Timezone        string      `json:"timezone" binding:"required,timezone"`
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseSearchTime accepts RFC 3339, or an offset-free timestamp interpreted
// in zone.
func parseSearchTime(raw, zone string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	for _, layout := range localLayouts {
		wall, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t, err := timezone.ToUTC(wall, zone)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// Search handles POST /v1/availability/search
func (h *AvailabilityHandler) Search(c *gin.Context) {
	var req searchRequest
	if !bindJSON(c, &req) {
		return
	}
	start, ok := parseSearchTime(req.Start, req.Timezone)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return
	}
	end, ok := parseSearchTime(req.End, req.Timezone)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
		return
	}

	windows, err := h.availability.Search(c.Request.Context(), models.AvailabilityQuery{
		TenantID:        middleware.GetTenantID(c),
		SkillIDs:        req.SkillIDs,
		Start:           start,
		End:             end,
		DurationMinutes: req.DurationMinutes,
		Timezone:        req.Timezone,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": windows, "count": len(windows)})
}

// ListSlots handles GET /v1/availability/:calendarId/slots
func (h *AvailabilityHandler) ListSlots(c *gin.Context) {
	calendarID, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	slots, err := h.availability.ListSlots(c.Request.Context(), middleware.GetTenantID(c), calendarID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// CreateSlot handles POST /v1/availability/:calendarId/slots
func (h *AvailabilityHandler) CreateSlot(c *gin.Context) {
	calendarID, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	var req createSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	// Both parse: the clocktime binding already checked them.
	start, _ := models.ParseClockTime(req.StartTime)
	end, _ := models.ParseClockTime(req.EndTime)

	slot, err := h.availability.CreateSlot(c.Request.Context(), middleware.GetTenantID(c), models.NewAvailabilitySlot{
		CalendarID: calendarID,
		DayOfWeek:  *req.DayOfWeek,
		StartTime:  start,
		EndTime:    end,
		Capacity:   req.Capacity,
		Metadata:   req.Metadata,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// UpdateSlot handles PUT /v1/availability/:calendarId/slots/:slotId
func (h *AvailabilityHandler) UpdateSlot(c *gin.Context) {
	calendarID, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	slotID, ok := uuidParam(c, "slotId")
	if !ok {
		return
	}
	var req updateSlotRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := models.AvailabilitySlotUpdate{
		DayOfWeek: req.DayOfWeek,
		Capacity:  req.Capacity,
		Metadata:  req.Metadata,
	}
	if req.StartTime != nil {
		start, _ := models.ParseClockTime(*req.StartTime)
		upd.StartTime = &start
	}
	if req.EndTime != nil {
		end, _ := models.ParseClockTime(*req.EndTime)
		upd.EndTime = &end
	}

	slot, err := h.availability.UpdateSlot(c.Request.Context(), middleware.GetTenantID(c), calendarID, slotID, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// DeleteSlot handles DELETE /v1/availability/:calendarId/slots/:slotId
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	calendarID, ok := uuidParam(c, "calendarId")
	if !ok {
		return
	}
	slotID, ok := uuidParam(c, "slotId")
	if !ok {
		return
	}
	if err := h.availability.DeleteSlot(c.Request.Context(), middleware.GetTenantID(c), calendarID, slotID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
