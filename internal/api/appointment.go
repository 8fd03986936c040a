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

type AppointmentHandler struct {
	appointments *service.AppointmentService
	logger       *zap.Logger
}

func NewAppointmentHandler(appointments *service.AppointmentService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, logger: logger}
}

// createAppointmentRequest books on behalf of ClientUserID; when it is
// omitted the caller books for themselves.
type createAppointmentRequest struct {
	CalendarID     uuid.UUID      `json:"calendar_id" binding:"required"`
	ClientUserID   *uuid.UUID     `json:"client_user_id"`
	StartTime      time.Time      `json:"start_time" binding:"required"`
	EndTime        time.Time      `json:"end_time" binding:"required"`
	RequiredSkills []uuid.UUID    `json:"required_skills"`
	Notes          *string        `json:"notes"`
	Metadata       map[string]any `json:"metadata"`
}

type updateAppointmentRequest struct {
	StartTime *time.Time     `json:"start_time"`
	EndTime   *time.Time     `json:"end_time"`
	Status    *string        `json:"status" binding:"omitempty,oneof=pending confirmed completed cancelled"`
	Notes     *string        `json:"notes"`
	Metadata  map[string]any `json:"metadata"`
}

// Create handles POST /v1/appointments. An overlapping booking answers 409
// with the conflicting appointments under "details".
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	client := middleware.GetUserID(c)
	if req.ClientUserID != nil {
		client = *req.ClientUserID
	}

	appt, err := h.appointments.Create(c.Request.Context(), models.NewAppointment{
		TenantID:       middleware.GetTenantID(c),
		CalendarID:     req.CalendarID,
		ClientUserID:   client,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		RequiredSkills: req.RequiredSkills,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// List handles GET /v1/appointments?calendarId=&start=&end=
func (h *AppointmentHandler) List(c *gin.Context) {
	calendarID, err := uuid.Parse(c.Query("calendarId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calendarId is required"})
		return
	}
	start, ok := optionalTime(c, "start")
	if !ok {
		return
	}
	end, ok := optionalTime(c, "end")
	if !ok {
		return
	}

	appts, err := h.appointments.ListForCalendar(c.Request.Context(), middleware.GetTenantID(c), calendarID, models.TimeRange{Start: start, End: end})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

// Get handles GET /v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Update handles PUT /v1/appointments/:id
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := models.AppointmentUpdate{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
		Metadata:  req.Metadata,
	}
	if req.Status != nil {
		status := models.AppointmentStatus(*req.Status)
		upd.Status = &status
	}

	appt, err := h.appointments.Update(c.Request.Context(), middleware.GetTenantID(c), id, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Cancel handles POST /v1/appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Cancel(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Delete handles DELETE /v1/appointments/:id
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.appointments.Delete(c.Request.Context(), middleware.GetTenantID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
