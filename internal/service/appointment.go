package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
)

// AppointmentService books single appointments on one calendar.
type AppointmentService struct {
	calendars    repository.CalendarRepository
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	cache        cache.Cache
	logger       *zap.Logger
}

func NewAppointmentService(
	calendars repository.CalendarRepository,
	users repository.UserRepository,
	appointments repository.AppointmentRepository,
	c cache.Cache,
	logger *zap.Logger,
) *AppointmentService {
	if c == nil {
		c = cache.Noop{}
	}
	return &AppointmentService{
		calendars:    calendars,
		users:        users,
		appointments: appointments,
		cache:        c,
		logger:       logger,
	}
}

// conflictError carries the overlapping bookings so clients can show them.
func conflictError(msg string, conflicts []models.Appointment) error {
	ids := make([]uuid.UUID, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.ID
	}
	return apperr.Conflict("%s", msg).WithDetail("conflicts", ids)
}

func (s *AppointmentService) checkConflicts(ctx context.Context, calendarID uuid.UUID, start, end time.Time, ignore *uuid.UUID) error {
	conflicts, err := s.appointments.FindConflicting(ctx, calendarID, start, end, ignore)
	if err != nil {
		return fmt.Errorf("find conflicting appointments: %w", err)
	}
	if len(conflicts) > 0 {
		return conflictError("appointment conflicts with existing booking", conflicts)
	}
	return nil
}

// Create validates and books a pending appointment.
func (s *AppointmentService) Create(ctx context.Context, in models.NewAppointment) (*models.Appointment, error) {
	cal, err := s.calendars.GetByID(ctx, in.TenantID, in.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if cal == nil {
		return nil, apperr.NotFound("calendar not found")
	}
	if _, err := activeUser(ctx, s.users, in.TenantID, in.ClientUserID, "client"); err != nil {
		return nil, err
	}

	in.StartTime = in.StartTime.UTC()
	in.EndTime = in.EndTime.UTC()
	if err := validateBookingRange(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, cal.ID, in.StartTime, in.EndTime, nil); err != nil {
		return nil, err
	}

	in.RequiredSkills = uniqueIDs(in.RequiredSkills)
	if !cal.HasSkills(in.RequiredSkills) {
		return nil, apperr.Validation("calendar does not support required skills")
	}

	appt, err := s.appointments.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	invalidateAvailability(ctx, s.cache, s.logger, in.TenantID)

	s.logger.Info("appointment booked",
		zap.String("tenant_id", in.TenantID.String()),
		zap.String("appointment_id", appt.ID.String()),
		zap.String("calendar_id", cal.ID.String()),
	)
	return appt, nil
}

func (s *AppointmentService) Get(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, tenantID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, apperr.NotFound("appointment not found")
	}
	return appt, nil
}

// ListForCalendar lists a calendar's appointments, optionally narrowed to
// those starting inside window.
func (s *AppointmentService) ListForCalendar(ctx context.Context, tenantID, calendarID uuid.UUID, window models.TimeRange) ([]models.Appointment, error) {
	cal, err := s.calendars.GetByID(ctx, tenantID, calendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if cal == nil {
		return nil, apperr.NotFound("calendar not found")
	}
	appts, err := s.appointments.ListForCalendar(ctx, tenantID, calendarID, window)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// Update applies upd. Times are re-validated, and checked for conflicts
// against every other booking, only when start or end is being changed.
// Status may move freely between the four known values.
func (s *AppointmentService) Update(ctx context.Context, tenantID, appointmentID uuid.UUID, upd models.AppointmentUpdate) (*models.Appointment, error) {
	current, err := s.Get(ctx, tenantID, appointmentID)
	if err != nil {
		return nil, err
	}

	if upd.StartTime != nil || upd.EndTime != nil {
		start, end := current.StartTime, current.EndTime
		if upd.StartTime != nil {
			start = upd.StartTime.UTC()
		}
		if upd.EndTime != nil {
			end = upd.EndTime.UTC()
		}
		if err := validateBookingRange(start, end); err != nil {
			return nil, err
		}
		if err := s.checkConflicts(ctx, current.CalendarID, start, end, &current.ID); err != nil {
			return nil, err
		}
		upd.StartTime, upd.EndTime = &start, &end
	}

	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperr.Validation("invalid appointment status %q", *upd.Status)
	}

	updated, err := s.appointments.Update(ctx, tenantID, appointmentID, upd)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("appointment not found")
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return updated, nil
}

// Cancel marks the appointment cancelled. Cancelling twice rewrites the same
// status and is not an error.
func (s *AppointmentService) Cancel(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	status := models.AppointmentCancelled
	return s.Update(ctx, tenantID, appointmentID, models.AppointmentUpdate{Status: &status})
}

func (s *AppointmentService) Delete(ctx context.Context, tenantID, appointmentID uuid.UUID) error {
	deleted, err := s.appointments.Delete(ctx, tenantID, appointmentID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if !deleted {
		return apperr.NotFound("appointment not found")
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return nil
}
