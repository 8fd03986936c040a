package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GroupService books sessions with several providers and participants.
type GroupService struct {
	groups       repository.GroupAppointmentRepository
	calendars    repository.CalendarRepository
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	logger       *zap.Logger
}

func NewGroupService(
	groups repository.GroupAppointmentRepository,
	calendars repository.CalendarRepository,
	users repository.UserRepository,
	appointments repository.AppointmentRepository,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		groups:       groups,
		calendars:    calendars,
		users:        users,
		appointments: appointments,
		logger:       logger,
	}
}

// CreateGroupInput is a group booking request. Nil DurationMinutes and
// MaxParticipants take their defaults.
type CreateGroupInput struct {
	TenantID        uuid.UUID
	CreatedBy       uuid.UUID
	Name            string
	Description     *string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes *int
	MaxParticipants *int
	Providers       []models.ProviderInput
	Participants    []models.ParticipantInput
	Metadata        map[string]any
}

func normalizeProviders(in []models.ProviderInput) []models.ProviderInput {
	return dedupeBy(in, func(p models.ProviderInput) uuid.UUID { return p.UserID })
}

func normalizeParticipants(in []models.ParticipantInput) []models.ParticipantInput {
	return dedupeBy(in, func(p models.ParticipantInput) uuid.UUID { return p.UserID })
}

func validateGroupRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !end.After(start) {
		return apperr.Validation("end_time must be after start_time")
	}
	return nil
}

// providerCalendar checks that calendarID is an active calendar owned by
// the provider.
func (s *GroupService) providerCalendar(ctx context.Context, tenantID, calendarID, providerID uuid.UUID) error {
	cal, err := s.calendars.GetByID(ctx, tenantID, calendarID)
	if err != nil {
		return fmt.Errorf("get calendar: %w", err)
	}
	if cal == nil {
		return apperr.NotFound("calendar %s not found", calendarID)
	}
	if cal.ProviderUserID != providerID {
		return apperr.Validation("calendar %s does not belong to provider %s", calendarID, providerID)
	}
	if !cal.IsActive {
		return apperr.Validation("calendar %s is not active", calendarID)
	}
	return nil
}

func (s *GroupService) calendarFree(ctx context.Context, calendarID uuid.UUID, start, end time.Time, ignore *uuid.UUID) error {
	conflicts, err := s.appointments.FindConflicting(ctx, calendarID, start, end, ignore)
	if err != nil {
		return fmt.Errorf("find conflicting appointments: %w", err)
	}
	if len(conflicts) > 0 {
		return apperr.Conflict("calendar %s is not available for the selected time window", calendarID).
			WithDetail("calendar_id", calendarID).
			WithDetail("conflicts", conflicts)
	}
	return nil
}

// Create validates every provider and participant, then writes the group
// and its members in one transaction. Nothing is persisted unless every
// check passes.
func (s *GroupService) Create(ctx context.Context, in CreateGroupInput) (*models.GroupAppointment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(in.Providers) == 0 {
		return nil, apperr.Validation("at least one provider is required")
	}
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if err := validateGroupRange(start, end); err != nil {
		return nil, err
	}

	providers := normalizeProviders(in.Providers)
	participants := normalizeParticipants(in.Participants)
	if len(providers) == 0 {
		return nil, apperr.Validation("at least one provider is required")
	}

	duration := int(math.Max(15, math.Round(end.Sub(start).Minutes())))
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			return nil, apperr.Validation("duration_minutes must be greater than 0")
		}
		duration = *in.DurationMinutes
	}
	maxParticipants := max(1, len(participants))
	if in.MaxParticipants != nil {
		maxParticipants = *in.MaxParticipants
	}
	if maxParticipants <= 0 {
		return nil, apperr.Validation("max_participants must be greater than 0")
	}
	if maxParticipants < len(participants) {
		return nil, apperr.Validation("max_participants cannot be less than participant count")
	}

	if _, err := activeUser(ctx, s.users, in.TenantID, in.CreatedBy, "creator"); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			if _, err := activeUser(gctx, s.users, in.TenantID, p.UserID, "provider"); err != nil {
				return err
			}
			if p.CalendarID == nil {
				return nil
			}
			if err := s.providerCalendar(gctx, in.TenantID, *p.CalendarID, p.UserID); err != nil {
				return err
			}
			return s.calendarFree(gctx, *p.CalendarID, start, end, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, p := range participants {
		g.Go(func() error {
			_, err := activeUser(gctx, s.users, in.TenantID, p.UserID, "participant")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	created, err := s.groups.Create(ctx, models.NewGroupAppointment{
		TenantID:        in.TenantID,
		Name:            name,
		Description:     in.Description,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: duration,
		MaxParticipants: maxParticipants,
		CreatedBy:       in.CreatedBy,
		Metadata:        in.Metadata,
		Providers:       providers,
		Participants:    participants,
	})
	if err != nil {
		return nil, fmt.Errorf("create group appointment: %w", err)
	}

	s.logger.Info("group appointment created",
		zap.String("tenant_id", in.TenantID.String()),
		zap.String("group_appointment_id", created.ID.String()),
		zap.Int("providers", len(providers)),
		zap.Int("participants", len(participants)),
	)
	return created, nil
}

func (s *GroupService) Get(ctx context.Context, tenantID, groupID uuid.UUID) (*models.GroupAppointment, error) {
	g, err := s.groups.GetByID(ctx, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group appointment: %w", err)
	}
	if g == nil {
		return nil, apperr.NotFound("group appointment not found")
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context, tenantID uuid.UUID, filter models.GroupAppointmentFilter) ([]models.GroupAppointment, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperr.Validation("invalid status value %q", *filter.Status)
	}
	groups, err := s.groups.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list group appointments: %w", err)
	}
	return groups, nil
}

// Update applies upd. A new time window is checked against every provider
// calendar of the group; other fields are validated on their own.
func (s *GroupService) Update(ctx context.Context, tenantID, groupID uuid.UUID, upd models.GroupAppointmentUpdate) (*models.GroupAppointment, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperr.Validation("invalid status value %q", *upd.Status)
	}
	if upd.MaxParticipants != nil && *upd.MaxParticipants <= 0 {
		return nil, apperr.Validation("max_participants must be greater than 0")
	}
	if upd.DurationMinutes != nil && *upd.DurationMinutes <= 0 {
		return nil, apperr.Validation("duration_minutes must be greater than 0")
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, apperr.Validation("name cannot be empty")
	}

	if upd.StartTime != nil || upd.EndTime != nil || upd.MaxParticipants != nil {
		current, err := s.Get(ctx, tenantID, groupID)
		if err != nil {
			return nil, err
		}
		if upd.MaxParticipants != nil && *upd.MaxParticipants < len(current.Participants) {
			return nil, apperr.Validation("max_participants cannot be less than participant count")
		}
		if upd.StartTime != nil || upd.EndTime != nil {
			start, end := current.StartTime, current.EndTime
			if upd.StartTime != nil {
				start = upd.StartTime.UTC()
			}
			if upd.EndTime != nil {
				end = upd.EndTime.UTC()
			}
			if err := validateGroupRange(start, end); err != nil {
				return nil, err
			}

			g, gctx := errgroup.WithContext(ctx)
			for _, p := range current.Providers {
				if p.CalendarID == nil {
					continue
				}
				calendarID := *p.CalendarID
				g.Go(func() error {
					return s.calendarFree(gctx, calendarID, start, end, &groupID)
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			upd.StartTime, upd.EndTime = &start, &end
		}
	}

	updated, err := s.groups.Update(ctx, tenantID, groupID, upd)
	if err != nil {
		return nil, fmt.Errorf("update group appointment: %w", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("group appointment not found")
	}
	return updated, nil
}

// Cancel is idempotent: an already cancelled group is returned unchanged.
func (s *GroupService) Cancel(ctx context.Context, tenantID, groupID uuid.UUID) (*models.GroupAppointment, error) {
	current, err := s.Get(ctx, tenantID, groupID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.GroupCancelled {
		return current, nil
	}
	status := models.GroupCancelled
	return s.Update(ctx, tenantID, groupID, models.GroupAppointmentUpdate{Status: &status})
}

func (s *GroupService) RespondAsProvider(ctx context.Context, tenantID, groupID, providerUserID uuid.UUID, status models.ProviderResponse) (*models.GroupAppointment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid provider status %q", status)
	}
	if _, err := activeUser(ctx, s.users, tenantID, providerUserID, "provider"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, tenantID, groupID); err != nil {
		return nil, err
	}
	ok, err := s.groups.UpdateProviderStatus(ctx, groupID, providerUserID, status)
	if err != nil {
		return nil, fmt.Errorf("update provider status: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("provider not part of group appointment")
	}
	return s.Get(ctx, tenantID, groupID)
}

func (s *GroupService) RespondAsParticipant(ctx context.Context, tenantID, groupID, participantUserID uuid.UUID, status models.ParticipantResponse, metadata map[string]any) (*models.GroupAppointment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid participant status %q", status)
	}
	if _, err := activeUser(ctx, s.users, tenantID, participantUserID, "participant"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, tenantID, groupID); err != nil {
		return nil, err
	}
	ok, err := s.groups.UpdateParticipantStatus(ctx, groupID, participantUserID, status, metadata)
	if err != nil {
		return nil, fmt.Errorf("update participant status: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("participant not part of group appointment")
	}
	return s.Get(ctx, tenantID, groupID)
}

func (s *GroupService) Delete(ctx context.Context, tenantID, groupID uuid.UUID) error {
	deleted, err := s.groups.Delete(ctx, tenantID, groupID)
	if err != nil {
		return fmt.Errorf("delete group appointment: %w", err)
	}
	if !deleted {
		return apperr.NotFound("group appointment not found")
	}
	return nil
}
