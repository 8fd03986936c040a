package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"github.com/lalith-99/slotbook/internal/timezone"
	"go.uber.org/zap"
)

type CalendarService struct {
	calendars repository.CalendarRepository
	users     repository.UserRepository
	skills    repository.SkillRepository
	cache     cache.Cache
	logger    *zap.Logger
}

func NewCalendarService(
	calendars repository.CalendarRepository,
	users repository.UserRepository,
	skills repository.SkillRepository,
	c cache.Cache,
	logger *zap.Logger,
) *CalendarService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CalendarService{calendars: calendars, users: users, skills: skills, cache: c, logger: logger}
}

// tenantSkills rejects any ID that is not a skill of the tenant.
func (s *CalendarService) tenantSkills(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.skills.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("find skills: %w", err)
	}
	if len(found) != len(ids) {
		return apperr.Validation("one or more skills do not belong to this tenant")
	}
	return nil
}

func (s *CalendarService) Create(ctx context.Context, in models.NewCalendar) (*models.Calendar, error) {
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	if in.ServiceType == "" {
		return nil, apperr.Validation("service_type is required")
	}
	if !timezone.IsValid(in.Timezone) {
		return nil, apperr.Validation("invalid timezone %q", in.Timezone)
	}
	if _, err := activeUser(ctx, s.users, in.TenantID, in.ProviderUserID, "provider"); err != nil {
		return nil, err
	}
	in.SkillIDs = uniqueIDs(in.SkillIDs)
	if err := s.tenantSkills(ctx, in.TenantID, in.SkillIDs); err != nil {
		return nil, err
	}

	cal, err := s.calendars.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create calendar: %w", err)
	}
	invalidateAvailability(ctx, s.cache, s.logger, in.TenantID)
	return cal, nil
}

func (s *CalendarService) Get(ctx context.Context, tenantID, calendarID uuid.UUID) (*models.Calendar, error) {
	cal, err := s.calendars.GetByID(ctx, tenantID, calendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if cal == nil {
		return nil, apperr.NotFound("calendar not found")
	}
	return cal, nil
}

func (s *CalendarService) List(ctx context.Context, tenantID uuid.UUID, filter models.CalendarFilter) ([]models.Calendar, error) {
	cals, err := s.calendars.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return cals, nil
}

// Update validates only the fields being changed.
func (s *CalendarService) Update(ctx context.Context, tenantID, calendarID uuid.UUID, upd models.CalendarUpdate) (*models.Calendar, error) {
	if upd.ServiceType != nil {
		trimmed := strings.TrimSpace(*upd.ServiceType)
		if trimmed == "" {
			return nil, apperr.Validation("service_type cannot be empty")
		}
		upd.ServiceType = &trimmed
	}
	if upd.Timezone != nil && !timezone.IsValid(*upd.Timezone) {
		return nil, apperr.Validation("invalid timezone %q", *upd.Timezone)
	}
	if upd.ProviderUserID != nil {
		if _, err := activeUser(ctx, s.users, tenantID, *upd.ProviderUserID, "provider"); err != nil {
			return nil, err
		}
	}
	if upd.ReplaceSkills {
		upd.SkillIDs = uniqueIDs(upd.SkillIDs)
		if err := s.tenantSkills(ctx, tenantID, upd.SkillIDs); err != nil {
			return nil, err
		}
	}

	cal, err := s.calendars.Update(ctx, tenantID, calendarID, upd)
	if err != nil {
		return nil, fmt.Errorf("update calendar: %w", err)
	}
	if cal == nil {
		return nil, apperr.NotFound("calendar not found")
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return cal, nil
}

func (s *CalendarService) Delete(ctx context.Context, tenantID, calendarID uuid.UUID) error {
	deleted, err := s.calendars.Delete(ctx, tenantID, calendarID)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if !deleted {
		return apperr.NotFound("calendar not found")
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return nil
}
