package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"github.com/lalith-99/slotbook/internal/timezone"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const cacheTimeLayout = "2006-01-02T15:04:05.000Z"

// AvailabilityService owns the weekly slot templates and the search that
// expands them into bookable windows.
type AvailabilityService struct {
	calendars    repository.CalendarRepository
	slots        repository.AvailabilityRepository
	appointments repository.AppointmentRepository
	cache        cache.Cache
	ttl          time.Duration
	logger       *zap.Logger
}

func NewAvailabilityService(
	calendars repository.CalendarRepository,
	slots repository.AvailabilityRepository,
	appointments repository.AppointmentRepository,
	c cache.Cache,
	ttl time.Duration,
	logger *zap.Logger,
) *AvailabilityService {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &AvailabilityService{
		calendars:    calendars,
		slots:        slots,
		appointments: appointments,
		cache:        c,
		ttl:          ttl,
		logger:       logger,
	}
}

func searchCacheKey(q models.AvailabilityQuery) string {
	skills := make([]string, len(q.SkillIDs))
	for i, id := range q.SkillIDs {
		skills[i] = id.String()
	}
	slices.Sort(skills)
	return fmt.Sprintf("%s:%s:%s:%s:%s:%d:%s",
		availabilityNamespace,
		q.TenantID,
		strings.Join(skills, ","),
		q.Start.UTC().Format(cacheTimeLayout),
		q.End.UTC().Format(cacheTimeLayout),
		q.DurationMinutes,
		q.Timezone,
	)
}

// Search returns every bookable window across the tenant's active calendars
// that carry all of q.SkillIDs, sorted by start.
func (s *AvailabilityService) Search(ctx context.Context, q models.AvailabilityQuery) ([]models.AvailableWindow, error) {
	if q.Timezone == "" {
		return nil, apperr.Validation("timezone is required")
	}
	if !timezone.IsValid(q.Timezone) {
		return nil, apperr.Validation("invalid timezone %q", q.Timezone)
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return nil, apperr.Validation("start and end are required")
	}
	if !q.End.After(q.Start) {
		return nil, apperr.Validation("end must be after start")
	}
	// Bound the minutes before converting: a huge value overflows Duration.
	if q.DurationMinutes > int(models.MaxSearchDuration/time.Minute) {
		return nil, apperr.Validation("duration must be at most %d minutes", int(models.MaxSearchDuration/time.Minute))
	}
	step := time.Duration(q.DurationMinutes) * time.Minute
	if step < models.MinBookingDuration {
		return nil, apperr.Validation("duration must be at least %d minutes", int(models.MinBookingDuration/time.Minute))
	}

	key := searchCacheKey(q)
	var cached []models.AvailableWindow
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	calendars, err := s.calendars.ListActive(ctx, q.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list active calendars: %w", err)
	}
	matching := make([]models.Calendar, 0, len(calendars))
	for i := range calendars {
		if calendars[i].HasSkills(q.SkillIDs) {
			matching = append(matching, calendars[i])
		}
	}
	if len(matching) == 0 {
		return []models.AvailableWindow{}, nil
	}

	ids := make([]uuid.UUID, len(matching))
	for i, c := range matching {
		ids[i] = c.ID
	}

	var (
		slots  []models.AvailabilitySlot
		booked []models.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		slots, err = s.slots.ListForCalendars(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		booked, err = s.appointments.ListBlockingForCalendars(gctx, ids, q.Start.UTC(), q.End.UTC())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load availability inputs: %w", err)
	}

	slotsByCalendar := make(map[uuid.UUID][]models.AvailabilitySlot)
	for _, sl := range slots {
		slotsByCalendar[sl.CalendarID] = append(slotsByCalendar[sl.CalendarID], sl)
	}
	bookedByCalendar := make(map[uuid.UUID][]models.Appointment)
	for _, a := range booked {
		bookedByCalendar[a.CalendarID] = append(bookedByCalendar[a.CalendarID], a)
	}

	windows := make([]models.AvailableWindow, 0)
	for _, cal := range matching {
		calSlots := slotsByCalendar[cal.ID]
		if len(calSlots) == 0 {
			continue
		}
		found, err := expandCalendar(cal, calSlots, bookedByCalendar[cal.ID], q.Start, q.End, step)
		if err != nil {
			s.logger.Warn("skipping calendar with unusable timezone",
				zap.String("calendar_id", cal.ID.String()),
				zap.String("timezone", cal.Timezone),
				zap.Error(err),
			)
			continue
		}
		windows = append(windows, found...)
	}
	slices.SortStableFunc(windows, func(a, b models.AvailableWindow) int {
		return a.Start.Compare(b.Start)
	})

	if err := s.cache.Set(ctx, key, windows, s.ttl); err != nil {
		s.logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
	}
	return windows, nil
}

func (s *AvailabilityService) ownedCalendar(ctx context.Context, tenantID, calendarID uuid.UUID) (*models.Calendar, error) {
	cal, err := s.calendars.GetByID(ctx, tenantID, calendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if cal == nil {
		return nil, apperr.NotFound("calendar not found")
	}
	return cal, nil
}

func (s *AvailabilityService) slotOf(ctx context.Context, calendarID, slotID uuid.UUID) (*models.AvailabilitySlot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get availability slot: %w", err)
	}
	if slot == nil || slot.CalendarID != calendarID {
		return nil, apperr.NotFound("availability slot not found")
	}
	return slot, nil
}

func validateSlot(day int, start, end models.ClockTime, capacity int) error {
	if day < 0 || day > 6 {
		return apperr.Validation("day_of_week must be between 0 and 6")
	}
	if end <= start {
		return apperr.Validation("end_time must be after start_time")
	}
	if end.Sub(start) < models.MinBookingDuration {
		return apperr.Validation("availability slot must be at least %d minutes", int(models.MinBookingDuration/time.Minute))
	}
	if capacity < 1 {
		return apperr.Validation("capacity must be at least 1")
	}
	return nil
}

func (s *AvailabilityService) ensureNoSlotOverlap(ctx context.Context, calendarID uuid.UUID, day int, start, end models.ClockTime, ignore uuid.UUID) error {
	existing, err := s.slots.ListByCalendar(ctx, calendarID)
	if err != nil {
		return fmt.Errorf("list availability slots: %w", err)
	}
	for _, sl := range existing {
		if sl.DayOfWeek != day || sl.ID == ignore {
			continue
		}
		if start < sl.EndTime && sl.StartTime < end {
			return apperr.Validation("availability slot overlaps with existing slot").
				WithDetail("slot_id", sl.ID)
		}
	}
	return nil
}

func (s *AvailabilityService) ListSlots(ctx context.Context, tenantID, calendarID uuid.UUID) ([]models.AvailabilitySlot, error) {
	if _, err := s.ownedCalendar(ctx, tenantID, calendarID); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// CreateSlot adds a weekly template. A zero Capacity defaults to 1.
func (s *AvailabilityService) CreateSlot(ctx context.Context, tenantID uuid.UUID, in models.NewAvailabilitySlot) (*models.AvailabilitySlot, error) {
	if _, err := s.ownedCalendar(ctx, tenantID, in.CalendarID); err != nil {
		return nil, err
	}
	if in.Capacity == 0 {
		in.Capacity = 1
	}
	if err := validateSlot(in.DayOfWeek, in.StartTime, in.EndTime, in.Capacity); err != nil {
		return nil, err
	}
	if err := s.ensureNoSlotOverlap(ctx, in.CalendarID, in.DayOfWeek, in.StartTime, in.EndTime, uuid.Nil); err != nil {
		return nil, err
	}

	slot, err := s.slots.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create availability slot: %w", err)
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return slot, nil
}

// UpdateSlot merges upd onto the stored slot and validates the result as a
// whole, so moving only the end time is still checked against the start.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, tenantID, calendarID, slotID uuid.UUID, upd models.AvailabilitySlotUpdate) (*models.AvailabilitySlot, error) {
	if _, err := s.ownedCalendar(ctx, tenantID, calendarID); err != nil {
		return nil, err
	}
	current, err := s.slotOf(ctx, calendarID, slotID)
	if err != nil {
		return nil, err
	}

	merged := *current
	if upd.DayOfWeek != nil {
		merged.DayOfWeek = *upd.DayOfWeek
	}
	if upd.StartTime != nil {
		merged.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		merged.EndTime = *upd.EndTime
	}
	if upd.Capacity != nil {
		merged.Capacity = *upd.Capacity
	}
	if upd.Metadata != nil {
		merged.Metadata = upd.Metadata
	}

	if err := validateSlot(merged.DayOfWeek, merged.StartTime, merged.EndTime, merged.Capacity); err != nil {
		return nil, err
	}
	if err := s.ensureNoSlotOverlap(ctx, calendarID, merged.DayOfWeek, merged.StartTime, merged.EndTime, slotID); err != nil {
		return nil, err
	}

	updated, err := s.slots.Update(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("update availability slot: %w", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("availability slot not found")
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return updated, nil
}

func (s *AvailabilityService) DeleteSlot(ctx context.Context, tenantID, calendarID, slotID uuid.UUID) error {
	if _, err := s.ownedCalendar(ctx, tenantID, calendarID); err != nil {
		return err
	}
	if _, err := s.slotOf(ctx, calendarID, slotID); err != nil {
		return err
	}
	if err := s.slots.Delete(ctx, slotID); err != nil {
		return fmt.Errorf("delete availability slot: %w", err)
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return nil
}
