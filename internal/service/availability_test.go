package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/redis/go-redis/v9"
)

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func newTestRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisFromClient(client, testLogger), mr
}

type availabilityFixture struct {
	tenantID  uuid.UUID
	calendars *fakeCalendars
	slots     *fakeSlots
	appts     *fakeAppointments
	svc       *AvailabilityService
}

func newAvailabilityFixture(t *testing.T, c cache.Cache) *availabilityFixture {
	t.Helper()
	f := &availabilityFixture{
		tenantID:  uuid.New(),
		calendars: newFakeCalendars(),
		slots:     newFakeSlots(),
		appts:     newFakeAppointments(),
	}
	f.svc = NewAvailabilityService(f.calendars, f.slots, f.appts, c, time.Minute, testLogger)
	return f
}

func (f *availabilityFixture) calendar(tz string, skills ...uuid.UUID) models.Calendar {
	return f.calendars.add(models.Calendar{
		TenantID:       f.tenantID,
		ProviderUserID: uuid.New(),
		ServiceType:    "consultation",
		Timezone:       tz,
		IsActive:       true,
		SkillIDs:       skills,
	})
}

func (f *availabilityFixture) slot(calendarID uuid.UUID, day int, start, end models.ClockTime, capacity int) models.AvailabilitySlot {
	return f.slots.add(models.AvailabilitySlot{
		CalendarID: calendarID,
		DayOfWeek:  day,
		StartTime:  start,
		EndTime:    end,
		Capacity:   capacity,
	})
}

func (f *availabilityFixture) query(start, end string, minutes int, skills ...uuid.UUID) models.AvailabilityQuery {
	return models.AvailabilityQuery{
		TenantID:        f.tenantID,
		SkillIDs:        skills,
		Start:           utc(start),
		End:             utc(end),
		DurationMinutes: minutes,
		Timezone:        "America/New_York",
	}
}

func windowStarts(windows []models.AvailableWindow) []string {
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.Start.Format(time.RFC3339)
	}
	return out
}

func assertStarts(t *testing.T, windows []models.AvailableWindow, want ...string) {
	t.Helper()
	got := windowStarts(windows)
	if len(got) != len(want) {
		t.Fatalf("expected windows %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected windows %v, got %v", want, got)
		}
	}
}

func TestSearchExpandsWeeklyTemplateInCalendarZone(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("America/New_York")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(12, 0, 0), 1)

	// Monday 2024-03-04, Eastern Standard Time.
	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T05:00:00Z", "2024-03-05T05:00:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T14:00:00Z", "2024-03-04T15:00:00Z", "2024-03-04T16:00:00Z")

	w := windows[0]
	if !w.End.Equal(utc("2024-03-04T15:00:00Z")) {
		t.Errorf("expected end 15:00Z, got %s", w.End)
	}
	if w.CalendarID != cal.ID || w.ProviderUserID != cal.ProviderUserID || w.TenantID != f.tenantID {
		t.Errorf("window does not describe its calendar: %+v", w)
	}
	if w.Timezone != "America/New_York" {
		t.Errorf("expected calendar timezone, got %q", w.Timezone)
	}
	if w.Capacity != 1 || w.AvailableCapacity != 1 {
		t.Errorf("expected capacity 1/1, got %d/%d", w.AvailableCapacity, w.Capacity)
	}
}

func TestSearchOmitsBookedWindows(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("America/New_York")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(12, 0, 0), 1)
	f.appts.add(models.Appointment{
		TenantID:   f.tenantID,
		CalendarID: cal.ID,
		StartTime:  utc("2024-03-04T15:00:00Z"),
		EndTime:    utc("2024-03-04T16:00:00Z"),
		Status:     models.AppointmentConfirmed,
	})
	// Cancelled bookings never block.
	f.appts.add(models.Appointment{
		TenantID:   f.tenantID,
		CalendarID: cal.ID,
		StartTime:  utc("2024-03-04T14:00:00Z"),
		EndTime:    utc("2024-03-04T15:00:00Z"),
		Status:     models.AppointmentCancelled,
	})

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T05:00:00Z", "2024-03-05T05:00:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T14:00:00Z", "2024-03-04T16:00:00Z")
}

func TestSearchCapacityAllowsConcurrentBookings(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("UTC")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 2)
	f.appts.add(models.Appointment{
		TenantID:   f.tenantID,
		CalendarID: cal.ID,
		StartTime:  utc("2024-03-04T09:00:00Z"),
		EndTime:    utc("2024-03-04T10:00:00Z"),
		Status:     models.AppointmentPending,
	})

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T09:00:00Z")
	if windows[0].AvailableCapacity != 1 || windows[0].Capacity != 2 {
		t.Errorf("expected 1 of 2 seats left, got %d of %d", windows[0].AvailableCapacity, windows[0].Capacity)
	}
}

func TestSearchFiltersBySkills(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	spanish, pediatrics := uuid.New(), uuid.New()
	both := f.calendar("UTC", spanish, pediatrics)
	onlySpanish := f.calendar("UTC", spanish)
	f.slot(both.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)
	f.slot(onlySpanish.ID, 1, models.NewClockTime(11, 0, 0), models.NewClockTime(12, 0, 0), 1)

	windows, err := f.svc.Search(context.Background(),
		f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60, pediatrics, spanish))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T09:00:00Z")
	if windows[0].CalendarID != both.ID {
		t.Errorf("expected calendar %s, got %s", both.ID, windows[0].CalendarID)
	}

	windows, err = f.svc.Search(context.Background(),
		f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60, uuid.New()))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if windows == nil || len(windows) != 0 {
		t.Errorf("expected empty non-nil result, got %v", windows)
	}
}

func TestSearchSkipsInactiveCalendars(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendars.add(models.Calendar{TenantID: f.tenantID, Timezone: "UTC", IsActive: false})
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(windows) != 0 {
		t.Errorf("expected no windows, got %v", windowStarts(windows))
	}
}

func TestSearchDropsTrailingPartialWindow(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("UTC")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 30, 0), 1)

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T09:00:00Z")
}

func TestSearchClipsToQueryRange(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("UTC")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(12, 0, 0), 1)

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T09:30:00Z", "2024-03-04T11:30:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T10:00:00Z")
}

func TestSearchAcrossDaylightSavingChange(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("America/New_York")
	// 09:00 local every Saturday, Sunday and Monday. Clocks spring forward
	// on Sunday 2024-03-10.
	for _, day := range []int{6, 0, 1} {
		f.slot(cal.ID, day, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)
	}

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-09T05:00:00Z", "2024-03-12T04:00:00Z", 60))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertStarts(t, windows, "2024-03-09T14:00:00Z", "2024-03-10T13:00:00Z", "2024-03-11T13:00:00Z")
}

func TestSearchValidation(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	base := f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60)

	tests := []struct {
		name   string
		mutate func(q *models.AvailabilityQuery)
	}{
		{"missing timezone", func(q *models.AvailabilityQuery) { q.Timezone = "" }},
		{"unknown timezone", func(q *models.AvailabilityQuery) { q.Timezone = "Mars/Olympus" }},
		{"missing start", func(q *models.AvailabilityQuery) { q.Start = time.Time{} }},
		{"end before start", func(q *models.AvailabilityQuery) { q.End = q.Start.Add(-time.Hour) }},
		{"end equals start", func(q *models.AvailabilityQuery) { q.End = q.Start }},
		{"duration too short", func(q *models.AvailabilityQuery) { q.DurationMinutes = 10 }},
		{"duration longer than a week", func(q *models.AvailabilityQuery) { q.DurationMinutes = 7*24*60 + 1 }},
		{"duration overflows", func(q *models.AvailabilityQuery) { q.DurationMinutes = math.MaxInt }},
		{"negative duration", func(q *models.AvailabilityQuery) { q.DurationMinutes = -60 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			_, err := f.svc.Search(context.Background(), q)
			assertKind(t, err, apperr.KindValidation)
		})
	}
}

func TestSearchCacheKeyIgnoresSkillOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	q1 := models.AvailabilityQuery{TenantID: uuid.New(), SkillIDs: []uuid.UUID{a, b}, Start: utc("2024-03-04T00:00:00Z"), End: utc("2024-03-05T00:00:00Z"), DurationMinutes: 30, Timezone: "UTC"}
	q2 := q1
	q2.SkillIDs = []uuid.UUID{b, a}
	if searchCacheKey(q1) != searchCacheKey(q2) {
		t.Errorf("skill order changed the cache key")
	}
	q2.DurationMinutes = 45
	if searchCacheKey(q1) == searchCacheKey(q2) {
		t.Errorf("duration did not change the cache key")
	}
}

func TestSearchIsCachedUntilSlotsChange(t *testing.T) {
	rc, _ := newTestRedis(t)
	f := newAvailabilityFixture(t, rc)
	cal := f.calendar("UTC")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)
	ctx := context.Background()
	q := f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60)

	first, err := f.svc.Search(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	reads := f.slots.readCount()

	second, err := f.svc.Search(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if f.slots.readCount() != reads {
		t.Fatalf("expected second search to be served from cache")
	}
	assertStarts(t, second, windowStarts(first)...)

	_, err = f.svc.CreateSlot(ctx, f.tenantID, models.NewAvailabilitySlot{
		CalendarID: cal.ID,
		DayOfWeek:  1,
		StartTime:  models.NewClockTime(14, 0, 0),
		EndTime:    models.NewClockTime(15, 0, 0),
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	reads = f.slots.readCount()

	third, err := f.svc.Search(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if f.slots.readCount() == reads {
		t.Fatalf("expected search to recompute after slot change")
	}
	assertStarts(t, third, "2024-03-04T09:00:00Z", "2024-03-04T14:00:00Z")
}

func TestSearchSurvivesRedisOutage(t *testing.T) {
	rc, mr := newTestRedis(t)
	f := newAvailabilityFixture(t, rc)
	cal := f.calendar("UTC")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)
	mr.Close()

	windows, err := f.svc.Search(context.Background(), f.query("2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", 60))
	if err != nil {
		t.Fatalf("search with redis down: %v", err)
	}
	assertStarts(t, windows, "2024-03-04T09:00:00Z")
}

func TestCreateSlotValidation(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("UTC")
	f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(12, 0, 0), 1)
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.NewAvailabilitySlot
	}{
		{"day out of range", models.NewAvailabilitySlot{DayOfWeek: 7, StartTime: models.NewClockTime(13, 0, 0), EndTime: models.NewClockTime(14, 0, 0)}},
		{"end before start", models.NewAvailabilitySlot{DayOfWeek: 2, StartTime: models.NewClockTime(14, 0, 0), EndTime: models.NewClockTime(13, 0, 0)}},
		{"shorter than 15 minutes", models.NewAvailabilitySlot{DayOfWeek: 2, StartTime: models.NewClockTime(14, 0, 0), EndTime: models.NewClockTime(14, 10, 0)}},
		{"negative capacity", models.NewAvailabilitySlot{DayOfWeek: 2, StartTime: models.NewClockTime(14, 0, 0), EndTime: models.NewClockTime(15, 0, 0), Capacity: -1}},
		{"overlaps existing slot", models.NewAvailabilitySlot{DayOfWeek: 1, StartTime: models.NewClockTime(11, 0, 0), EndTime: models.NewClockTime(13, 0, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.CalendarID = cal.ID
			_, err := f.svc.CreateSlot(ctx, f.tenantID, tt.in)
			assertKind(t, err, apperr.KindValidation)
		})
	}

	slot, err := f.svc.CreateSlot(ctx, f.tenantID, models.NewAvailabilitySlot{
		CalendarID: cal.ID,
		DayOfWeek:  1,
		StartTime:  models.NewClockTime(12, 0, 0),
		EndTime:    models.NewClockTime(13, 0, 0),
	})
	if err != nil {
		t.Fatalf("back-to-back slot rejected: %v", err)
	}
	if slot.Capacity != 1 {
		t.Errorf("expected default capacity 1, got %d", slot.Capacity)
	}
}

func TestSlotOwnership(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("UTC")
	other := f.calendar("UTC")
	slot := f.slot(other.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)
	ctx := context.Background()

	_, err := f.svc.ListSlots(ctx, uuid.New(), cal.ID)
	assertKind(t, err, apperr.KindNotFound)

	err = f.svc.DeleteSlot(ctx, f.tenantID, cal.ID, slot.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestUpdateSlotValidatesMergedSlot(t *testing.T) {
	f := newAvailabilityFixture(t, nil)
	cal := f.calendar("UTC")
	slot := f.slot(cal.ID, 1, models.NewClockTime(9, 0, 0), models.NewClockTime(10, 0, 0), 1)
	ctx := context.Background()

	_, err := f.svc.UpdateSlot(ctx, f.tenantID, cal.ID, slot.ID, models.AvailabilitySlotUpdate{
		EndTime: ptr(models.NewClockTime(8, 0, 0)),
	})
	assertKind(t, err, apperr.KindValidation)

	updated, err := f.svc.UpdateSlot(ctx, f.tenantID, cal.ID, slot.ID, models.AvailabilitySlotUpdate{
		EndTime:  ptr(models.NewClockTime(11, 0, 0)),
		Capacity: ptr(3),
	})
	if err != nil {
		t.Fatalf("update slot: %v", err)
	}
	if updated.EndTime != models.NewClockTime(11, 0, 0) || updated.Capacity != 3 || updated.StartTime != slot.StartTime {
		t.Errorf("unexpected merged slot %+v", updated)
	}
}
