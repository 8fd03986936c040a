package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/models"
	"go.uber.org/zap"
)

// In-memory repositories. They implement only what the services rely on:
// tenant scoping, nil-on-missing getters and the blocking-status filter.

var testLogger = zap.NewNop()

func ptr[T any](v T) *T { return &v }

// fakeTenants writes a bootstrap into users and rbac only once every step
// has been checked, so a failed Bootstrap leaves them untouched.
type fakeTenants struct {
	mu            sync.Mutex
	tenants       map[uuid.UUID]models.Tenant
	users         *fakeUsers
	rbac          *fakeRBAC
	failBootstrap error
}

func newFakeTenants(users *fakeUsers, rbac *fakeRBAC) *fakeTenants {
	return &fakeTenants{tenants: make(map[uuid.UUID]models.Tenant), users: users, rbac: rbac}
}

func (f *fakeTenants) Bootstrap(ctx context.Context, b models.TenantBootstrap) (*models.Tenant, *models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBootstrap != nil {
		return nil, nil, f.failBootstrap
	}
	if !slices.ContainsFunc(b.Roles, func(nr models.NewRole) bool { return nr.Name == b.AdminRole }) {
		return nil, nil, fmt.Errorf("admin role %q not among seeded roles", b.AdminRole)
	}

	t := models.Tenant{ID: uuid.New(), Name: b.TenantName, CreatedAt: time.Now()}
	f.tenants[t.ID] = t

	admin := b.Admin
	admin.TenantID = t.ID
	user, _ := f.users.Create(ctx, admin)
	for _, nr := range b.Roles {
		nr.TenantID = t.ID
		role, _ := f.rbac.Create(ctx, nr)
		if nr.Name == b.AdminRole {
			_ = f.rbac.Assign(ctx, user.ID, role.ID, nil, nil)
		}
	}
	return &t, user, nil
}

func (f *fakeTenants) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tenants)
}

func (f *fakeTenants) GetByID(_ context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]models.User)}
}

func (f *fakeUsers) add(tenantID uuid.UUID, role string, status models.UserStatus) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = models.User{
		ID:       id,
		TenantID: tenantID,
		Email:    id.String() + "@example.com",
		Role:     role,
		Status:   status,
	}
	return id
}

func (f *fakeUsers) Create(_ context.Context, nu models.NewUser) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{
		ID:           uuid.New(),
		TenantID:     nu.TenantID,
		Email:        nu.Email,
		DisplayName:  nu.DisplayName,
		Role:         nu.Role,
		Status:       nu.Status,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return &u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) List(_ context.Context, tenantID uuid.UUID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeSkills struct {
	mu     sync.Mutex
	skills map[uuid.UUID]models.Skill
}

func newFakeSkills() *fakeSkills {
	return &fakeSkills{skills: make(map[uuid.UUID]models.Skill)}
}

func (f *fakeSkills) Create(_ context.Context, tenantID uuid.UUID, name string, category, description *string) (*models.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := models.Skill{ID: uuid.New(), TenantID: tenantID, Name: name, Category: category, Description: description}
	f.skills[s.ID] = s
	return &s, nil
}

func (f *fakeSkills) GetByID(_ context.Context, tenantID, skillID uuid.UUID) (*models.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.skills[skillID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSkills) GetByName(_ context.Context, tenantID uuid.UUID, name string) (*models.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.skills {
		if s.TenantID == tenantID && strings.EqualFold(s.Name, name) {
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeSkills) List(_ context.Context, tenantID uuid.UUID, filter models.SkillFilter) ([]models.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Skill
	for _, s := range f.skills {
		if s.TenantID != tenantID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSkills) Update(_ context.Context, tenantID, skillID uuid.UUID, upd models.SkillUpdate) (*models.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.skills[skillID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Category != nil {
		s.Category = upd.Category
	}
	if upd.Description != nil {
		s.Description = upd.Description
	}
	f.skills[skillID] = s
	return &s, nil
}

func (f *fakeSkills) Delete(_ context.Context, tenantID, skillID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.skills[skillID]
	if !ok || s.TenantID != tenantID {
		return false, nil
	}
	delete(f.skills, skillID)
	return true, nil
}

func (f *fakeSkills) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Skill
	for _, id := range ids {
		if s, ok := f.skills[id]; ok && s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeCalendars struct {
	mu        sync.Mutex
	calendars map[uuid.UUID]models.Calendar
}

func newFakeCalendars() *fakeCalendars {
	return &fakeCalendars{calendars: make(map[uuid.UUID]models.Calendar)}
}

func (f *fakeCalendars) add(cal models.Calendar) models.Calendar {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cal.ID == uuid.Nil {
		cal.ID = uuid.New()
	}
	f.calendars[cal.ID] = cal
	return cal
}

func (f *fakeCalendars) Create(_ context.Context, nc models.NewCalendar) (*models.Calendar, error) {
	cal := f.add(models.Calendar{
		TenantID:       nc.TenantID,
		ProviderUserID: nc.ProviderUserID,
		ServiceType:    nc.ServiceType,
		Timezone:       nc.Timezone,
		IsActive:       nc.IsActive,
		Color:          nc.Color,
		SkillIDs:       nc.SkillIDs,
	})
	return &cal, nil
}

func (f *fakeCalendars) GetByID(_ context.Context, tenantID, calendarID uuid.UUID) (*models.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calendars[calendarID]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCalendars) List(_ context.Context, tenantID uuid.UUID, filter models.CalendarFilter) ([]models.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Calendar
	for _, c := range f.calendars {
		if c.TenantID != tenantID {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		if filter.ProviderUserID != nil && c.ProviderUserID != *filter.ProviderUserID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCalendars) ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Calendar, error) {
	return f.List(ctx, tenantID, models.CalendarFilter{IsActive: ptr(true)})
}

func (f *fakeCalendars) Update(_ context.Context, tenantID, calendarID uuid.UUID, upd models.CalendarUpdate) (*models.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calendars[calendarID]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	if upd.ProviderUserID != nil {
		c.ProviderUserID = *upd.ProviderUserID
	}
	if upd.ServiceType != nil {
		c.ServiceType = *upd.ServiceType
	}
	if upd.Timezone != nil {
		c.Timezone = *upd.Timezone
	}
	if upd.IsActive != nil {
		c.IsActive = *upd.IsActive
	}
	if upd.Color != nil {
		c.Color = upd.Color
	}
	if upd.ReplaceSkills {
		c.SkillIDs = upd.SkillIDs
	}
	f.calendars[calendarID] = c
	return &c, nil
}

func (f *fakeCalendars) Delete(_ context.Context, tenantID, calendarID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calendars[calendarID]
	if !ok || c.TenantID != tenantID {
		return false, nil
	}
	delete(f.calendars, calendarID)
	return true, nil
}

type fakeSlots struct {
	mu    sync.Mutex
	slots map[uuid.UUID]models.AvailabilitySlot
	reads int
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{slots: make(map[uuid.UUID]models.AvailabilitySlot)}
}

func (f *fakeSlots) add(slot models.AvailabilitySlot) models.AvailabilitySlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	f.slots[slot.ID] = slot
	return slot
}

func (f *fakeSlots) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeSlots) Create(_ context.Context, ns models.NewAvailabilitySlot) (*models.AvailabilitySlot, error) {
	slot := f.add(models.AvailabilitySlot{
		CalendarID: ns.CalendarID,
		DayOfWeek:  ns.DayOfWeek,
		StartTime:  ns.StartTime,
		EndTime:    ns.EndTime,
		Capacity:   ns.Capacity,
		Metadata:   ns.Metadata,
	})
	return &slot, nil
}

func (f *fakeSlots) GetByID(_ context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSlots) ListByCalendar(ctx context.Context, calendarID uuid.UUID) ([]models.AvailabilitySlot, error) {
	return f.ListForCalendars(ctx, []uuid.UUID{calendarID})
}

func (f *fakeSlots) ListForCalendars(_ context.Context, calendarIDs []uuid.UUID) ([]models.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	var out []models.AvailabilitySlot
	for _, s := range f.slots {
		if slices.Contains(calendarIDs, s.CalendarID) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b models.AvailabilitySlot) int { return int(a.StartTime) - int(b.StartTime) })
	return out, nil
}

func (f *fakeSlots) Update(_ context.Context, slot models.AvailabilitySlot) (*models.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[slot.ID]; !ok {
		return nil, nil
	}
	f.slots[slot.ID] = slot
	return &slot, nil
}

func (f *fakeSlots) Delete(_ context.Context, slotID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.slots, slotID)
	return nil
}

type fakeAppointments struct {
	mu    sync.Mutex
	appts map[uuid.UUID]models.Appointment
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{appts: make(map[uuid.UUID]models.Appointment)}
}

func (f *fakeAppointments) add(a models.Appointment) models.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AppointmentConfirmed
	}
	f.appts[a.ID] = a
	return a
}

func (f *fakeAppointments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appts)
}

func (f *fakeAppointments) Create(_ context.Context, na models.NewAppointment) (*models.Appointment, error) {
	f.mu.Lock()
	for _, a := range f.appts {
		if a.CalendarID == na.CalendarID && a.Status.Blocking() &&
			models.Overlaps(a.StartTime, a.EndTime, na.StartTime, na.EndTime) {
			f.mu.Unlock()
			return nil, apperr.Conflict("appointment conflicts with existing booking")
		}
	}
	f.mu.Unlock()
	a := f.add(models.Appointment{
		TenantID:       na.TenantID,
		CalendarID:     na.CalendarID,
		ClientUserID:   na.ClientUserID,
		StartTime:      na.StartTime,
		EndTime:        na.EndTime,
		Status:         models.AppointmentPending,
		RequiredSkills: na.RequiredSkills,
		Notes:          na.Notes,
		Metadata:       na.Metadata,
	})
	return &a, nil
}

func (f *fakeAppointments) GetByID(_ context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[appointmentID]
	if !ok || a.TenantID != tenantID {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeAppointments) ListForCalendar(_ context.Context, tenantID, calendarID uuid.UUID, window models.TimeRange) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, a := range f.appts {
		if a.TenantID != tenantID || a.CalendarID != calendarID {
			continue
		}
		if window.Start != nil && a.StartTime.Before(*window.Start) {
			continue
		}
		if window.End != nil && !a.StartTime.Before(*window.End) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointments) FindConflicting(_ context.Context, calendarID uuid.UUID, start, end time.Time, ignoreID *uuid.UUID) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, a := range f.appts {
		if a.CalendarID != calendarID || !a.Status.Blocking() {
			continue
		}
		if ignoreID != nil && a.ID == *ignoreID {
			continue
		}
		if models.Overlaps(a.StartTime, a.EndTime, start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) ListBlockingForCalendars(_ context.Context, calendarIDs []uuid.UUID, start, end time.Time) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, a := range f.appts {
		if !slices.Contains(calendarIDs, a.CalendarID) || !a.Status.Blocking() {
			continue
		}
		if models.Overlaps(a.StartTime, a.EndTime, start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) Update(_ context.Context, tenantID, appointmentID uuid.UUID, upd models.AppointmentUpdate) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[appointmentID]
	if !ok || a.TenantID != tenantID {
		return nil, nil
	}
	if upd.StartTime != nil {
		a.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		a.EndTime = *upd.EndTime
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.Notes != nil {
		a.Notes = upd.Notes
	}
	if upd.Metadata != nil {
		a.Metadata = upd.Metadata
	}
	f.appts[appointmentID] = a
	return &a, nil
}

func (f *fakeAppointments) Delete(_ context.Context, tenantID, appointmentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[appointmentID]
	if !ok || a.TenantID != tenantID {
		return false, nil
	}
	delete(f.appts, appointmentID)
	return true, nil
}

type fakeGroups struct {
	mu     sync.Mutex
	groups map[uuid.UUID]models.GroupAppointment
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{groups: make(map[uuid.UUID]models.GroupAppointment)}
}

func (f *fakeGroups) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.groups)
}

func (f *fakeGroups) Create(_ context.Context, ng models.NewGroupAppointment) (*models.GroupAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := models.GroupAppointment{
		ID:              uuid.New(),
		TenantID:        ng.TenantID,
		Name:            ng.Name,
		Description:     ng.Description,
		StartTime:       ng.StartTime,
		EndTime:         ng.EndTime,
		DurationMinutes: ng.DurationMinutes,
		MaxParticipants: ng.MaxParticipants,
		Status:          models.GroupScheduled,
		CreatedBy:       ng.CreatedBy,
		Metadata:        ng.Metadata,
	}
	for _, p := range ng.Providers {
		g.Providers = append(g.Providers, models.GroupProvider{
			ID:                 uuid.New(),
			GroupAppointmentID: g.ID,
			ProviderUserID:     p.UserID,
			CalendarID:         p.CalendarID,
			Status:             models.ProviderPending,
		})
	}
	for _, p := range ng.Participants {
		g.Participants = append(g.Participants, models.GroupParticipant{
			ID:                 uuid.New(),
			GroupAppointmentID: g.ID,
			ParticipantUserID:  p.UserID,
			Status:             models.ParticipantInvited,
			Metadata:           p.Metadata,
		})
	}
	f.groups[g.ID] = g
	return &g, nil
}

func (f *fakeGroups) GetByID(_ context.Context, tenantID, groupID uuid.UUID) (*models.GroupAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok || g.TenantID != tenantID {
		return nil, nil
	}
	return &g, nil
}

func (f *fakeGroups) List(_ context.Context, tenantID uuid.UUID, filter models.GroupAppointmentFilter) ([]models.GroupAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GroupAppointment
	for _, g := range f.groups {
		if g.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && g.Status != *filter.Status {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGroups) Update(_ context.Context, tenantID, groupID uuid.UUID, upd models.GroupAppointmentUpdate) (*models.GroupAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok || g.TenantID != tenantID {
		return nil, nil
	}
	if upd.Name != nil {
		g.Name = *upd.Name
	}
	if upd.StartTime != nil {
		g.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		g.EndTime = *upd.EndTime
	}
	if upd.MaxParticipants != nil {
		g.MaxParticipants = *upd.MaxParticipants
	}
	if upd.Status != nil {
		g.Status = *upd.Status
	}
	f.groups[groupID] = g
	return &g, nil
}

func (f *fakeGroups) UpdateProviderStatus(_ context.Context, groupID, providerUserID uuid.UUID, status models.ProviderResponse) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return false, nil
	}
	for i := range g.Providers {
		if g.Providers[i].ProviderUserID == providerUserID {
			g.Providers[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroups) UpdateParticipantStatus(_ context.Context, groupID, participantUserID uuid.UUID, status models.ParticipantResponse, metadata map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return false, nil
	}
	for i := range g.Participants {
		if g.Participants[i].ParticipantUserID == participantUserID {
			g.Participants[i].Status = status
			if metadata != nil {
				g.Participants[i].Metadata = metadata
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroups) Delete(_ context.Context, tenantID, groupID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok || g.TenantID != tenantID {
		return false, nil
	}
	delete(f.groups, groupID)
	return true, nil
}

type fakeWaitlist struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.WaitlistEntry
}

func newFakeWaitlist() *fakeWaitlist {
	return &fakeWaitlist{entries: make(map[uuid.UUID]models.WaitlistEntry)}
}

func (f *fakeWaitlist) Create(_ context.Context, ne models.NewWaitlistEntry) (*models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := models.WaitlistEntry{
		ID:             uuid.New(),
		TenantID:       ne.TenantID,
		ClientUserID:   ne.ClientUserID,
		ProviderUserID: ne.ProviderUserID,
		Priority:       ne.Priority,
		Status:         models.WaitlistActive,
		RequestedStart: ne.RequestedStart,
		RequestedEnd:   ne.RequestedEnd,
		AutoPromote:    ne.AutoPromote,
		Notes:          ne.Notes,
		Metadata:       ne.Metadata,
	}
	f.entries[e.ID] = e
	return &e, nil
}

func (f *fakeWaitlist) GetByID(_ context.Context, tenantID, entryID uuid.UUID) (*models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeWaitlist) List(_ context.Context, tenantID uuid.UUID, filter models.WaitlistFilter) ([]models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range f.entries {
		if e.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeWaitlist) Update(_ context.Context, tenantID, entryID uuid.UUID, upd models.WaitlistUpdate) (*models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	if upd.Priority != nil {
		e.Priority = *upd.Priority
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.RequestedStart != nil {
		e.RequestedStart = upd.RequestedStart
	}
	if upd.RequestedEnd != nil {
		e.RequestedEnd = upd.RequestedEnd
	}
	if upd.Notes != nil {
		e.Notes = upd.Notes
	}
	if upd.PromotedAt != nil {
		e.PromotedAt = upd.PromotedAt
	}
	f.entries[entryID] = e
	return &e, nil
}

func (f *fakeWaitlist) Delete(_ context.Context, tenantID, entryID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return false, nil
	}
	delete(f.entries, entryID)
	return true, nil
}

// fakeRBAC backs both the role and the user-role repositories so that
// permission resolution sees role edits immediately.
type fakeRBAC struct {
	mu          sync.Mutex
	catalog     []models.Permission
	roles       map[uuid.UUID]*models.Role
	assignments map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeRBAC(permissionNames ...string) *fakeRBAC {
	f := &fakeRBAC{
		roles:       make(map[uuid.UUID]*models.Role),
		assignments: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	for _, name := range permissionNames {
		resource, action, _ := strings.Cut(name, ":")
		f.catalog = append(f.catalog, models.Permission{ID: uuid.New(), Name: name, Resource: resource, Action: action})
	}
	return f
}

func (f *fakeRBAC) permissionID(name string) uuid.UUID {
	for _, p := range f.catalog {
		if p.Name == name {
			return p.ID
		}
	}
	return uuid.Nil
}

func (f *fakeRBAC) ListPermissions(context.Context) ([]models.Permission, error) {
	return slices.Clone(f.catalog), nil
}

func (f *fakeRBAC) GetPermissionsByIDs(_ context.Context, ids []uuid.UUID) ([]models.Permission, error) {
	var out []models.Permission
	for _, p := range f.catalog {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRBAC) List(_ context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Role
	for _, r := range f.roles {
		if r.TenantID == tenantID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRBAC) GetByID(_ context.Context, tenantID, roleID uuid.UUID) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok || r.TenantID != tenantID {
		return nil, nil
	}
	cp := *r
	cp.Permissions = slices.Clone(r.Permissions)
	return &cp, nil
}

func (f *fakeRBAC) GetByName(_ context.Context, tenantID uuid.UUID, name string) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.TenantID == tenantID && r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRBAC) Create(_ context.Context, nr models.NewRole) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &models.Role{ID: uuid.New(), TenantID: nr.TenantID, Name: nr.Name, Description: nr.Description, IsSystem: nr.IsSystem}
	for _, p := range f.catalog {
		if slices.Contains(nr.PermissionIDs, p.ID) {
			r.Permissions = append(r.Permissions, p)
		}
	}
	f.roles[r.ID] = r
	cp := *r
	return &cp, nil
}

func (f *fakeRBAC) Update(_ context.Context, tenantID, roleID uuid.UUID, changes models.RoleChanges) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok || r.TenantID != tenantID || r.IsSystem {
		return nil
	}
	if changes.Name != nil {
		r.Name = *changes.Name
	}
	if changes.Description != nil {
		r.Description = changes.Description
	}
	r.Permissions = slices.DeleteFunc(r.Permissions, func(p models.Permission) bool {
		return slices.Contains(changes.Revoke, p.ID)
	})
	for _, p := range f.catalog {
		if slices.Contains(changes.Grant, p.ID) {
			r.Permissions = append(r.Permissions, p)
		}
	}
	return nil
}

func (f *fakeRBAC) Delete(_ context.Context, tenantID, roleID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok || r.TenantID != tenantID || r.IsSystem {
		return false, nil
	}
	delete(f.roles, roleID)
	for _, held := range f.assignments {
		delete(held, roleID)
	}
	return true, nil
}

func (f *fakeRBAC) Assign(_ context.Context, userID, roleID uuid.UUID, _ *uuid.UUID, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignments[userID] == nil {
		f.assignments[userID] = make(map[uuid.UUID]bool)
	}
	f.assignments[userID][roleID] = true
	return nil
}

func (f *fakeRBAC) Remove(_ context.Context, userID, roleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments[userID], roleID)
	return nil
}

func (f *fakeRBAC) ListActive(_ context.Context, tenantID, userID uuid.UUID) ([]models.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RoleAssignment
	for roleID := range f.assignments[userID] {
		r := f.roles[roleID]
		if r == nil || r.TenantID != tenantID {
			continue
		}
		out = append(out, models.RoleAssignment{RoleID: r.ID, Name: r.Name, IsSystem: r.IsSystem})
	}
	return out, nil
}

func (f *fakeRBAC) ListPermissionNames(_ context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for roleID := range f.assignments[userID] {
		r := f.roles[roleID]
		if r == nil || r.TenantID != tenantID {
			continue
		}
		for _, p := range r.Permissions {
			if !slices.Contains(out, p.Name) {
				out = append(out, p.Name)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakeRBAC) ListUserIDsByRole(_ context.Context, tenantID, roleID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.roles[roleID]
	if r == nil || r.TenantID != tenantID {
		return nil, nil
	}
	var out []uuid.UUID
	for userID, held := range f.assignments {
		if held[roleID] {
			out = append(out, userID)
		}
	}
	return out, nil
}

type fakeMetrics struct {
	appts    models.AppointmentCounts
	waitlist models.WaitlistCounts
	active   int
	total    int
	err      error
}

func (f *fakeMetrics) AppointmentCounts(context.Context, uuid.UUID, models.TimeRange) (models.AppointmentCounts, error) {
	return f.appts, f.err
}

func (f *fakeMetrics) WaitlistCounts(context.Context, uuid.UUID, models.TimeRange) (models.WaitlistCounts, error) {
	return f.waitlist, nil
}

func (f *fakeMetrics) CalendarCounts(context.Context, uuid.UUID) (int, int, error) {
	return f.active, f.total, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time
	now     func() time.Time
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{revoked: make(map[uuid.UUID]time.Time), now: time.Now}
}

func (f *fakeTokens) Revoke(_ context.Context, jti, _ uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = expiresAt
	return nil
}

func (f *fakeTokens) IsRevoked(_ context.Context, jti uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.revoked[jti]
	return ok && exp.After(f.now()), nil
}

func (f *fakeTokens) PurgeExpired(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for jti, exp := range f.revoked {
		if !exp.After(f.now()) {
			delete(f.revoked, jti)
			n++
		}
	}
	return n, nil
}
