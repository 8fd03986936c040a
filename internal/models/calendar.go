package models

import (
	"time"

	"github.com/google/uuid"
)

// Calendar is a provider's bookable schedule. Its Timezone is the zone in
// which the weekly availability templates are interpreted.
type Calendar struct {
	ID             uuid.UUID   `json:"id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	ProviderUserID uuid.UUID   `json:"provider_user_id"`
	ServiceType    string      `json:"service_type"`
	Timezone       string      `json:"timezone"`
	IsActive       bool        `json:"is_active"`
	Color          *string     `json:"color,omitempty"`
	SkillIDs       []uuid.UUID `json:"skills"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// HasSkills reports whether the calendar's skill set is a superset of
// required. An empty requirement always matches.
func (c *Calendar) HasSkills(required []uuid.UUID) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[uuid.UUID]struct{}, len(c.SkillIDs))
	for _, id := range c.SkillIDs {
		have[id] = struct{}{}
	}
	for _, id := range required {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

type NewCalendar struct {
	TenantID       uuid.UUID
	ProviderUserID uuid.UUID
	ServiceType    string
	Timezone       string
	IsActive       bool
	Color          *string
	SkillIDs       []uuid.UUID
}

// CalendarUpdate lists the mutable calendar fields. A nil field is left
// unchanged; a non-nil SkillIDs replaces the whole skill set (an empty,
// non-nil slice clears it).
type CalendarUpdate struct {
	ProviderUserID *uuid.UUID
	ServiceType    *string
	Timezone       *string
	IsActive       *bool
	Color          *string
	SkillIDs       []uuid.UUID
	ReplaceSkills  bool
}

func (u CalendarUpdate) Empty() bool {
	return u.ProviderUserID == nil && u.ServiceType == nil && u.Timezone == nil &&
		u.IsActive == nil && u.Color == nil && !u.ReplaceSkills
}

type CalendarFilter struct {
	IsActive       *bool
	ProviderUserID *uuid.UUID
}

// AvailabilitySlot is a weekly recurring window on a calendar: every
// DayOfWeek (0 = Sunday) from StartTime to EndTime in the calendar's zone,
// accepting up to Capacity concurrent bookings.
type AvailabilitySlot struct {
	ID         uuid.UUID      `json:"id"`
	CalendarID uuid.UUID      `json:"calendar_id"`
	DayOfWeek  int            `json:"day_of_week"`
	StartTime  ClockTime      `json:"start_time"`
	EndTime    ClockTime      `json:"end_time"`
	Capacity   int            `json:"capacity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type NewAvailabilitySlot struct {
	CalendarID uuid.UUID
	DayOfWeek  int
	StartTime  ClockTime
	EndTime    ClockTime
	Capacity   int
	Metadata   map[string]any
}

type AvailabilitySlotUpdate struct {
	DayOfWeek *int
	StartTime *ClockTime
	EndTime   *ClockTime
	Capacity  *int
	Metadata  map[string]any
}

// AvailabilityQuery is the input of an availability search.
type AvailabilityQuery struct {
	TenantID        uuid.UUID
	SkillIDs        []uuid.UUID
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Timezone        string
}

// AvailableWindow is one concrete, duration-exact bookable option.
type AvailableWindow struct {
	CalendarID        uuid.UUID   `json:"calendar_id"`
	ProviderUserID    uuid.UUID   `json:"provider_user_id"`
	TenantID          uuid.UUID   `json:"tenant_id"`
	SkillIDs          []uuid.UUID `json:"skills"`
	SlotID            uuid.UUID   `json:"slot_id"`
	Start             time.Time   `json:"start"`
	End               time.Time   `json:"end"`
	Timezone          string      `json:"timezone"`
	Capacity          int         `json:"capacity"`
	AvailableCapacity int         `json:"available_capacity"`
}
