package models

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistPriority string

const (
	PriorityLow    WaitlistPriority = "low"
	PriorityMedium WaitlistPriority = "medium"
	PriorityHigh   WaitlistPriority = "high"
)

func (p WaitlistPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type WaitlistStatus string

const (
	WaitlistActive    WaitlistStatus = "active"
	WaitlistPromoted  WaitlistStatus = "promoted"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

func (s WaitlistStatus) Valid() bool {
	return s == WaitlistActive || s == WaitlistPromoted || s == WaitlistCancelled
}

type WaitlistEntry struct {
	ID             uuid.UUID        `json:"id"`
	TenantID       uuid.UUID        `json:"tenant_id"`
	ClientUserID   uuid.UUID        `json:"client_user_id"`
	ProviderUserID *uuid.UUID       `json:"provider_user_id,omitempty"`
	Priority       WaitlistPriority `json:"priority"`
	Status         WaitlistStatus   `json:"status"`
	RequestedStart *time.Time       `json:"requested_start,omitempty"`
	RequestedEnd   *time.Time       `json:"requested_end,omitempty"`
	AutoPromote    bool             `json:"auto_promote"`
	Notes          *string          `json:"notes,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	PromotedAt     *time.Time       `json:"promoted_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type NewWaitlistEntry struct {
	TenantID       uuid.UUID
	ClientUserID   uuid.UUID
	ProviderUserID *uuid.UUID
	Priority       WaitlistPriority
	RequestedStart *time.Time
	RequestedEnd   *time.Time
	AutoPromote    bool
	Notes          *string
	Metadata       map[string]any
}

type WaitlistUpdate struct {
	ClientUserID   *uuid.UUID
	ProviderUserID *uuid.UUID
	Priority       *WaitlistPriority
	Status         *WaitlistStatus
	RequestedStart *time.Time
	RequestedEnd   *time.Time
	AutoPromote    *bool
	Notes          *string
	Metadata       map[string]any
	PromotedAt     *time.Time
}

func (u WaitlistUpdate) Empty() bool {
	return u.ClientUserID == nil && u.ProviderUserID == nil && u.Priority == nil && u.Status == nil &&
		u.RequestedStart == nil && u.RequestedEnd == nil && u.AutoPromote == nil && u.Notes == nil &&
		u.Metadata == nil && u.PromotedAt == nil
}

type WaitlistFilter struct {
	Status         *WaitlistStatus
	ProviderUserID *uuid.UUID
	Priority       *WaitlistPriority
}

// DashboardMetrics is the per-tenant overview shown on the admin dashboard.
type DashboardMetrics struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	Range        TimeRange           `json:"range"`
	Appointments AppointmentCounts   `json:"appointments"`
	Waitlist     WaitlistCounts      `json:"waitlist"`
	Utilization  UtilizationSnapshot `json:"utilization"`
}

type AppointmentCounts struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type WaitlistCounts struct {
	Active    int `json:"active"`
	Promoted  int `json:"promoted"`
	Cancelled int `json:"cancelled"`
}

type UtilizationSnapshot struct {
	Percentage            int `json:"percentage"`
	ActiveCalendars       int `json:"active_calendars"`
	TotalCalendars        int `json:"total_calendars"`
	ConfirmedAppointments int `json:"confirmed_appointments"`
}
