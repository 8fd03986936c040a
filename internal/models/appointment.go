package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status occupies its
// calendar for conflict detection.
func (s AppointmentStatus) Blocking() bool {
	return s == AppointmentPending || s == AppointmentConfirmed
}

// Appointment is a single booked range on one calendar. Start and End are
// UTC instants; End is exclusive.
type Appointment struct {
	ID             uuid.UUID         `json:"id"`
	TenantID       uuid.UUID         `json:"tenant_id"`
	CalendarID     uuid.UUID         `json:"calendar_id"`
	ClientUserID   uuid.UUID         `json:"client_user_id"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	Status         AppointmentStatus `json:"status"`
	RequiredSkills []uuid.UUID       `json:"required_skills"`
	Notes          *string           `json:"notes,omitempty"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type NewAppointment struct {
	TenantID       uuid.UUID
	CalendarID     uuid.UUID
	ClientUserID   uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	RequiredSkills []uuid.UUID
	Notes          *string
	Metadata       map[string]any
}

// AppointmentUpdate carries only the fields a caller wants to change.
// nil means "leave as is", never "set to null".
type AppointmentUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Status    *AppointmentStatus
	Notes     *string
	Metadata  map[string]any
}

func (u AppointmentUpdate) Empty() bool {
	return u.StartTime == nil && u.EndTime == nil && u.Status == nil && u.Notes == nil && u.Metadata == nil
}

// TimeRange is an optional [Start, End) window used by list queries.
type TimeRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}
