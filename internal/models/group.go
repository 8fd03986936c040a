package models

import (
	"time"

	"github.com/google/uuid"
)

type GroupAppointmentStatus string

const (
	GroupScheduled GroupAppointmentStatus = "scheduled"
	GroupConfirmed GroupAppointmentStatus = "confirmed"
	GroupCompleted GroupAppointmentStatus = "completed"
	GroupCancelled GroupAppointmentStatus = "cancelled"
)

func (s GroupAppointmentStatus) Valid() bool {
	switch s {
	case GroupScheduled, GroupConfirmed, GroupCompleted, GroupCancelled:
		return true
	}
	return false
}

type ProviderResponse string

const (
	ProviderPending   ProviderResponse = "pending"
	ProviderConfirmed ProviderResponse = "confirmed"
	ProviderDeclined  ProviderResponse = "declined"
)

func (s ProviderResponse) Valid() bool {
	switch s {
	case ProviderPending, ProviderConfirmed, ProviderDeclined:
		return true
	}
	return false
}

type ParticipantResponse string

const (
	ParticipantInvited   ParticipantResponse = "invited"
	ParticipantConfirmed ParticipantResponse = "confirmed"
	ParticipantDeclined  ParticipantResponse = "declined"
	ParticipantCancelled ParticipantResponse = "cancelled"
)

func (s ParticipantResponse) Valid() bool {
	switch s {
	case ParticipantInvited, ParticipantConfirmed, ParticipantDeclined, ParticipantCancelled:
		return true
	}
	return false
}

// GroupAppointment is a session with several providers and participants.
// Providers and Participants keep insertion order.
type GroupAppointment struct {
	ID              uuid.UUID              `json:"id"`
	TenantID        uuid.UUID              `json:"tenant_id"`
	Name            string                 `json:"name"`
	Description     *string                `json:"description,omitempty"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time"`
	DurationMinutes int                    `json:"duration_minutes"`
	MaxParticipants int                    `json:"max_participants"`
	Status          GroupAppointmentStatus `json:"status"`
	CreatedBy       uuid.UUID              `json:"created_by"`
	Metadata        map[string]any         `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Providers       []GroupProvider        `json:"providers"`
	Participants    []GroupParticipant     `json:"participants"`
}

type GroupProvider struct {
	ID                 uuid.UUID        `json:"id"`
	GroupAppointmentID uuid.UUID        `json:"group_appointment_id"`
	ProviderUserID     uuid.UUID        `json:"provider_user_id"`
	CalendarID         *uuid.UUID       `json:"calendar_id,omitempty"`
	Status             ProviderResponse `json:"status"`
	ConfirmedAt        *time.Time       `json:"confirmed_at,omitempty"`
	DeclinedAt         *time.Time       `json:"declined_at,omitempty"`
}

type GroupParticipant struct {
	ID                 uuid.UUID           `json:"id"`
	GroupAppointmentID uuid.UUID           `json:"group_appointment_id"`
	ParticipantUserID  uuid.UUID           `json:"participant_user_id"`
	Status             ParticipantResponse `json:"status"`
	InvitedAt          time.Time           `json:"invited_at"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	DeclinedAt         *time.Time          `json:"declined_at,omitempty"`
	Metadata           map[string]any      `json:"metadata,omitempty"`
}

// ProviderInput is one requested provider. CalendarID is optional; when set
// the provider's calendar is checked for conflicts.
type ProviderInput struct {
	UserID     uuid.UUID
	CalendarID *uuid.UUID
}

type ParticipantInput struct {
	UserID   uuid.UUID
	Metadata map[string]any
}

type NewGroupAppointment struct {
	TenantID        uuid.UUID
	Name            string
	Description     *string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	MaxParticipants int
	CreatedBy       uuid.UUID
	Metadata        map[string]any
	Providers       []ProviderInput
	Participants    []ParticipantInput
}

type GroupAppointmentUpdate struct {
	Name            *string
	Description     *string
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes *int
	MaxParticipants *int
	Status          *GroupAppointmentStatus
	Metadata        map[string]any
}

func (u GroupAppointmentUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.StartTime == nil && u.EndTime == nil &&
		u.DurationMinutes == nil && u.MaxParticipants == nil && u.Status == nil && u.Metadata == nil
}

type GroupAppointmentFilter struct {
	Status            *GroupAppointmentStatus
	ProviderUserID    *uuid.UUID
	ParticipantUserID *uuid.UUID
}
