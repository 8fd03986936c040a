package models

import (
	"time"

	"github.com/google/uuid"
)

// MinBookingDuration is the scheduling granularity: no availability slot,
// appointment, or search duration may be shorter than this.
const MinBookingDuration = 15 * time.Minute

// MaxSearchDuration bounds the duration of a searched window. No weekly slot
// can hold anything longer.
const MaxSearchDuration = 7 * 24 * time.Hour

// Tenant is the top-level isolation boundary (a clinic, a salon chain...).
// Every calendar, appointment, role and waitlist entry belongs to exactly one
// tenant, and no query ever crosses that line.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a person within a tenant: an admin, a provider whose calendar is
// booked, or a client who books.
//
// Role is the legacy coarse role stored on the user row ("admin",
// "provider", "user", "client"). Fine-grained access goes through RBAC role
// assignments; Role only feeds the legacy override in the access policy.
type User struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	Status       UserStatus `json:"status"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

type NewUser struct {
	TenantID     uuid.UUID
	Email        string
	DisplayName  string
	Role         string
	Status       UserStatus
	PasswordHash string
}

// TenantBootstrap is everything signup writes: the tenant, its first user,
// the system roles, and the assignment of AdminRole to that user. Admin's
// TenantID and the roles' TenantID are filled in by the store.
type TenantBootstrap struct {
	TenantName string
	Admin      NewUser
	Roles      []NewRole
	AdminRole  string
}

// Skill is a tenant-defined tag (e.g. "pediatrics", "spanish") attached to
// calendars and required by appointments.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Category    *string   `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SkillUpdate struct {
	Name        *string
	Category    *string
	Description *string
}

func (u SkillUpdate) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Description == nil
}

// SkillFilter narrows a skill listing. Search matches the name
// case-insensitively; a zero Limit means no limit.
type SkillFilter struct {
	Search string
	Limit  int
	Offset int
}

// Overlaps reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
