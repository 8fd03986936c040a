package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a global catalog entry, named "<resource>:<action>"
// (e.g. "appointments:create").
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description *string   `json:"description,omitempty"`
}

// Role is a tenant-scoped bundle of permissions. System roles are seeded
// and immutable.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	IsSystem    bool         `json:"is_system"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Permissions []Permission `json:"permissions,omitempty"`
}

type NewRole struct {
	TenantID      uuid.UUID
	Name          string
	Description   *string
	PermissionIDs []uuid.UUID
	CreatedBy     *uuid.UUID
	IsSystem      bool
}

type RoleUpdate struct {
	Name          *string
	Description   *string
	PermissionIDs []uuid.UUID
	ReplacePerms  bool
	UpdatedBy     *uuid.UUID
}

// RoleChanges is what the store applies to a role in one transaction: a
// rename or new description plus the permission diff.
type RoleChanges struct {
	Name        *string
	Description *string
	Grant       []uuid.UUID
	Revoke      []uuid.UUID
	GrantedBy   *uuid.UUID
}

// RoleAssignment is a role held by a user, with the assignment's audit
// fields. Expired assignments are never returned by the store.
type RoleAssignment struct {
	RoleID      uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	IsSystem    bool       `json:"is_system"`
	AssignedAt  time.Time  `json:"assigned_at"`
	AssignedBy  *uuid.UUID `json:"assigned_by,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type RoleRef struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsSystem bool      `json:"is_system"`
}

// PermissionContext is the resolved, cacheable view of what a user may do.
type PermissionContext struct {
	Roles       []RoleRef   `json:"roles"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
	Permissions []string    `json:"permissions"`
	CachedAt    time.Time   `json:"cached_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Has reports whether the context grants the named permission.
func (p *PermissionContext) Has(name string) bool {
	for _, perm := range p.Permissions {
		if perm == name {
			return true
		}
	}
	return false
}
