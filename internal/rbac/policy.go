package rbac

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/models"
)

type Mode int

const (
	// All requires every listed permission.
	All Mode = iota
	// Any requires at least one listed permission.
	Any
)

// Subject is the authenticated caller a policy is evaluated for. Role is the
// legacy role carried on the user record.
type Subject struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     string
}

// AccessPolicy is one of PermissionCheck, LegacyRoleOverride or Both.
type AccessPolicy interface {
	permissionCheck() *PermissionCheck
	legacyOverride() *LegacyRoleOverride
}

// PermissionCheck grants access from the resolved RBAC permission set.
type PermissionCheck struct {
	Mode  Mode
	Names []string
}

// LegacyRoleOverride grants access to users whose legacy role is listed,
// without consulting role assignments.
//
// Deprecated: kept for tenants still provisioned with legacy roles only.
// Scheduled for removal in API v2; new routes use PermissionCheck.
type LegacyRoleOverride struct {
	Roles []string
}

// Both grants access when either path does.
type Both struct {
	Check    PermissionCheck
	Override LegacyRoleOverride
}

func (p PermissionCheck) permissionCheck() *PermissionCheck { return &p }
func (PermissionCheck) legacyOverride() *LegacyRoleOverride { return nil }
func (LegacyRoleOverride) permissionCheck() *PermissionCheck { return nil }
func (p LegacyRoleOverride) legacyOverride() *LegacyRoleOverride { return &p }
func (p Both) permissionCheck() *PermissionCheck { return &p.Check }
func (p Both) legacyOverride() *LegacyRoleOverride { return &p.Override }

// Require builds the usual route policy: the named permissions in mode, or
// one of the legacy roles. With no legacy roles it is a plain check.
func Require(mode Mode, names []string, legacyRoles ...string) AccessPolicy {
	check := PermissionCheck{Mode: mode, Names: names}
	if len(legacyRoles) == 0 {
		return check
	}
	return Both{Check: check, Override: LegacyRoleOverride{Roles: legacyRoles}}
}

func (p PermissionCheck) satisfiedBy(pc *models.PermissionContext) bool {
	if p.Mode == Any {
		return HasAny(pc, p.Names)
	}
	return HasAll(pc, p.Names)
}

func (p LegacyRoleOverride) admits(role string) bool {
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ContextSource resolves permission contexts; *Resolver implements it.
type ContextSource interface {
	Context(ctx context.Context, tenantID, userID uuid.UUID) (*models.PermissionContext, error)
}

// Authorize evaluates policy for s. The legacy override is checked first and
// needs no lookup; the permission context is only resolved when the policy
// carries a permission check and the override did not already admit s.
func Authorize(ctx context.Context, src ContextSource, policy AccessPolicy, s Subject) (bool, error) {
	if o := policy.legacyOverride(); o != nil && o.admits(s.Role) {
		return true, nil
	}
	check := policy.permissionCheck()
	if check == nil {
		return false, nil
	}
	pc, err := src.Context(ctx, s.TenantID, s.UserID)
	if err != nil {
		return false, err
	}
	return check.satisfiedBy(pc), nil
}
