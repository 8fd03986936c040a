package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
)

// PermissionInvalidator is the cache side of the permission resolver.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, tenantID, userID uuid.UUID)
	InvalidateUsers(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID)
	HoldersOf(ctx context.Context, tenantID, roleID uuid.UUID) ([]uuid.UUID, error)
	InvalidateForRole(ctx context.Context, tenantID, roleID uuid.UUID) error
}

// RoleService administers tenant roles and role assignments. Every change
// that can alter a user's effective permissions invalidates their cached
// permission context.
type RoleService struct {
	roles       repository.RoleRepository
	userRoles   repository.UserRoleRepository
	users       repository.UserRepository
	invalidator PermissionInvalidator
	defaultRole string
	now         func() time.Time
	logger      *zap.Logger
}

func NewRoleService(
	roles repository.RoleRepository,
	userRoles repository.UserRoleRepository,
	users repository.UserRepository,
	invalidator PermissionInvalidator,
	defaultRole string,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		roles:       roles,
		userRoles:   userRoles,
		users:       users,
		invalidator: invalidator,
		defaultRole: defaultRole,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *RoleService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.roles.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

func (s *RoleService) List(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	roles, err := s.roles.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, tenantID, roleID uuid.UUID) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, tenantID, roleID)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	if role == nil {
		return nil, apperr.NotFound("role not found")
	}
	return role, nil
}

// validPermissions dedupes ids and rejects any that are not in the catalog.
func (s *RoleService) validPermissions(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	found, err := s.roles.GetPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}
	if len(found) != len(ids) {
		return nil, apperr.Validation("one or more permissions are invalid")
	}
	return ids, nil
}

func (s *RoleService) ensureRoleNameFree(ctx context.Context, tenantID uuid.UUID, name string) error {
	existing, err := s.roles.GetByName(ctx, tenantID, name)
	if err != nil {
		return fmt.Errorf("get role by name: %w", err)
	}
	if existing != nil {
		return apperr.Conflict("role name already exists")
	}
	return nil
}

func (s *RoleService) Create(ctx context.Context, in models.NewRole) (*models.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(uniqueIDs(in.PermissionIDs)) == 0 {
		return nil, apperr.Validation("at least one permission is required")
	}
	ids, err := s.validPermissions(ctx, in.PermissionIDs)
	if err != nil {
		return nil, err
	}
	in.PermissionIDs = ids
	if err := s.ensureRoleNameFree(ctx, in.TenantID, in.Name); err != nil {
		return nil, err
	}

	role, err := s.roles.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// Update renames, re-describes or replaces the permission set of a custom
// role. The permission set is applied as a diff so unchanged grants keep
// their granted_by and granted_at.
func (s *RoleService) Update(ctx context.Context, tenantID, roleID uuid.UUID, upd models.RoleUpdate) (*models.Role, error) {
	role, err := s.Get(ctx, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, apperr.Validation("system roles cannot be modified")
	}

	changes := models.RoleChanges{Description: upd.Description, GrantedBy: upd.UpdatedBy}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		if name != role.Name {
			if err := s.ensureRoleNameFree(ctx, tenantID, name); err != nil {
				return nil, err
			}
			changes.Name = &name
		}
	}
	if upd.ReplacePerms {
		want, err := s.validPermissions(ctx, upd.PermissionIDs)
		if err != nil {
			return nil, err
		}
		changes.Grant, changes.Revoke = diffPermissions(role.Permissions, want)
	}

	if err := s.roles.Update(ctx, tenantID, roleID, changes); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	if err := s.invalidator.InvalidateForRole(ctx, tenantID, roleID); err != nil {
		s.logger.Warn("could not invalidate role holders",
			zap.String("role_id", roleID.String()),
			zap.Error(err),
		)
	}
	return s.Get(ctx, tenantID, roleID)
}

func diffPermissions(current []models.Permission, want []uuid.UUID) (grant, revoke []uuid.UUID) {
	have := make(map[uuid.UUID]struct{}, len(current))
	for _, p := range current {
		have[p.ID] = struct{}{}
	}
	wanted := make(map[uuid.UUID]struct{}, len(want))
	for _, id := range want {
		wanted[id] = struct{}{}
		if _, ok := have[id]; !ok {
			grant = append(grant, id)
		}
	}
	for _, p := range current {
		if _, ok := wanted[p.ID]; !ok {
			revoke = append(revoke, p.ID)
		}
	}
	return grant, revoke
}

// Delete removes a custom role. Holders are collected before the delete
// because the cascade removes the assignments that identify them.
func (s *RoleService) Delete(ctx context.Context, tenantID, roleID uuid.UUID) error {
	holders, err := s.invalidator.HoldersOf(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	deleted, err := s.roles.Delete(ctx, tenantID, roleID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if !deleted {
		return apperr.NotFound("role not found or cannot be deleted")
	}
	s.invalidator.InvalidateUsers(ctx, tenantID, holders)
	return nil
}

func (s *RoleService) tenantUser(ctx context.Context, tenantID, userID uuid.UUID) error {
	u, err := s.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (s *RoleService) UserRoles(ctx context.Context, tenantID, userID uuid.UUID) ([]models.RoleAssignment, error) {
	if err := s.tenantUser(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	roles, err := s.userRoles.ListActive(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return roles, nil
}

// Assign grants roleID to the user, optionally until expiresAt.
func (s *RoleService) Assign(ctx context.Context, tenantID, userID, roleID uuid.UUID, assignedBy *uuid.UUID, expiresAt *time.Time) error {
	if _, err := s.Get(ctx, tenantID, roleID); err != nil {
		return err
	}
	if err := s.tenantUser(ctx, tenantID, userID); err != nil {
		return err
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return apperr.Validation("expires_at must be in the future")
	}
	if err := s.userRoles.Assign(ctx, userID, roleID, assignedBy, expiresAt); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	s.invalidator.Invalidate(ctx, tenantID, userID)
	return nil
}

func (s *RoleService) Remove(ctx context.Context, tenantID, userID, roleID uuid.UUID) error {
	if _, err := s.Get(ctx, tenantID, roleID); err != nil {
		return err
	}
	if err := s.userRoles.Remove(ctx, userID, roleID); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	s.invalidator.Invalidate(ctx, tenantID, userID)
	return nil
}

// AssignDefault gives a new user the tenant's default role, if the tenant
// has one by that name. A missing default role is not an error.
func (s *RoleService) AssignDefault(ctx context.Context, tenantID, userID uuid.UUID) error {
	_, err := s.AssignByName(ctx, tenantID, userID, s.defaultRole)
	return err
}

// AssignByName assigns the tenant role called name and reports whether such
// a role existed.
func (s *RoleService) AssignByName(ctx context.Context, tenantID, userID uuid.UUID, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	role, err := s.roles.GetByName(ctx, tenantID, name)
	if err != nil {
		return false, fmt.Errorf("get role %s: %w", name, err)
	}
	if role == nil {
		return false, nil
	}
	if err := s.userRoles.Assign(ctx, userID, role.ID, nil, nil); err != nil {
		return false, fmt.Errorf("assign role %s: %w", name, err)
	}
	s.invalidator.Invalidate(ctx, tenantID, userID)
	return true, nil
}

// systemRoles are created for every new tenant. A nil permission list
// grants the whole catalog.
var systemRoles = []struct {
	name        string
	description string
	permissions []string
}{
	{name: "admin", description: "Full access to the tenant", permissions: nil},
	{name: "provider", description: "Runs calendars and attends bookings", permissions: []string{
		"appointments:read", "appointments:create", "appointments:update", "appointments:delete",
		"availability:read", "calendars:read", "skills:read", "groupAppointments:read", "waitlist:read",
	}},
	{name: "client", description: "Books appointments", permissions: []string{
		"appointments:read", "appointments:create", "appointments:delete",
		"availability:read", "calendars:read", "skills:read",
	}},
	{name: "support", description: "Manages the waitlist", permissions: []string{
		"appointments:read", "calendars:read", "waitlist:read", "waitlist:create", "waitlist:manage",
	}},
}

// SystemRoles resolves the system roles of a new tenant against the
// permission catalog without writing anything. A catalog missing one of the
// names a system role needs is an error.
func (s *RoleService) SystemRoles(ctx context.Context, tenantID uuid.UUID) ([]models.NewRole, error) {
	catalog, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uuid.UUID, len(catalog))
	all := make([]uuid.UUID, 0, len(catalog))
	for _, p := range catalog {
		byName[p.Name] = p.ID
		all = append(all, p.ID)
	}

	out := make([]models.NewRole, 0, len(systemRoles))
	for _, sr := range systemRoles {
		ids := all
		if sr.permissions != nil {
			ids = make([]uuid.UUID, 0, len(sr.permissions))
			for _, name := range sr.permissions {
				id, ok := byName[name]
				if !ok {
					return nil, fmt.Errorf("seed role %s: permission %s missing from catalog", sr.name, name)
				}
				ids = append(ids, id)
			}
		}
		description := sr.description
		out = append(out, models.NewRole{
			TenantID:      tenantID,
			Name:          sr.name,
			Description:   &description,
			PermissionIDs: ids,
			IsSystem:      true,
		})
	}
	return out, nil
}
