// Package rbac resolves what a user may do inside a tenant.
//
// A user's effective permissions are the union of the permissions of every
// unexpired role assigned to them. The resolved PermissionContext is cached
// per (tenant, user) and must be invalidated whenever an assignment or a
// role's permission set changes.
package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Key identifies one cached permission context.
type Key struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

func (k Key) String() string {
	return fmt.Sprintf("rbac:tenant:%s:user:%s", k.TenantID, k.UserID)
}

// Store is the slice of the role-assignment repository the resolver reads.
type Store interface {
	ListActive(ctx context.Context, tenantID, userID uuid.UUID) ([]models.RoleAssignment, error)
	ListPermissionNames(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error)
	ListUserIDsByRole(ctx context.Context, tenantID, roleID uuid.UUID) ([]uuid.UUID, error)
}

type Options struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type Resolver struct {
	store   Store
	cache   cache.Cache
	enabled bool
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewResolver(store Store, c cache.Cache, opts Options, logger *zap.Logger) *Resolver {
	if c == nil {
		c = cache.Noop{}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{
		store:   store,
		cache:   c,
		enabled: opts.CacheEnabled,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Context returns the user's permission context, from cache when a fresh
// entry exists. Cache failures are logged and treated as misses.
func (r *Resolver) Context(ctx context.Context, tenantID, userID uuid.UUID) (*models.PermissionContext, error) {
	key := Key{TenantID: tenantID, UserID: userID}

	if r.enabled {
		var cached models.PermissionContext
		hit, err := r.cache.Get(ctx, key.String(), &cached)
		if err != nil {
			r.logger.Warn("permission cache read failed", zap.String("key", key.String()), zap.Error(err))
		}
		if hit && cached.ExpiresAt.After(r.now()) {
			return &cached, nil
		}
	}

	var (
		assignments []models.RoleAssignment
		permissions []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assignments, err = r.store.ListActive(gctx, tenantID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		permissions, err = r.store.ListPermissionNames(gctx, tenantID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}

	// The entry must not outlive the first assignment to lapse, or the
	// lapsed role keeps granting until the TTL runs out.
	now := r.now().UTC()
	expires := now.Add(r.ttl)
	for _, a := range assignments {
		if a.ExpiresAt != nil && a.ExpiresAt.Before(expires) {
			expires = a.ExpiresAt.UTC()
		}
	}

	pc := &models.PermissionContext{
		Roles:       make([]models.RoleRef, 0, len(assignments)),
		RoleIDs:     make([]uuid.UUID, 0, len(assignments)),
		Permissions: permissions,
		CachedAt:    now,
		ExpiresAt:   expires,
	}
	if pc.Permissions == nil {
		pc.Permissions = []string{}
	}
	for _, a := range assignments {
		pc.Roles = append(pc.Roles, models.RoleRef{ID: a.RoleID, Name: a.Name, IsSystem: a.IsSystem})
		pc.RoleIDs = append(pc.RoleIDs, a.RoleID)
	}

	if ttl := expires.Sub(now); r.enabled && ttl > 0 {
		if err := r.cache.Set(ctx, key.String(), pc, ttl); err != nil {
			r.logger.Warn("permission cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
	return pc, nil
}

// HasAll reports whether the user holds every permission in required.
func (r *Resolver) HasAll(ctx context.Context, tenantID, userID uuid.UUID, required ...string) (bool, error) {
	pc, err := r.Context(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	return HasAll(pc, required), nil
}

// HasAny reports whether the user holds at least one permission in required.
func (r *Resolver) HasAny(ctx context.Context, tenantID, userID uuid.UUID, required ...string) (bool, error) {
	pc, err := r.Context(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	return HasAny(pc, required), nil
}

// Invalidate drops the cached context of one user.
func (r *Resolver) Invalidate(ctx context.Context, tenantID, userID uuid.UUID) {
	r.InvalidateUsers(ctx, tenantID, []uuid.UUID{userID})
}

func (r *Resolver) InvalidateUsers(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = Key{TenantID: tenantID, UserID: id}.String()
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("permission cache invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("users", len(keys)),
			zap.Error(err),
		)
	}
}

// HoldersOf returns the users currently holding roleID. Callers about to
// delete a role must collect holders first: the assignments are gone after.
func (r *Resolver) HoldersOf(ctx context.Context, tenantID, roleID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := r.store.ListUserIDsByRole(ctx, tenantID, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role holders: %w", err)
	}
	return ids, nil
}

// InvalidateForRole drops the cached context of every current holder of
// roleID.
func (r *Resolver) InvalidateForRole(ctx context.Context, tenantID, roleID uuid.UUID) error {
	holders, err := r.HoldersOf(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	r.InvalidateUsers(ctx, tenantID, holders)
	return nil
}

// HasAll is true when pc grants every name in required. An empty
// requirement is satisfied by anyone.
func HasAll(pc *models.PermissionContext, required []string) bool {
	for _, name := range required {
		if pc == nil || !pc.Has(name) {
			return false
		}
	}
	return true
}

// HasAny is true when pc grants at least one name in required. An empty
// requirement is satisfied by anyone.
func HasAny(pc *models.PermissionContext, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if pc == nil {
		return false
	}
	for _, name := range required {
		if pc.Has(name) {
			return true
		}
	}
	return false
}
