// Package service holds the booking core: availability search, single and
// group appointment validation, and the administrative flows around them.
//
// Services take the tenant ID on every call and return *apperr.Error for
// anything the caller did wrong. Anything else is an internal failure.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
)

const availabilityNamespace = "availability"

func availabilityPattern(tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:*", availabilityNamespace, tenantID)
}

// invalidateAvailability drops every cached search of the tenant. A failure
// is logged and swallowed: stale entries expire on their own TTL.
func invalidateAvailability(ctx context.Context, c cache.Cache, logger *zap.Logger, tenantID uuid.UUID) {
	if err := c.DeletePattern(ctx, availabilityPattern(tenantID)); err != nil {
		logger.Warn("availability cache invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

// activeUser loads a tenant user and rejects missing or inactive ones with a
// validation error naming the role the user was referenced as.
func activeUser(ctx context.Context, users repository.UserRepository, tenantID, userID uuid.UUID, label string) (*models.User, error) {
	u, err := users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", label, err)
	}
	if u == nil {
		return nil, apperr.Validation("%s %s does not belong to this tenant", label, userID)
	}
	if !u.IsActive() {
		return nil, apperr.Validation("%s %s is not active", label, userID)
	}
	return u, nil
}

// dedupeBy keeps the first item for every non-zero key, in input order.
func dedupeBy[T any](items []T, key func(T) uuid.UUID) []T {
	out := make([]T, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		k := key(item)
		if k == uuid.Nil {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	return dedupeBy(ids, func(id uuid.UUID) uuid.UUID { return id })
}

// validateBookingRange enforces end > start and the minimum booking length.
func validateBookingRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("start and end are required")
	}
	if !end.After(start) {
		return apperr.Validation("end time must be after start time")
	}
	if end.Sub(start) < models.MinBookingDuration {
		return apperr.Validation("appointment must be at least %d minutes", int(models.MinBookingDuration/time.Minute))
	}
	return nil
}
