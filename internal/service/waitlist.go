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

type WaitlistService struct {
	entries repository.WaitlistRepository
	users   repository.UserRepository
	now     func() time.Time
	logger  *zap.Logger
}

func NewWaitlistService(entries repository.WaitlistRepository, users repository.UserRepository, logger *zap.Logger) *WaitlistService {
	return &WaitlistService{entries: entries, users: users, now: time.Now, logger: logger}
}

func validateRequestedWindow(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return apperr.Validation("requested end must be after requested start")
	}
	return nil
}

func (s *WaitlistService) Create(ctx context.Context, in models.NewWaitlistEntry) (*models.WaitlistEntry, error) {
	if in.ClientUserID == uuid.Nil {
		return nil, apperr.Validation("client_user_id is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", in.Priority)
	}
	if err := validateRequestedWindow(in.RequestedStart, in.RequestedEnd); err != nil {
		return nil, err
	}
	if _, err := activeUser(ctx, s.users, in.TenantID, in.ClientUserID, "client"); err != nil {
		return nil, err
	}
	if in.ProviderUserID != nil {
		if _, err := activeUser(ctx, s.users, in.TenantID, *in.ProviderUserID, "provider"); err != nil {
			return nil, err
		}
	}

	entry, err := s.entries.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create waitlist entry: %w", err)
	}
	return entry, nil
}

func (s *WaitlistService) Get(ctx context.Context, tenantID, entryID uuid.UUID) (*models.WaitlistEntry, error) {
	entry, err := s.entries.GetByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}
	if entry == nil {
		return nil, apperr.NotFound("waitlist entry not found")
	}
	return entry, nil
}

func (s *WaitlistService) List(ctx context.Context, tenantID uuid.UUID, filter models.WaitlistFilter) ([]models.WaitlistEntry, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", *filter.Status)
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", *filter.Priority)
	}
	entries, err := s.entries.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	return entries, nil
}

// Update validates the merged requested window and any newly referenced
// users before writing.
func (s *WaitlistService) Update(ctx context.Context, tenantID, entryID uuid.UUID, upd models.WaitlistUpdate) (*models.WaitlistEntry, error) {
	current, err := s.Get(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", *upd.Priority)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", *upd.Status)
	}

	start, end := current.RequestedStart, current.RequestedEnd
	if upd.RequestedStart != nil {
		start = upd.RequestedStart
	}
	if upd.RequestedEnd != nil {
		end = upd.RequestedEnd
	}
	if err := validateRequestedWindow(start, end); err != nil {
		return nil, err
	}

	if upd.ClientUserID != nil {
		if _, err := activeUser(ctx, s.users, tenantID, *upd.ClientUserID, "client"); err != nil {
			return nil, err
		}
	}
	if upd.ProviderUserID != nil {
		if _, err := activeUser(ctx, s.users, tenantID, *upd.ProviderUserID, "provider"); err != nil {
			return nil, err
		}
	}
	return s.write(ctx, tenantID, entryID, upd)
}

func (s *WaitlistService) write(ctx context.Context, tenantID, entryID uuid.UUID, upd models.WaitlistUpdate) (*models.WaitlistEntry, error) {
	entry, err := s.entries.Update(ctx, tenantID, entryID, upd)
	if err != nil {
		return nil, fmt.Errorf("update waitlist entry: %w", err)
	}
	if entry == nil {
		return nil, apperr.NotFound("waitlist entry not found")
	}
	return entry, nil
}

// Promote moves an active entry to promoted.
func (s *WaitlistService) Promote(ctx context.Context, tenantID, entryID uuid.UUID) (*models.WaitlistEntry, error) {
	current, err := s.Get(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.WaitlistActive {
		return nil, apperr.Validation("only active waitlist entries can be promoted")
	}
	status := models.WaitlistPromoted
	now := s.now().UTC()
	entry, err := s.write(ctx, tenantID, entryID, models.WaitlistUpdate{Status: &status, PromotedAt: &now})
	if err != nil {
		return nil, err
	}
	s.logger.Info("waitlist entry promoted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entry_id", entryID.String()),
	)
	return entry, nil
}

// Cancel is idempotent. A non-empty reason is appended to the notes.
func (s *WaitlistService) Cancel(ctx context.Context, tenantID, entryID uuid.UUID, reason string) (*models.WaitlistEntry, error) {
	current, err := s.Get(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.WaitlistCancelled {
		return current, nil
	}

	status := models.WaitlistCancelled
	upd := models.WaitlistUpdate{Status: &status}
	if reason = strings.TrimSpace(reason); reason != "" {
		existing := ""
		if current.Notes != nil {
			existing = *current.Notes
		}
		notes := strings.TrimSpace(existing + "\nCancelled: " + reason)
		upd.Notes = &notes
	}
	return s.write(ctx, tenantID, entryID, upd)
}

func (s *WaitlistService) Delete(ctx context.Context, tenantID, entryID uuid.UUID) error {
	deleted, err := s.entries.Delete(ctx, tenantID, entryID)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	if !deleted {
		return apperr.NotFound("waitlist entry not found")
	}
	return nil
}
