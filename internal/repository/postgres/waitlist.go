package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/models"
)

type WaitlistStore struct {
	pool *pgxpool.Pool
}

func NewWaitlistStore(pool *pgxpool.Pool) *WaitlistStore {
	return &WaitlistStore{pool: pool}
}

const waitlistColumns = `id, tenant_id, client_user_id, provider_user_id, priority, status, requested_start,
	requested_end, auto_promote, notes, metadata, promoted_at, created_at, updated_at`

func scanWaitlistEntry(row pgx.Row) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	if err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.ClientUserID,
		&e.ProviderUserID,
		&e.Priority,
		&e.Status,
		&e.RequestedStart,
		&e.RequestedEnd,
		&e.AutoPromote,
		&e.Notes,
		&e.Metadata,
		&e.PromotedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *WaitlistStore) Create(ctx context.Context, ne models.NewWaitlistEntry) (*models.WaitlistEntry, error) {
	query := `
		INSERT INTO waitlist_entries (tenant_id, client_user_id, provider_user_id, priority, status,
		                              requested_start, requested_end, auto_promote, notes, metadata)
		VALUES ($1, $2, $3, $4, 'active', $5, $6, $7, $8, $9)
		RETURNING ` + waitlistColumns

	e, err := scanWaitlistEntry(s.pool.QueryRow(ctx, query,
		ne.TenantID, ne.ClientUserID, ne.ProviderUserID, ne.Priority, ne.RequestedStart, ne.RequestedEnd,
		ne.AutoPromote, ne.Notes, jsonbParam(ne.Metadata)))
	if err != nil {
		return nil, wrapWrite("insert waitlist entry", err)
	}
	return e, nil
}

func (s *WaitlistStore) GetByID(ctx context.Context, tenantID, entryID uuid.UUID) (*models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE tenant_id = $1 AND id = $2`

	e, err := scanWaitlistEntry(s.pool.QueryRow(ctx, query, tenantID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}
	return e, nil
}

func (s *WaitlistStore) List(ctx context.Context, tenantID uuid.UUID, filter models.WaitlistFilter) ([]models.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE tenant_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::uuid IS NULL OR provider_user_id = $3)
		  AND ($4::text IS NULL OR priority = $4)
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, tenantID, filter.Status, filter.ProviderUserID, filter.Priority)
	if err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waitlist entries: %w", err)
	}
	return entries, nil
}

func (s *WaitlistStore) Update(ctx context.Context, tenantID, entryID uuid.UUID, upd models.WaitlistUpdate) (*models.WaitlistEntry, error) {
	query := `
		UPDATE waitlist_entries
		SET client_user_id = COALESCE($3, client_user_id),
		    provider_user_id = COALESCE($4, provider_user_id),
		    priority = COALESCE($5, priority),
		    status = COALESCE($6, status),
		    requested_start = COALESCE($7, requested_start),
		    requested_end = COALESCE($8, requested_end),
		    auto_promote = COALESCE($9, auto_promote),
		    notes = COALESCE($10, notes),
		    metadata = COALESCE($11, metadata),
		    promoted_at = COALESCE($12, promoted_at),
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + waitlistColumns

	e, err := scanWaitlistEntry(s.pool.QueryRow(ctx, query,
		tenantID, entryID, upd.ClientUserID, upd.ProviderUserID, upd.Priority, upd.Status,
		upd.RequestedStart, upd.RequestedEnd, upd.AutoPromote, upd.Notes, jsonbParam(upd.Metadata), upd.PromotedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapWrite("update waitlist entry", err)
	}
	return e, nil
}

func (s *WaitlistStore) Delete(ctx context.Context, tenantID, entryID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM waitlist_entries WHERE tenant_id = $1 AND id = $2`, tenantID, entryID)
	if err != nil {
		return false, fmt.Errorf("delete waitlist entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
