package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/db"
	"github.com/lalith-99/slotbook/internal/models"
)

type GroupAppointmentStore struct {
	pool *pgxpool.Pool
}

func NewGroupAppointmentStore(pool *pgxpool.Pool) *GroupAppointmentStore {
	return &GroupAppointmentStore{pool: pool}
}

// querier is the read surface shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const groupColumns = `id, tenant_id, name, description, start_time, end_time, duration_minutes,
	max_participants, status, created_by, metadata, created_at, updated_at`

func scanGroup(row pgx.Row) (*models.GroupAppointment, error) {
	var g models.GroupAppointment
	if err := row.Scan(
		&g.ID,
		&g.TenantID,
		&g.Name,
		&g.Description,
		&g.StartTime,
		&g.EndTime,
		&g.DurationMinutes,
		&g.MaxParticipants,
		&g.Status,
		&g.CreatedBy,
		&g.Metadata,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	g.StartTime = g.StartTime.UTC()
	g.EndTime = g.EndTime.UTC()
	g.Providers = []models.GroupProvider{}
	g.Participants = []models.GroupParticipant{}
	return &g, nil
}

// loadMembers fills Providers and Participants for every group in one
// round trip per member table.
func loadMembers(ctx context.Context, q querier, groups []*models.GroupAppointment) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(groups))
	byID := make(map[uuid.UUID]*models.GroupAppointment, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		byID[g.ID] = g
	}

	rows, err := q.Query(ctx, `
		SELECT id, group_appointment_id, provider_user_id, calendar_id, status, confirmed_at, declined_at
		FROM group_appointment_providers
		WHERE group_appointment_id = ANY($1)
		ORDER BY position`, ids)
	if err != nil {
		return fmt.Errorf("list group providers: %w", err)
	}
	for rows.Next() {
		var p models.GroupProvider
		if err := rows.Scan(&p.ID, &p.GroupAppointmentID, &p.ProviderUserID, &p.CalendarID,
			&p.Status, &p.ConfirmedAt, &p.DeclinedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan group provider: %w", err)
		}
		g := byID[p.GroupAppointmentID]
		g.Providers = append(g.Providers, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate group providers: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT id, group_appointment_id, participant_user_id, status, invited_at, confirmed_at, declined_at, metadata
		FROM group_appointment_participants
		WHERE group_appointment_id = ANY($1)
		ORDER BY position`, ids)
	if err != nil {
		return fmt.Errorf("list group participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.GroupParticipant
		if err := rows.Scan(&p.ID, &p.GroupAppointmentID, &p.ParticipantUserID, &p.Status,
			&p.InvitedAt, &p.ConfirmedAt, &p.DeclinedAt, &p.Metadata); err != nil {
			return fmt.Errorf("scan group participant: %w", err)
		}
		g := byID[p.GroupAppointmentID]
		g.Participants = append(g.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate group participants: %w", err)
	}
	return nil
}

func getGroup(ctx context.Context, q querier, tenantID, groupID uuid.UUID) (*models.GroupAppointment, error) {
	g, err := scanGroup(q.QueryRow(ctx, `SELECT `+groupColumns+` FROM group_appointments WHERE tenant_id = $1 AND id = $2`, tenantID, groupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group appointment: %w", err)
	}
	if err := loadMembers(ctx, q, []*models.GroupAppointment{g}); err != nil {
		return nil, err
	}
	return g, nil
}

// Create writes the group, its providers and its participants in a single
// transaction. If any insert fails nothing is left behind.
func (s *GroupAppointmentStore) Create(ctx context.Context, ng models.NewGroupAppointment) (*models.GroupAppointment, error) {
	var created *models.GroupAppointment
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO group_appointments (tenant_id, name, description, start_time, end_time, duration_minutes,
			                                max_participants, status, created_by, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9)
			RETURNING id`,
			ng.TenantID, ng.Name, ng.Description, ng.StartTime, ng.EndTime, ng.DurationMinutes,
			ng.MaxParticipants, ng.CreatedBy, jsonbParam(ng.Metadata),
		).Scan(&id)
		if err != nil {
			return wrapWrite("insert group appointment", err)
		}

		batch := &pgx.Batch{}
		for i, p := range ng.Providers {
			batch.Queue(`
				INSERT INTO group_appointment_providers (group_appointment_id, provider_user_id, calendar_id, status, position)
				VALUES ($1, $2, $3, 'pending', $4)`, id, p.UserID, p.CalendarID, i)
		}
		for i, p := range ng.Participants {
			batch.Queue(`
				INSERT INTO group_appointment_participants (group_appointment_id, participant_user_id, status, metadata, position)
				VALUES ($1, $2, 'invited', $3, $4)`, id, p.UserID, jsonbParam(p.Metadata), i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return wrapWrite("insert group members", err)
		}

		created, err = getGroup(ctx, tx, ng.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *GroupAppointmentStore) GetByID(ctx context.Context, tenantID, groupID uuid.UUID) (*models.GroupAppointment, error) {
	return getGroup(ctx, s.pool, tenantID, groupID)
}

func (s *GroupAppointmentStore) List(ctx context.Context, tenantID uuid.UUID, filter models.GroupAppointmentFilter) ([]models.GroupAppointment, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM group_appointments g
		WHERE g.tenant_id = $1
		  AND ($2::text IS NULL OR g.status = $2)
		  AND ($3::uuid IS NULL OR EXISTS (
		      SELECT 1 FROM group_appointment_providers p
		      WHERE p.group_appointment_id = g.id AND p.provider_user_id = $3))
		  AND ($4::uuid IS NULL OR EXISTS (
		      SELECT 1 FROM group_appointment_participants p
		      WHERE p.group_appointment_id = g.id AND p.participant_user_id = $4))
		ORDER BY g.start_time ASC`

	rows, err := s.pool.Query(ctx, query, tenantID, filter.Status, filter.ProviderUserID, filter.ParticipantUserID)
	if err != nil {
		return nil, fmt.Errorf("list group appointments: %w", err)
	}
	groups := make([]*models.GroupAppointment, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group appointment: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group appointments: %w", err)
	}

	if err := loadMembers(ctx, s.pool, groups); err != nil {
		return nil, err
	}
	out := make([]models.GroupAppointment, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out, nil
}

func (s *GroupAppointmentStore) Update(ctx context.Context, tenantID, groupID uuid.UUID, upd models.GroupAppointmentUpdate) (*models.GroupAppointment, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_appointments
		SET name = COALESCE($3, name),
		    description = COALESCE($4, description),
		    start_time = COALESCE($5, start_time),
		    end_time = COALESCE($6, end_time),
		    duration_minutes = COALESCE($7, duration_minutes),
		    max_participants = COALESCE($8, max_participants),
		    status = COALESCE($9, status),
		    metadata = COALESCE($10, metadata),
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, groupID, upd.Name, upd.Description, upd.StartTime, upd.EndTime,
		upd.DurationMinutes, upd.MaxParticipants, upd.Status, jsonbParam(upd.Metadata))
	if err != nil {
		return nil, wrapWrite("update group appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return getGroup(ctx, s.pool, tenantID, groupID)
}

func (s *GroupAppointmentStore) UpdateProviderStatus(ctx context.Context, groupID, providerUserID uuid.UUID, status models.ProviderResponse) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_appointment_providers
		SET status = $3,
		    confirmed_at = CASE WHEN $3 = 'confirmed' THEN now() ELSE confirmed_at END,
		    declined_at = CASE WHEN $3 = 'declined' THEN now() ELSE declined_at END
		WHERE group_appointment_id = $1 AND provider_user_id = $2`,
		groupID, providerUserID, string(status))
	if err != nil {
		return false, fmt.Errorf("update provider status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *GroupAppointmentStore) UpdateParticipantStatus(ctx context.Context, groupID, participantUserID uuid.UUID, status models.ParticipantResponse, metadata map[string]any) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_appointment_participants
		SET status = $3,
		    confirmed_at = CASE WHEN $3 = 'confirmed' THEN now() ELSE confirmed_at END,
		    declined_at = CASE WHEN $3 IN ('declined', 'cancelled') THEN now() ELSE declined_at END,
		    metadata = COALESCE($4, metadata)
		WHERE group_appointment_id = $1 AND participant_user_id = $2`,
		groupID, participantUserID, string(status), jsonbParam(metadata))
	if err != nil {
		return false, fmt.Errorf("update participant status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete relies on ON DELETE CASCADE for providers and participants.
func (s *GroupAppointmentStore) Delete(ctx context.Context, tenantID, groupID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM group_appointments WHERE tenant_id = $1 AND id = $2`, tenantID, groupID)
	if err != nil {
		return false, fmt.Errorf("delete group appointment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
