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

type CalendarStore struct {
	pool *pgxpool.Pool
}

func NewCalendarStore(pool *pgxpool.Pool) *CalendarStore {
	return &CalendarStore{pool: pool}
}

// Skills keep the order they were attached in.
const calendarSelect = `
	SELECT c.id, c.tenant_id, c.provider_user_id, c.service_type, c.timezone,
	       c.is_active, c.color, c.created_at, c.updated_at,
	       COALESCE((
	           SELECT array_agg(cs.skill_id ORDER BY cs.position)
	           FROM calendar_skills cs
	           WHERE cs.calendar_id = c.id
	       ), '{}') AS skills
	FROM calendars c`

func scanCalendar(row pgx.Row) (*models.Calendar, error) {
	var cal models.Calendar
	if err := row.Scan(
		&cal.ID,
		&cal.TenantID,
		&cal.ProviderUserID,
		&cal.ServiceType,
		&cal.Timezone,
		&cal.IsActive,
		&cal.Color,
		&cal.CreatedAt,
		&cal.UpdatedAt,
		&cal.SkillIDs,
	); err != nil {
		return nil, err
	}
	return &cal, nil
}

func collectCalendars(rows pgx.Rows) ([]models.Calendar, error) {
	defer rows.Close()
	calendars := make([]models.Calendar, 0)
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		calendars = append(calendars, *cal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendars: %w", err)
	}
	return calendars, nil
}

func getCalendar(ctx context.Context, q pgx.Tx, tenantID, calendarID uuid.UUID) (*models.Calendar, error) {
	return scanCalendar(q.QueryRow(ctx, calendarSelect+` WHERE c.tenant_id = $1 AND c.id = $2`, tenantID, calendarID))
}

func replaceCalendarSkills(ctx context.Context, tx pgx.Tx, calendarID uuid.UUID, skillIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM calendar_skills WHERE calendar_id = $1`, calendarID); err != nil {
		return fmt.Errorf("clear calendar skills: %w", err)
	}
	if len(skillIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO calendar_skills (calendar_id, skill_id, position)
		SELECT $1, s.id, s.ord
		FROM unnest($2::uuid[]) WITH ORDINALITY AS s(id, ord)`,
		calendarID, skillIDs)
	if err != nil {
		return wrapWrite("insert calendar skills", err)
	}
	return nil
}

func (s *CalendarStore) Create(ctx context.Context, nc models.NewCalendar) (*models.Calendar, error) {
	var created *models.Calendar
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO calendars (tenant_id, provider_user_id, service_type, timezone, is_active, color)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			nc.TenantID, nc.ProviderUserID, nc.ServiceType, nc.Timezone, nc.IsActive, nc.Color,
		).Scan(&id)
		if err != nil {
			return wrapWrite("insert calendar", err)
		}
		if err := replaceCalendarSkills(ctx, tx, id, nc.SkillIDs); err != nil {
			return err
		}
		created, err = getCalendar(ctx, tx, nc.TenantID, id)
		if err != nil {
			return fmt.Errorf("reload calendar: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *CalendarStore) GetByID(ctx context.Context, tenantID, calendarID uuid.UUID) (*models.Calendar, error) {
	cal, err := scanCalendar(s.pool.QueryRow(ctx, calendarSelect+` WHERE c.tenant_id = $1 AND c.id = $2`, tenantID, calendarID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return cal, nil
}

func (s *CalendarStore) List(ctx context.Context, tenantID uuid.UUID, filter models.CalendarFilter) ([]models.Calendar, error) {
	query := calendarSelect + `
		WHERE c.tenant_id = $1
		  AND ($2::boolean IS NULL OR c.is_active = $2)
		  AND ($3::uuid IS NULL OR c.provider_user_id = $3)
		ORDER BY c.created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID, filter.IsActive, filter.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return collectCalendars(rows)
}

func (s *CalendarStore) ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Calendar, error) {
	rows, err := s.pool.Query(ctx, calendarSelect+` WHERE c.tenant_id = $1 AND c.is_active ORDER BY c.created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active calendars: %w", err)
	}
	return collectCalendars(rows)
}

func (s *CalendarStore) Update(ctx context.Context, tenantID, calendarID uuid.UUID, upd models.CalendarUpdate) (*models.Calendar, error) {
	var updated *models.Calendar
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE calendars
			SET provider_user_id = COALESCE($3, provider_user_id),
			    service_type = COALESCE($4, service_type),
			    timezone = COALESCE($5, timezone),
			    is_active = COALESCE($6, is_active),
			    color = COALESCE($7, color),
			    updated_at = now()
			WHERE tenant_id = $1 AND id = $2`,
			tenantID, calendarID, upd.ProviderUserID, upd.ServiceType, upd.Timezone, upd.IsActive, upd.Color)
		if err != nil {
			return wrapWrite("update calendar", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if upd.ReplaceSkills {
			if err := replaceCalendarSkills(ctx, tx, calendarID, upd.SkillIDs); err != nil {
				return err
			}
		}
		updated, err = getCalendar(ctx, tx, tenantID, calendarID)
		if err != nil {
			return fmt.Errorf("reload calendar: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CalendarStore) Delete(ctx context.Context, tenantID, calendarID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM calendars WHERE tenant_id = $1 AND id = $2`, tenantID, calendarID)
	if err != nil {
		return false, fmt.Errorf("delete calendar: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
