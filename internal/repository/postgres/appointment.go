package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/models"
)

type AppointmentStore struct {
	pool *pgxpool.Pool
}

func NewAppointmentStore(pool *pgxpool.Pool) *AppointmentStore {
	return &AppointmentStore{pool: pool}
}

const appointmentColumns = `id, tenant_id, calendar_id, client_user_id, start_time, end_time, status,
	required_skills, notes, metadata, created_at, updated_at`

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	if err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.CalendarID,
		&a.ClientUserID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.RequiredSkills,
		&a.Notes,
		&a.Metadata,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]models.Appointment, error) {
	defer rows.Close()
	appts := make([]models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appts, nil
}

func (s *AppointmentStore) Create(ctx context.Context, na models.NewAppointment) (*models.Appointment, error) {
	skills := na.RequiredSkills
	if skills == nil {
		skills = []uuid.UUID{}
	}
	query := `
		INSERT INTO appointments (tenant_id, calendar_id, client_user_id, start_time, end_time, status,
		                          required_skills, notes, metadata)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8)
		RETURNING ` + appointmentColumns

	a, err := scanAppointment(s.pool.QueryRow(ctx, query,
		na.TenantID, na.CalendarID, na.ClientUserID, na.StartTime, na.EndTime,
		skills, na.Notes, jsonbParam(na.Metadata)))
	if err != nil {
		return nil, wrapWrite("insert appointment", err)
	}
	return a, nil
}

func (s *AppointmentStore) GetByID(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE tenant_id = $1 AND id = $2`

	a, err := scanAppointment(s.pool.QueryRow(ctx, query, tenantID, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *AppointmentStore) ListForCalendar(ctx context.Context, tenantID, calendarID uuid.UUID, window models.TimeRange) ([]models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND calendar_id = $2
		  AND ($3::timestamptz IS NULL OR end_time > $3)
		  AND ($4::timestamptz IS NULL OR start_time < $4)
		ORDER BY start_time ASC`

	rows, err := s.pool.Query(ctx, query, tenantID, calendarID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collectAppointments(rows)
}

// FindConflicting uses the negated form of the half-open overlap test:
// [a, b) and [c, d) are disjoint exactly when b <= c or a >= d.
func (s *AppointmentStore) FindConflicting(ctx context.Context, calendarID uuid.UUID, start, end time.Time, ignoreID *uuid.UUID) ([]models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE calendar_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND NOT (end_time <= $2 OR start_time >= $3)
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time ASC`

	rows, err := s.pool.Query(ctx, query, calendarID, start, end, ignoreID)
	if err != nil {
		return nil, fmt.Errorf("find conflicting appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (s *AppointmentStore) ListBlockingForCalendars(ctx context.Context, calendarIDs []uuid.UUID, start, end time.Time) ([]models.Appointment, error) {
	if len(calendarIDs) == 0 {
		return []models.Appointment{}, nil
	}
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE calendar_id = ANY($1)
		  AND status IN ('pending', 'confirmed')
		  AND NOT (end_time <= $2 OR start_time >= $3)
		ORDER BY start_time ASC`

	rows, err := s.pool.Query(ctx, query, calendarIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments for calendars: %w", err)
	}
	return collectAppointments(rows)
}

func (s *AppointmentStore) Update(ctx context.Context, tenantID, appointmentID uuid.UUID, upd models.AppointmentUpdate) (*models.Appointment, error) {
	query := `
		UPDATE appointments
		SET start_time = COALESCE($3, start_time),
		    end_time = COALESCE($4, end_time),
		    status = COALESCE($5, status),
		    notes = COALESCE($6, notes),
		    metadata = COALESCE($7, metadata),
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + appointmentColumns

	a, err := scanAppointment(s.pool.QueryRow(ctx, query,
		tenantID, appointmentID, upd.StartTime, upd.EndTime, upd.Status, upd.Notes, jsonbParam(upd.Metadata)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapWrite("update appointment", err)
	}
	return a, nil
}

func (s *AppointmentStore) Delete(ctx context.Context, tenantID, appointmentID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, appointmentID)
	if err != nil {
		return false, fmt.Errorf("delete appointment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
