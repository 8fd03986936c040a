package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/models"
)

type AvailabilityStore struct {
	pool *pgxpool.Pool
}

func NewAvailabilityStore(pool *pgxpool.Pool) *AvailabilityStore {
	return &AvailabilityStore{pool: pool}
}

const slotColumns = `id, calendar_id, day_of_week, start_time, end_time, capacity, metadata, created_at, updated_at`

// Postgres TIME columns travel as microseconds since midnight.
func clockParam(c models.ClockTime) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Second/time.Microsecond), Valid: true}
}

func clockValue(t pgtype.Time) models.ClockTime {
	return models.ClockTime(t.Microseconds / int64(time.Second/time.Microsecond))
}

func scanSlot(row pgx.Row) (*models.AvailabilitySlot, error) {
	var (
		slot       models.AvailabilitySlot
		start, end pgtype.Time
	)
	if err := row.Scan(
		&slot.ID,
		&slot.CalendarID,
		&slot.DayOfWeek,
		&start,
		&end,
		&slot.Capacity,
		&slot.Metadata,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	); err != nil {
		return nil, err
	}
	slot.StartTime = clockValue(start)
	slot.EndTime = clockValue(end)
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]models.AvailabilitySlot, error) {
	defer rows.Close()
	slots := make([]models.AvailabilitySlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability slots: %w", err)
	}
	return slots, nil
}

func (s *AvailabilityStore) Create(ctx context.Context, ns models.NewAvailabilitySlot) (*models.AvailabilitySlot, error) {
	query := `
		INSERT INTO availability_slots (calendar_id, day_of_week, start_time, end_time, capacity, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + slotColumns

	slot, err := scanSlot(s.pool.QueryRow(ctx, query,
		ns.CalendarID, ns.DayOfWeek, clockParam(ns.StartTime), clockParam(ns.EndTime), ns.Capacity, jsonbParam(ns.Metadata)))
	if err != nil {
		return nil, wrapWrite("insert availability slot", err)
	}
	return slot, nil
}

func (s *AvailabilityStore) GetByID(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id = $1`, slotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability slot: %w", err)
	}
	return slot, nil
}

func (s *AvailabilityStore) ListByCalendar(ctx context.Context, calendarID uuid.UUID) ([]models.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE calendar_id = $1
		ORDER BY day_of_week, start_time`

	rows, err := s.pool.Query(ctx, query, calendarID)
	if err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return collectSlots(rows)
}

func (s *AvailabilityStore) ListForCalendars(ctx context.Context, calendarIDs []uuid.UUID) ([]models.AvailabilitySlot, error) {
	if len(calendarIDs) == 0 {
		return []models.AvailabilitySlot{}, nil
	}
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE calendar_id = ANY($1)
		ORDER BY calendar_id, day_of_week, start_time`

	rows, err := s.pool.Query(ctx, query, calendarIDs)
	if err != nil {
		return nil, fmt.Errorf("list slots for calendars: %w", err)
	}
	return collectSlots(rows)
}

func (s *AvailabilityStore) Update(ctx context.Context, slot models.AvailabilitySlot) (*models.AvailabilitySlot, error) {
	query := `
		UPDATE availability_slots
		SET day_of_week = $2, start_time = $3, end_time = $4, capacity = $5, metadata = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + slotColumns

	updated, err := scanSlot(s.pool.QueryRow(ctx, query,
		slot.ID, slot.DayOfWeek, clockParam(slot.StartTime), clockParam(slot.EndTime), slot.Capacity, jsonbParam(slot.Metadata)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapWrite("update availability slot", err)
	}
	return updated, nil
}

func (s *AvailabilityStore) Delete(ctx context.Context, slotID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, slotID); err != nil {
		return fmt.Errorf("delete availability slot: %w", err)
	}
	return nil
}
