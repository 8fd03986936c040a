package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/models"
)

// MetricsStore runs the aggregate queries behind the admin dashboard.
type MetricsStore struct {
	pool *pgxpool.Pool
}

func NewMetricsStore(pool *pgxpool.Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

// AppointmentCounts counts appointments starting inside window. Confirmed
// includes completed ones: both represent a booking that was honoured.
func (s *MetricsStore) AppointmentCounts(ctx context.Context, tenantID uuid.UUID, window models.TimeRange) (models.AppointmentCounts, error) {
	var c models.AppointmentCounts
	err := s.pool.QueryRow(ctx, `
		SELECT
		    COUNT(*) FILTER (WHERE status <> 'cancelled')::int,
		    COUNT(*) FILTER (WHERE status IN ('pending', 'confirmed') AND start_time >= now())::int,
		    COUNT(*) FILTER (WHERE status = 'pending')::int,
		    COUNT(*) FILTER (WHERE status IN ('confirmed', 'completed'))::int,
		    COUNT(*) FILTER (WHERE status = 'completed')::int,
		    COUNT(*) FILTER (WHERE status = 'cancelled')::int
		FROM appointments
		WHERE tenant_id = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time <= $3)`,
		tenantID, window.Start, window.End,
	).Scan(&c.Total, &c.Upcoming, &c.Pending, &c.Confirmed, &c.Completed, &c.Cancelled)
	if err != nil {
		return models.AppointmentCounts{}, fmt.Errorf("count appointments: %w", err)
	}
	return c, nil
}

func (s *MetricsStore) WaitlistCounts(ctx context.Context, tenantID uuid.UUID, window models.TimeRange) (models.WaitlistCounts, error) {
	var c models.WaitlistCounts
	err := s.pool.QueryRow(ctx, `
		SELECT
		    COUNT(*) FILTER (WHERE status = 'active')::int,
		    COUNT(*) FILTER (WHERE status = 'promoted')::int,
		    COUNT(*) FILTER (WHERE status = 'cancelled')::int
		FROM waitlist_entries
		WHERE tenant_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)`,
		tenantID, window.Start, window.End,
	).Scan(&c.Active, &c.Promoted, &c.Cancelled)
	if err != nil {
		return models.WaitlistCounts{}, fmt.Errorf("count waitlist entries: %w", err)
	}
	return c, nil
}

func (s *MetricsStore) CalendarCounts(ctx context.Context, tenantID uuid.UUID) (active, total int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_active)::int, COUNT(*)::int
		FROM calendars
		WHERE tenant_id = $1`, tenantID,
	).Scan(&active, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count calendars: %w", err)
	}
	return active, total, nil
}
