package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"golang.org/x/sync/errgroup"
)

type MetricsService struct {
	repo repository.MetricsRepository
	now  func() time.Time
}

func NewMetricsService(repo repository.MetricsRepository) *MetricsService {
	return &MetricsService{repo: repo, now: time.Now}
}

// Dashboard gathers the tenant overview for appointments starting, and
// waitlist entries created, inside window.
func (s *MetricsService) Dashboard(ctx context.Context, tenantID uuid.UUID, window models.TimeRange) (*models.DashboardMetrics, error) {
	if window.Start != nil && window.End != nil && window.End.Before(*window.Start) {
		return nil, apperr.Validation("end must not be before start")
	}

	var (
		appts      models.AppointmentCounts
		waitlist   models.WaitlistCounts
		activeCals int
		totalCals  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appts, err = s.repo.AppointmentCounts(gctx, tenantID, window)
		return err
	})
	g.Go(func() error {
		var err error
		waitlist, err = s.repo.WaitlistCounts(gctx, tenantID, window)
		return err
	})
	g.Go(func() error {
		var err error
		activeCals, totalCals, err = s.repo.CalendarCounts(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard metrics: %w", err)
	}

	return &models.DashboardMetrics{
		GeneratedAt:  s.now().UTC(),
		Range:        window,
		Appointments: appts,
		Waitlist:     waitlist,
		Utilization: models.UtilizationSnapshot{
			Percentage:            utilization(appts.Confirmed, appts.Total),
			ActiveCalendars:       activeCals,
			TotalCalendars:        totalCals,
			ConfirmedAppointments: appts.Confirmed,
		},
	}, nil
}

// utilization is confirmed over total as a whole percentage in [0, 100].
func utilization(confirmed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(confirmed) / float64(total) * 100))
	return min(100, max(0, pct))
}
