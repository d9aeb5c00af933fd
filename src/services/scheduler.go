// backend/src/services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/username/folioboard/backend/src/logger"
)

// Scheduler drives the periodic price refresh that keeps the dashboard's
// quotes moving without the frontend asking for it.
type Scheduler struct {
	service  PortfolioService
	interval time.Duration
	timeout  time.Duration
}

func NewScheduler(service PortfolioService, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{service: service, interval: interval, timeout: timeout}
}

// Run refreshes prices on a fixed ticker until the context is cancelled. An
// individual refresh failure is logged and the ticker keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.L.Info("price refresh scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.L.Info("price refresh scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
			updated, err := s.service.RefreshPrices(refreshCtx)
			cancel()
			if err != nil {
				logger.L.Warn("scheduled price refresh failed", "error", err)
				continue
			}
			logger.L.Debug("scheduled price refresh complete", "updated", updated)
		}
	}
}
