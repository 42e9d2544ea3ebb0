package assignment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/wardd/internal/platform/metrics"
)

// Sweeper periodically force-releases assignments that exceeded the
// maximum holding duration. It runs on a wall-clock ticker so staleness
// stays bounded even with no read traffic.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	maxHold  time.Duration
	logger   zerolog.Logger
}

func NewSweeper(svc *Service, interval, maxHold time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, maxHold: maxHold, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval. Call it
// from its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("max_hold", s.maxHold).
		Msg("expiry sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single expiry pass. Also used by the sweep CLI
// command and the admin endpoint.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	released, err := s.svc.ReleaseExpired(ctx, s.maxHold)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Int("released", released).Msg("sweep pass finished with errors")
		return released
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	if released > 0 {
		s.logger.Info().Int("released", released).Msg("sweep pass released expired assignments")
	}
	return released
}
