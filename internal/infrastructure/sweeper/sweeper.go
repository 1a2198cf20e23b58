package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/balanceledger/internal/usecase"
)

// TickRunner runs one reconciliation pass over all managed wallets.
type TickRunner interface {
	RunTick(ctx context.Context) (*usecase.TickReport, error)
}

// Sweeper drives the deposit reconciliation worker on a fixed interval.
type Sweeper struct {
	runner   TickRunner
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a new Sweeper.
func New(runner TickRunner, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		runner:   runner,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start ticks until ctx is cancelled. A tick never overlaps the next one:
// the interval is measured from the end of the previous tick.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("deposit sweeper started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("deposit sweeper shutting down")
			return ctx.Err()
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	report, err := s.runner.RunTick(ctx)
	switch {
	case errors.Is(err, usecase.ErrTickInProgress):
		s.logger.Debug().Msg("sweep tick skipped, another tick is running")
	case errors.Is(err, usecase.ErrSweepDisabled):
		s.logger.Debug().Msg("sweep disabled")
	case err != nil:
		s.logger.Error().Err(err).Msg("sweep tick failed")
	case report != nil:
		s.logger.Info().
			Int("wallets", report.Wallets).
			Int("forwarded", report.Forwarded).
			Int("failed", report.Failed).
			Int("idle", report.Idle).
			Int("recovered", report.Recovered).
			Int("errors", report.Errors).
			Msg("sweep tick finished")
	}
}
