// Package worker runs the sweep: every processor over its candidate
// tickets, in fixed precedence order, with per-ticket retry.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/config"
	"github.com/scriptotek/rt-triage/internal/domain"
	"github.com/scriptotek/rt-triage/internal/observability"
	"github.com/scriptotek/rt-triage/internal/processors"
	apperrors "github.com/scriptotek/rt-triage/pkg/util"
)

// Sweeper dispatches tickets to processors for one sweep.
type Sweeper struct {
	processors []processors.Processor
	cfg        config.SweepConfig
	logger     *zap.Logger
	metrics    *observability.SweepMetrics
	sleep      func(time.Duration)
}

// NewSweeper constructs the dispatch loop. Processor order is the global
// precedence order.
func NewSweeper(procs []processors.Processor, cfg config.SweepConfig, logger *zap.Logger, metrics *observability.SweepMetrics) *Sweeper {
	return &Sweeper{
		processors: procs,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		sleep:      time.Sleep,
	}
}

// Run executes one full sweep. Transient failures are retried per ticket
// with exponential backoff; a retry re-runs the whole rule evaluation
// for that ticket, so processors must stay safely re-runnable. Mutation
// refusals are not retried: the ticket stays new and the next scheduled
// sweep picks it up again.
func (s *Sweeper) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))
	logger.Info("sweep started", zap.Int("processors", len(s.processors)))

	claimed := make(map[int]bool)
	for _, processor := range s.processors {
		tickets, err := s.searchWithRetry(ctx, logger, processor)
		if err != nil {
			logger.Error("giving up on processor ticket search",
				zap.String("processor", processor.Name()),
				zap.Error(err),
			)
			continue
		}

		for i := range tickets {
			ticket := &tickets[i]
			if claimed[ticket.ID] {
				continue
			}
			if s.processWithRetry(ctx, logger, processor, ticket) {
				claimed[ticket.ID] = true
			}
			s.sleep(s.cfg.TicketDelay())
		}
	}

	logger.Info("sweep finished", zap.Any("outcomes", s.metrics.Snapshot()))
	return nil
}

func (s *Sweeper) searchWithRetry(ctx context.Context, logger *zap.Logger, processor processors.Processor) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := s.withBackoff(ctx, func() error {
		var err error
		tickets, err = processor.Tickets(ctx)
		return err
	}, func(attempt int, delay time.Duration, err error) {
		logger.Warn("ticket search failed, will retry",
			zap.String("processor", processor.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})
	return tickets, err
}

// processWithRetry runs one processor on one ticket and reports whether
// the ticket was claimed.
func (s *Sweeper) processWithRetry(ctx context.Context, logger *zap.Logger, processor processors.Processor, ticket *domain.Ticket) bool {
	var done bool
	err := s.withBackoff(ctx, func() error {
		var err error
		done, err = processor.ProcessTicket(ctx, ticket)
		return err
	}, func(attempt int, delay time.Duration, err error) {
		logger.Warn("ticket processing failed, will retry",
			zap.String("processor", processor.Name()),
			zap.Int("ticket", ticket.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})

	switch {
	case err == nil && done:
		s.metrics.RecordOutcome(processor.Name(), "claimed")
		return true
	case err == nil:
		s.metrics.RecordOutcome(processor.Name(), "declined")
		return false
	default:
		if apperrors.IsMutationFailed(err) {
			logger.Error("ticket mutation refused",
				zap.String("processor", processor.Name()),
				zap.Int("ticket", ticket.ID),
				zap.Error(err),
			)
		} else {
			logger.Error("giving up on ticket",
				zap.String("processor", processor.Name()),
				zap.Int("ticket", ticket.ID),
				zap.Error(err),
			)
		}
		s.metrics.RecordOutcome(processor.Name(), "failed")
		return false
	}
}

// withBackoff retries fn on transient errors with exponential backoff up
// to the configured attempt count. Other errors return immediately.
func (s *Sweeper) withBackoff(ctx context.Context, fn func() error, onRetry func(attempt int, delay time.Duration, err error)) error {
	delay := s.cfg.RetryBase()
	var err error
	for attempt := 1; attempt <= s.cfg.RetryMaxAttempts; attempt++ {
		if err = fn(); err == nil || !apperrors.IsTransient(err) {
			return err
		}
		if attempt == s.cfg.RetryMaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onRetry(attempt, delay, err)
		s.sleep(delay)
		delay *= 2
		if ceiling := s.cfg.RetryMax(); delay > ceiling {
			delay = ceiling
		}
	}
	return err
}
