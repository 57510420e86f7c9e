package observability

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SweepMetrics counts per-processor outcomes during one sweep.
type SweepMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int64
}

// NewSweepMetrics initializes metrics storage.
func NewSweepMetrics() *SweepMetrics {
	return &SweepMetrics{
		outcomes: make(map[string]int64),
	}
}

// RecordOutcome increments the counter for one processor outcome
// (claimed, declined, failed).
func (m *SweepMetrics) RecordOutcome(processor, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[processor+"|"+outcome]++
}

// Snapshot returns a copy of the accumulated counters.
func (m *SweepMetrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.outcomes))
	for k, v := range m.outcomes {
		out[k] = v
	}
	return out
}

// RequestLogger returns a fiber middleware logging each request.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	}
}
