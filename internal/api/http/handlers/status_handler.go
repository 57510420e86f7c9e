package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/domain"
	"github.com/scriptotek/rt-triage/internal/repository"
)

// TicketSearcher is the one ticketing-system operation the status
// service needs.
type TicketSearcher interface {
	Search(ctx context.Context, query domain.Query) ([]domain.Ticket, error)
}

// StatusHandler reports per-queue ticket counts and today's takeaway
// aggregates.
type StatusHandler struct {
	tracker TicketSearcher
	stats   repository.StatsRepository
	queues  []string
	logger  *zap.Logger
}

// NewStatusHandler returns a new handler instance. Stats may be nil when
// the ledger is disabled.
func NewStatusHandler(tracker TicketSearcher, stats repository.StatsRepository, queues []string, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{tracker: tracker, stats: stats, queues: queues, logger: logger}
}

// Status counts unowned new tickets per configured queue and attaches
// today's ledger aggregates.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	ctx := c.UserContext()

	queueCounts := fiber.Map{}
	for _, queue := range h.queues {
		tickets, err := h.tracker.Search(ctx, domain.Query{
			Queue:  queue,
			Status: domain.TicketStatusNew,
			Owner:  "nobody",
		})
		if err != nil {
			h.logger.Error("queue count failed", zap.String("queue", queue), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "UPSTREAM_UNAVAILABLE",
					"message": "ticketing system search failed",
				},
			})
		}
		queueCounts[queue] = len(tickets)
	}

	response := fiber.Map{
		"queues": queueCounts,
	}

	if h.stats != nil {
		daily, err := h.stats.DailyStats(ctx, time.Now())
		if err != nil {
			h.logger.Error("ledger read failed", zap.Error(err))
		} else {
			response["takeaway_today"] = daily
		}
	}

	return c.JSON(response)
}
