package processors

import (
	"context"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/domain"
)

const cccSender = "no-reply@copyright.com"

// CccReceipts auto-resolves delivery receipts from the Copyright
// Clearance Center and tags them with the CccGetItNow custom field.
type CccReceipts struct {
	base
}

// NewCccReceipts constructs the processor.
func NewCccReceipts(rt Tracker, logger *zap.Logger) *CccReceipts {
	return &CccReceipts{
		base: base{
			name:   "ccc",
			rt:     rt,
			logger: logger,
			queries: []domain.Query{
				{Queue: "ub-brukerhenvendelser", Status: domain.TicketStatusNew},
			},
		},
	}
}

// ProcessTicket resolves and tags tickets sent by the CCC no-reply
// address.
func (p *CccReceipts) ProcessTicket(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	if ticket.Requestor() != cccSender {
		return false, nil
	}

	p.logger.Info("updating CCC ticket", zap.Int("ticket", ticket.ID))

	resolved := domain.TicketStatusResolved
	err := p.rt.EditTicket(ctx, ticket.ID, domain.TicketChanges{
		Status:       &resolved,
		CustomFields: map[string]string{"CccGetItNow": "Ja"},
	})
	if err != nil {
		p.logger.Error("failed to update ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}
	return true, nil
}
