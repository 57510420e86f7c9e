package processors

import (
	"context"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/domain"
)

var uiaTicketIDRe = regexp.MustCompile(`UiA (INC[0-9]+)`)

// MergeDuplicates merges tickets that reference the same external UiA
// support-system ticket id in their subject. The ticket with the lowest
// id survives; later duplicates are merged into it.
type MergeDuplicates struct {
	base
}

// NewMergeDuplicates constructs the processor.
func NewMergeDuplicates(rt Tracker, logger *zap.Logger) *MergeDuplicates {
	return &MergeDuplicates{
		base: base{
			name:   "merge",
			rt:     rt,
			logger: logger,
			queries: []domain.Query{
				{Queue: "ub-brukerhenvendelser", Status: domain.TicketStatusNew},
			},
		},
	}
}

// ProcessTicket looks for an external ticket id in the subject, then
// merges every ticket sharing that id into the oldest one, across all
// queues.
func (p *MergeDuplicates) ProcessTicket(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	m := uiaTicketIDRe.FindStringSubmatch(ticket.Subject)
	if m == nil {
		return false, nil
	}
	externalID := m[1]
	p.logger.Info("found external ticket id",
		zap.Int("ticket", ticket.ID),
		zap.String("external_id", externalID),
	)

	related, err := p.rt.Search(ctx, domain.Query{SubjectLike: externalID})
	if err != nil {
		return false, err
	}
	if len(related) < 2 {
		return false, nil
	}

	sort.Slice(related, func(i, j int) bool {
		return related[i].ID < related[j].ID
	})

	survivor := related[0]
	for _, duplicate := range related[1:] {
		p.logger.Info("merging ticket",
			zap.Int("ticket", duplicate.ID),
			zap.Int("into", survivor.ID),
		)
		if err := p.rt.MergeTicket(ctx, duplicate.ID, survivor.ID); err != nil {
			p.logger.Error("failed to merge ticket",
				zap.Int("ticket", duplicate.ID),
				zap.Int("into", survivor.ID),
				zap.Error(err),
			)
			return false, err
		}
	}
	return true, nil
}
