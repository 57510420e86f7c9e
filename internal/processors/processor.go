// Package processors holds the classification and automation rule units
// evaluated against each candidate ticket. Processors run in a fixed
// precedence order; the first one to take a terminal action on a ticket
// claims it for the sweep.
package processors

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/alma"
	"github.com/scriptotek/rt-triage/internal/domain"
)

// Tracker enumerates exactly the ticketing-system operations the
// processors need. No catch-all forwarding: anything not listed here is
// not available to rule logic.
type Tracker interface {
	Search(ctx context.Context, query domain.Query) ([]domain.Ticket, error)
	Attachments(ctx context.Context, ticketID int) ([]domain.AttachmentInfo, error)
	Attachment(ctx context.Context, ticketID, attachmentID int) (*domain.Attachment, error)
	Comment(ctx context.Context, ticketID int, comment domain.Comment) error
	EditTicket(ctx context.Context, ticketID int, changes domain.TicketChanges) error
	MergeTicket(ctx context.Context, ticketID, intoID int) error
	Reply(ctx context.Context, ticketID int, text string) error
}

// Catalog enumerates the catalog-service lookups the processors need.
type Catalog interface {
	Item(ctx context.Context, barcode string) (*alma.Item, error)
	UserByEmail(ctx context.Context, email string) (*alma.User, error)
	User(ctx context.Context, primaryID string) (*alma.User, error)
	HoldingsByISBN(ctx context.Context, isbn string) ([]alma.Bib, error)
}

// Processor is one classification/automation rule unit. ProcessTicket
// returns true when the processor took a terminal action, in which case
// the dispatch loop stops trying other processors for that ticket.
type Processor interface {
	Name() string
	Queries() []domain.Query
	Tickets(ctx context.Context) ([]domain.Ticket, error)
	ProcessTicket(ctx context.Context, ticket *domain.Ticket) (bool, error)
}

// base provides query iteration shared by all processors.
type base struct {
	name    string
	rt      Tracker
	logger  *zap.Logger
	queries []domain.Query
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Queries() []domain.Query {
	return b.queries
}

// Tickets issues each declared query and concatenates the matches.
func (b *base) Tickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, query := range b.queries {
		b.logger.Info("searching for tickets",
			zap.String("processor", b.name),
			zap.String("query", query.String()),
		)
		tickets, err := b.rt.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		out = append(out, tickets...)
	}
	return out, nil
}

// plainTextContent returns the body of the first text/plain attachment,
// or empty when the ticket has no readable plain-text body. A ticket is
// read at most once per processor pass.
func (b *base) plainTextContent(ctx context.Context, ticketID int) (string, error) {
	infos, err := b.rt.Attachments(ctx, ticketID)
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if !strings.HasPrefix(info.MIMEType, "text/plain") {
			continue
		}
		att, err := b.rt.Attachment(ctx, ticketID, info.ID)
		if err != nil {
			return "", err
		}
		return string(att.Content), nil
	}
	return "", nil
}
