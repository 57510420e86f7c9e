package processors

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/domain"
	"github.com/scriptotek/rt-triage/internal/routing"
)

// AutoSort routes new tickets to a more specific queue based on item
// barcodes found in the body, known text patterns, and the sender's
// resource sharing library, in that order of preference.
type AutoSort struct {
	base
	catalog Catalog
	tables  *routing.Tables
	bcc     string
}

// AutoSortDependencies bundles the processor's collaborators.
type AutoSortDependencies struct {
	Tracker Tracker
	Catalog Catalog
	Tables  *routing.Tables
	Logger  *zap.Logger
	Bcc     string
}

// NewAutoSort constructs the processor.
func NewAutoSort(deps AutoSortDependencies) *AutoSort {
	return &AutoSort{
		base: base{
			name:   "autosort",
			rt:     deps.Tracker,
			logger: deps.Logger,
			queries: []domain.Query{
				{Queue: "ub-brukerhenvendelser", Status: domain.TicketStatusNew},
			},
		},
		catalog: deps.Catalog,
		tables:  deps.Tables,
		bcc:     deps.Bcc,
	}
}

// ProcessTicket generates suggestions from all rules, merges them into a
// decision, and moves the ticket with a comment explaining every signal
// considered. Returns false when no rule proposed a destination.
func (p *AutoSort) ProcessTicket(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	suggestions, err := p.suggestions(ctx, ticket)
	if err != nil {
		return false, err
	}

	decision, comments := routing.Decide(suggestions)
	if decision == nil {
		p.logger.Info("did not find a suggestion for this ticket", zap.Int("ticket", ticket.ID))
		return false, nil
	}

	queue := decision.Suggestion.Queue
	body := make([]string, 0, len(comments)+2)
	body = append(body, fmt.Sprintf(
		"🚚 Saken ble automatisk flyttet fra %s til %s basert på følgende informasjon:",
		ticket.Queue, queue,
	))
	body = append(body, comments...)
	body = append(body, "Har scriptet gjort noe feil? Gi beskjed, så retter vi det.")
	commentBody := strings.Join(body, "\n")

	p.logger.Info("conclusion: move ticket",
		zap.Int("ticket", ticket.ID),
		zap.String("queue", queue),
	)
	p.logger.Info("comment", zap.Int("ticket", ticket.ID), zap.String("body", commentBody))

	if err := p.rt.Comment(ctx, ticket.ID, domain.Comment{Text: commentBody, Bcc: p.bcc}); err != nil {
		p.logger.Error("failed to add comment to ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}
	if err := p.rt.EditTicket(ctx, ticket.ID, domain.TicketChanges{Queue: &queue}); err != nil {
		p.logger.Error("failed to move ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}
	return true, nil
}

// suggestions collects rule outputs for one ticket: sender identity
// first, then body-derived rules when a plain-text body exists. Emission
// order within each rule is preserved for the decision engine.
func (p *AutoSort) suggestions(ctx context.Context, ticket *domain.Ticket) ([]domain.Suggestion, error) {
	var suggestions []domain.Suggestion

	if email := ticket.Requestor(); email != "" {
		fromSender, err := p.suggestFromSender(ctx, ticket.ID, email)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, fromSender...)
	}

	content, err := p.plainTextContent(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if content != "" {
		fromItems, err := p.suggestFromItems(ctx, ticket.ID, content)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, fromItems...)
		suggestions = append(suggestions, routing.MatchPatterns(p.tables, content)...)
	}

	return suggestions, nil
}

// suggestFromItems resolves every candidate barcode through the catalog
// and maps each item's owning library to a queue. Unknown barcodes and
// unknown library codes are fail-open: logged, no suggestion.
func (p *AutoSort) suggestFromItems(ctx context.Context, ticketID int, content string) ([]domain.Suggestion, error) {
	barcodes := routing.ExtractBarcodes(content)
	p.logger.Info("found possible item barcodes",
		zap.Int("ticket", ticketID),
		zap.Int("count", len(barcodes)),
	)

	var out []domain.Suggestion
	for _, barcode := range barcodes {
		item, err := p.catalog.Item(ctx, barcode)
		if err != nil {
			return nil, err
		}
		if item == nil {
			p.logger.Info("invalid barcode", zap.Int("ticket", ticketID), zap.String("barcode", barcode))
			continue
		}

		p.logger.Info("barcode resolved",
			zap.Int("ticket", ticketID),
			zap.String("barcode", barcode),
			zap.String("library", item.Library.Desc),
		)

		queue, known := p.tables.QueueForLibraryCode(item.Library.Value)
		if !known {
			p.logger.Warn("unknown library code", zap.String("libcode", item.Library.Value))
			continue
		}
		out = append(out, domain.Suggestion{
			Rule:    domain.RuleAlmaItems,
			Queue:   queue,
			Comment: fmt.Sprintf("- %s hører til %s %s.", barcode, item.Library.Desc, item.Location.Desc),
		})
	}
	return out, nil
}

// suggestFromSender maps the sender's resource sharing library to a
// queue. Senders in privileged user groups (code >= 8, library staff and
// institutions) never produce a destination: their mail concerns
// whatever they are working on, not their own pickup library.
func (p *AutoSort) suggestFromSender(ctx context.Context, ticketID int, email string) ([]domain.Suggestion, error) {
	user, err := p.catalog.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []domain.Suggestion{{
			Rule:    domain.RuleRSLibrary,
			Comment: "- Avsenderadressen ble ikke funnet i Alma.",
		}}, nil
	}

	groupCode, err := strconv.Atoi(user.UserGroup.Value)
	if err != nil {
		groupCode = 0
	}
	if groupCode >= routing.PrivilegedGroupThreshold {
		return []domain.Suggestion{{
			Rule: domain.RuleRSLibrary,
			Comment: fmt.Sprintf("- Avsender (%s) er i brukergruppen «%s».",
				user.PrimaryID, user.UserGroup.Desc),
		}}, nil
	}

	if user.RSLibraryCode == "" {
		p.logger.Info("sender has no resource sharing library",
			zap.Int("ticket", ticketID),
			zap.String("email", email),
			zap.String("user", user.PrimaryID),
		)
		return []domain.Suggestion{{
			Rule: domain.RuleRSLibrary,
			Comment: fmt.Sprintf("- Avsender (%s) er i brukergruppen «%s» og har ikke noe resource sharing library.",
				user.PrimaryID, user.UserGroup.Desc),
		}}, nil
	}

	p.logger.Info("sender has resource sharing library",
		zap.Int("ticket", ticketID),
		zap.String("email", email),
		zap.String("user", user.PrimaryID),
		zap.String("library", user.RSLibraryName),
	)

	queue, known := p.tables.QueueForLibraryCode(user.RSLibraryCode)
	if !known {
		return nil, nil
	}
	return []domain.Suggestion{{
		Rule:  domain.RuleRSLibrary,
		Queue: queue,
		Comment: fmt.Sprintf("- Avsender (%s) er i brukergruppen «%s» og har %s som resource sharing library.",
			user.PrimaryID, user.UserGroup.Desc, user.RSLibraryName),
	}}, nil
}
