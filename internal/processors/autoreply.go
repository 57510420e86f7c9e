package processors

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/domain"
)

// autoreplyRule pairs a detection predicate with the Norwegian-language
// classification used in the audit comment.
type autoreplyRule struct {
	subjectRe *regexp.Regexp
	sender    string
	category  string
	reason    string
}

var autoreplyRules = []autoreplyRule{
	{
		subjectRe: regexp.MustCompile(`(?i)(automatic reply|automatisk svar)`),
		category:  "generelt autosvar",
		reason:    "meldingens emne inneholder teksten «automatic reply» eller «automatisk svar»",
	},
	{
		subjectRe: regexp.MustCompile(`Re: UiA INC.*- Notification Item Letter`),
		category:  "autosvar fra UiA på Alma Notification Item Letter",
		reason:    "meldingens emne inneholdt teksten «Re: UiA INC*- Notification Item Letter»",
	},
	{
		subjectRe: regexp.MustCompile(`Notification Item Letter`),
		sender:    "noreply@topdesk.net",
		category:  "autosvar fra UBB på Alma Notification Item Letter",
		reason:    "meldingens emne inneholdt teksten «Notification Item Letter» og avsender var noreply@topdesk.net",
	},
}

// AutoReply auto-resolves tickets recognized as automatic replies.
type AutoReply struct {
	base
}

// NewAutoReply constructs the processor.
func NewAutoReply(rt Tracker, logger *zap.Logger) *AutoReply {
	return &AutoReply{
		base: base{
			name:   "autoreply",
			rt:     rt,
			logger: logger,
			queries: []domain.Query{
				{Queue: "ub-brukerhenvendelser", Status: domain.TicketStatusNew},
				{Queue: "ub-humsam-biblioteket", Status: domain.TicketStatusNew},
				{Queue: "ub-realfagsbiblioteket", Status: domain.TicketStatusNew},
			},
		},
	}
}

// ProcessTicket resolves the ticket when a rule matches its subject and,
// for sender-scoped rules, its first requestor address.
func (p *AutoReply) ProcessTicket(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	for _, rule := range autoreplyRules {
		if !rule.subjectRe.MatchString(ticket.Subject) {
			continue
		}
		if rule.sender != "" && ticket.Requestor() != rule.sender {
			continue
		}
		return p.autoresolve(ctx, ticket, rule.category, rule.reason)
	}
	return false, nil
}

func (p *AutoReply) autoresolve(ctx context.Context, ticket *domain.Ticket, category, reason string) (bool, error) {
	p.logger.Info("auto-resolving ticket",
		zap.Int("ticket", ticket.ID),
		zap.String("subject", ticket.Subject),
		zap.String("category", category),
	)

	text := fmt.Sprintf(
		"<p>Meldingen ble klassifisert som <strong>%s</strong> fordi %s.</p>"+
			"<p>Saken ble derfor automatisk lukket.</p>"+
			"<p>Ble meldingen feilklassifisert? Gi beskjed, så justerer vi reglene.</p>",
		category, reason,
	)
	if err := p.rt.Comment(ctx, ticket.ID, domain.Comment{Text: text, ContentType: "text/html"}); err != nil {
		p.logger.Error("failed to add comment to ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}

	resolved := domain.TicketStatusResolved
	if err := p.rt.EditTicket(ctx, ticket.ID, domain.TicketChanges{Status: &resolved}); err != nil {
		p.logger.Error("failed to auto-resolve ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}
	return true, nil
}
