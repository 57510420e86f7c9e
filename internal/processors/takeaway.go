package processors

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/alma"
	"github.com/scriptotek/rt-triage/internal/domain"
	"github.com/scriptotek/rt-triage/internal/repository"
	"github.com/scriptotek/rt-triage/internal/routing"
)

var (
	submissionRe = regexp.MustCompile(`^Submission to .+ has been delivered`)
	formEmailRe  = regexp.MustCompile(`(?m)^    \* (.+?@.+?\.[a-z]{2,3})$`)
	formLangRe   = regexp.MustCompile(`(?m)^    \* (Norsk bokmål|Norsk nynorsk|English)$`)
	formYesRe    = regexp.MustCompile(`    \* (Ja|Yes)\n`)
	isbnSplitRe  = regexp.MustCompile(`ISBN.(?:nummer|number)`)
	isbnRe       = regexp.MustCompile(`\b(97[0-9xX]{11}|[0-9xX]{10})\b`)
)

// TakeAway handles pickup requests submitted through the Nettskjema
// order form: it routes the ticket by the selected pickup point, looks up
// the orderer and the requested ISBNs in the catalog, posts an
// availability summary, and records the request in the statistics ledger.
type TakeAway struct {
	base
	catalog Catalog
	tables  *routing.Tables
	stats   repository.StatsRepository
	now     func() time.Time
}

// TakeAwayDependencies bundles the processor's collaborators. Stats may
// be nil, in which case requests are routed but not recorded.
type TakeAwayDependencies struct {
	Tracker Tracker
	Catalog Catalog
	Tables  *routing.Tables
	Stats   repository.StatsRepository
	Logger  *zap.Logger
}

// NewTakeAway constructs the processor.
func NewTakeAway(deps TakeAwayDependencies) *TakeAway {
	return &TakeAway{
		base: base{
			name:   "takeaway",
			rt:     deps.Tracker,
			logger: deps.Logger,
			queries: []domain.Query{
				{Queue: "ub-brukerhenvendelser", Status: domain.TicketStatusNew},
			},
		},
		catalog: deps.Catalog,
		tables:  deps.Tables,
		stats:   deps.Stats,
		now:     time.Now,
	}
}

// ProcessTicket handles one form submission. Tickets that are not form
// submissions, or whose body lacks a recognizable pickup point, are
// declined.
func (p *TakeAway) ProcessTicket(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	if !submissionRe.MatchString(ticket.Subject) {
		return false, nil
	}
	p.logger.Info("new takeaway request", zap.Int("ticket", ticket.ID))

	content, err := p.plainTextContent(ctx, ticket.ID)
	if err != nil {
		return false, err
	}
	if content == "" {
		return false, nil
	}

	queue := p.pickupQueue(content)
	if queue == "" {
		p.logger.Warn("could not determine queue", zap.Int("ticket", ticket.ID))
		return false, nil
	}
	p.logger.Info("queue selected", zap.Int("ticket", ticket.ID), zap.String("queue", queue))

	language := extractLanguage(content)
	if language == "" {
		language = "Ukjent"
	}

	var body []string

	user, err := p.lookupOrderer(ctx, extractFormEmail(content), ticket.Requestor())
	if err != nil {
		return false, err
	}
	if user != nil {
		body = append(body, fmt.Sprintf(
			"<p>👤 Bestiller ble funnet i Alma:</p>\n<ul>"+
				"<li>Primær-ID: %s</li>"+
				"<li>Brukergruppe: %s</li>"+
				"<li>Resource sharing library: %s</li>"+
				"<li>Foretrukket språk: %s</li>"+
				"</ul>",
			user.PrimaryID, user.UserGroup.Desc, user.RSLibraryName, user.PreferredLanguage,
		))
	} else {
		body = append(body, fmt.Sprintf(
			"<p>👤 Klarte ikke å automatisk finne bestiller i Alma ved søk på «%s» eller «%s».</p>",
			extractFormEmail(content), ticket.Requestor(),
		))
		user = &alma.User{}
	}

	hasISBN := formYesRe.MatchString(content)
	var isbns []string
	matchedLibs := make(map[string]struct{})
	var bibs []alma.Bib

	body = append(body, "<p>📚 Dokumenter funnet i Alma:</p>")
	if hasISBN {
		isbns = extractISBNs(content)
		for _, isbn := range isbns {
			results, err := p.catalog.HoldingsByISBN(ctx, isbn)
			if err != nil {
				return false, err
			}
			if len(results) == 0 {
				p.logger.Info("zero results in Alma for ISBN",
					zap.Int("ticket", ticket.ID),
					zap.String("isbn", isbn),
				)
				continue
			}
			for _, bib := range results {
				bibs = append(bibs, bib)
				for _, holding := range bib.Holdings {
					if holding.Library != "" && holding.TotalItems-holding.UnavailableItems > 0 {
						matchedLibs[holding.Library] = struct{}{}
					}
				}
			}
		}
	}

	if len(bibs) == 0 {
		body = append(body, "<ul><li>Ikke funnet automatisk. Se informasjon fra bestiller i meldingen over.</li></ul>")
	} else {
		body = append(body, formatBibResults(bibs))
	}

	subject := "UiO Library takeaway request"
	if p.stats != nil {
		requestTime := ticket.Created
		if requestTime.IsZero() {
			requestTime = p.now()
		}
		code, err := p.stats.RecordRequest(ctx, repository.RequestRecord{
			CodePrefix:       fmt.Sprintf("%02d", p.now().Day()),
			RequestTime:      requestTime,
			Language:         language,
			SelectedQueue:    queue,
			RSLibrary:        user.RSLibraryName,
			UserGroup:        user.UserGroup.Desc,
			HasISBN:          hasISBN,
			ISBNCount:        len(isbns),
			MatchedLibraries: sortedKeys(matchedLibs),
		})
		if err != nil {
			p.logger.Warn("failed to record request in ledger", zap.Int("ticket", ticket.ID), zap.Error(err))
		} else {
			subject = fmt.Sprintf("UiO Library takeaway request %s", code)
		}
	}

	if err := p.rt.Comment(ctx, ticket.ID, domain.Comment{
		Text:        strings.Join(body, "\n"),
		ContentType: "text/html",
	}); err != nil {
		p.logger.Error("failed to add comment to ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}

	if err := p.rt.EditTicket(ctx, ticket.ID, domain.TicketChanges{
		Queue:   &queue,
		Subject: &subject,
	}); err != nil {
		p.logger.Error("failed to update ticket", zap.Int("ticket", ticket.ID), zap.Error(err))
		return false, err
	}
	return true, nil
}

// pickupQueue maps the form's pickup-point selection to a queue. The
// form renders selections as "    * <option>" lines.
func (p *TakeAway) pickupQueue(content string) string {
	for _, entry := range p.tables.PickupPoints {
		if strings.Contains(content, "    * "+entry.Pattern) {
			return entry.Queue
		}
	}
	return ""
}

// lookupOrderer finds the orderer in the catalog by the form-supplied
// Feide id, falling back to a search on the sender address.
func (p *TakeAway) lookupOrderer(ctx context.Context, feideID, senderEmail string) (*alma.User, error) {
	if feideID != "" {
		user, err := p.catalog.User(ctx, feideID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			p.logger.Info("orderer found in Alma", zap.String("id", feideID))
			return user, nil
		}
		p.logger.Info("orderer not found in Alma", zap.String("id", feideID))
	}
	if senderEmail == "" {
		return nil, nil
	}
	user, err := p.catalog.UserByEmail(ctx, senderEmail)
	if err != nil {
		return nil, err
	}
	if user != nil {
		p.logger.Info("orderer found in Alma", zap.String("email", senderEmail))
	} else {
		p.logger.Info("orderer not found in Alma", zap.String("email", senderEmail))
	}
	return user, nil
}

func extractFormEmail(content string) string {
	m := formEmailRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractLanguage(content string) string {
	m := formLangRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractISBNs scans the part of the form after the ISBN question.
// Everything before it is dropped to avoid matching phone numbers, which
// can be ten digits with a country prefix.
func extractISBNs(content string) []string {
	loc := isbnSplitRe.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	tail := strings.ReplaceAll(content[loc[1]:], "-", "")
	return isbnRe.FindAllString(tail, -1)
}

// formatBibResults renders the holdings summary, grouping by bib record.
func formatBibResults(bibs []alma.Bib) string {
	seen := make(map[string]bool)
	var groups []alma.Bib
	for _, bib := range bibs {
		if seen[bib.ID] {
			continue
		}
		seen[bib.ID] = true
		groups = append(groups, bib)
	}

	out := []string{"<ul>"}
	for _, bib := range groups {
		title := bib.Title
		if title == "" {
			title = "-"
		}
		out = append(out, "<li>")
		out = append(out, fmt.Sprintf("📙 <em>%s</em>", title))
		if len(bib.Holdings) > 0 || len(bib.Portfolios) > 0 {
			out = append(out, "<ul>")
			for _, holding := range bib.Holdings {
				out = append(out, formatHolding(holding))
			}
			for _, portfolio := range bib.Portfolios {
				if portfolio.Activation == "Available" {
					out = append(out, formatPortfolio(portfolio))
				}
			}
			out = append(out, "</ul>")
		}
		out = append(out, "</li>")
	}
	out = append(out, "</ul>")
	return strings.Join(out, "\n")
}

func formatHolding(holding alma.Holding) string {
	available := holding.TotalItems - holding.UnavailableItems
	var barcodes []string
	for _, item := range holding.Items {
		if item.BaseStatus.Value == "1" {
			barcodes = append(barcodes, item.Barcode)
		}
	}
	return strings.Join([]string{
		"<li>",
		fmt.Sprintf("%s %s %s", orDash(holding.LibraryName), orDash(holding.Location), orDash(holding.Callcode)),
		fmt.Sprintf(": <strong>%d</strong> av <strong>%d</strong> tilgjengelig<br>", available, holding.TotalItems),
		strings.Join(barcodes, " ∙ "),
		"</li>",
	}, "\n")
}

func formatPortfolio(portfolio alma.Portfolio) string {
	return strings.Join([]string{
		"<li>",
		fmt.Sprintf("E-bok %s fra %s<br>", portfolio.Activation, orDash(portfolio.CollectionName)),
		"</li>",
	}, "\n")
}

func orDash(val string) string {
	if val == "" {
		return "-"
	}
	return val
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
