// Package rt implements the subset of the Request Tracker REST 1.0
// interface the triage agent needs: ticket search, attachment retrieval
// and the comment/edit/merge/reply mutations.
package rt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/config"
	"github.com/scriptotek/rt-triage/internal/domain"
	apperrors "github.com/scriptotek/rt-triage/pkg/util"
)

// Tracker is an authenticated RT REST 1.0 session. A single Tracker is
// constructed at process start and shared read-only by all processors.
type Tracker struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewTracker logs in against the RT endpoint. Login failure is fatal for
// the caller: nothing downstream can proceed without a session.
func NewTracker(ctx context.Context, cfg config.RTConfig, logger *zap.Logger) (*Tracker, error) {
	if cfg.User == "" || cfg.Password == "" {
		return nil, apperrors.NewConfigError("RT_USER and RT_PASSWORD must be set")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/",
		client: &http.Client{
			Timeout: cfg.Timeout(),
			Jar:     jar,
		},
		logger: logger,
	}

	body, err := t.postForm(ctx, "", url.Values{
		"user": {cfg.User},
		"pass": {cfg.Password},
	})
	if err != nil {
		return nil, fmt.Errorf("RT login: %w", err)
	}
	code, message, err := parseStatusLine(body)
	if err != nil {
		return nil, fmt.Errorf("RT login: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("RT login failed: %d %s", code, message)
	}
	logger.Debug("RT login OK")
	return t, nil
}

// Search runs one ticket query and returns the matching tickets in id
// order.
func (t *Tracker) Search(ctx context.Context, query domain.Query) ([]domain.Ticket, error) {
	params := url.Values{
		"query":   {buildQuery(query)},
		"orderby": {"+id"},
		"format":  {"l"},
	}
	body, err := t.get(ctx, "search/ticket?"+params.Encode())
	if err != nil {
		return nil, err
	}
	tickets, err := parseTickets(body)
	if err != nil {
		return nil, apperrors.NewTransient("unexpected RT search response", err)
	}
	return tickets, nil
}

// Attachments lists attachment metadata for a ticket.
func (t *Tracker) Attachments(ctx context.Context, ticketID int) ([]domain.AttachmentInfo, error) {
	body, err := t.get(ctx, fmt.Sprintf("ticket/%d/attachments", ticketID))
	if err != nil {
		return nil, err
	}
	infos, err := parseAttachmentList(body)
	if err != nil {
		return nil, apperrors.NewTransient("unexpected RT attachment listing", err)
	}
	return infos, nil
}

// Attachment fetches one attachment's content.
func (t *Tracker) Attachment(ctx context.Context, ticketID, attachmentID int) (*domain.Attachment, error) {
	body, err := t.get(ctx, fmt.Sprintf("ticket/%d/attachments/%d", ticketID, attachmentID))
	if err != nil {
		return nil, err
	}
	att, err := parseAttachment(body)
	if err != nil {
		return nil, apperrors.NewTransient("unexpected RT attachment response", err)
	}
	return att, nil
}

// Comment posts a comment on a ticket. The ticket thread is the audit
// trail for every automated action, so comments precede mutations.
func (t *Tracker) Comment(ctx context.Context, ticketID int, comment domain.Comment) error {
	lines := []string{
		fmt.Sprintf("id: %d", ticketID),
		"Action: comment",
		"Text: " + indentContinuations(comment.Text),
	}
	if comment.ContentType != "" {
		lines = append(lines, "Content-Type: "+comment.ContentType)
	}
	if comment.Bcc != "" {
		lines = append(lines, "Bcc: "+comment.Bcc)
	}
	return t.mutate(ctx, fmt.Sprintf("ticket/%d/comment", ticketID), strings.Join(lines, "\n"))
}

// Reply sends outgoing correspondence on a ticket.
func (t *Tracker) Reply(ctx context.Context, ticketID int, text string) error {
	content := strings.Join([]string{
		fmt.Sprintf("id: %d", ticketID),
		"Action: correspond",
		"Text: " + indentContinuations(text),
	}, "\n")
	return t.mutate(ctx, fmt.Sprintf("ticket/%d/comment", ticketID), content)
}

// EditTicket applies field changes to a ticket.
func (t *Tracker) EditTicket(ctx context.Context, ticketID int, changes domain.TicketChanges) error {
	var lines []string
	if changes.Queue != nil {
		lines = append(lines, "Queue: "+*changes.Queue)
	}
	if changes.Status != nil {
		lines = append(lines, "Status: "+string(*changes.Status))
	}
	if changes.Subject != nil {
		lines = append(lines, "Subject: "+*changes.Subject)
	}
	for name, value := range changes.CustomFields {
		lines = append(lines, fmt.Sprintf("CF.{%s}: %s", name, value))
	}
	if len(lines) == 0 {
		return nil
	}
	return t.mutate(ctx, fmt.Sprintf("ticket/%d/edit", ticketID), strings.Join(lines, "\n"))
}

// MergeTicket merges a ticket into another. The target survives.
func (t *Tracker) MergeTicket(ctx context.Context, ticketID, intoID int) error {
	return t.mutate(ctx, fmt.Sprintf("ticket/%d/merge/%d", ticketID, intoID), "")
}

func (t *Tracker) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	return t.do(req)
}

func (t *Tracker) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req)
}

func (t *Tracker) do(req *http.Request) (string, error) {
	res, err := t.client.Do(req)
	if err != nil {
		return "", apperrors.NewTransient("RT request failed", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperrors.NewTransient("RT response read failed", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", apperrors.NewTransient(fmt.Sprintf("RT returned HTTP %d", res.StatusCode), nil)
	}
	return string(raw), nil
}

// mutate posts a content form and maps non-ok application responses to a
// mutation failure, which is not retried within the sweep.
func (t *Tracker) mutate(ctx context.Context, path, content string) error {
	form := url.Values{}
	if content != "" {
		form.Set("content", content)
	}
	body, err := t.postForm(ctx, path, form)
	if err != nil {
		return err
	}
	code, message, err := parseStatusLine(body)
	if err != nil {
		return apperrors.NewTransient("unexpected RT mutation response", err)
	}
	if code != 200 {
		return apperrors.NewMutationFailed(fmt.Sprintf("RT refused %s: %d %s", path, code, message))
	}
	return nil
}

// buildQuery renders a Query as a TicketSQL expression.
func buildQuery(query domain.Query) string {
	var clauses []string
	if query.Queue != "" {
		clauses = append(clauses, fmt.Sprintf("Queue = '%s'", query.Queue))
	}
	if query.Status != "" {
		clauses = append(clauses, fmt.Sprintf("Status = '%s'", query.Status))
	}
	if query.Owner != "" {
		clauses = append(clauses, fmt.Sprintf("Owner = '%s'", query.Owner))
	}
	if query.SubjectLike != "" {
		clauses = append(clauses, fmt.Sprintf("Subject LIKE '%s'", query.SubjectLike))
	}
	return strings.Join(clauses, " AND ")
}

// indentContinuations formats a multiline value for the REST 1.0 form
// encoding, where continuation lines are space-indented.
func indentContinuations(text string) string {
	return strings.ReplaceAll(text, "\n", "\n ")
}
