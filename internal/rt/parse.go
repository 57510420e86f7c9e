package rt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scriptotek/rt-triage/internal/domain"
)

var (
	statusLineRe = regexp.MustCompile(`^RT/[\d.]+\S*\s+(\d+)\s+(.*)$`)
	ticketIDRe   = regexp.MustCompile(`(\d+)$`)
	attachmentRe = regexp.MustCompile(`^\s*(\d+):\s+(\S+)\s+\(([^/)]+/[^\s)]+)`)
	cfNameRe     = regexp.MustCompile(`^CF\.\{(.+)\}$`)
)

// createdLayouts lists timestamp formats RT has been seen emitting.
var createdLayouts = []string{
	"Mon Jan 2 15:04:05 2006",
	"Mon Jan 02 15:04:05 2006",
	time.RFC3339,
}

// parseStatusLine extracts the RT application status code from the first
// line of a REST 1.0 response body.
func parseStatusLine(body string) (int, string, error) {
	line, _, _ := strings.Cut(strings.TrimLeft(body, "\n"), "\n")
	m := statusLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return 0, "", fmt.Errorf("malformed RT status line: %q", line)
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", fmt.Errorf("malformed RT status code: %q", line)
	}
	return code, m[2], nil
}

// parseTicketID normalizes "ticket/123" (or plain "123") to a numeric id.
func parseTicketID(raw string) (int, error) {
	m := ticketIDRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("malformed ticket id: %q", raw)
	}
	return strconv.Atoi(m[1])
}

// parseFields reads "Key: value" lines with space-indented continuations
// into an ordered key/value map.
func parseFields(block string) map[string]string {
	fields := make(map[string]string)
	var lastKey string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey != "" {
				fields[lastKey] += "\n" + strings.TrimLeft(line, " \t")
			}
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		lastKey = key
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// parseTickets reads a format=l search response into tickets. Blocks are
// separated by "--" lines.
func parseTickets(body string) ([]domain.Ticket, error) {
	code, message, err := parseStatusLine(body)
	if err != nil {
		return nil, err
	}
	if code != 200 {
		return nil, fmt.Errorf("RT search failed: %d %s", code, message)
	}

	_, rest, _ := strings.Cut(body, "\n")
	rest = strings.TrimLeft(rest, "\n")
	if strings.HasPrefix(rest, "No matching results") {
		return nil, nil
	}

	var tickets []domain.Ticket
	for _, block := range strings.Split(rest, "\n--\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		ticket, err := ticketFromFields(parseFields(block))
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

func ticketFromFields(fields map[string]string) (*domain.Ticket, error) {
	rawID, ok := fields["id"]
	if !ok {
		return nil, fmt.Errorf("ticket block without id field")
	}
	id, err := parseTicketID(rawID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:           id,
		Subject:      fields["Subject"],
		Queue:        fields["Queue"],
		Status:       domain.TicketStatus(fields["Status"]),
		CustomFields: make(map[string]string),
	}

	for _, addr := range strings.Split(fields["Requestors"], ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			ticket.Requestors = append(ticket.Requestors, addr)
		}
	}

	if raw := fields["Created"]; raw != "" {
		for _, layout := range createdLayouts {
			if created, err := time.Parse(layout, raw); err == nil {
				ticket.Created = created
				break
			}
		}
	}

	for key, value := range fields {
		if m := cfNameRe.FindStringSubmatch(key); m != nil {
			ticket.CustomFields[m[1]] = value
		}
	}

	return ticket, nil
}

// parseAttachmentList reads the "Attachments:" field of a ticket
// attachments response.
func parseAttachmentList(body string) ([]domain.AttachmentInfo, error) {
	code, message, err := parseStatusLine(body)
	if err != nil {
		return nil, err
	}
	if code != 200 {
		return nil, fmt.Errorf("RT attachment list failed: %d %s", code, message)
	}

	listing, ok := parseFields(body)["Attachments"]
	if !ok {
		return nil, nil
	}

	var infos []domain.AttachmentInfo
	for _, line := range strings.Split(listing, "\n") {
		m := attachmentRe.FindStringSubmatch(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		infos = append(infos, domain.AttachmentInfo{
			ID:       id,
			Filename: m[2],
			MIMEType: strings.TrimSpace(m[3]),
		})
	}
	return infos, nil
}

// parseAttachment reads a single attachment response. The Content field
// uses nine-space indentation for continuation lines.
func parseAttachment(body string) (*domain.Attachment, error) {
	code, message, err := parseStatusLine(body)
	if err != nil {
		return nil, err
	}
	if code != 200 {
		return nil, fmt.Errorf("RT attachment fetch failed: %d %s", code, message)
	}

	att := &domain.Attachment{}
	var content []string
	inContent := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case inContent:
			content = append(content, strings.TrimPrefix(line, "         "))
		case strings.HasPrefix(line, "id: "):
			if id, err := strconv.Atoi(strings.TrimPrefix(line, "id: ")); err == nil {
				att.ID = id
			}
		case strings.HasPrefix(line, "ContentType: "):
			att.ContentType = strings.TrimPrefix(line, "ContentType: ")
		case strings.HasPrefix(line, "Content: "):
			content = append(content, strings.TrimPrefix(line, "Content: "))
			inContent = true
		}
	}
	// RT appends three blank lines after the content body.
	for len(content) > 0 && content[len(content)-1] == "" {
		content = content[:len(content)-1]
	}
	att.Content = []byte(strings.Join(content, "\n"))
	return att, nil
}
