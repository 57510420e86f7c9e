package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates the RT lifecycle states the agent touches.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "new"
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusResolved TicketStatus = "resolved"
)

// Ticket is one unit of customer correspondence fetched from the
// ticketing system. The agent never caches it beyond one processing pass.
type Ticket struct {
	ID           int
	Subject      string
	Queue        string
	Status       TicketStatus
	Requestors   []string
	Created      time.Time
	CustomFields map[string]string
}

// Requestor returns the first requestor email address, or empty.
func (t *Ticket) Requestor() string {
	if len(t.Requestors) == 0 {
		return ""
	}
	return t.Requestors[0]
}

// Query selects candidate tickets from the ticketing system. A zero
// Queue means all queues.
type Query struct {
	Queue       string
	Status      TicketStatus
	Owner       string
	SubjectLike string
}

// String renders the query for log lines.
func (q Query) String() string {
	var parts []string
	if q.Queue != "" {
		parts = append(parts, "Queue="+q.Queue)
	}
	if q.Status != "" {
		parts = append(parts, "Status="+string(q.Status))
	}
	if q.Owner != "" {
		parts = append(parts, "Owner="+q.Owner)
	}
	if q.SubjectLike != "" {
		parts = append(parts, "Subject~"+q.SubjectLike)
	}
	return strings.Join(parts, " AND ")
}

// AttachmentInfo identifies one attachment on a ticket.
type AttachmentInfo struct {
	ID       int
	Filename string
	MIMEType string
}

// Attachment carries one attachment's content.
type Attachment struct {
	ID          int
	ContentType string
	Content     []byte
}

// TicketChanges carries fields for an edit operation. Nil pointers leave
// the field untouched.
type TicketChanges struct {
	Queue        *string
	Status       *TicketStatus
	Subject      *string
	CustomFields map[string]string
}

// Comment carries one outgoing ticket comment.
type Comment struct {
	Text        string
	ContentType string
	Bcc         string
}
