package processors

import (
	"context"
	"fmt"

	"github.com/scriptotek/rt-triage/internal/alma"
	"github.com/scriptotek/rt-triage/internal/domain"
)

// fakeTracker records mutations and serves canned search and attachment
// results.
type fakeTracker struct {
	searchResults map[string][]domain.Ticket
	attachments   map[int][]domain.AttachmentInfo
	contents      map[int]map[int]*domain.Attachment

	commentErr error
	editErr    error
	mergeErr   error

	comments []recordedComment
	edits    []recordedEdit
	merges   []recordedMerge
	replies  []string
}

type recordedComment struct {
	ticketID int
	comment  domain.Comment
}

type recordedEdit struct {
	ticketID int
	changes  domain.TicketChanges
}

type recordedMerge struct {
	ticketID int
	intoID   int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		searchResults: make(map[string][]domain.Ticket),
		attachments:   make(map[int][]domain.AttachmentInfo),
		contents:      make(map[int]map[int]*domain.Attachment),
	}
}

// setPlainTextBody registers a single text/plain attachment for a ticket.
func (f *fakeTracker) setPlainTextBody(ticketID int, body string) {
	f.attachments[ticketID] = []domain.AttachmentInfo{
		{ID: 1, Filename: "untitled", MIMEType: "text/plain"},
	}
	f.contents[ticketID] = map[int]*domain.Attachment{
		1: {ID: 1, ContentType: "text/plain", Content: []byte(body)},
	}
}

func (f *fakeTracker) Search(_ context.Context, query domain.Query) ([]domain.Ticket, error) {
	return f.searchResults[query.String()], nil
}

func (f *fakeTracker) Attachments(_ context.Context, ticketID int) ([]domain.AttachmentInfo, error) {
	return f.attachments[ticketID], nil
}

func (f *fakeTracker) Attachment(_ context.Context, ticketID, attachmentID int) (*domain.Attachment, error) {
	att, ok := f.contents[ticketID][attachmentID]
	if !ok {
		return nil, fmt.Errorf("no such attachment %d on ticket %d", attachmentID, ticketID)
	}
	return att, nil
}

func (f *fakeTracker) Comment(_ context.Context, ticketID int, comment domain.Comment) error {
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, recordedComment{ticketID: ticketID, comment: comment})
	return nil
}

func (f *fakeTracker) EditTicket(_ context.Context, ticketID int, changes domain.TicketChanges) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, recordedEdit{ticketID: ticketID, changes: changes})
	return nil
}

func (f *fakeTracker) MergeTicket(_ context.Context, ticketID, intoID int) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merges = append(f.merges, recordedMerge{ticketID: ticketID, intoID: intoID})
	return nil
}

func (f *fakeTracker) Reply(_ context.Context, ticketID int, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

// fakeCatalog serves canned catalog lookups.
type fakeCatalog struct {
	items        map[string]*alma.Item
	usersByEmail map[string]*alma.User
	users        map[string]*alma.User
	holdings     map[string][]alma.Bib

	itemErr error
	userErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		items:        make(map[string]*alma.Item),
		usersByEmail: make(map[string]*alma.User),
		users:        make(map[string]*alma.User),
		holdings:     make(map[string][]alma.Bib),
	}
}

func (f *fakeCatalog) Item(_ context.Context, barcode string) (*alma.Item, error) {
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return f.items[barcode], nil
}

func (f *fakeCatalog) UserByEmail(_ context.Context, email string) (*alma.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.usersByEmail[email], nil
}

func (f *fakeCatalog) User(_ context.Context, primaryID string) (*alma.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.users[primaryID], nil
}

func (f *fakeCatalog) HoldingsByISBN(_ context.Context, isbn string) ([]alma.Bib, error) {
	return f.holdings[isbn], nil
}
