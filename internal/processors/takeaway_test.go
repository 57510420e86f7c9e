package processors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/alma"
	"github.com/scriptotek/rt-triage/internal/domain"
	"github.com/scriptotek/rt-triage/internal/repository"
	"github.com/scriptotek/rt-triage/internal/routing"
)

const takeawayForm = `Submission to form 12345 has been delivered.

Hvor vil du hente boka?
    * Realfagsbiblioteket (VB)

Feide-ID eller e-postadresse
    * ola.nordmann@example.org

Foretrukket språk
    * Norsk bokmål

Har du ISBN-nummer?
    * Ja

ISBN-nummer
    978-82-02-24940-1
`

type fakeStats struct {
	records []repository.RequestRecord
	code    string
	err     error
}

func (f *fakeStats) RecordRequest(_ context.Context, record repository.RequestRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, record)
	return f.code, nil
}

func (f *fakeStats) DailyStats(context.Context, time.Time) ([]repository.DailyStat, error) {
	return nil, nil
}

func newTakeAway(rt *fakeTracker, catalog *fakeCatalog, stats repository.StatsRepository) *TakeAway {
	return NewTakeAway(TakeAwayDependencies{
		Tracker: rt,
		Catalog: catalog,
		Tables:  routing.DefaultTables(),
		Stats:   stats,
		Logger:  zap.NewNop(),
	})
}

func TestTakeAwayFullRequest(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(30, takeawayForm)
	catalog := newFakeCatalog()
	catalog.users["ola.nordmann@example.org"] = &alma.User{
		PrimaryID:         "ola.nordmann@example.org",
		UserGroup:         alma.CodeDesc{Value: "3", Desc: "Student"},
		PreferredLanguage: "nb",
		RSLibraryName:     "Realfagsbiblioteket",
	}
	catalog.holdings["9788202249401"] = []alma.Bib{
		{
			ID:    "990001",
			Title: "Sult",
			Holdings: []alma.Holding{
				{
					Library:     "1030500",
					LibraryName: "Realfagsbiblioteket",
					Location:    "Magasin",
					TotalItems:  3,
				},
			},
		},
	}
	stats := &fakeStats{code: "15-007"}
	p := newTakeAway(rt, catalog, stats)

	ticket := &domain.Ticket{
		ID:         30,
		Subject:    "Submission to form 12345 has been delivered",
		Queue:      "ub-brukerhenvendelser",
		Requestors: []string{"ola.nordmann@example.org"},
		Created:    time.Date(2021, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	handled, err := p.ProcessTicket(context.Background(), ticket)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, stats.records, 1)
	record := stats.records[0]
	assert.Equal(t, "Norsk bokmål", record.Language)
	assert.Equal(t, "ub-realfagsbiblioteket", record.SelectedQueue)
	assert.Equal(t, "Student", record.UserGroup)
	assert.True(t, record.HasISBN)
	assert.Equal(t, 1, record.ISBNCount)
	assert.Equal(t, []string{"1030500"}, record.MatchedLibraries)
	assert.Equal(t, ticket.Created, record.RequestTime)

	require.Len(t, rt.comments, 1)
	comment := rt.comments[0].comment
	assert.Equal(t, "text/html", comment.ContentType)
	assert.Contains(t, comment.Text, "Bestiller ble funnet i Alma")
	assert.Contains(t, comment.Text, "Sult")
	assert.Contains(t, comment.Text, "<strong>3</strong> av <strong>3</strong> tilgjengelig")

	require.Len(t, rt.edits, 1)
	changes := rt.edits[0].changes
	require.NotNil(t, changes.Queue)
	assert.Equal(t, "ub-realfagsbiblioteket", *changes.Queue)
	require.NotNil(t, changes.Subject)
	assert.Equal(t, "UiO Library takeaway request 15-007", *changes.Subject)
}

func TestTakeAwayWithoutLedger(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(31, takeawayForm)
	p := newTakeAway(rt, newFakeCatalog(), nil)

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:      31,
		Subject: "Submission to form 12345 has been delivered",
		Queue:   "ub-brukerhenvendelser",
	})
	require.NoError(t, err)
	assert.True(t, handled)

	// No ledger, so the subject carries no request code.
	require.Len(t, rt.edits, 1)
	require.NotNil(t, rt.edits[0].changes.Subject)
	assert.Equal(t, "UiO Library takeaway request", *rt.edits[0].changes.Subject)
	assert.Contains(t, rt.comments[0].comment.Text, "Klarte ikke å automatisk finne bestiller")
}

func TestTakeAwayIgnoresNonSubmissions(t *testing.T) {
	rt := newFakeTracker()
	p := newTakeAway(rt, newFakeCatalog(), nil)

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:      32,
		Subject: "Spørsmål om henting",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.edits)
}

func TestTakeAwayUnknownPickupPointDeclined(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(33, "Submission body without any pickup selection.")
	p := newTakeAway(rt, newFakeCatalog(), nil)

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:      33,
		Subject: "Submission to form 12345 has been delivered",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.comments)
	assert.Empty(t, rt.edits)
}

func TestPickupQueue(t *testing.T) {
	p := newTakeAway(newFakeTracker(), newFakeCatalog(), nil)

	assert.Equal(t, "ub-ujur", p.pickupQueue("    * Law Library (Domus Juridica)\n"))
	assert.Equal(t, "", p.pickupQueue("Law Library (Domus Juridica)"))
}

func TestExtractFormFields(t *testing.T) {
	assert.Equal(t, "ola.nordmann@example.org", extractFormEmail(takeawayForm))
	assert.Equal(t, "Norsk bokmål", extractLanguage(takeawayForm))
	assert.Equal(t, "", extractFormEmail("no form lines here"))
}

func TestExtractISBNs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "hyphenated isbn13 after the question",
			content: "Tlf: 9912345678\nISBN-nummer\n978-82-02-24940-1",
			want:    []string{"9788202249401"},
		},
		{
			name:    "english form wording",
			content: "ISBN number\n0262033844",
			want:    []string{"0262033844"},
		},
		{
			name:    "phone number before the question is ignored",
			content: "Tlf: 9912345678\nIngen ISBN her",
			want:    nil,
		},
		{
			name:    "multiple isbns",
			content: "ISBN-nummer\n82-02-24940-8 og 978-82-02-24940-1",
			want:    []string{"8202249408", "9788202249401"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractISBNs(tt.content))
		})
	}
}
