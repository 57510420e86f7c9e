package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/alma"
	"github.com/scriptotek/rt-triage/internal/domain"
	"github.com/scriptotek/rt-triage/internal/routing"
)

func newAutoSort(rt *fakeTracker, catalog *fakeCatalog) *AutoSort {
	return NewAutoSort(AutoSortDependencies{
		Tracker: rt,
		Catalog: catalog,
		Tables:  routing.DefaultTables(),
		Logger:  zap.NewNop(),
		Bcc:     "triage-audit@example.org",
	})
}

func TestAutoSortItemEvidenceBeatsPattern(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(10,
		"Hei, jeg fant boka med strekkode AB1234567 i hylla på Juridisk bibliotek.")
	catalog := newFakeCatalog()
	catalog.items["AB1234567"] = &alma.Item{
		Barcode:  "AB1234567",
		Library:  alma.CodeDesc{Value: "1030011", Desc: "HumSam-biblioteket"},
		Location: alma.CodeDesc{Value: "k00475", Desc: "4. etasje"},
	}
	p := newAutoSort(rt, catalog)

	ticket := &domain.Ticket{
		ID:      10,
		Subject: "Bok på avveie",
		Queue:   "ub-brukerhenvendelser",
		Status:  domain.TicketStatusNew,
	}
	handled, err := p.ProcessTicket(context.Background(), ticket)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, rt.edits, 1)
	require.NotNil(t, rt.edits[0].changes.Queue)
	assert.Equal(t, "ub-humsam-biblioteket", *rt.edits[0].changes.Queue)

	// The body pattern also fired; both signals must be audited.
	require.Len(t, rt.comments, 1)
	comment := rt.comments[0].comment
	assert.Contains(t, comment.Text,
		"flyttet fra ub-brukerhenvendelser til ub-humsam-biblioteket")
	assert.Contains(t, comment.Text, "AB1234567 hører til HumSam-biblioteket 4. etasje.")
	assert.Contains(t, comment.Text, "Juridisk bibliotek")
	assert.Equal(t, "triage-audit@example.org", comment.Bcc)
}

func TestAutoSortPatternOnly(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(11, "Jeg vil gjerne besøke Realfagsbiblioteket i morgen.")
	p := newAutoSort(rt, newFakeCatalog())

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:    11,
		Queue: "ub-brukerhenvendelser",
	})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, rt.edits, 1)
	assert.Equal(t, "ub-realfagsbiblioteket", *rt.edits[0].changes.Queue)
}

func TestAutoSortNoSignalsLeavesTicketUntouched(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(12, "Hei, når åpner dere i romjula?")
	p := newAutoSort(rt, newFakeCatalog())

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:    12,
		Queue: "ub-brukerhenvendelser",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.comments)
	assert.Empty(t, rt.edits)
}

func TestAutoSortSenderResourceSharingLibrary(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(13, "Kan dere fornye lånene mine?")
	catalog := newFakeCatalog()
	catalog.usersByEmail["patron@example.org"] = &alma.User{
		PrimaryID:     "patron123",
		UserGroup:     alma.CodeDesc{Value: "3", Desc: "Student"},
		RSLibraryCode: "1030307",
		RSLibraryName: "Medisinsk bibliotek Rikshospitalet",
	}
	p := newAutoSort(rt, catalog)

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:         13,
		Queue:      "ub-brukerhenvendelser",
		Requestors: []string{"patron@example.org"},
	})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, rt.edits, 1)
	assert.Equal(t, "ub-umed", *rt.edits[0].changes.Queue)
	assert.Contains(t, rt.comments[0].comment.Text, "«Student»")
}

func TestAutoSortPrivilegedSenderSuppressed(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(14, "Videresender fra skranken.")
	catalog := newFakeCatalog()
	catalog.usersByEmail["staff@example.org"] = &alma.User{
		PrimaryID:     "staff1",
		UserGroup:     alma.CodeDesc{Value: "8", Desc: "Ansatt UB"},
		RSLibraryCode: "1030307",
		RSLibraryName: "Medisinsk bibliotek Rikshospitalet",
	}
	p := newAutoSort(rt, catalog)

	// Staff members have a resource sharing library too, but it must
	// never drive routing.
	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:         14,
		Queue:      "ub-brukerhenvendelser",
		Requestors: []string{"staff@example.org"},
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.edits)
}

func TestAutoSortUnknownBarcodeFailsOpen(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(15, "Strekkoden er XX9999999.")
	p := newAutoSort(rt, newFakeCatalog())

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:    15,
		Queue: "ub-brukerhenvendelser",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.edits)
}

func TestAutoSortUnknownLibraryCodeSkipped(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(16, "Strekkoden er AB1234567.")
	catalog := newFakeCatalog()
	catalog.items["AB1234567"] = &alma.Item{
		Barcode: "AB1234567",
		Library: alma.CodeDesc{Value: "9999999", Desc: "Ukjent bibliotek"},
	}
	p := newAutoSort(rt, catalog)

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:    16,
		Queue: "ub-brukerhenvendelser",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.edits)
}

func TestAutoSortDeliberateNoOpLibraryCode(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(17, "Strekkoden er AB1234567.")
	catalog := newFakeCatalog()
	catalog.items["AB1234567"] = &alma.Item{
		Barcode: "AB1234567",
		Library: alma.CodeDesc{Value: "1030104", Desc: "UB teknisk avdeling"},
	}
	p := newAutoSort(rt, catalog)

	// The code is known but mapped to no destination: the suggestion is
	// comment-only and must not move the ticket.
	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:    17,
		Queue: "ub-brukerhenvendelser",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.edits)
}

func TestAutoSortIdempotent(t *testing.T) {
	rt := newFakeTracker()
	rt.setPlainTextBody(18, "Jeg vil gjerne besøke Realfagsbiblioteket.")
	p := newAutoSort(rt, newFakeCatalog())
	ticket := &domain.Ticket{ID: 18, Queue: "ub-brukerhenvendelser"}

	for i := 0; i < 2; i++ {
		handled, err := p.ProcessTicket(context.Background(), ticket)
		require.NoError(t, err)
		assert.True(t, handled)
	}

	require.Len(t, rt.edits, 2)
	assert.Equal(t, rt.edits[0], rt.edits[1])
	require.Len(t, rt.comments, 2)
	assert.Equal(t, rt.comments[0], rt.comments[1])
}
