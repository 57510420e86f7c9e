package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/domain"
)

func TestAutoReplyResolvesOutOfOffice(t *testing.T) {
	rt := newFakeTracker()
	p := NewAutoReply(rt, zap.NewNop())

	ticket := &domain.Ticket{
		ID:         1234,
		Subject:    "Automatic reply: Out of office",
		Queue:      "ub-brukerhenvendelser",
		Status:     domain.TicketStatusNew,
		Requestors: []string{"someone@example.org"},
	}

	handled, err := p.ProcessTicket(context.Background(), ticket)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, rt.comments, 1)
	assert.Equal(t, 1234, rt.comments[0].ticketID)
	assert.Equal(t, "text/html", rt.comments[0].comment.ContentType)
	assert.Contains(t, rt.comments[0].comment.Text, "generelt autosvar")

	require.Len(t, rt.edits, 1)
	require.NotNil(t, rt.edits[0].changes.Status)
	assert.Equal(t, domain.TicketStatusResolved, *rt.edits[0].changes.Status)
	assert.Nil(t, rt.edits[0].changes.Queue)
}

func TestAutoReplyMatchesNorwegianSubject(t *testing.T) {
	rt := newFakeTracker()
	p := NewAutoReply(rt, zap.NewNop())

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:      2,
		Subject: "Automatisk svar: ferie",
	})
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestAutoReplySenderScopedRule(t *testing.T) {
	rt := newFakeTracker()
	p := NewAutoReply(rt, zap.NewNop())

	// Subject matches the sender-scoped rule, but the sender is wrong.
	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:         3,
		Subject:    "Notification Item Letter",
		Requestors: []string{"patron@example.org"},
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.edits)

	handled, err = p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:         4,
		Subject:    "Notification Item Letter",
		Requestors: []string{"noreply@topdesk.net"},
	})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, rt.comments, 1)
	assert.Contains(t, rt.comments[0].comment.Text, "UBB")
}

func TestAutoReplyDeclinesOrdinaryTicket(t *testing.T) {
	rt := newFakeTracker()
	p := NewAutoReply(rt, zap.NewNop())

	handled, err := p.ProcessTicket(context.Background(), &domain.Ticket{
		ID:      5,
		Subject: "Spørsmål om lånekort",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rt.comments)
	assert.Empty(t, rt.edits)
}
