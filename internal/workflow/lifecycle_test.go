package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	agent = &domain.User{ID: "agent-1", IsAgent: true}
	now   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func openTicket() *domain.Ticket {
	return &domain.Ticket{ID: "t1", CreatorID: "c1", Title: "Help", Description: "...", Status: domain.TicketStatusOpen}
}

func TestProcess(t *testing.T) {
	ticket := openTicket()

	next, err := Process(ticket, agent, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusProcessing, next.Status)
	require.NotNil(t, next.ProcessedByID)
	assert.Equal(t, agent.ID, *next.ProcessedByID)
	assert.Equal(t, now, *next.ProcessedAt)
	assert.Nil(t, next.ClosedByID)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status, "input must not be modified")
	assert.Nil(t, ticket.ProcessedByID)
}

func TestClose(t *testing.T) {
	processing, err := Process(openTicket(), agent, now)
	require.NoError(t, err)

	closed, err := Close(processing, agent, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Equal(t, agent.ID, *closed.ClosedByID)
	assert.Equal(t, now.Add(time.Hour), *closed.ClosedAt)
	assert.Equal(t, agent.ID, *closed.ProcessedByID)
}

func TestReset_ClearsWorkFields(t *testing.T) {
	processing, err := Process(openTicket(), agent, now)
	require.NoError(t, err)
	closed, err := Close(processing, agent, now)
	require.NoError(t, err)

	for _, ticket := range []*domain.Ticket{processing, closed} {
		reopened, err := Reset(ticket)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
		assert.Nil(t, reopened.ProcessedByID)
		assert.Nil(t, reopened.ProcessedAt)
		assert.Nil(t, reopened.ClosedByID)
		assert.Nil(t, reopened.ClosedAt)
	}
}

func TestIllegalTransitions(t *testing.T) {
	processing, _ := Process(openTicket(), agent, now)
	closed, _ := Close(processing, agent, now)

	cases := []struct {
		name       string
		ticket     *domain.Ticket
		transition Transition
		want       error
	}{
		{"process processing", processing, TransitionProcess, ErrAlreadyProcessing},
		{"process closed", closed, TransitionProcess, ErrCannotProcessClosed},
		{"close open", openTicket(), TransitionClose, ErrMustProcessFirst},
		{"close closed", closed, TransitionClose, ErrAlreadyClosed},
		{"reset open", openTicket(), TransitionReset, ErrStillOpen},
		{"unknown", openTicket(), Transition("archive"), ErrUnknownTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := *tc.ticket
			next, err := Apply(tc.ticket, tc.transition, agent, now)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, next)
			assert.Equal(t, before, *tc.ticket)
		})
	}
}

func TestApply_FullCycle(t *testing.T) {
	ticket := openTicket()
	var err error
	for _, step := range []Transition{TransitionProcess, TransitionClose, TransitionReset, TransitionProcess} {
		ticket, err = Apply(ticket, step, agent, now)
		require.NoError(t, err, string(step))
	}
	assert.Equal(t, domain.TicketStatusProcessing, ticket.Status)
}

func TestApply_DoesNotShareComments(t *testing.T) {
	ticket := openTicket()
	ticket.Comments = []domain.Comment{{ID: "c1"}}

	next, err := Process(ticket, agent, now)
	require.NoError(t, err)
	next.Comments[0].Body = "changed"
	assert.Empty(t, ticket.Comments[0].Body)
}
