package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/validation"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestCreateTicketValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.tickets.CreateTicket(context.Background(), h.customer, validation.TicketInput{Title: "  "})
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, 400, de.HTTPStatus)
	violations := de.Details["violations"].([]apperrors.Violation)
	assert.Equal(t, []apperrors.Violation{
		{Scope: "title", Violation: "ticket title must be present"},
		{Scope: "description", Violation: "ticket description must be present"},
	}, violations)
}

func TestCreateTicketStartsOpen(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t, h.customer)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, h.customer.ID, ticket.CreatorID)
	assert.Empty(t, ticket.Comments)
	assert.Nil(t, ticket.ProcessedByID)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, h.events.types())
}

func TestLifecycleHappyPathAndRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)

	_, err := h.tickets.CloseTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, workflow.ErrMustProcessFirst)
	_, err = h.tickets.ResetTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, workflow.ErrStillOpen)

	processed, err := h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusProcessing, processed.Status)
	require.NotNil(t, processed.ProcessedByID)
	assert.Equal(t, h.agent.ID, *processed.ProcessedByID)
	assert.Equal(t, testNow, *processed.ProcessedAt)

	_, err = h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, workflow.ErrAlreadyProcessing)
	assert.Equal(t, "ticket is already processing", err.Error())

	h.advance(time.Hour)
	closed, err := h.tickets.CloseTicket(ctx, h.admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Equal(t, h.admin.ID, *closed.ClosedByID)
	assert.Equal(t, h.agent.ID, *closed.ProcessedByID)

	_, err = h.tickets.CloseTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, workflow.ErrAlreadyClosed)
	_, err = h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, workflow.ErrCannotProcessClosed)

	reset, err := h.tickets.ResetTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reset.Status)
	assert.Nil(t, reset.ProcessedByID)
	assert.Nil(t, reset.ProcessedAt)
	assert.Nil(t, reset.ClosedByID)
	assert.Nil(t, reset.ClosedAt)

	stored, err := h.tickets.GetTicket(ctx, h.customer, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Nil(t, stored.ClosedAt)
}

func TestCustomerCannotTransition(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t, h.customer)

	_, err := h.tickets.ProcessTicket(context.Background(), h.customer, ticket.ID)
	assert.ErrorIs(t, err, policy.ErrInsufficientPermissions)

	stored, err := h.tickets.GetTicket(context.Background(), h.customer, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestTicketVisibilityIsScoped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)

	_, err := h.tickets.GetTicket(ctx, h.other, ticket.ID)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, 404, de.HTTPStatus)
	assert.Equal(t, "ticket not found", de.Message)

	_, err = h.tickets.GetTicket(ctx, h.other, "missing")
	assert.Equal(t, "ticket not found", apperrors.ToDomainError(err).Message)

	got, err := h.tickets.GetTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	own, err := h.tickets.ListOwnTickets(ctx, h.customer)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	none, err := h.tickets.ListOwnTickets(ctx, h.other)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommentGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)

	_, err := h.tickets.AddComment(ctx, h.customer, ticket.ID, validation.CommentInput{Body: "   "})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, 400, de.HTTPStatus)
	assert.Equal(t, []apperrors.Violation{{Scope: "body", Violation: "comment body must be present"}}, de.Details["violations"])

	_, err = h.tickets.AddComment(ctx, h.customer, ticket.ID, validation.CommentInput{Body: "hello?"})
	assert.ErrorIs(t, err, workflow.ErrCommentGateClosed)
	assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)

	_, err = h.tickets.AddComment(ctx, h.agent, ticket.ID, validation.CommentInput{Body: " "})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)

	first, err := h.tickets.AddComment(ctx, h.agent, ticket.ID, validation.CommentInput{Body: "Looking into it"})
	require.NoError(t, err)
	assert.Equal(t, h.agent.ID, first.AuthorID)

	h.advance(time.Minute)
	_, err = h.tickets.AddComment(ctx, h.customer, ticket.ID, validation.CommentInput{Body: "Thanks"})
	require.NoError(t, err)

	thread, err := h.tickets.ListComments(ctx, h.customer, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "Looking into it", thread[0].Body)
	assert.Equal(t, "Thanks", thread[1].Body)

	_, err = h.tickets.AddComment(ctx, h.other, ticket.ID, validation.CommentInput{Body: "me too"})
	assert.Equal(t, 404, apperrors.ToDomainError(err).HTTPStatus)
}

func TestCommentGateIgnoresStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)
	_, err := h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	_, err = h.tickets.CloseTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)

	_, err = h.tickets.AddComment(ctx, h.agent, ticket.ID, validation.CommentInput{Body: "closing note"})
	require.NoError(t, err)
	_, err = h.tickets.AddComment(ctx, h.customer, ticket.ID, validation.CommentInput{Body: "ok"})
	require.NoError(t, err)
}

func TestDeleteTicketAdminOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)
	_, err := h.tickets.AddComment(ctx, h.agent, ticket.ID, validation.CommentInput{Body: "hi"})
	require.NoError(t, err)

	_, err = h.tickets.DeleteTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, policy.ErrInsufficientPermissions)

	deleted, err := h.tickets.DeleteTicket(ctx, h.admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, deleted.ID)

	_, err = h.tickets.GetTicket(ctx, h.admin, ticket.ID)
	assert.Equal(t, 404, apperrors.ToDomainError(err).HTTPStatus)
	comments, err := h.store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

// racingTickets changes the stored status right before the service's
// conditional write so the write observes a stale status.
type racingTickets struct {
	repository.TicketRepository
	interfere func(ctx context.Context, ticket *domain.Ticket)
}

func (r *racingTickets) UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	if r.interfere != nil {
		interfere := r.interfere
		r.interfere = nil
		interfere(ctx, ticket)
	}
	return r.TicketRepository.UpdateStatus(ctx, ticket, expected)
}

func TestConcurrentProcessLosesWithLifecycleError(t *testing.T) {
	var racer *racingTickets
	h := newHarnessWithTickets(t, func(inner repository.TicketRepository) repository.TicketRepository {
		racer = &racingTickets{TicketRepository: inner}
		return racer
	})
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)

	racer.interfere = func(ctx context.Context, ticket *domain.Ticket) {
		current, err := racer.TicketRepository.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		winner, err := workflow.Process(current, h.admin, testNow)
		require.NoError(t, err)
		require.NoError(t, racer.TicketRepository.UpdateStatus(ctx, winner, domain.TicketStatusOpen))
	}

	_, err := h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, workflow.ErrAlreadyProcessing)

	stored, err := h.tickets.GetTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, h.admin.ID, *stored.ProcessedByID)
}

func TestConcurrentTransitionStillLegalReportsConflict(t *testing.T) {
	var racer *racingTickets
	h := newHarnessWithTickets(t, func(inner repository.TicketRepository) repository.TicketRepository {
		racer = &racingTickets{TicketRepository: inner}
		return racer
	})
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)
	_, err := h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)

	// Another agent closes the ticket while a reset is in flight; reset is
	// still legal from closed, but the observed status is stale.
	racer.interfere = func(ctx context.Context, ticket *domain.Ticket) {
		current, err := racer.TicketRepository.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		winner, err := workflow.Close(current, h.admin, testNow)
		require.NoError(t, err)
		require.NoError(t, racer.TicketRepository.UpdateStatus(ctx, winner, domain.TicketStatusProcessing))
	}

	_, err = h.tickets.ResetTicket(ctx, h.agent, ticket.ID)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	stored, err := h.tickets.GetTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}

func closeTicketAt(t *testing.T, h *harness, closedAt time.Time) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	saved := *h.clock
	*h.clock = closedAt
	defer func() { *h.clock = saved }()

	ticket := h.openTicket(t, h.customer)
	_, err := h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	closed, err := h.tickets.CloseTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	return closed
}

func TestReportWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	boundary := closeTicketAt(t, h, testNow.Add(-workflow.DefaultReportWindow))
	closeTicketAt(t, h, testNow.Add(-workflow.DefaultReportWindow-time.Second))
	recent := closeTicketAt(t, h, testNow.Add(-time.Hour))
	h.openTicket(t, h.customer)

	result, err := h.tickets.Report(ctx, h.agent)
	require.NoError(t, err)
	require.Len(t, result.Tickets, 2)
	assert.Equal(t, boundary.ID, result.Tickets[0].ID)
	assert.Equal(t, recent.ID, result.Tickets[1].ID)
	assert.Equal(t, "customer@example.com", result.Users[h.customer.ID].Email)

	_, err = h.tickets.Report(ctx, h.customer)
	assert.ErrorIs(t, err, policy.ErrInsufficientPermissions)
}

func TestDownloadReportEmpty(t *testing.T) {
	h := newHarness(t)
	h.openTicket(t, h.customer)

	_, _, err := h.tickets.DownloadReport(context.Background(), h.agent)
	assert.ErrorIs(t, err, workflow.ErrNoReportData)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, 404, de.HTTPStatus)
	assert.Equal(t, "EMPTY_RESULT", de.Code)
}

func TestDownloadReportColumnsByRole(t *testing.T) {
	h := newHarness(t)
	closeTicketAt(t, h, testNow.Add(-time.Hour))

	name, data, err := h.tickets.DownloadReport(context.Background(), h.agent)
	require.NoError(t, err)
	assert.Equal(t, "Report-1718452800000.csv", name)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, records[0], 6)
	assert.Equal(t, "customer@example.com", records[1][3])

	_, data, err = h.tickets.DownloadReport(context.Background(), h.admin)
	require.NoError(t, err)
	records, err = csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records[0], 10)
	assert.Equal(t, "agent@example.com", records[1][6])
	assert.Equal(t, "agent@example.com", records[1][8])
}

func TestStatusChangeEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t, h.customer)
	_, err := h.tickets.ProcessTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)

	require.Len(t, h.events.events, 2)
	changed := h.events.events[1]
	assert.Equal(t, events.EventTicketStatusChanged, changed.Type)
	assert.NotEmpty(t, changed.ID)
	assert.Equal(t, events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusOpen,
		NewStatus: domain.TicketStatusProcessing,
	}, changed.Payload)
}
