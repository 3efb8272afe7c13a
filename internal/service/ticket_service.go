package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/validation"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ErrConcurrentUpdate is returned when another request changed the ticket
// between our read and our conditional write.
var ErrConcurrentUpdate = apperrors.NewDomainError("CONFLICT", "ticket was modified by another request", http.StatusConflict, nil)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	validator  *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	window     time.Duration
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	UserRepo     repository.UserRepository
	Validator    *validation.Validator
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	ReportWindow time.Duration
	Clock        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		validator:  deps.Validator,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		window:     deps.ReportWindow,
		now:        deps.Clock,
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.window <= 0 {
		s.window = workflow.DefaultReportWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTicket opens a ticket on behalf of actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input validation.TicketInput) (*domain.Ticket, error) {
	if err := policy.Authorize(actor, policy.ActionCreateTicket, nil); err != nil {
		return nil, err
	}
	if err := s.validator.Validate("ticket", &input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		CreatorID:   actor.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.Comments == nil {
		ticket.Comments = []domain.Comment{}
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketCreatedPayload{CreatorID: actor.ID, Title: ticket.Title},
	})
	return ticket, nil
}

// ListOwnTickets returns the tickets actor has opened.
func (s *TicketService) ListOwnTickets(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	if err := policy.Authorize(actor, policy.ActionViewTicket, nil); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListByCreator(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket returns a ticket visible to actor.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := policy.Authorize(actor, policy.ActionViewTicket, nil); err != nil {
		return nil, err
	}
	return s.loadForActor(ctx, actor, ticketID)
}

// ProcessTicket moves an open ticket into processing.
func (s *TicketService) ProcessTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, policy.ActionProcessTicket, workflow.TransitionProcess)
}

// CloseTicket closes a ticket that is being processed.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, policy.ActionCloseTicket, workflow.TransitionClose)
}

// ResetTicket reopens a processing or closed ticket.
func (s *TicketService) ResetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, policy.ActionResetTicket, workflow.TransitionReset)
}

// DeleteTicket removes a ticket and its thread, whatever its status.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := policy.Authorize(actor, policy.ActionDeleteTicket, nil); err != nil {
		return nil, err
	}
	ticket, err := s.loadForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.ID))
	s.publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: ticket.ID, ActorID: actor.ID})
	return ticket, nil
}

// AddComment appends a comment to the ticket thread if the comment gate allows it.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID string, input validation.CommentInput) (*domain.Comment, error) {
	if err := policy.Authorize(actor, policy.ActionCommentTicket, nil); err != nil {
		return nil, err
	}
	ticket, err := s.loadForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate("comment", &input); err != nil {
		return nil, err
	}
	if !workflow.UserCanComment(ticket, actor) {
		return nil, workflow.ErrCommentGateClosed
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Body:     input.Body,
	}
	if err := s.comments.Append(ctx, comment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// ListComments returns the ticket thread in chronological order.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	if err := policy.Authorize(actor, policy.ActionViewTicket, nil); err != nil {
		return nil, err
	}
	ticket, err := s.loadForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket.Comments, nil
}

// ReportResult is the report produced for an actor.
type ReportResult struct {
	Tickets     []domain.Ticket
	Users       map[string]*domain.User
	GeneratedAt time.Time
}

// Report selects the tickets closed within the trailing report window.
func (s *TicketService) Report(ctx context.Context, actor *domain.User) (*ReportResult, error) {
	if err := policy.Authorize(actor, policy.ActionViewReport, nil); err != nil {
		return nil, err
	}
	return s.buildReport(ctx)
}

// DownloadReport renders the report as CSV. Admins receive the processing and
// closing columns as well.
func (s *TicketService) DownloadReport(ctx context.Context, actor *domain.User) (string, []byte, error) {
	if err := policy.Authorize(actor, policy.ActionDownloadReport, nil); err != nil {
		return "", nil, err
	}
	result, err := s.buildReport(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(result.Tickets) == 0 {
		return "", nil, workflow.ErrNoReportData
	}
	data, err := report.WriteCSV(result.Tickets, result.Users, actor.IsAdmin)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return report.Filename(result.GeneratedAt), data, nil
}

func (s *TicketService) buildReport(ctx context.Context) (*ReportResult, error) {
	now := s.now()
	candidates, err := s.tickets.ListClosedSince(ctx, workflow.ReportCutoff(now, s.window))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	selected := workflow.SelectReportTickets(candidates, now, s.window)
	users, err := s.ResolveUsers(ctx, selected...)
	if err != nil {
		return nil, err
	}
	return &ReportResult{Tickets: selected, Users: users, GeneratedAt: now}, nil
}

// ResolveUsers loads every user referenced by the tickets, keyed by id.
// References to users that no longer exist are skipped.
func (s *TicketService) ResolveUsers(ctx context.Context, tickets ...domain.Ticket) (map[string]*domain.User, error) {
	resolved := map[string]*domain.User{}
	lookup := func(id *string) error {
		if id == nil || *id == "" {
			return nil
		}
		if _, done := resolved[*id]; done {
			return nil
		}
		user, err := s.users.GetByID(ctx, *id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				resolved[*id] = nil
				return nil
			}
			return apperrors.MapError(err)
		}
		resolved[*id] = user
		return nil
	}
	for i := range tickets {
		creator := tickets[i].CreatorID
		for _, id := range []*string{&creator, tickets[i].ProcessedByID, tickets[i].ClosedByID} {
			if err := lookup(id); err != nil {
				return nil, err
			}
		}
	}
	for id, user := range resolved {
		if user == nil {
			delete(resolved, id)
		}
	}
	return resolved, nil
}

func (s *TicketService) transition(ctx context.Context, actor *domain.User, ticketID string, action policy.Action, transition workflow.Transition) (*domain.Ticket, error) {
	if err := policy.Authorize(actor, action, nil); err != nil {
		return nil, err
	}
	ticket, err := s.loadForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	next, err := workflow.Apply(ticket, transition, actor, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.UpdateStatus(ctx, next, ticket.Status); err != nil {
		if errors.Is(err, repository.ErrStaleTicket) {
			return nil, s.staleTransitionError(ctx, actor, ticketID, transition)
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", next.ID),
		zap.String("actor_id", actor.ID),
		zap.String("from", string(ticket.Status)),
		zap.String("to", string(next.Status)))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: next.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: next.Status},
	})
	return next, nil
}

// staleTransitionError explains a lost compare-and-set race using the status
// that won. No retry is attempted.
func (s *TicketService) staleTransitionError(ctx context.Context, actor *domain.User, ticketID string, transition workflow.Transition) error {
	current, err := s.loadForActor(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	if _, err := workflow.Apply(current, transition, actor, s.now()); err != nil {
		return err
	}
	return ErrConcurrentUpdate
}

// loadForActor hides tickets a customer does not own behind the same not-found
// error as missing ones.
func (s *TicketService) loadForActor(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.IsAgentOrAdmin() && ticket.CreatorID != actor.ID {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	publishEvent(ctx, s.dispatcher, event)
}

func stringPreview(body string, limit int) string {
	body = strings.TrimSpace(body)
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
