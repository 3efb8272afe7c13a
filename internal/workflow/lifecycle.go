package workflow

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Transition names a lifecycle edge.
type Transition string

const (
	TransitionProcess Transition = "process"
	TransitionClose   Transition = "close"
	TransitionReset   Transition = "reset"
)

var (
	ErrAlreadyProcessing   = apperrors.NewBadRequest("ALREADY_PROCESSING", "ticket is already processing")
	ErrCannotProcessClosed = apperrors.NewBadRequest("CANNOT_PROCESS_CLOSED", "you cannot process a closed ticket")
	ErrMustProcessFirst    = apperrors.NewBadRequest("MUST_PROCESS_FIRST", "ticket must be processed first before being closed")
	ErrAlreadyClosed       = apperrors.NewBadRequest("ALREADY_CLOSED", "ticket is already closed")
	ErrStillOpen           = apperrors.NewBadRequest("STILL_OPEN", "ticket is still open")
	ErrUnknownTransition   = apperrors.NewBadRequest("UNKNOWN_TRANSITION", "unknown ticket transition")
)

// Apply validates a transition against the ticket's current status and returns
// the updated copy. The input ticket is never modified.
func Apply(ticket *domain.Ticket, transition Transition, actor *domain.User, now time.Time) (*domain.Ticket, error) {
	switch transition {
	case TransitionProcess:
		return Process(ticket, actor, now)
	case TransitionClose:
		return Close(ticket, actor, now)
	case TransitionReset:
		return Reset(ticket)
	default:
		return nil, ErrUnknownTransition
	}
}

// Process moves an open ticket into processing.
func Process(ticket *domain.Ticket, actor *domain.User, now time.Time) (*domain.Ticket, error) {
	switch ticket.Status {
	case domain.TicketStatusClosed:
		return nil, ErrCannotProcessClosed
	case domain.TicketStatusProcessing:
		return nil, ErrAlreadyProcessing
	}
	next := clone(ticket)
	next.Status = domain.TicketStatusProcessing
	next.ProcessedByID = stringPtr(actor.ID)
	next.ProcessedAt = timePtr(now)
	return next, nil
}

// Close finishes a ticket that is being processed.
func Close(ticket *domain.Ticket, actor *domain.User, now time.Time) (*domain.Ticket, error) {
	switch ticket.Status {
	case domain.TicketStatusClosed:
		return nil, ErrAlreadyClosed
	case domain.TicketStatusOpen:
		return nil, ErrMustProcessFirst
	}
	next := clone(ticket)
	next.Status = domain.TicketStatusClosed
	next.ClosedByID = stringPtr(actor.ID)
	next.ClosedAt = timePtr(now)
	return next, nil
}

// Reset reopens a processing or closed ticket and drops its work metadata.
func Reset(ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket.Status == domain.TicketStatusOpen {
		return nil, ErrStillOpen
	}
	next := clone(ticket)
	next.Status = domain.TicketStatusOpen
	next.ProcessedByID = nil
	next.ProcessedAt = nil
	next.ClosedByID = nil
	next.ClosedAt = nil
	return next, nil
}

func clone(ticket *domain.Ticket) *domain.Ticket {
	next := *ticket
	if ticket.Comments != nil {
		next.Comments = append([]domain.Comment(nil), ticket.Comments...)
	}
	return &next
}

func stringPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
