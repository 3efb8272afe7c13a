package workflow

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var ErrCommentGateClosed = apperrors.NewForbidden("you cannot comment on this ticket until an agent first comments")

// UserCanComment reports whether actor may add to the ticket thread. Customers
// cannot start a thread; once anyone has commented the thread is open to all
// readers. Ticket status is not considered.
func UserCanComment(ticket *domain.Ticket, actor *domain.User) bool {
	return ticket.HasComments() || actor.IsAgentOrAdmin()
}
