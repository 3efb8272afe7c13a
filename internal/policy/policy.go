package policy

import (
	"net/http"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Action identifies something an actor wants to do.
type Action string

const (
	ActionCreateTicket   Action = "ticket.create"
	ActionViewTicket     Action = "ticket.view"
	ActionCommentTicket  Action = "ticket.comment"
	ActionProcessTicket  Action = "ticket.process"
	ActionCloseTicket    Action = "ticket.close"
	ActionResetTicket    Action = "ticket.reset"
	ActionDeleteTicket   Action = "ticket.delete"
	ActionViewReport     Action = "report.view"
	ActionDownloadReport Action = "report.download"
	ActionListUsers      Action = "user.list"
	ActionViewUser       Action = "user.view"
	ActionPromoteUser    Action = "user.promote"
	ActionDemoteUser     Action = "user.demote"
)

// Role is the minimum privilege an action needs.
type Role int

const (
	RoleAny Role = iota
	RoleAgentOrAdmin
	RoleAdmin
)

var (
	ErrUnauthenticated         = apperrors.NewDomainError("UNAUTHORIZED", "You need to signup or login first", http.StatusUnauthorized, nil)
	ErrInsufficientPermissions = apperrors.NewDomainError("FORBIDDEN", "insufficient permissions to perform this action", http.StatusForbidden, nil)
	ErrUnknownAction           = apperrors.NewDomainError("FORBIDDEN", "unknown action", http.StatusForbidden, nil)
	ErrTargetIsAdmin           = apperrors.NewDomainError("TARGET_IS_ADMIN", "specified user is an admin", http.StatusConflict, nil)
	ErrAlreadyAgent            = apperrors.NewDomainError("ALREADY_AGENT", "specified user is already an agent", http.StatusConflict, nil)
	ErrNotAgent                = apperrors.NewDomainError("NOT_AGENT", "specified user is not an agent", http.StatusConflict, nil)
)

type rule struct {
	role   Role
	target func(target *domain.User) error
}

var table = map[Action]rule{
	ActionCreateTicket:   {role: RoleAny},
	ActionViewTicket:     {role: RoleAny},
	ActionCommentTicket:  {role: RoleAny},
	ActionProcessTicket:  {role: RoleAgentOrAdmin},
	ActionCloseTicket:    {role: RoleAgentOrAdmin},
	ActionResetTicket:    {role: RoleAgentOrAdmin},
	ActionViewReport:     {role: RoleAgentOrAdmin},
	ActionDownloadReport: {role: RoleAgentOrAdmin},
	ActionDeleteTicket:   {role: RoleAdmin},
	ActionListUsers:      {role: RoleAdmin},
	ActionViewUser:       {role: RoleAdmin},
	ActionPromoteUser:    {role: RoleAdmin, target: promotable},
	ActionDemoteUser:     {role: RoleAdmin, target: demotable},
}

// Authorize decides whether actor may perform action, optionally against a
// target user. A nil return means allow; otherwise the error is the deny reason.
// Target rules are only evaluated when a target is supplied.
func Authorize(actor *domain.User, action Action, target *domain.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	r, ok := table[action]
	if !ok {
		return ErrUnknownAction
	}
	if !hasRole(actor, r.role) {
		return ErrInsufficientPermissions
	}
	if target != nil && r.target != nil {
		return r.target(target)
	}
	return nil
}

// RequiredRole returns the minimum role for an action.
func RequiredRole(action Action) (Role, bool) {
	r, ok := table[action]
	return r.role, ok
}

func hasRole(actor *domain.User, role Role) bool {
	switch role {
	case RoleAny:
		return true
	case RoleAgentOrAdmin:
		return actor.IsAgentOrAdmin()
	case RoleAdmin:
		return actor.IsAdmin
	default:
		return false
	}
}

func promotable(target *domain.User) error {
	if target.IsAdmin {
		return ErrTargetIsAdmin
	}
	if target.IsAgent {
		return ErrAlreadyAgent
	}
	return nil
}

func demotable(target *domain.User) error {
	if target.IsAdmin {
		return ErrTargetIsAdmin
	}
	if !target.IsAgent {
		return ErrNotAgent
	}
	return nil
}
