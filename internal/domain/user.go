package domain

import (
	"strings"
	"time"
)

// UserScope is a role filter used when listing users.
type UserScope string

const (
	UserScopeAll      UserScope = ""
	UserScopeAdmin    UserScope = "admin"
	UserScopeAgent    UserScope = "agent"
	UserScopeCustomer UserScope = "customer"
)

// ParseUserScope maps a query value onto a scope, ignoring case. Plural forms
// are accepted and anything unrecognised lists every user.
func ParseUserScope(raw string) UserScope {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return UserScopeAdmin
	case "agent", "agents":
		return UserScopeAgent
	case "customer", "customers":
		return UserScopeCustomer
	default:
		return UserScopeAll
	}
}

// User is an account that can open tickets and, with the right flags, work them.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsAgent      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAgentOrAdmin reports whether the user may work tickets.
func (u *User) IsAgentOrAdmin() bool {
	return u != nil && (u.IsAdmin || u.IsAgent)
}

// IsCustomer reports whether the user holds no elevated role.
func (u *User) IsCustomer() bool {
	return !u.IsAgentOrAdmin()
}
