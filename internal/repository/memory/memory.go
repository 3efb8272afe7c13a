// Package memory keeps users, tickets and comments in process memory. It backs
// local runs without POSTGRES_DSN and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds all records behind a single lock.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[string]domain.User
	userSeq   []string
	tickets   map[string]domain.Ticket
	ticketSeq []string
	comments  map[string][]domain.Comment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    map[string]domain.User{},
		tickets:  map[string]domain.Ticket{},
		comments: map[string][]domain.Comment{},
	}
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Tickets exposes the store as a TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return (*ticketRepo)(s) }

// Comments exposes the store as a CommentRepository.
func (s *Store) Comments() repository.CommentRepository { return (*commentRepo)(s) }

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(user) {
		return repository.ErrDuplicate
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	s.userSeq = append(s.userSeq, user.ID)
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	if s.taken(user) {
		return repository.ErrDuplicate
	}
	user.UpdatedAt = s.now()
	s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) ListByScope(_ context.Context, scope domain.UserScope) ([]domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []domain.User{}
	for _, id := range s.userSeq {
		u := s.users[id]
		switch scope {
		case domain.UserScopeAdmin:
			if !u.IsAdmin {
				continue
			}
		case domain.UserScopeAgent:
			if !u.IsAgent {
				continue
			}
		case domain.UserScopeCustomer:
			if u.IsAdmin || u.IsAgent {
				continue
			}
		}
		result = append(result, u)
	}
	return result, nil
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.userSeq {
		if u := s.users[id]; match(u) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Store) taken(user *domain.User) bool {
	for id, other := range s.users {
		if id == user.ID {
			continue
		}
		if other.Email == user.Email || other.Username == user.Username {
			return true
		}
	}
	return false
}

type ticketRepo Store

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Comments = []domain.Comment{}
	s.tickets[ticket.ID] = *ticket
	s.ticketSeq = append(s.ticketSeq, ticket.ID)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.withComments(ticket), nil
}

func (r *ticketRepo) ListByCreator(_ context.Context, creatorID string) ([]domain.Ticket, error) {
	return r.list(func(t domain.Ticket) bool { return t.CreatorID == creatorID }), nil
}

func (r *ticketRepo) ListClosedSince(_ context.Context, since time.Time) ([]domain.Ticket, error) {
	return r.list(func(t domain.Ticket) bool {
		return t.Status == domain.TicketStatusClosed && t.ClosedAt != nil && !t.ClosedAt.Before(since)
	}), nil
}

func (r *ticketRepo) UpdateStatus(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[ticket.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStaleTicket
	}
	stored.Status = ticket.Status
	stored.ProcessedByID = ticket.ProcessedByID
	stored.ProcessedAt = ticket.ProcessedAt
	stored.ClosedByID = ticket.ClosedByID
	stored.ClosedAt = ticket.ClosedAt
	stored.UpdatedAt = s.now()
	ticket.UpdatedAt = stored.UpdatedAt
	s.tickets[ticket.ID] = stored
	return nil
}

func (r *ticketRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tickets, id)
	delete(s.comments, id)
	for i, seqID := range s.ticketSeq {
		if seqID == id {
			s.ticketSeq = append(s.ticketSeq[:i], s.ticketSeq[i+1:]...)
			break
		}
	}
	return nil
}

func (r *ticketRepo) list(match func(domain.Ticket) bool) []domain.Ticket {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []domain.Ticket{}
	for _, id := range s.ticketSeq {
		if t := s.tickets[id]; match(t) {
			result = append(result, *s.withComments(t))
		}
	}
	return result
}

func (s *Store) withComments(ticket domain.Ticket) *domain.Ticket {
	ticket.Comments = append([]domain.Comment{}, s.comments[ticket.ID]...)
	return &ticket
}

type commentRepo Store

func (r *commentRepo) Append(_ context.Context, comment *domain.Comment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[comment.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = s.now()
	s.comments[comment.TicketID] = append(s.comments[comment.TicketID], *comment)
	ticket.UpdatedAt = comment.CreatedAt
	s.tickets[ticket.ID] = ticket
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Comment{}, s.comments[ticketID]...), nil
}

// SetClock overrides the time source used for record timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
