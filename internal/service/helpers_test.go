package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/validation"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type recordedEvents struct {
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, event events.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	types := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type harness struct {
	store    *memory.Store
	tickets  *TicketService
	users    *UserService
	events   *recordedEvents
	clock    *time.Time
	admin    *domain.User
	agent    *domain.User
	customer *domain.User
	other    *domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithTickets(t, nil)
}

// newHarnessWithTickets lets a test wrap the ticket repository.
func newHarnessWithTickets(t *testing.T, wrap func(repository.TicketRepository) repository.TicketRepository) *harness {
	t.Helper()
	store := memory.NewStore()
	now := testNow
	clock := func() time.Time { return now }
	store.SetClock(clock)

	recorded := &recordedEvents{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, recorded.handle)
	}

	ticketRepo := store.Tickets()
	if wrap != nil {
		ticketRepo = wrap(ticketRepo)
	}

	h := &harness{
		store:  store,
		events: recorded,
		clock:  &now,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  ticketRepo,
			CommentRepo: store.Comments(),
			UserRepo:    store.Users(),
			Validator:   validation.New(),
			Dispatcher:  dispatcher,
			Logger:      zap.NewNop(),
			Clock:       clock,
		}),
		users: NewUserService(UserDependencies{
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
			Logger:     zap.NewNop(),
		}),
	}
	h.admin = h.addUser(t, "admin", true, false)
	h.agent = h.addUser(t, "agent", false, true)
	h.customer = h.addUser(t, "customer", false, false)
	h.other = h.addUser(t, "other", false, false)
	return h
}

func (h *harness) addUser(t *testing.T, name string, isAdmin, isAgent bool) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		IsAdmin:      isAdmin,
		IsAgent:      isAgent,
	}
	require.NoError(t, h.store.Users().Create(context.Background(), user))
	return user
}

func (h *harness) advance(d time.Duration) {
	*h.clock = h.clock.Add(d)
}

func (h *harness) openTicket(t *testing.T, creator *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), creator, validation.TicketInput{
		Title:       "Cannot log in",
		Description: "The portal rejects my password",
	})
	require.NoError(t, err)
	return ticket
}
