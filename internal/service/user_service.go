package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UserService implements the admin user-management actions.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for UserService.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: deps.UserRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// ListUsers returns users matching scope.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, scope domain.UserScope) ([]domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionListUsers, nil); err != nil {
		return nil, err
	}
	users, err := s.users.ListByScope(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetUser returns any user by id.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionViewUser, nil); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Promote grants the agent role.
func (s *UserService) Promote(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.setAgent(ctx, actor, id, policy.ActionPromoteUser, true)
}

// Demote revokes the agent role.
func (s *UserService) Demote(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.setAgent(ctx, actor, id, policy.ActionDemoteUser, false)
}

func (s *UserService) setAgent(ctx context.Context, actor *domain.User, id string, action policy.Action, isAgent bool) (*domain.User, error) {
	if err := policy.Authorize(actor, action, nil); err != nil {
		return nil, err
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, action, target); err != nil {
		return nil, err
	}

	target.IsAgent = isAgent
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user role changed",
		zap.String("user_id", target.ID),
		zap.String("actor_id", actor.ID),
		zap.Bool("is_agent", isAgent))
	s.publish(ctx, events.Event{
		Type:    events.EventUserRoleChanged,
		ActorID: actor.ID,
		Payload: events.UserRoleChangedPayload{UserID: target.ID, IsAgent: isAgent},
	})
	return target, nil
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
