package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/validation"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	ErrEmailTaken    = apperrors.NewDomainError("CONFLICT", "email is already taken", http.StatusConflict, map[string]any{"scope": "email"})
	ErrUsernameTaken = apperrors.NewDomainError("CONFLICT", "username is already taken", http.StatusConflict, map[string]any{"scope": "username"})
	ErrInvalidSignin = apperrors.NewDomainError("UNAUTHORIZED", "incorrect signin details", http.StatusUnauthorized, map[string]any{"scope": "username/email or password"})
)

// AuthResult is returned by signup and login.
type AuthResult struct {
	User  *domain.User
	Token domain.Token
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	validator  *validation.Validator
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Validator *validation.Validator
	Logger    *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		validator:  v,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Signup creates a customer account and signs it in.
func (s *AuthService) Signup(ctx context.Context, input validation.SignupInput) (*AuthResult, error) {
	input.Normalize()
	if err := s.validator.Validate("signup", &input); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, input.Email, input.Username); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.duplicateError(ctx, input.Email, input.Username)
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login authenticates by email or username.
func (s *AuthService) Login(ctx context.Context, input validation.LoginInput) (*AuthResult, error) {
	input.Normalize()
	if err := s.validator.Validate("signin", &input); err != nil {
		return nil, err
	}

	var (
		user *domain.User
		err  error
	)
	if input.Email != "" {
		user, err = s.users.GetByEmail(ctx, input.Email)
	}
	if input.Email == "" || (errors.Is(err, pgx.ErrNoRows) && input.Username != "") {
		user, err = s.users.GetByUsername(ctx, input.Username)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidSignin
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, ErrInvalidSignin
	}
	return s.issue(user)
}

// SeedAccount creates or updates an account with fixed role flags. Used by the
// development seeding command.
func (s *AuthService) SeedAccount(ctx context.Context, input validation.SignupInput, isAdmin, isAgent bool) (*domain.User, bool, error) {
	input.Normalize()
	if err := s.validator.Validate("seed", &input); err != nil {
		return nil, false, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.users.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		existing.Username = input.Username
		existing.PasswordHash = hash
		existing.IsAdmin = isAdmin
		existing.IsAgent = isAgent
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case errors.Is(err, pgx.ErrNoRows):
		user := &domain.User{
			Username:     input.Username,
			Email:        input.Email,
			PasswordHash: hash,
			IsAdmin:      isAdmin,
			IsAgent:      isAgent,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, false, err
		}
		return user, true, nil
	default:
		return nil, false, err
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	return nil
}

// duplicateError names the column that lost a concurrent signup race.
func (s *AuthService) duplicateError(ctx context.Context, email, username string) error {
	if err := s.ensureAvailable(ctx, email, username); err != nil {
		return err
	}
	return ErrEmailTaken
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: domain.Token{Value: token, UserID: user.ID, ExpiresAt: exp}}, nil
}
