// Command seed creates the default admin, agent and customer accounts. It
// refuses to run outside the development environment.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/validation"
)

type account struct {
	input   validation.SignupInput
	isAdmin bool
	isAgent bool
}

var accounts = []account{
	{input: validation.SignupInput{Username: "admin", Email: "admin@example.com", Password: "password"}, isAdmin: true},
	{input: validation.SignupInput{Username: "agent", Email: "agent@example.com", Password: "password"}, isAgent: true},
	{input: validation.SignupInput{Username: "customer", Email: "customer@example.com", Password: "password"}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.App.IsDevelopment() {
		logger.Fatal("seeding is only allowed in development", zap.String("env", cfg.App.Env))
	}

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if !pg.Enabled() {
		logger.Fatal("seeding needs POSTGRES_DSN")
	}
	if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: repository.NewUserRepository(pg.Pool),
		Logger:   logger,
	})
	for _, acct := range accounts {
		user, created, err := authService.SeedAccount(ctx, acct.input, acct.isAdmin, acct.isAgent)
		if err != nil {
			logger.Fatal("failed to seed account", zap.String("email", acct.input.Email), zap.Error(err))
		}
		logger.Info("seeded account",
			zap.String("user_id", user.ID),
			zap.String("email", user.Email),
			zap.Bool("created", created))
	}
}
