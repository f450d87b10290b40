package main

import (
	"context"
	"errors"
	"log/slog"

	"huddle/internal/auth"
	"huddle/internal/config"
)

// seedDevelopmentAccount registers the configured demo account so a fresh
// in-memory instance can be logged into straight away.
func seedDevelopmentAccount(ctx context.Context, cfg config.Config, credentials *auth.CredentialAuthenticator, logger *slog.Logger) {
	if !cfg.UseInMemoryStore() || cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return
	}

	user, err := credentials.Register(ctx, cfg.SeedEmail, cfg.SeedPassword)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateAccount) {
			return
		}
		logger.Warn("seed demo account failed", "email", cfg.SeedEmail, "error", err)
		return
	}
	logger.Info("seeded demo account", "user_id", user.ID, "email", user.Email)
}
