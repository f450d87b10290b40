package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"huddle/internal/auth"
	"huddle/internal/config"
	transporthttp "huddle/internal/http"
	"huddle/internal/platform/cache"
	"huddle/internal/platform/database"
	"huddle/internal/platform/logging"
	"huddle/internal/platform/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	signingSecret, err := signingSecret(cfg, logger)
	if err != nil {
		logger.Error("failed to prepare signing secret", "error", err)
		os.Exit(1)
	}

	opts := []auth.Option{auth.WithLogger(logger)}
	sessions := auth.NewSessionRegistry(store, cfg.SessionTTL, opts...)
	credentials := auth.NewCredentialAuthenticator(store, sessions, auth.CredentialConfig{
		MinPasswordLength:       cfg.MinPasswordLength,
		AllowLegacyPasswordless: cfg.LegacyPasswordlessLogin,
	}, opts...)
	if cfg.LegacyPasswordlessLogin {
		logger.Warn("legacy passwordless login enabled; accounts without a password accept any password")
	}

	svc := transporthttp.Services{
		Credentials: credentials,
		Users:       store,
		Sessions:    sessions,
	}

	stateless := auth.NewStatelessTokens([]byte(cfg.StatelessSecret), cfg.StatelessTTL, opts...)
	if stateless != nil {
		svc.Verification = stateless
		svc.Notifier = auth.NewLogNotifier(logger)
	} else {
		logger.Info("stateless tokens disabled; set AUTH_STATELESS_SECRET to enable email verification links")
	}
	svc.Authenticator = auth.NewRequestAuthenticator(store, sessions, stateless, opts...)

	ledger, closeLedger := buildStateLedger(ctx, cfg, logger)
	if closeLedger != nil {
		defer closeLedger()
	}

	if cfg.OAuthEnabled() {
		google := auth.NewGoogleProvider(ctx, auth.GoogleConfig{
			ClientID:      cfg.GoogleClientID,
			ClientSecret:  cfg.GoogleClientSecret,
			RedirectURL:   cfg.GoogleRedirectURL,
			VerifyIDToken: true,
			HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		})
		allowlist := auth.NewEmailAllowlist(cfg.GoogleAllowedDomains, cfg.GoogleAllowedEmails)
		if !allowlist.Restricted() {
			logger.Warn("Google sign-in allowlist is empty; any verified Google account may sign in")
		}
		svc.GoogleFlow = auth.NewOAuthFlow(auth.OAuthFlowConfig{
			Provider:  google,
			Guard:     auth.NewStateGuard(signingSecret, cfg.SecureCookies()),
			Ledger:    ledger,
			Users:     store,
			Sessions:  sessions,
			Frontend:  auth.NewFrontendResolver(cfg.FrontendURL, cfg.TrustedFrontendOrigins),
			Allowlist: allowlist,
		}, opts...)
	}

	seedDevelopmentAccount(ctx, cfg, credentials, logger)

	router := transporthttp.NewRouter(cfg, svc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Huddle API listening", "addr", srv.Addr, "store", cfg.DataStore, "oauth", cfg.OAuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.CredentialStore, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory credential store")
		return auth.NewMemoryStore(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresStore(db), cleanup, nil
}

func buildStateLedger(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.StateLedger, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory OAuth state ledger")
		return auth.NewMemoryStateLedger(), nil
	}

	client, err := cache.NewRedis(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable; falling back to in-memory OAuth state ledger", "error", err)
		return auth.NewMemoryStateLedger(), nil
	}

	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return auth.NewRedisStateLedger(client), func() { _ = client.Close() }
}

func signingSecret(cfg config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.SigningSecret != "" {
		return []byte(cfg.SigningSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	logger.Warn("AUTH_SIGNING_SECRET not set; using a random per-process secret")
	return secret, nil
}
