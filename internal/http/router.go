package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"huddle/internal/auth"
	"huddle/internal/config"
)

// Services bundles the auth components the router exposes.
type Services struct {
	Credentials   credentialService
	Users         userUpdater
	Sessions      sessionRevoker
	Authenticator requestAuthenticator
	Verification  verificationIssuer       // optional
	Notifier      auth.VerificationNotifier // optional
	GoogleFlow    oauthFlow                 // optional; nil disables Google sign-in
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, svc Services, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger))
	r.Use(newSecurityHeadersMiddleware(cfg.IsDevelopment()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	authHandler := NewAuthHandler(svc.Credentials, svc.Users, svc.Verification, svc.Notifier, logger)
	sessionHandler := NewSessionHandler(svc.Sessions, svc.Authenticator, logger)
	requireAuth := newAuthMiddleware(svc.Authenticator, logger)

	if svc.GoogleFlow == nil {
		logger.Warn("Google sign-in disabled; /api/auth/google is not mounted")
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", sessionHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Post("/verify-email", authHandler.VerifyEmail)
			})

			if svc.GoogleFlow != nil {
				oauthHandler := NewOAuthHandler(svc.GoogleFlow, logger)
				r.Get("/google", oauthHandler.Initiate)
				r.Get("/google/callback", oauthHandler.Callback)
			}
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Status)
			r.Delete("/", sessionHandler.Logout)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
