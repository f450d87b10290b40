package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSigningSecretLength = 32

// Config aggregates runtime configuration for the Huddle API.
type Config struct {
	Environment    string        `env:"APP_ENV"`
	HTTPPort       int          
	DatabaseURL    string       
	DataStore      string        `env:"DATA_STORE" envDefault:"memory"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	SessionTTL     time.Duration `env:"AUTH_SESSION_TTL" envDefault:"720h"`
	StatelessTTL   time.Duration `env:"AUTH_STATELESS_TTL" envDefault:"24h"`

	SigningSecret   string
	StatelessSecret string

	GoogleClientID       string   `env:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string  
	GoogleRedirectURL    string   `env:"AUTH_GOOGLE_REDIRECT_URL"`
	GoogleAllowedDomains []string `env:"AUTH_GOOGLE_ALLOWED_DOMAINS" envSeparator:","`
	GoogleAllowedEmails  []string `env:"AUTH_GOOGLE_ALLOWED_EMAILS" envSeparator:","`

	FrontendURL            string   `env:"FRONTEND_URL"`
	TrustedFrontendOrigins []string `env:"TRUSTED_FRONTEND_ORIGINS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LegacyPasswordlessLogin bool `env:"AUTH_LEGACY_PASSWORDLESS_LOGIN" envDefault:"false"`
	MinPasswordLength       int  `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"8"`

	// SeedEmail and SeedPassword create a demo account when the in-memory store is used.
	SeedEmail    string `env:"DEV_SEED_EMAIL"`
	SeedPassword string `env:"DEV_SEED_PASSWORD"`
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	secrets := []struct {
		key         string
		defaultPath string
		target      *string
	}{
		{"DATABASE_URL", "/run/secrets/huddle_database_url", &cfg.DatabaseURL},
		{"AUTH_SIGNING_SECRET", "/run/secrets/huddle_signing_secret", &cfg.SigningSecret},
		{"AUTH_STATELESS_SECRET", "/run/secrets/huddle_stateless_secret", &cfg.StatelessSecret},
		{"AUTH_GOOGLE_CLIENT_SECRET", "/run/secrets/huddle_google_client_secret", &cfg.GoogleClientSecret},
		{"REDIS_PASSWORD", "/run/secrets/huddle_redis_password", &cfg.RedisPassword},
	}
	for _, s := range secrets {
		value, err := getEnvOrFile(s.key, s.defaultPath)
		if err != nil {
			return Config{}, err
		}
		*s.target = strings.TrimSpace(value)
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	cfg.DataStore = strings.ToLower(strings.TrimSpace(cfg.DataStore))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.TrustedFrontendOrigins = trimAll(cfg.TrustedFrontendOrigins)
	cfg.GoogleAllowedDomains = trimAll(cfg.GoogleAllowedDomains)
	cfg.GoogleAllowedEmails = trimAll(cfg.GoogleAllowedEmails)
	cfg.GoogleClientID = strings.TrimSpace(cfg.GoogleClientID)
	cfg.GoogleRedirectURL = strings.TrimSpace(cfg.GoogleRedirectURL)
	cfg.FrontendURL = strings.TrimSuffix(strings.TrimSpace(cfg.FrontendURL), "/")

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "development"
		if cfg.OAuthEnabled() {
			cfg.Environment = "production"
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.DataStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("unsupported DATA_STORE %q", c.DataStore)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL must be positive")
	}

	oauthFields := 0
	for _, v := range []string{c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL} {
		if v != "" {
			oauthFields++
		}
	}
	if oauthFields != 0 && oauthFields != 3 {
		return fmt.Errorf("AUTH_GOOGLE_CLIENT_ID, AUTH_GOOGLE_CLIENT_SECRET and AUTH_GOOGLE_REDIRECT_URL must be set together")
	}
	if c.GoogleRedirectURL != "" {
		if u, err := url.Parse(c.GoogleRedirectURL); err != nil || u.Host == "" {
			return fmt.Errorf("AUTH_GOOGLE_REDIRECT_URL %q is not an absolute URL", c.GoogleRedirectURL)
		}
	}

	if c.IsDevelopment() {
		return nil
	}

	if len(c.SigningSecret) < minSigningSecretLength {
		return fmt.Errorf("AUTH_SIGNING_SECRET must be at least %d bytes outside development", minSigningSecretLength)
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS is required outside development")
	}
	for _, origin := range c.AllowedOrigins {
		if strings.Contains(origin, "*") {
			return fmt.Errorf("ALLOWED_ORIGINS must not contain wildcards outside development")
		}
	}
	return nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsDevelopment reports whether the service runs with development defaults.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// OAuthEnabled returns true when Google sign-in is fully configured.
func (c Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// SecureCookies reports whether OAuth cookies need Secure and SameSite=None.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.GoogleRedirectURL), "https://")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
