package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// OAuthProvider is the identity-provider side of the delegation flow.
type OAuthProvider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// OAuthFlowConfig holds the collaborators of an OAuthFlow.
type OAuthFlowConfig struct {
	Provider  OAuthProvider
	Guard     *StateGuard
	Ledger    StateLedger // optional; enables single-use state
	Users     UserStore
	Sessions  *SessionRegistry
	Frontend  *FrontendResolver
	Allowlist *EmailAllowlist // optional
}

// Redirect is the browser response an OAuth step produces.
type Redirect struct {
	URL     string
	Cookies []*http.Cookie
	// Err is the failure cause when URL carries an error code.
	Err error
}

// OAuthFlow drives the initiation and callback legs of a third-party login.
type OAuthFlow struct {
	provider  OAuthProvider
	guard     *StateGuard
	ledger    StateLedger
	users     UserStore
	sessions  *SessionRegistry
	frontend  *FrontendResolver
	allowlist *EmailAllowlist
	clock     Clock
	random    RandomSource
	logger    *slog.Logger
}

// NewOAuthFlow creates an OAuthFlow.
func NewOAuthFlow(cfg OAuthFlowConfig, opts ...Option) *OAuthFlow {
	o := buildOptions(opts)
	return &OAuthFlow{
		provider:  cfg.Provider,
		guard:     cfg.Guard,
		ledger:    cfg.Ledger,
		users:     cfg.Users,
		sessions:  cfg.Sessions,
		frontend:  cfg.Frontend,
		allowlist: cfg.Allowlist,
		clock:     o.clock,
		random:    o.random,
		logger:    o.logger,
	}
}

// Provider returns the provider name.
func (f *OAuthFlow) Provider() string {
	return f.provider.Name()
}

// Begin starts a flow: it issues the signed state cookie, remembers the
// frontend origin and points the browser at the provider's consent screen.
func (f *OAuthFlow) Begin(r *http.Request) (*Redirect, error) {
	frontend, err := f.frontend.Resolve(r, f.guard.FrontendURL(r))
	if err != nil {
		return nil, err
	}

	state, err := GenerateState(f.random)
	if err != nil {
		return nil, err
	}

	return &Redirect{
		URL: f.provider.AuthURL(state),
		Cookies: []*http.Cookie{
			f.guard.StateCookie(state),
			f.guard.FrontendCookie(frontend),
		},
	}, nil
}

// Callback completes a flow. Every failure becomes a redirect to the frontend
// with an error code; only an unresolvable frontend returns an error.
func (f *OAuthFlow) Callback(r *http.Request) (*Redirect, error) {
	frontend, err := f.frontend.Resolve(r, f.guard.FrontendURL(r))
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		details := query.Get("error_description")
		if details == "" {
			details = providerErr
		}
		return f.fail(frontend, ErrProviderDenied, details), nil
	}

	state, ok := f.guard.VerifiedState(r)
	if !ok {
		return f.fail(frontend, fmt.Errorf("%w: missing or forged state cookie", ErrInvalidState), ""), nil
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(query.Get("state"))) != 1 {
		return f.fail(frontend, fmt.Errorf("%w: state mismatch", ErrInvalidState), ""), nil
	}
	if f.ledger != nil {
		fresh, err := f.ledger.Consume(ctx, state, StateTTL)
		if err != nil {
			return f.fail(frontend, fmt.Errorf("%w: state ledger: %v", ErrInvalidState, err), ""), nil
		}
		if !fresh {
			return f.fail(frontend, fmt.Errorf("%w: state replayed", ErrInvalidState), ""), nil
		}
	}

	code := query.Get("code")
	if code == "" {
		return f.fail(frontend, ErrMissingCode, ""), nil
	}

	token, err := f.provider.Exchange(ctx, code)
	if err != nil {
		return f.fail(frontend, err, ""), nil
	}

	profile, err := f.provider.FetchProfile(ctx, token)
	if err != nil {
		return f.fail(frontend, err, ""), nil
	}
	if !profile.EmailVerified {
		return f.fail(frontend, ErrUnverifiedEmail, ""), nil
	}
	if !f.allowlist.Allows(profile.Email) {
		return f.fail(frontend, ErrAccessDenied, ""), nil
	}

	user, err := f.resolveUser(ctx, profile)
	if err != nil {
		return f.fail(frontend, fmt.Errorf("resolve identity: %w", err), ""), nil
	}

	sessionToken, err := f.sessions.CreateSession(ctx, user.ID, SessionMetadata{
		UserAgent: r.UserAgent(),
		IPAddress: ClientIP(r),
	})
	if err != nil {
		return f.fail(frontend, err, ""), nil
	}

	f.logger.Info("oauth login successful", "provider", f.provider.Name(), "user_id", user.ID, "email", user.Email)

	return &Redirect{
		URL: withQuery(frontend, map[string]string{
			"token":      sessionToken,
			"oauth":      "success",
			"provider":   f.provider.Name(),
			"userName":   user.Name,
			"userEmail":  user.Email,
			"userAvatar": user.AvatarURL,
		}),
		Cookies: f.guard.ClearCookies(),
	}, nil
}

func (f *OAuthFlow) resolveUser(ctx context.Context, profile *Profile) (*User, error) {
	provider := f.provider.Name()

	byProvider, err := f.users.GetUserByProvider(ctx, provider, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("find user by provider: %w", err)
	}
	var byEmail *User
	if byProvider == nil {
		byEmail, err = f.users.GetUserByEmail(ctx, profile.Email)
		if err != nil {
			return nil, fmt.Errorf("find user by email: %w", err)
		}
	}

	now := f.clock.Now()
	resolution := ResolveIdentity(byProvider, byEmail)
	switch resolution.Kind {
	case ExistingByProvider:
		user := resolution.User
		update := UserUpdate{Name: &profile.Name, AvatarURL: &profile.Picture, LastLoginAt: &now}
		if err := f.users.UpdateUser(ctx, user.ID, update); err != nil {
			return nil, fmt.Errorf("update user login: %w", err)
		}
		user.Name = profile.Name
		user.AvatarURL = profile.Picture
		user.LastLoginAt = &now
		return user, nil

	case ExistingByEmail:
		user := resolution.User
		verified := true
		update := UserUpdate{
			AvatarURL:       &profile.Picture,
			AuthProvider:    &provider,
			OAuthProviderID: &profile.ID,
			Verified:        &verified,
			LastLoginAt:     &now,
		}
		if user.Name == "" {
			update.Name = &profile.Name
			user.Name = profile.Name
		}
		if err := f.users.UpdateUser(ctx, user.ID, update); err != nil {
			return nil, fmt.Errorf("link user: %w", err)
		}
		user.AvatarURL = profile.Picture
		user.AuthProvider = provider
		user.OAuthProviderID = profile.ID
		user.Verified = true
		user.LastLoginAt = &now
		f.logger.Info("linked oauth identity to existing account", "provider", provider, "user_id", user.ID)
		return user, nil

	default:
		created, err := f.users.CreateUser(ctx, User{
			ID:                  uuid.New(),
			Email:               profile.Email,
			Name:                profile.Name,
			AvatarURL:           profile.Picture,
			AuthProvider:        provider,
			OAuthProviderID:     profile.ID,
			Verified:            true,
			Plan:                PlanFree,
			OnboardingCompleted: false,
			CreatedAt:           now,
			UpdatedAt:           now,
			LastLoginAt:         &now,
		})
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &created, nil
	}
}

func (f *OAuthFlow) fail(frontend string, cause error, details string) *Redirect {
	code := ErrorCode(cause)
	f.logger.Warn("oauth callback failed", "provider", f.provider.Name(), "code", code, "error", cause)

	params := map[string]string{"error": code}
	if details != "" {
		params["details"] = details
	}
	return &Redirect{
		URL:     withQuery(frontend, params),
		Cookies: f.guard.ClearCookies(),
		Err:     cause,
	}
}

func withQuery(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
