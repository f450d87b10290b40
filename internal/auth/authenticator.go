package auth

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// CredentialKind tags which kind of bearer credential resolved an identity.
type CredentialKind int

const (
	// StatelessCredential is a signed single-purpose token.
	StatelessCredential CredentialKind = iota + 1
	// SessionCredential is an opaque database-backed session token.
	SessionCredential
)

func (k CredentialKind) String() string {
	switch k {
	case StatelessCredential:
		return "stateless"
	case SessionCredential:
		return "session"
	default:
		return "unknown"
	}
}

// Identity is a verified caller.
type Identity struct {
	User *User
	Kind CredentialKind
	// Purpose is set for stateless credentials.
	Purpose string
}

// RequestAuthenticator resolves a bearer token to an Identity. It never infers
// the credential kind from the token's shape: each kind is tried in turn and
// a failed verification falls through to the next.
type RequestAuthenticator struct {
	users     UserStore
	sessions  *SessionRegistry
	stateless *StatelessTokens
	logger    *slog.Logger
}

// NewRequestAuthenticator wires a RequestAuthenticator. stateless may be nil.
func NewRequestAuthenticator(users UserStore, sessions *SessionRegistry, stateless *StatelessTokens, opts ...Option) *RequestAuthenticator {
	o := buildOptions(opts)
	return &RequestAuthenticator{
		users:     users,
		sessions:  sessions,
		stateless: stateless,
		logger:    o.logger,
	}
}

// Authenticate extracts the bearer token from r and resolves it.
func (a *RequestAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	return a.Resolve(r.Context(), token)
}

// Resolve tries the stateless kind first (when configured) and then the opaque
// session kind. Store failures are returned as-is.
func (a *RequestAuthenticator) Resolve(ctx context.Context, token string) (*Identity, error) {
	if a.stateless != nil {
		identity, err := a.resolveStateless(ctx, token)
		if err != nil {
			return nil, err
		}
		if identity != nil {
			return identity, nil
		}
	}

	user, err := a.sessions.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return &Identity{User: user, Kind: SessionCredential}, nil
	}

	return nil, ErrInvalidOrExpiredToken
}

func (a *RequestAuthenticator) resolveStateless(ctx context.Context, token string) (*Identity, error) {
	claims, err := a.stateless.Verify(token)
	if err != nil {
		return nil, nil
	}
	user, err := a.users.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		a.logger.Debug("stateless token for unknown email")
		return nil, nil
	}
	return &Identity{User: user, Kind: StatelessCredential, Purpose: claims.Purpose}, nil
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrNoAuthorizationHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoAuthorizationHeader
	}
	return token, nil
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
