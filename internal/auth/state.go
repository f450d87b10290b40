package auth

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	StateCookieName    = "oauth_state"
	FrontendCookieName = "oauth_frontend_url"
	StateTTL           = 10 * time.Minute
	stateBytes         = 32
)

// GenerateState returns 256 random bits as a hex string.
func GenerateState(rnd io.Reader) (string, error) {
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(rnd, b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// StateGuard issues and verifies the signed anti-CSRF state cookie that binds an
// OAuth callback to the browser which started the flow.
type StateGuard struct {
	secret []byte
	secure bool
}

// NewStateGuard creates a StateGuard. secure should be true when the service is
// reached over HTTPS; cookies then use SameSite=None so they survive the
// cross-site redirect back from the identity provider.
func NewStateGuard(secret []byte, secure bool) *StateGuard {
	return &StateGuard{secret: secret, secure: secure}
}

// StateCookie returns the cookie carrying "state:signature".
func (g *StateGuard) StateCookie(state string) *http.Cookie {
	return g.cookie(StateCookieName, SignValue(state, g.secret), int(StateTTL.Seconds()))
}

// FrontendCookie records the frontend origin that initiated the flow.
func (g *StateGuard) FrontendCookie(frontendURL string) *http.Cookie {
	return g.cookie(FrontendCookieName, url.QueryEscape(frontendURL), int(StateTTL.Seconds()))
}

// VerifiedState returns the state from the request's cookie if its signature is valid.
func (g *StateGuard) VerifiedState(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return VerifySignedValue(cookie.Value, g.secret)
}

// FrontendURL returns the frontend origin stored at initiation, if any.
func (g *StateGuard) FrontendURL(r *http.Request) string {
	cookie, err := r.Cookie(FrontendCookieName)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return value
}

// ClearCookies expires both the state and the frontend-return cookies.
func (g *StateGuard) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		g.cookie(StateCookieName, "", -1),
		g.cookie(FrontendCookieName, "", -1),
	}
}

func (g *StateGuard) cookie(name, value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if g.secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: sameSite,
		MaxAge:   maxAge,
	}
}
