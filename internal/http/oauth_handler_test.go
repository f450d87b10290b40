package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"huddle/internal/auth"
)

type fakeGoogleProvider struct {
	lastState string
	profile   auth.Profile
}

func (f *fakeGoogleProvider) Name() string { return auth.ProviderGoogle }

func (f *fakeGoogleProvider) AuthURL(state string) string {
	f.lastState = state
	return "https://accounts.google.com/auth?state=" + state
}

func (f *fakeGoogleProvider) Exchange(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "access", TokenType: "Bearer"}, nil
}

func (f *fakeGoogleProvider) FetchProfile(context.Context, *oauth2.Token) (*auth.Profile, error) {
	profile := f.profile
	return &profile, nil
}

type oauthEnv struct {
	*testEnv
	guard    *auth.StateGuard
	provider *fakeGoogleProvider
}

func newOAuthEnv(t *testing.T, defaultFrontend string) *oauthEnv {
	t.Helper()

	guard := auth.NewStateGuard([]byte("state-secret"), false)
	provider := &fakeGoogleProvider{profile: auth.Profile{
		Provider:      auth.ProviderGoogle,
		ID:            "g42",
		Email:         "a@x.io",
		EmailVerified: true,
		Name:          "Ada",
	}}
	env := newTestEnv(t, func(store *auth.MemoryStore, sessions *auth.SessionRegistry) oauthFlow {
		return auth.NewOAuthFlow(auth.OAuthFlowConfig{
			Provider: provider,
			Guard:    guard,
			Ledger:   auth.NewMemoryStateLedger(),
			Users:    store,
			Sessions: sessions,
			Frontend: auth.NewFrontendResolver(defaultFrontend, nil),
		})
	})

	return &oauthEnv{testEnv: env, guard: guard, provider: provider}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuthInitiateSetsCookiesAndRedirects(t *testing.T) {
	env := newOAuthEnv(t, "http://frontend.test")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
	req.Header.Set("Referer", "http://localhost:3000/login")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if location != "https://accounts.google.com/auth?state="+env.provider.lastState {
		t.Fatalf("unexpected redirect %q", location)
	}

	cookies := rec.Result().Cookies()
	stateCookie := findCookie(cookies, auth.StateCookieName)
	if stateCookie == nil || !strings.HasPrefix(stateCookie.Value, env.provider.lastState+":") {
		t.Fatalf("expected signed state cookie, got %+v", stateCookie)
	}
	if !stateCookie.HttpOnly || stateCookie.Path != "/" || stateCookie.MaxAge != 600 {
		t.Fatalf("unexpected state cookie attributes %+v", stateCookie)
	}
	frontendCookie := findCookie(cookies, auth.FrontendCookieName)
	if frontendCookie == nil {
		t.Fatal("expected frontend cookie")
	}
	if got, _ := url.QueryUnescape(frontendCookie.Value); got != "http://localhost:3000" {
		t.Fatalf("expected referer origin to be remembered, got %q", got)
	}
}

func TestOAuthInitiateWithoutFrontend(t *testing.T) {
	env := newOAuthEnv(t, "")

	rec := env.do(http.MethodGet, "/api/auth/google", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "frontend_url_not_configured" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestOAuthCallbackIssuesSession(t *testing.T) {
	env := newOAuthEnv(t, "http://frontend.test")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc&code=xyz", nil)
	req.AddCookie(env.guard.StateCookie("abc"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if location.Host != "frontend.test" || location.Query().Get("oauth") != "success" {
		t.Fatalf("unexpected redirect %q", location)
	}

	token := location.Query().Get("token")
	if me := env.do(http.MethodGet, "/api/auth/me", nil, token); me.Code != http.StatusOK {
		t.Fatalf("expected issued token to authenticate, got %d", me.Code)
	}

	cleared := findCookie(rec.Result().Cookies(), auth.StateCookieName)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected state cookie to be cleared, got %+v", cleared)
	}
}

func TestOAuthCallbackRejectsStateMismatch(t *testing.T) {
	env := newOAuthEnv(t, "http://frontend.test")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=other&code=xyz", nil)
	req.AddCookie(env.guard.StateCookie("expected"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Location"), "error=invalid_state") {
		t.Fatalf("expected invalid_state redirect, got %q", rec.Header().Get("Location"))
	}
	if strings.Contains(rec.Header().Get("Location"), "token=") {
		t.Fatal("no token may be issued on a state mismatch")
	}
}

func TestOAuthCallbackPropagatesProviderError(t *testing.T) {
	env := newOAuthEnv(t, "http://frontend.test")

	rec := env.do(http.MethodGet, "/api/auth/google/callback?error=access_denied&error_description=Denied", nil, "")

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if location.Query().Get("error") != "oauth_error" || location.Query().Get("details") != "Denied" {
		t.Fatalf("unexpected redirect %q", location)
	}
}
