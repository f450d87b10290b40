package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer      = "https://accounts.google.com"
	googleCertsURL    = "https://www.googleapis.com/oauth2/v3/certs"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleConfig configures the Google OAuth client. The endpoint fields default
// to Google's production endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// VerifyIDToken checks the id_token returned with the access token and
	// requires its subject to match the userinfo id.
	VerifyIDToken bool
	HTTPClient    *http.Client
}

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// GoogleProvider drives the authorization-code exchange against Google.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	verifier    idTokenVerifier
	httpClient  *http.Client
}

// NewGoogleProvider creates a GoogleProvider.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}

	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		userInfoURL: userInfoURL,
		httpClient:  cfg.HTTPClient,
	}
	if cfg.VerifyIDToken {
		keySet := oidc.NewRemoteKeySet(p.clientContext(ctx), googleCertsURL)
		p.verifier = oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{ClientID: cfg.ClientID})
	}
	return p
}

// Name returns the provider identifier stored on linked users.
func (g *GoogleProvider) Name() string {
	return ProviderGoogle
}

// AuthURL generates the Google OAuth consent URL with the given state.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the authorization code for an access token. Non-2xx responses
// and payloads without an access token fail with ErrTokenExchangeFailed.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(g.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	return token, nil
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile calls the userinfo endpoint with the access token.
func (g *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	ctx = g.clientContext(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}

	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: userinfo status %d", ErrProfileFetchFailed, resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrProfileFetchFailed, err)
	}
	info.Email = strings.TrimSpace(info.Email)
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo missing id or email", ErrProfileFetchFailed)
	}

	if g.verifier != nil {
		if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
			idToken, err := g.verifier.Verify(ctx, rawIDToken)
			if err != nil {
				return nil, fmt.Errorf("%w: verify id_token: %v", ErrProfileFetchFailed, err)
			}
			if idToken.Subject != info.ID {
				return nil, fmt.Errorf("%w: id_token subject does not match userinfo", ErrProfileFetchFailed)
			}
		}
	}

	return &Profile{
		Provider:      ProviderGoogle,
		ID:            info.ID,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}

func (g *GoogleProvider) clientContext(ctx context.Context) context.Context {
	if g.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}
