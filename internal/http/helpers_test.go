package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"huddle/internal/auth"
	"huddle/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *recordingNotifier) NotifyVerification(_ context.Context, user *auth.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = map[string]string{}
	}
	n.tokens[user.Email] = token
	return nil
}

type testEnv struct {
	store     *auth.MemoryStore
	sessions  *auth.SessionRegistry
	stateless *auth.StatelessTokens
	notifier  *recordingNotifier
	handler   http.Handler
}

func testConfig() config.Config {
	return config.Config{
		Environment:    "development",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

type flowBuilder func(store *auth.MemoryStore, sessions *auth.SessionRegistry) oauthFlow

func newTestEnv(t *testing.T, buildFlow flowBuilder) *testEnv {
	t.Helper()

	logger := testLogger()
	store := auth.NewMemoryStore()
	sessions := auth.NewSessionRegistry(store, 0, auth.WithLogger(logger))
	stateless := auth.NewStatelessTokens([]byte("stateless-secret"), time.Hour)
	credentials := auth.NewCredentialAuthenticator(store, sessions, auth.CredentialConfig{}, auth.WithLogger(logger))
	notifier := &recordingNotifier{}

	svc := Services{
		Credentials:   credentials,
		Users:         store,
		Sessions:      sessions,
		Authenticator: auth.NewRequestAuthenticator(store, sessions, stateless, auth.WithLogger(logger)),
		Verification:  stateless,
		Notifier:      notifier,
	}
	if buildFlow != nil {
		svc.GoogleFlow = buildFlow(store, sessions)
	}

	return &testEnv{
		store:     store,
		sessions:  sessions,
		stateless: stateless,
		notifier:  notifier,
		handler:   NewRouter(testConfig(), svc, logger),
	}
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	if rec := e.do(http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": password}, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec := e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &resp)
	return resp.Error
}
