package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// FrontendResolver decides which frontend origin an OAuth flow returns to.
// Only loopback hosts and configured trusted hostnames are accepted from
// request-controlled input.
type FrontendResolver struct {
	defaultURL   string
	trustedHosts map[string]struct{}
}

// NewFrontendResolver builds a resolver. trustedOrigins may hold full origins
// ("https://app.example.com") or bare hostnames.
func NewFrontendResolver(defaultURL string, trustedOrigins []string) *FrontendResolver {
	hosts := make(map[string]struct{}, len(trustedOrigins))
	for _, origin := range trustedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		host := origin
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			host = parsed.Hostname()
		}
		hosts[strings.ToLower(host)] = struct{}{}
	}
	return &FrontendResolver{
		defaultURL:   strings.TrimSuffix(strings.TrimSpace(defaultURL), "/"),
		trustedHosts: hosts,
	}
}

// Resolve applies the precedence: stored cookie value, then Referer/Origin,
// then the configured default. It fails with ErrFrontendURLNotConfigured
// rather than guessing.
func (f *FrontendResolver) Resolve(r *http.Request, stored string) (string, error) {
	if origin, ok := f.trustedOrigin(stored); ok {
		return origin, nil
	}
	for _, header := range []string{"Referer", "Origin"} {
		if origin, ok := f.trustedOrigin(r.Header.Get(header)); ok {
			return origin, nil
		}
	}
	if f.defaultURL != "" {
		return f.defaultURL, nil
	}
	return "", ErrFrontendURLNotConfigured
}

func (f *FrontendResolver) trustedOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if parsed.User != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if !f.trustedHost(host) {
		return "", false
	}
	return parsed.Scheme + "://" + parsed.Host, true
}

func (f *FrontendResolver) trustedHost(host string) bool {
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	_, ok := f.trustedHosts[host]
	return ok
}
