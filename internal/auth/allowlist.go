package auth

import "strings"

// EmailAllowlist restricts which provider emails may sign in. An empty list allows everyone.
type EmailAllowlist struct {
	domains map[string]struct{}
	emails  map[string]struct{}
}

// NewEmailAllowlist builds an allowlist from domain and address lists.
func NewEmailAllowlist(allowedDomains, allowedEmails []string) *EmailAllowlist {
	domainSet := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domainSet[d] = struct{}{}
		}
	}

	emailSet := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emailSet[e] = struct{}{}
		}
	}

	return &EmailAllowlist{domains: domainSet, emails: emailSet}
}

// Allows checks the email against the explicit addresses, then the domains.
func (a *EmailAllowlist) Allows(email string) bool {
	if a == nil || !a.Restricted() {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))

	if _, ok := a.emails[email]; ok {
		return true
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		if _, ok := a.domains[parts[1]]; ok {
			return true
		}
	}
	return false
}

// Restricted returns true if any allowlist restrictions are configured.
func (a *EmailAllowlist) Restricted() bool {
	return a != nil && (len(a.domains) > 0 || len(a.emails) > 0)
}
