package auth

// Profile is the identity returned by an OAuth provider's userinfo endpoint.
type Profile struct {
	Provider      string
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// ResolutionKind says how an OAuth profile maps onto a local user.
type ResolutionKind int

const (
	// ExistingByProvider means the provider identity is already linked.
	ExistingByProvider ResolutionKind = iota + 1
	// ExistingByEmail means a local account with the same email gets linked.
	ExistingByEmail
	// NewIdentity means no local account matches and one is created.
	NewIdentity
)

func (k ResolutionKind) String() string {
	switch k {
	case ExistingByProvider:
		return "existing_by_provider"
	case ExistingByEmail:
		return "existing_by_email"
	case NewIdentity:
		return "new"
	default:
		return "unknown"
	}
}

// IdentityResolution is the outcome of ResolveIdentity.
type IdentityResolution struct {
	Kind ResolutionKind
	User *User
}

// ResolveIdentity picks the local user for an OAuth login given the results of
// the provider-id lookup and the email lookup. Provider id wins over email.
func ResolveIdentity(byProvider, byEmail *User) IdentityResolution {
	if byProvider != nil {
		return IdentityResolution{Kind: ExistingByProvider, User: byProvider}
	}
	if byEmail != nil {
		return IdentityResolution{Kind: ExistingByEmail, User: byEmail}
	}
	return IdentityResolution{Kind: NewIdentity}
}
