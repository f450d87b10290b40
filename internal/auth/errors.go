package auth

import "errors"

var (
	ErrDuplicateAccount      = errors.New("an account with this email already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrPasswordTooShort      = errors.New("password too short")
	ErrInvalidPasswordFormat = errors.New("stored password has an invalid format")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrPasswordSetupRequired = errors.New("account has no password; a password must be set")

	ErrNoAuthorizationHeader = errors.New("missing bearer authorization header")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	ErrInvalidState             = errors.New("oauth state verification failed")
	ErrProviderDenied           = errors.New("identity provider returned an error")
	ErrMissingCode              = errors.New("missing authorization code")
	ErrTokenExchangeFailed      = errors.New("authorization code exchange failed")
	ErrProfileFetchFailed       = errors.New("profile fetch failed")
	ErrUnverifiedEmail          = errors.New("identity provider email is not verified")
	ErrAccessDenied             = errors.New("account is not allowed to sign in")
	ErrFrontendURLNotConfigured = errors.New("frontend url not configured")
)

// ErrorCode maps an auth error to the machine-readable code sent back to the frontend.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrProviderDenied):
		return "oauth_error"
	case errors.Is(err, ErrMissingCode):
		return "missing_code"
	case errors.Is(err, ErrTokenExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, ErrUnverifiedEmail):
		return "unverified_email"
	case errors.Is(err, ErrProfileFetchFailed):
		return "profile_fetch_failed"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrFrontendURLNotConfigured):
		return "frontend_url_not_configured"
	case errors.Is(err, ErrDuplicateAccount):
		return "duplicate_account"
	case errors.Is(err, ErrEmailNotVerified):
		return "email_not_verified"
	case errors.Is(err, ErrInvalidOrExpiredToken), errors.Is(err, ErrNoAuthorizationHeader):
		return "invalid_token"
	default:
		return "server_error"
	}
}
