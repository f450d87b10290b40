package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// PurposeEmailVerification marks tokens sent in verification links.
	PurposeEmailVerification = "email_verification"

	statelessIssuer     = "huddle"
	defaultStatelessTTL = 24 * time.Hour
)

// StatelessClaims are carried by a signed single-purpose token.
type StatelessClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// StatelessTokens issues and verifies short-lived HS256 tokens whose validity
// is provable from the signature alone.
type StatelessTokens struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

// NewStatelessTokens creates a StatelessTokens. It returns nil when no secret is
// configured, which disables the stateless path of the RequestAuthenticator.
func NewStatelessTokens(secret []byte, ttl time.Duration, opts ...Option) *StatelessTokens {
	if len(secret) == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultStatelessTTL
	}
	o := buildOptions(opts)
	return &StatelessTokens{secret: secret, ttl: ttl, clock: o.clock}
}

// Issue signs a token for email limited to purpose.
func (s *StatelessTokens) Issue(email, purpose string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || purpose == "" {
		return "", errors.New("stateless token needs an email and a purpose")
	}
	now := s.clock.Now()
	claims := StatelessClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    statelessIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token. Every failure is ErrInvalidOrExpiredToken.
func (s *StatelessTokens) Verify(token string) (StatelessClaims, error) {
	var claims StatelessClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(statelessIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return StatelessClaims{}, ErrInvalidOrExpiredToken
	}
	if claims.Email == "" || claims.Subject != claims.Email || claims.Purpose == "" {
		return StatelessClaims{}, ErrInvalidOrExpiredToken
	}
	return claims, nil
}
