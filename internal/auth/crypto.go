package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PasswordIterations is the PBKDF2-HMAC-SHA256 work factor.
	PasswordIterations = 100_000
	passwordKeyLen     = 32
	passwordSaltLen    = 16
	tokenBytes         = 32
)

// PasswordHash is a derived password credential, both parts base64 encoded.
type PasswordHash struct {
	Hash string
	Salt string
}

// String renders the storage format "<hash>:<salt>".
func (p PasswordHash) String() string {
	return p.Hash + ":" + p.Salt
}

// ParsePasswordHash splits a stored "<hash>:<salt>" credential.
func ParsePasswordHash(stored string) (PasswordHash, error) {
	hash, salt, ok := strings.Cut(stored, ":")
	if !ok || hash == "" || salt == "" {
		return PasswordHash{}, ErrInvalidPasswordFormat
	}
	return PasswordHash{Hash: hash, Salt: salt}, nil
}

// HashPassword derives a credential using a fresh 16-byte salt read from rnd.
func HashPassword(rnd io.Reader, password string) (PasswordHash, error) {
	salt := make([]byte, passwordSaltLen)
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return PasswordHash{}, fmt.Errorf("generate salt: %w", err)
	}
	return HashPasswordWithSalt(password, salt), nil
}

// HashPasswordWithSalt derives a credential for an explicit salt. Deterministic.
func HashPasswordWithSalt(password string, salt []byte) PasswordHash {
	key := pbkdf2.Key([]byte(password), salt, PasswordIterations, passwordKeyLen, sha256.New)
	return PasswordHash{
		Hash: base64.StdEncoding.EncodeToString(key),
		Salt: base64.StdEncoding.EncodeToString(salt),
	}
}

// VerifyPassword recomputes the hash for password and compares it in constant time.
// Malformed stored values verify as false.
func VerifyPassword(password, storedHash, storedSalt string) bool {
	salt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := pbkdf2.Key([]byte(password), salt, PasswordIterations, passwordKeyLen, sha256.New)
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

// GenerateToken returns 256 random bits, base64url encoded without padding.
func GenerateToken(rnd io.Reader) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rnd, b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hash of the token as a hex string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SignValue returns "value:hexHMAC" using HMAC-SHA256.
func SignValue(value string, secret []byte) string {
	return value + ":" + hex.EncodeToString(computeMAC(value, secret))
}

// VerifySignedValue checks a value produced by SignValue and returns the original value.
// The signature is taken after the last ':' so values may contain colons themselves.
func VerifySignedValue(signed string, secret []byte) (string, bool) {
	if len(secret) == 0 {
		return "", false
	}
	idx := strings.LastIndex(signed, ":")
	if idx < 0 {
		return "", false
	}
	value, sigHex := signed[:idx], signed[idx+1:]
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != sha256.Size {
		return "", false
	}
	if !hmac.Equal(sig, computeMAC(value, secret)) {
		return "", false
	}
	return value, true
}

func computeMAC(value string, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(value))
	return mac.Sum(nil)
}

// truncateString truncates a string to the given max length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
