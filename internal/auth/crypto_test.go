package auth

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	for _, password := range []string{"pw123456", "correct horse battery staple", "ünïcødé-パスワード", ""} {
		credential, err := HashPassword(rand.Reader, password)
		require.NoError(t, err)

		assert.True(t, VerifyPassword(password, credential.Hash, credential.Salt), "password %q", password)
		assert.False(t, VerifyPassword(password+"x", credential.Hash, credential.Salt), "password %q", password)
	}
}

func TestHashPasswordUsesSixteenByteSaltAndThirtyTwoByteKey(t *testing.T) {
	credential, err := HashPassword(rand.Reader, "pw123456")
	require.NoError(t, err)

	salt, err := base64.StdEncoding.DecodeString(credential.Salt)
	require.NoError(t, err)
	assert.Len(t, salt, 16)

	key, err := base64.StdEncoding.DecodeString(credential.Hash)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestHashPasswordWithSaltIsDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	assert.Equal(t, HashPasswordWithSalt("pw123456", salt), HashPasswordWithSalt("pw123456", salt))
	assert.NotEqual(t, HashPasswordWithSalt("pw123456", salt), HashPasswordWithSalt("pw123457", salt))
}

func TestHashPasswordPropagatesEntropyFailure(t *testing.T) {
	_, err := HashPassword(failingReader{}, "pw123456")
	require.Error(t, err)
}

func TestVerifyPasswordRejectsMalformedInput(t *testing.T) {
	credential := HashPasswordWithSalt("pw123456", []byte("0123456789abcdef"))

	assert.False(t, VerifyPassword("pw123456", credential.Hash, "%%%not-base64"))
	assert.False(t, VerifyPassword("pw123456", "%%%not-base64", credential.Salt))
	assert.False(t, VerifyPassword("pw123456", credential.Hash, ""))
	assert.False(t, VerifyPassword("pw123456", base64.StdEncoding.EncodeToString([]byte("short")), credential.Salt))
}

func TestParsePasswordHash(t *testing.T) {
	credential := HashPasswordWithSalt("pw123456", []byte("0123456789abcdef"))

	parsed, err := ParsePasswordHash(credential.String())
	require.NoError(t, err)
	assert.Equal(t, credential, parsed)

	for _, stored := range []string{"", "nocolon", ":salt", "hash:"} {
		_, err := ParsePasswordHash(stored)
		assert.ErrorIs(t, err, ErrInvalidPasswordFormat, "stored %q", stored)
	}
}

func TestGenerateTokenIsURLSafeAndUnpadded(t *testing.T) {
	token, err := GenerateToken(rand.Reader)
	require.NoError(t, err)

	assert.Len(t, token, 43)
	assert.False(t, strings.ContainsAny(token, "+/="))

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := GenerateToken(rand.Reader)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashTokenIsHexSHA256(t *testing.T) {
	assert.Equal(t, "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", HashToken("test"))
	assert.Len(t, HashToken("anything"), 64)
}

func TestSignedValueRoundTrip(t *testing.T) {
	secret := []byte("server-secret")

	signed := SignValue("abc123", secret)
	value, ok := VerifySignedValue(signed, secret)
	require.True(t, ok)
	assert.Equal(t, "abc123", value)

	_, ok = VerifySignedValue(signed+"tamper", secret)
	assert.False(t, ok)

	_, ok = VerifySignedValue(signed, []byte("other-secret"))
	assert.False(t, ok)
}

func TestSignedValueAllowsColonsInValue(t *testing.T) {
	secret := []byte("server-secret")

	value, ok := VerifySignedValue(SignValue("a:b:c", secret), secret)
	require.True(t, ok)
	assert.Equal(t, "a:b:c", value)
}

func TestVerifySignedValueRejectsGarbage(t *testing.T) {
	secret := []byte("server-secret")

	for _, input := range []string{"", "random-string", "value:", "value:zz", "value:abcd", ":" + strings.Repeat("0", 64)} {
		_, ok := VerifySignedValue(input, secret)
		assert.False(t, ok, "input %q", input)
	}

	_, ok := VerifySignedValue(SignValue("abc", nil), nil)
	assert.False(t, ok, "empty secret must never verify")
}
