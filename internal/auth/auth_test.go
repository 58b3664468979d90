package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techanswers/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	user := &domain.User{ID: 7, Email: "marie@example.fr", Username: "marie", IsAdmin: true}

	token, expiresAt, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "marie@example.fr", claims.Email)
	assert.Equal(t, "marie", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.False(t, claims.IsSuperAdmin)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).Issue(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFingerprintDependsOnEveryInput(t *testing.T) {
	base := Fingerprint("ua", "fr-FR", "gzip", "10.0.0.1")
	assert.Len(t, base, 64)
	assert.Equal(t, base, Fingerprint("ua", "fr-FR", "gzip", "10.0.0.1"))
	assert.NotEqual(t, base, Fingerprint("ua2", "fr-FR", "gzip", "10.0.0.1"))
	assert.NotEqual(t, base, Fingerprint("ua", "en-US", "gzip", "10.0.0.1"))
	assert.NotEqual(t, base, Fingerprint("ua", "fr-FR", "br", "10.0.0.1"))
	assert.NotEqual(t, base, Fingerprint("ua", "fr-FR", "gzip", "10.0.0.2"))
}

func TestNumericCode(t *testing.T) {
	code, err := NumericCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Empty(t, strings.Trim(code, "0123456789"))

	_, err = NumericCode(0)
	assert.Error(t, err)
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(32)
	require.NoError(t, err)
	b, err := RandomHex(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
