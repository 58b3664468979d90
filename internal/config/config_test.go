package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TECHANSWERS_AUTH_JWTSECRET", "unit-test-secret")
	t.Setenv("TECHANSWERS_SECURITY_MAXATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "unit-test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 3, cfg.Security.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LockoutDuration())
	assert.Equal(t, 10*time.Minute, cfg.CodeTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.DeviceSessionTTL())
	assert.Equal(t, 14*24*time.Hour, cfg.NotificationRetention())
	assert.Equal(t, "eur", cfg.Stripe.Currency)
	assert.False(t, cfg.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestValidateProduction(t *testing.T) {
	var cfg Config
	cfg.Server.Env = "production"
	cfg.Security.MaxAttempts = 5
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.Stripe.SkipSignature = true
	assert.Error(t, cfg.Validate())

	cfg.Stripe.SkipSignature = false
	cfg.Stripe.SecretKey = "sk_live_x"
	assert.Error(t, cfg.Validate())
}

func TestParseEnvLine(t *testing.T) {
	cases := []struct {
		line  string
		key   string
		value string
		ok    bool
	}{
		{"FOO=bar", "FOO", "bar", true},
		{"export FOO=\"bar baz\"", "FOO", "bar baz", true},
		{"# comment", "", "", false},
		{"=nokey", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		key, value, ok := parseEnvLine(tc.line)
		assert.Equal(t, tc.ok, ok, tc.line)
		assert.Equal(t, tc.key, key, tc.line)
		assert.Equal(t, tc.value, value, tc.line)
	}
}
