package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SESSION_SIGNING_KEY", "k")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "talladmin.db", cfg.DatabasePath)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention)
	assert.Equal(t, 15*time.Minute, cfg.FlowTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, "US", cfg.PhoneRegion)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SESSION_SIGNING_KEY", "k")
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_FLOW_TTL", "2m")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("ADMIN_EMAIL", "ops@talladmin.io")
	t.Setenv("ADMIN_PASSWORD", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.FlowTTL)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
	assert.Equal(t, "ops@talladmin.io", cfg.AdminEmail)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing signing key", map[string]string{}},
		{"bad duration", map[string]string{"SESSION_SIGNING_KEY": "k", "SESSION_TTL": "soon"}},
		{"negative duration", map[string]string{"SESSION_SIGNING_KEY": "k", "OTP_TTL": "-1m"}},
		{"bad int", map[string]string{"SESSION_SIGNING_KEY": "k", "OTP_MAX_ATTEMPTS": "zero"}},
		{"admin email only", map[string]string{"SESSION_SIGNING_KEY": "k", "ADMIN_EMAIL": "ops@talladmin.io"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SESSION_SIGNING_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
