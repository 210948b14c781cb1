// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/neomorfeo/talladmin/internal/domain"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port         string
	DatabasePath string
	RedisURL     string

	LogLevel  string
	LogFormat string // "console" or "json"

	SessionKey    string
	SessionIssuer string
	SessionTTL    time.Duration

	AdminEmail    string
	AdminPassword string

	PhoneRegion    string
	Retention      time.Duration
	TenantCacheTTL time.Duration

	FlowTTL        time.Duration
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          envOrDefault("PORT", "8080"),
		DatabasePath:  envOrDefault("DATABASE_PATH", "talladmin.db"),
		RedisURL:      envOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		LogFormat:     envOrDefault("LOG_FORMAT", "console"),
		SessionKey:    os.Getenv("SESSION_SIGNING_KEY"),
		SessionIssuer: envOrDefault("SESSION_ISSUER", "talladmin"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		PhoneRegion:   envOrDefault("PHONE_DEFAULT_REGION", "US"),
	}

	var err error
	if cfg.SessionTTL, err = durationOrDefault("SESSION_TTL", 8*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Retention, err = durationOrDefault("ARCHIVE_RETENTION", domain.DefaultRetention); err != nil {
		return Config{}, err
	}
	if cfg.TenantCacheTTL, err = durationOrDefault("TENANT_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.FlowTTL, err = durationOrDefault("AUTH_FLOW_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationOrDefault("OTP_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts, err = intOrDefault("OTP_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}

	if cfg.SessionKey == "" {
		return Config{}, fmt.Errorf("SESSION_SIGNING_KEY is required")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return Config{}, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid positive integer %q", key, v)
	}
	return n, nil
}
