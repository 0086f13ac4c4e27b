// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string        `env:"VCMS_DB_PATH" envDefault:"./data/vcms.db"`
	SessionSecret string        `env:"VCMS_SESSION_SECRET,required"`
	TokenSecret   string        `env:"VCMS_TOKEN_SECRET"` // JWT signing key, falls back to SessionSecret
	TokenTTL      time.Duration `env:"VCMS_TOKEN_TTL" envDefault:"12h"`
	ServerHost    string        `env:"VCMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int           `env:"VCMS_SERVER_PORT" envDefault:"8080"`
	Env           string        `env:"VCMS_ENV" envDefault:"development"`
	LogLevel      string        `env:"VCMS_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string        `env:"VCMS_UPLOADS_DIR" envDefault:"./uploads"`
	MaxUploadMB   int64         `env:"VCMS_MAX_UPLOAD_MB" envDefault:"20"`

	// Cache configuration
	RedisURL    string `env:"VCMS_REDIS_URL"`                       // optional, enables Redis cache
	CachePrefix string `env:"VCMS_CACHE_PREFIX" envDefault:"vcms:"` // Redis key prefix
	CacheTTL    int    `env:"VCMS_CACHE_TTL" envDefault:"3600"`     // seconds

	GeoIPDBPath string `env:"VCMS_GEOIP_DB_PATH"` // path to GeoLite2-Country.mmdb

	// Telemetry
	SiteHost               string `env:"VCMS_SITE_HOST"`          // public host; empty = request Host
	TelemetryEndpoint      string `env:"VCMS_TELEMETRY_ENDPOINT"` // empty = in-process collector
	TelemetryPageViews     bool   `env:"VCMS_TELEMETRY_PAGEVIEWS" envDefault:"true"`
	TelemetryInteractions  bool   `env:"VCMS_TELEMETRY_INTERACTIONS" envDefault:"false"`
	TelemetryRetentionDays int    `env:"VCMS_TELEMETRY_RETENTION_DAYS" envDefault:"180"`

	// Seeding
	DoSeed        bool   `env:"VCMS_DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"VCMS_ADMIN_EMAIL" envDefault:"developer@example.org"`
	AdminPassword string `env:"VCMS_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if a GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// SigningKey returns the key used to sign session tokens.
func (c Config) SigningKey() []byte {
	if c.TokenSecret != "" {
		return []byte(c.TokenSecret)
	}
	return []byte(c.SessionSecret)
}

// RemoteTelemetry returns true if server-side telemetry goes to an external
// collector instead of this instance's own analytics store.
func (c Config) RemoteTelemetry() bool {
	return c.TelemetryEndpoint != ""
}

// MinSessionSecretLength is the minimum required length for secrets.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validateSecret("VCMS_SESSION_SECRET", cfg.SessionSecret); err != nil {
		return nil, err
	}
	if cfg.TokenSecret != "" {
		if err := validateSecret("VCMS_TOKEN_SECRET", cfg.TokenSecret); err != nil {
			return nil, err
		}
	}

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("VCMS_TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.TelemetryRetentionDays < 1 {
		cfg.TelemetryRetentionDays = 1
	}

	return cfg, nil
}

func validateSecret(name, secret string) error {
	if len(secret) < MinSessionSecretLength {
		return fmt.Errorf("%s must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			name, MinSessionSecretLength, len(secret))
	}

	for _, weak := range knownWeakSecrets {
		if secret == weak {
			return fmt.Errorf("%s is a known default value and must not be used", name)
		}
	}

	if !hasMinimumEntropy(secret) {
		slog.Warn(name + " has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
