package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Keychain  KeychainConfig
	Preview   PreviewConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration // default: 15s
}

// FetchConfig controls the page fetcher and form submitter.
type FetchConfig struct {
	// Timeout applies to each of the two requests of a login attempt.
	Timeout time.Duration // default: 10s

	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes int64 // default: 10 MiB
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// SessionConfig controls the in-memory store of login sessions.
type SessionConfig struct {
	MaxEntries      int           // default: 1000
	TTL             time.Duration // default: 1h
	CleanupInterval time.Duration // default: 5m
}

// KeychainConfig selects the credential store backend.
type KeychainConfig struct {
	// Backend is "memory" or "postgres".
	Backend string // default: "memory"

	// DatabaseURL is the PostgreSQL connection string for the postgres backend.
	DatabaseURL string
}

// PreviewConfig controls the session preview renderer.
type PreviewConfig struct {
	MaxChars int // default: 20000
}

// WebhookConfig controls outbound login.completed events.
type WebhookConfig struct {
	// AllowPrivate permits webhook URLs on loopback, private and
	// link-local addresses.
	AllowPrivate bool // default: false
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            envOr("AUTOLOGIN_HOST", "0.0.0.0"),
			Port:            envIntOr("AUTOLOGIN_PORT", 8080),
			Mode:            envOr("AUTOLOGIN_MODE", "release"),
			ShutdownTimeout: envDurationOr("AUTOLOGIN_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Fetch: FetchConfig{
			Timeout:      envDurationOr("AUTOLOGIN_FETCH_TIMEOUT", 10*time.Second),
			MaxBodyBytes: int64(envIntOr("AUTOLOGIN_MAX_BODY_BYTES", 10<<20)),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("AUTOLOGIN_AUTH_ENABLED", true),
			APIKeys: envSliceOr("AUTOLOGIN_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("AUTOLOGIN_RATE_RPS", 2.0),
			Burst:             envIntOr("AUTOLOGIN_RATE_BURST", 5),
		},
		Session: SessionConfig{
			MaxEntries:      envIntOr("AUTOLOGIN_SESSION_MAX_ENTRIES", 1000),
			TTL:             envDurationOr("AUTOLOGIN_SESSION_TTL", time.Hour),
			CleanupInterval: envDurationOr("AUTOLOGIN_SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Keychain: KeychainConfig{
			Backend:     strings.ToLower(envOr("AUTOLOGIN_KEYCHAIN_BACKEND", "memory")),
			DatabaseURL: os.Getenv("AUTOLOGIN_DATABASE_URL"),
		},
		Preview: PreviewConfig{
			MaxChars: envIntOr("AUTOLOGIN_PREVIEW_MAX_CHARS", 20000),
		},
		Webhook: WebhookConfig{
			AllowPrivate: envBoolOr("AUTOLOGIN_WEBHOOK_ALLOW_PRIVATE", false),
		},
		Log: LogConfig{
			Level:  envOr("AUTOLOGIN_LOG_LEVEL", "info"),
			Format: envOr("AUTOLOGIN_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
