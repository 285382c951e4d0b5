package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	JWTSecret   string
	SessionTTL  time.Duration
	ResetTTL    time.Duration
	DevMode     bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port: "8080", // default port
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// REDIS_URL is optional: when set, the OTP ledger is backed by Redis
	// instead of process-local memory (required for multi-instance deploys).
	cfg.RedisURL = os.Getenv("REDIS_URL")

	var err error
	cfg.SessionTTL, err = durationEnv("SESSION_TTL")
	if err != nil {
		return nil, err
	}
	cfg.ResetTTL, err = durationEnv("RESET_TOKEN_TTL")
	if err != nil {
		return nil, err
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	return cfg, nil
}

// durationEnv parses an optional duration env var ("24h", "15m"); zero means
// use the built-in default.
func durationEnv(name string) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}
