package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AccessSecret  string // Required: HMAC secret for access tokens (JWT_SECRET)
	RefreshSecret string // Optional: separate secret for refresh tokens (defaults to AccessSecret)

	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (REFRESH_TTL_DAYS, default: 7 days)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./tasklist.db)
	Env                 string        // Environment (dev, staging, production) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	SentryDSN string // Optional: error reporting DSN; empty disables Sentry
}

// IsProduction reports whether the service runs with production hardening
// (rate limits on, Secure refresh cookie).
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func LoadConfig() Config {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := Config{
		AccessSecret:        os.Getenv("JWT_SECRET"),
		RefreshSecret:       os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:           getEnvDurationOrDefault("ACCESS_TTL", 15*time.Minute),
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "tasklist.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
	}

	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}

	refreshDays := getEnvIntOrDefault("REFRESH_TTL_DAYS", 7)
	if refreshDays < 1 {
		refreshDays = 7
	}
	cfg.RefreshTTL = time.Duration(refreshDays) * 24 * time.Hour

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
