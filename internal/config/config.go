// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (the dashboard dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// BackendURL is the base URL of the upstream ticketing API. Required.
	BackendURL string

	// BackendTimeout bounds every upstream request. Defaults to 10s.
	BackendTimeout time.Duration

	// JWTSecret is the HS256 key that staff tokens are signed with. Required.
	JWTSecret string

	// DatabaseURL is the Postgres connection string of the sales journal. Required.
	DatabaseURL string

	// RedisURL selects the Redis session store. Sessions are kept in
	// process memory when it is empty.
	RedisURL string

	// SessionTTL is how long an untouched booking session lives. Defaults to 30m.
	SessionTTL time.Duration

	// RecheckSeats re-fetches seat maps right before submitting a reservation.
	RecheckSeats bool

	// OTLPEndpoint is the OTLP/gRPC collector address. Tracing is off when empty.
	OTLPEndpoint string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// values that do not parse.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:     os.Getenv("REDIS_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var missing, invalid []string

	for key, dst := range map[string]*string{
		"BACKEND_URL":  &cfg.BackendURL,
		"JWT_SECRET":   &cfg.JWTSecret,
		"DATABASE_URL": &cfg.DatabaseURL,
	} {
		*dst = os.Getenv(key)
		if *dst == "" {
			missing = append(missing, key)
		}
	}

	var err error
	if cfg.BackendTimeout, err = time.ParseDuration(getEnv("BACKEND_TIMEOUT", "10s")); err != nil || cfg.BackendTimeout <= 0 {
		invalid = append(invalid, "BACKEND_TIMEOUT")
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "30m")); err != nil || cfg.SessionTTL <= 0 {
		invalid = append(invalid, "SESSION_TTL")
	}
	if cfg.RecheckSeats, err = strconv.ParseBool(getEnv("RECHECK_SEATS", "false")); err != nil {
		invalid = append(invalid, "RECHECK_SEATS")
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		invalid = append(invalid, "MAX_BODY_BYTES")
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
