package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/invopay/identity/pkg/jwtx"
	"github.com/joho/godotenv"
)

type Config struct {
	JWTSecret string // Required: HMAC-SHA-256 signing secret (min 32 bytes)
	Issuer    string // Optional: issuer claim for tokens (default: invopay-identity)
	Audience  string // Optional: audience claim for tokens (default: invopay-api)

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 7 days)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./identity.db)
	PepperFile           string        // Optional: path to password hashing pepper file (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-token sweep interval (default: 1h)
}

// LoadConfig reads configuration from the environment, after loading a .env
// file if one sits next to the binary. Environment variables win over .env
// entries.
func LoadConfig() Config {
	_ = godotenv.Load() // absent .env is fine

	return Config{
		JWTSecret: os.Getenv("IDENTITY_JWT_SECRET"),
		Issuer:    getEnvOrDefault("IDENTITY_ISSUER", "invopay-identity"),
		Audience:  getEnvOrDefault("IDENTITY_AUDIENCE", "invopay-api"),

		AccessTokenTTL:  getEnvDurationOrDefault("IDENTITY_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("IDENTITY_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseFile:         getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:           getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects configurations the service cannot safely start with. The
// signing secret in particular has no usable default: a generated one would
// invalidate every outstanding token on restart.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("IDENTITY_JWT_SECRET is required")
	}
	if len(c.JWTSecret) < jwtx.MinSecretBytes {
		return fmt.Errorf("IDENTITY_JWT_SECRET must be at least %d bytes", jwtx.MinSecretBytes)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
