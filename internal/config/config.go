// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/secret"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// EncryptionKey is the 32-byte AES-256 key protecting the session
	// credential. Loaded once at startup, immutable for the process
	// lifetime, and never logged. Rotating it invalidates every existing
	// session blob, which is the documented rotation mechanism.
	EncryptionKey []byte

	PlaidClientID        string
	PlaidSecret          string
	PlaidEnv             string
	ExperianClientID     string
	ExperianClientSecret string
	ExperianEnv          string

	// Consumer identifies the consumer for bureau pulls. PII: passed
	// through to the credit provider untouched, never logged.
	Consumer model.ConsumerIdentity

	// AccessToken optionally seeds the session from the environment for
	// local development, mirroring the provider's sandbox flow.
	AccessToken string

	ListenAddr      string
	ProviderTimeout time.Duration
	SessionLifetime time.Duration
	SecureCookies   bool
	TransactionDays int

	// CachePath enables the sqlite snapshot cache when non-empty.
	CachePath string
	CacheTTL  time.Duration
}

// HasPlaidCredentials returns true when both the client ID and secret for
// the transactions provider are configured.
func (c *Config) HasPlaidCredentials() bool {
	return c.PlaidClientID != "" && c.PlaidSecret != ""
}

// HasExperianCredentials returns true when both the client ID and secret for
// the credit provider are configured.
func (c *Config) HasExperianCredentials() bool {
	return c.ExperianClientID != "" && c.ExperianClientSecret != ""
}

// CacheEnabled reports whether the snapshot cache layer should be wired in.
func (c *Config) CacheEnabled() bool {
	return c.CachePath != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is honored when present.
//
// CREDITDASH_ENCRYPTION_KEY is required and must be base64 for exactly 32
// bytes; the process refuses to start without it. Provider credentials are
// optional: absent credentials leave that provider's section in a permanent
// "unavailable" state rather than preventing startup.
func Load() (*Config, error) {
	// Ignore a missing .env file; env vars always win over file values.
	_ = godotenv.Load()

	encoded := os.Getenv("CREDITDASH_ENCRYPTION_KEY")
	if encoded == "" {
		return nil, fmt.Errorf("CREDITDASH_ENCRYPTION_KEY is required: %w", secret.ErrInvalidKey)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("CREDITDASH_ENCRYPTION_KEY is not valid base64: %w", secret.ErrInvalidKey)
	}
	if len(key) != secret.KeySize {
		return nil, fmt.Errorf("CREDITDASH_ENCRYPTION_KEY decodes to %d bytes: %w", len(key), secret.ErrInvalidKey)
	}

	providerTimeout := 10 * time.Second
	if v, ok := os.LookupEnv("CREDITDASH_PROVIDER_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDITDASH_PROVIDER_TIMEOUT has invalid duration %q: %w", v, err)
		}
		providerTimeout = parsed
	}

	sessionLifetime := 24 * time.Hour
	if v, ok := os.LookupEnv("CREDITDASH_SESSION_LIFETIME"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDITDASH_SESSION_LIFETIME has invalid duration %q: %w", v, err)
		}
		sessionLifetime = parsed
	}

	cacheTTL := 5 * time.Minute
	if v, ok := os.LookupEnv("CREDITDASH_CACHE_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDITDASH_CACHE_TTL has invalid duration %q: %w", v, err)
		}
		cacheTTL = parsed
	}

	secureCookies := true
	if v, ok := os.LookupEnv("CREDITDASH_SECURE_COOKIES"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CREDITDASH_SECURE_COOKIES has invalid bool %q: %w", v, err)
		}
		secureCookies = parsed
	}

	transactionDays := 90
	if v, ok := os.LookupEnv("CREDITDASH_TRANSACTION_DAYS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("CREDITDASH_TRANSACTION_DAYS has invalid value %q", v)
		}
		transactionDays = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CREDITDASH_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	return &Config{
		EncryptionKey:        key,
		PlaidClientID:        os.Getenv("CREDITDASH_PLAID_CLIENT_ID"),
		PlaidSecret:          os.Getenv("CREDITDASH_PLAID_SECRET"),
		PlaidEnv:             envOrDefault("CREDITDASH_PLAID_ENV", "sandbox"),
		ExperianClientID:     os.Getenv("CREDITDASH_EXPERIAN_CLIENT_ID"),
		ExperianClientSecret: os.Getenv("CREDITDASH_EXPERIAN_CLIENT_SECRET"),
		ExperianEnv:          envOrDefault("CREDITDASH_EXPERIAN_ENV", "sandbox"),
		Consumer:             loadConsumer(),
		AccessToken:          os.Getenv("CREDITDASH_ACCESS_TOKEN"),
		ListenAddr:           listenAddr,
		ProviderTimeout:      providerTimeout,
		SessionLifetime:      sessionLifetime,
		SecureCookies:        secureCookies,
		TransactionDays:      transactionDays,
		CachePath:            os.Getenv("CREDITDASH_CACHE_PATH"),
		CacheTTL:             cacheTTL,
	}, nil
}

// loadConsumer reads the consumer identity for bureau pulls from the
// environment. Presence is checked at request time, not here.
func loadConsumer() model.ConsumerIdentity {
	return model.ConsumerIdentity{
		FirstName:   os.Getenv("CREDITDASH_CONSUMER_FIRST_NAME"),
		LastName:    os.Getenv("CREDITDASH_CONSUMER_LAST_NAME"),
		SSN:         os.Getenv("CREDITDASH_CONSUMER_SSN"),
		DateOfBirth: os.Getenv("CREDITDASH_CONSUMER_DOB"),
		Address: model.Address{
			Line1: os.Getenv("CREDITDASH_CONSUMER_ADDRESS_LINE1"),
			City:  os.Getenv("CREDITDASH_CONSUMER_CITY"),
			State: os.Getenv("CREDITDASH_CONSUMER_STATE"),
			Zip:   os.Getenv("CREDITDASH_CONSUMER_ZIP"),
		},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
