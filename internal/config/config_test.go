package config

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanree/credit-history-app/internal/secret"
)

// allConfigKeys lists every CREDITDASH_ env var that Load() reads.
var allConfigKeys = []string{
	"CREDITDASH_ENCRYPTION_KEY",
	"CREDITDASH_PLAID_CLIENT_ID",
	"CREDITDASH_PLAID_SECRET",
	"CREDITDASH_PLAID_ENV",
	"CREDITDASH_EXPERIAN_CLIENT_ID",
	"CREDITDASH_EXPERIAN_CLIENT_SECRET",
	"CREDITDASH_EXPERIAN_ENV",
	"CREDITDASH_ACCESS_TOKEN",
	"CREDITDASH_LISTEN_ADDR",
	"CREDITDASH_PROVIDER_TIMEOUT",
	"CREDITDASH_SESSION_LIFETIME",
	"CREDITDASH_SECURE_COOKIES",
	"CREDITDASH_TRANSACTION_DAYS",
	"CREDITDASH_CACHE_PATH",
	"CREDITDASH_CACHE_TTL",
	"CREDITDASH_CONSUMER_FIRST_NAME",
	"CREDITDASH_CONSUMER_LAST_NAME",
	"CREDITDASH_CONSUMER_SSN",
	"CREDITDASH_CONSUMER_DOB",
	"CREDITDASH_CONSUMER_ADDRESS_LINE1",
	"CREDITDASH_CONSUMER_CITY",
	"CREDITDASH_CONSUMER_STATE",
	"CREDITDASH_CONSUMER_ZIP",
}

// isolateConfigEnv saves and unsets all CREDITDASH_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func testEncryptionKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, secret.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CREDITDASH_ENCRYPTION_KEY", testEncryptionKey(t))
	t.Setenv("CREDITDASH_PLAID_CLIENT_ID", "plaid-client")
	t.Setenv("CREDITDASH_PLAID_SECRET", "plaid-secret")
	t.Setenv("CREDITDASH_EXPERIAN_CLIENT_ID", "experian-client")
	t.Setenv("CREDITDASH_EXPERIAN_CLIENT_SECRET", "experian-secret")
	t.Setenv("CREDITDASH_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("CREDITDASH_PROVIDER_TIMEOUT", "3s")
	t.Setenv("CREDITDASH_TRANSACTION_DAYS", "30")
	t.Setenv("CREDITDASH_CACHE_PATH", "/tmp/snapshots.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.EncryptionKey, secret.KeySize)
	assert.Equal(t, "plaid-client", cfg.PlaidClientID)
	assert.Equal(t, "sandbox", cfg.PlaidEnv)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 30, cfg.TransactionDays)
	assert.True(t, cfg.HasPlaidCredentials())
	assert.True(t, cfg.HasExperianCredentials())
	assert.True(t, cfg.CacheEnabled())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CREDITDASH_ENCRYPTION_KEY", testEncryptionKey(t))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 90, cfg.TransactionDays)
	assert.True(t, cfg.SecureCookies)
	assert.False(t, cfg.HasPlaidCredentials())
	assert.False(t, cfg.HasExperianCredentials())
	assert.False(t, cfg.CacheEnabled())
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	isolateConfigEnv(t)

	_, err := Load()
	assert.ErrorIs(t, err, secret.ErrInvalidKey)
}

func TestLoad_BadEncryptionKey(t *testing.T) {
	isolateConfigEnv(t)

	t.Run("not base64", func(t *testing.T) {
		t.Setenv("CREDITDASH_ENCRYPTION_KEY", "!!!not-base64!!!")
		_, err := Load()
		assert.ErrorIs(t, err, secret.ErrInvalidKey)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv("CREDITDASH_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
		_, err := Load()
		assert.ErrorIs(t, err, secret.ErrInvalidKey)
	})
}

func TestLoad_InvalidDurations(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CREDITDASH_ENCRYPTION_KEY", testEncryptionKey(t))
	t.Setenv("CREDITDASH_PROVIDER_TIMEOUT", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CREDITDASH_PROVIDER_TIMEOUT")
}

func TestLoad_ConsumerIdentity(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CREDITDASH_ENCRYPTION_KEY", testEncryptionKey(t))
	t.Setenv("CREDITDASH_CONSUMER_FIRST_NAME", "John")
	t.Setenv("CREDITDASH_CONSUMER_LAST_NAME", "Doe")
	t.Setenv("CREDITDASH_CONSUMER_SSN", "666112222")
	t.Setenv("CREDITDASH_CONSUMER_DOB", "1980-01-01")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.Consumer.Complete())
	assert.Equal(t, "John", cfg.Consumer.FirstName)
}
