package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPServer.Addr())
	assert.Equal(t, "https://api.frankfurter.dev/", cfg.Frankfurter.URL)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.Resilience.MaxRetries)
	assert.Equal(t, time.Second, cfg.Resilience.RetryBaseDelay)
	assert.Equal(t, 2, cfg.Resilience.FailureThreshold)
	assert.Equal(t, time.Minute, cfg.Resilience.BreakDuration)
	assert.True(t, cfg.Provider.SingleFlight)
	assert.Equal(t, []string{"TRY", "PLN", "THB", "MXN"}, cfg.Conversion.Blocked())
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "127.0.0.1:9090")
	t.Setenv("CACHE_BACKEND", "badger")
	t.Setenv("BREAKER_BREAK_DURATION", "30s")
	t.Setenv("PROVIDER_SINGLE_FLIGHT", "false")
	t.Setenv("CONVERSION_BLOCKED_CURRENCIES", " try, ,rub ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPServer.Addr())
	assert.Equal(t, CacheBackendBadger, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Resilience.BreakDuration)
	assert.False(t, cfg.Provider.SingleFlight)
	assert.Equal(t, []string{"TRY", "RUB"}, cfg.Conversion.Blocked())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("Unknown cache backend", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "redis")
		_, err := Load()
		assert.ErrorContains(t, err, "cache backend")
	})

	t.Run("Threshold below one", func(t *testing.T) {
		t.Setenv("BREAKER_FAILURE_THRESHOLD", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "BREAKER_FAILURE_THRESHOLD")
	})

	t.Run("Retry count out of range", func(t *testing.T) {
		for _, value := range []string{"-1", "11", "63"} {
			t.Setenv("RETRY_MAX_RETRIES", value)
			_, err := Load()
			assert.ErrorContains(t, err, "RETRY_MAX_RETRIES", value)
		}
	})

	t.Run("Malformed duration", func(t *testing.T) {
		t.Setenv("RETRY_BASE_DELAY", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}
