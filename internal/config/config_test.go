package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "LISTEN_ADDR", "BACKEND_URL", "FIXTURE_LATENCY", "CARRIER_SIZE", "SERVE_FIXTURE", "SSO_TOKEN"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.FixtureDelay)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4096, cfg.CarrierSize)
	assert.True(t, cfg.ServeFixture)
	assert.False(t, cfg.Coalesce)
	assert.Equal(t, DevSSOToken, cfg.SSOToken)
}

func TestProductionRequiresSSOToken(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SSO_TOKEN", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSO_TOKEN")
	assert.Empty(t, cfg.SSOToken)

	t.Setenv("SSO_TOKEN", "s3cret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.SSOToken)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIXTURE_LATENCY", "0s")
	t.Setenv("BACKEND_URL", "http://backend:9000")
	t.Setenv("COALESCE_REQUESTS", "true")
	t.Setenv("CARRIER_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.FixtureDelay)
	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.True(t, cfg.Coalesce)
	assert.Equal(t, 8, cfg.CarrierSize)
}

func TestLoadReportsMalformedValues(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	t.Setenv("CARRIER_SIZE", "-3")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
	assert.Contains(t, err.Error(), "CARRIER_SIZE")
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4096, cfg.CarrierSize)
}
