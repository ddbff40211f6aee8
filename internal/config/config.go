package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env         string
	ListenAddr  string
	LogLevel    string
	DatabaseURL string
	// BackendURL points at a real portfolio backend. Empty runs the fixture backend in-process.
	BackendURL string
	// BackendToken is sent as a bearer token to BackendURL.
	BackendToken  string
	ServeFixture  bool
	FixtureDelay  time.Duration
	FetchTimeout  time.Duration
	CarrierTTL    time.Duration
	CarrierSize   int
	SessionTTL    time.Duration
	SweepInterval time.Duration
	SSOToken      string
	Coalesce      bool
}

// DevSSOToken is accepted outside production when SSO_TOKEN is unset.
const DevSSOToken = "dev-sso-token"

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads the environment. Malformed values fall back to their defaults
// and are reported together in the returned error so callers can decide.
func Load() (Config, error) {
	var bad []string
	cfg := Config{
		Env:           getenv("APP_ENV", "development"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BackendURL:    os.Getenv("BACKEND_URL"),
		BackendToken:  os.Getenv("BACKEND_TOKEN"),
		ServeFixture:  getenvBool("SERVE_FIXTURE", true, &bad),
		FixtureDelay:  getenvDuration("FIXTURE_LATENCY", 500*time.Millisecond, &bad),
		FetchTimeout:  getenvDuration("FETCH_TIMEOUT", 10*time.Second, &bad),
		CarrierTTL:    getenvDuration("CARRIER_TTL", 2*time.Minute, &bad),
		CarrierSize:   getenvInt("CARRIER_SIZE", 4096, &bad),
		SessionTTL:    getenvDuration("SESSION_TTL", 12*time.Hour, &bad),
		SweepInterval: getenvDuration("SESSION_SWEEP_INTERVAL", time.Minute, &bad),
		SSOToken:      os.Getenv("SSO_TOKEN"),
		Coalesce:      getenvBool("COALESCE_REQUESTS", false, &bad),
	}
	if cfg.SSOToken == "" {
		if cfg.Env == "production" {
			bad = append(bad, "SSO_TOKEN (required in production)")
		} else {
			cfg.SSOToken = DevSSOToken
		}
	}
	if len(bad) > 0 {
		return cfg, fmt.Errorf("invalid config values: %v", bad)
	}
	return cfg, nil
}

func getenvInt(key string, def int, bad *[]string) int {
	if v := os.Getenv(key); v != "" {
		out, err := strconv.Atoi(v)
		if err == nil && out >= 0 {
			return out
		}
		*bad = append(*bad, key)
	}
	return def
}

func getenvBool(key string, def bool, bad *[]string) bool {
	if v := os.Getenv(key); v != "" {
		out, err := strconv.ParseBool(v)
		if err == nil {
			return out
		}
		*bad = append(*bad, key)
	}
	return def
}

func getenvDuration(key string, def time.Duration, bad *[]string) time.Duration {
	if v := os.Getenv(key); v != "" {
		out, err := time.ParseDuration(v)
		if err == nil && out >= 0 {
			return out
		}
		*bad = append(*bad, key)
	}
	return def
}
