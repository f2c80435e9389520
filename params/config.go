// Package params loads process configuration from the environment,
// following the same .env-then-os.Getenv precedence the rest of the
// pack uses.
package params

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting from spec.md §6.
type Config struct {
	Env      string // ENV, default "devnet"
	Endpoint string // ENDPOINT (RPC URL)
	WSEndpoint string // WS_ENDPOINT

	Port int // PORT, default 6969

	UseWebsocket      bool // USE_WEBSOCKET
	UseOrderSubscriber bool // USE_ORDER_SUBSCRIBER

	RateLimitCallsPerSecond int  // RATE_LIMIT_CALLS_PER_SECOND, default 1
	AllowLoadTest           bool // ALLOW_LOAD_TEST

	Commit string // COMMIT, reported verbatim
}

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		Env:                     "devnet",
		Port:                    6969,
		RateLimitCallsPerSecond: 1,
	}
}

// LoadFromEnv loads a .env file (if present) and overlays it with process
// environment variables. envPath == "" loads ".env" from the working
// directory, mirroring params.LoadFromEnv in the teacher repo. Missing
// ENDPOINT is a Fatal configuration error per spec.md §6/§7 — callers
// should exit non-zero rather than serve with an empty chain endpoint.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	cfg.Endpoint = os.Getenv("ENDPOINT")
	cfg.WSEndpoint = os.Getenv("WS_ENDPOINT")

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}

	cfg.UseWebsocket = boolEnv("USE_WEBSOCKET", false)
	cfg.UseOrderSubscriber = boolEnv("USE_ORDER_SUBSCRIBER", false)
	cfg.AllowLoadTest = boolEnv("ALLOW_LOAD_TEST", false)

	if v := os.Getenv("RATE_LIMIT_CALLS_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitCallsPerSecond = n
		}
	}

	cfg.Commit = os.Getenv("COMMIT")

	if cfg.Endpoint == "" {
		return cfg, fmt.Errorf("ENDPOINT is required")
	}

	return cfg, nil
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
