package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig holds token-bucket settings for one route scope. Each
// scope (LOGIN, REFRESH) gets its own bucket capacity and refill interval,
// overridable through <SCOPE>_RATE_* environment variables.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadRateLimit builds limiter settings for a route scope with the given
// defaults. RATE_LIMIT_ENABLED turns all limiters off globally.
func LoadRateLimit(scope string, capacity int, interval time.Duration) RateLimitConfig {
	scope = strings.ToUpper(scope)
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt(scope+"_RATE_CAPACITY", capacity),
		RefillTokens:   envInt(scope+"_RATE_REFILL_TOKENS", 1),
		RefillInterval: envDur(scope+"_RATE_REFILL_INTERVAL", interval),
		TTL:            envDur(scope+"_RATE_TTL", 10*time.Minute),
		Prefix:         "rl:" + strings.ToLower(scope),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
