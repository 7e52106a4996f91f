package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOHTTPD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive); durations accept Go
// syntax ("250ms") or a bare number of milliseconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v, ok := envInt("GOHTTPD_PORT"); ok {
		cfg.Port = v
	}
	if v := os.Getenv("GOHTTPD_BIND"); v != "" {
		cfg.BindAddress = v
	}
	if envBool("GOHTTPD_IPV6") {
		cfg.IPv6 = true
	}
	if v, ok := envInt("GOHTTPD_BACKLOG"); ok && v > 0 {
		cfg.Backlog = v
	}

	// Event loop
	if v, ok := envInt("GOHTTPD_MAX_CONNS"); ok {
		cfg.MaxConnections = v
	}
	if envBool("GOHTTPD_RTSP") {
		cfg.RTSP = true
	}
	if v, ok := envDuration("GOHTTPD_POLL_INTERVAL"); ok {
		cfg.PollInterval = v
	}
	if v, ok := envInt("GOHTTPD_READ_SIZE"); ok {
		cfg.ReadSize = v
	}
	if v, ok := envDuration("GOHTTPD_SEND_TIMEOUT"); ok {
		cfg.SendTimeout = v
	}

	// Application
	if v := os.Getenv("GOHTTPD_SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}
	if v := os.Getenv("GOHTTPD_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("GOHTTPD_AUTO_RESTART"); v != "" {
		cfg.AutoRestart = envBool("GOHTTPD_AUTO_RESTART")
	}

	// Output
	if v, ok := envInt("GOHTTPD_VERBOSE"); ok && v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
