// Package config defines the runtime configuration for gohttpd and
// provides validation for it.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	ncerr "gohttpd/internal/errors"
)

// Config holds every tuneable for a gohttpd process.
type Config struct {
	// ── Listening socket ─────────────────────────────────────────────
	Port        int    // 0 = ephemeral
	BindAddress string // numeric IP; "" = all interfaces
	IPv6        bool   // dual-stack IPv6 socket
	Backlog     int

	// ── Event loop ───────────────────────────────────────────────────
	MaxConnections int
	RTSP           bool          // parse RTSP/1.0 instead of plain HTTP
	PollInterval   time.Duration // readiness-wait bound
	ReadSize       int           // bytes per read
	SendTimeout    time.Duration // per-send bound; 0 = none

	// ── Application ──────────────────────────────────────────────────
	ServerName  string // Server header value
	MetricsAddr string // host:port for the Prometheus endpoint; "" = off
	AutoRestart bool   // restart the server after a fatal worker exit

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		Backlog:        DefaultBacklog,
		MaxConnections: DefaultMaxConnections,
		PollInterval:   DefaultPollInterval,
		ReadSize:       DefaultReadSize,
		SendTimeout:    DefaultSendTimeout,
		ServerName:     DefaultServerName,
		AutoRestart:    true,
		Verbose:        1,
	}
}

// Protocol returns the protocol tag responses are written with.
func (c *Config) Protocol() string {
	if c.RTSP {
		return "RTSP/1.0"
	}
	return "HTTP/1.1"
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 0-65535",
			Hint:    "use 0 to let the kernel pick a free port",
		}
	}

	if c.BindAddress != "" {
		ip := net.ParseIP(c.BindAddress)
		if ip == nil {
			return &ncerr.ConfigError{
				Field:   "bind",
				Value:   c.BindAddress,
				Message: "not a numeric IP address",
				Hint:    "host names are not resolved; pass e.g. 127.0.0.1 or ::1",
			}
		}
		if ip.To4() == nil && !c.IPv6 {
			return &ncerr.ConfigError{
				Field:   "bind",
				Value:   c.BindAddress,
				Message: "IPv6 address on an IPv4 socket",
				Hint:    "add --ipv6",
			}
		}
	}

	if c.MaxConnections < 1 {
		return &ncerr.ConfigError{
			Field:   "max-conns",
			Value:   c.MaxConnections,
			Message: "must be positive",
		}
	}
	if c.MaxConnections > MaxMaxConnections {
		return &ncerr.ConfigError{
			Field:   "max-conns",
			Value:   c.MaxConnections,
			Message: "too large, every connection is polled on each iteration",
			Hint:    fmt.Sprintf("use at most %d", MaxMaxConnections),
		}
	}

	if c.PollInterval <= 0 {
		return &ncerr.ConfigError{
			Field:   "poll-interval",
			Value:   c.PollInterval,
			Message: "must be positive",
			Hint:    "it bounds how long Stop waits for the worker to notice",
		}
	}

	if c.ReadSize < 1 {
		return &ncerr.ConfigError{
			Field:   "read-size",
			Value:   c.ReadSize,
			Message: "must be positive",
		}
	}

	if c.SendTimeout < 0 {
		return &ncerr.ConfigError{
			Field:   "send-timeout",
			Value:   c.SendTimeout,
			Message: "must not be negative",
			Hint:    "use 0 to disable",
		}
	}

	if c.MetricsAddr != "" {
		if _, port, err := net.SplitHostPort(c.MetricsAddr); err != nil || !validPort(port) {
			return &ncerr.ConfigError{
				Field:   "metrics-addr",
				Value:   c.MetricsAddr,
				Message: "expected host:port",
				Hint:    "e.g. 127.0.0.1:9100 or :9100",
			}
		}
	}

	return nil
}

func validPort(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 65535
}
