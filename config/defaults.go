package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the listening port when none is given.
	DefaultPort = 5000

	// DefaultBacklog is the listen(2) backlog.
	DefaultBacklog = 5

	// DefaultMaxConnections caps concurrently admitted connections.
	DefaultMaxConnections = 10

	// MaxMaxConnections is the largest accepted connection cap.
	MaxMaxConnections = 1024

	// DefaultPollInterval bounds each readiness wait.  It only decides
	// how quickly the worker notices a Stop.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultReadSize is the most bytes taken from one connection per
	// readiness event.
	DefaultReadSize = 1024

	// DefaultSendTimeout bounds a single blocking send so a client that
	// stops reading cannot hold the worker forever.
	DefaultSendTimeout = 10 * time.Second

	// DefaultServerName is sent in the Server header.
	DefaultServerName = "gohttpd"

	// DefaultRestartDelay is the first delay before restarting a server
	// whose worker exited on a fatal error.
	DefaultRestartDelay = 500 * time.Millisecond

	// DefaultMaxRestartDelay caps the restart backoff.
	DefaultMaxRestartDelay = 30 * time.Second

	// DefaultGracePeriod is how long the metrics endpoint waits for
	// in-flight scrapes on shutdown.
	DefaultGracePeriod = 5 * time.Second
)
