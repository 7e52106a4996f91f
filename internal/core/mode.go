// Package core is the orchestration layer.  It composes the request
// server, capabilities and metrics into complete operational modes and
// provides a builder that selects the modes a Config asks for.
//
// Architecture layers (bottom → top):
//
//	netutil  →  httpd  →  capability  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between the
// parsed configuration and the running daemon.
package core

import "context"

// Mode represents one long-running part of the daemon (the request
// server, the metrics endpoint).  Each mode owns its full lifecycle and
// returns when ctx is cancelled or it fails.
type Mode interface {
	Run(ctx context.Context) error
}
