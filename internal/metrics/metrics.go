// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a gohttpd server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive   atomic.Int64
	connectionsTotal    atomic.Int64
	connectionsRejected atomic.Int64
	requestsTotal       atomic.Int64
	parseErrors         atomic.Int64
	missingResponses    atomic.Int64
	sendErrors          atomic.Int64
	bytesIn             atomic.Int64
	bytesOut            atomic.Int64
	restarts            atomic.Int64
	errorsTotal         atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ConnectionRejected records a connection turned away at the cap.
func (c *Collector) ConnectionRejected() {
	if c == nil {
		return
	}
	c.connectionsRejected.Add(1)
}

// ActiveConnections returns the current number of admitted connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime admitted connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// RejectedConnections returns the lifetime rejected connection count.
func (c *Collector) RejectedConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsRejected.Load()
}

// ── Request metrics ──────────────────────────────────────────────────

// RequestHandled records a complete request passed to the handler.
func (c *Collector) RequestHandled() {
	if c == nil {
		return
	}
	c.requestsTotal.Add(1)
}

// ParseError records a request rejected by the parser.
func (c *Collector) ParseError() {
	if c == nil {
		return
	}
	c.parseErrors.Add(1)
}

// MissingResponse records a handler that returned no response.
func (c *Collector) MissingResponse() {
	if c == nil {
		return
	}
	c.missingResponses.Add(1)
}

// SendError records an aborted response write.
func (c *Collector) SendError() {
	if c == nil {
		return
	}
	c.sendErrors.Add(1)
}

// Requests returns the number of requests handled.
func (c *Collector) Requests() int64 {
	if c == nil {
		return 0
	}
	return c.requestsTotal.Load()
}

// ParseErrors returns the number of rejected requests.
func (c *Collector) ParseErrors() int64 {
	if c == nil {
		return 0
	}
	return c.parseErrors.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Lifecycle metrics ────────────────────────────────────────────────

// ServerRestarted records a restart after a fatal worker exit.
func (c *Collector) ServerRestarted() {
	if c == nil {
		return
	}
	c.restarts.Add(1)
}

// Restarts returns the total restart count.
func (c *Collector) Restarts() int64 {
	if c == nil {
		return 0
	}
	return c.restarts.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime              string `json:"uptime"`
	ConnectionsActive   int64  `json:"connections_active"`
	ConnectionsTotal    int64  `json:"connections_total"`
	ConnectionsRejected int64  `json:"connections_rejected"`
	RequestsTotal       int64  `json:"requests_total"`
	ParseErrors         int64  `json:"parse_errors"`
	MissingResponses    int64  `json:"missing_responses"`
	SendErrors          int64  `json:"send_errors"`
	BytesIn             int64  `json:"bytes_in"`
	BytesOut            int64  `json:"bytes_out"`
	Restarts            int64  `json:"restarts"`
	ErrorsTotal         int64  `json:"errors_total"`
	LastError           string `json:"last_error,omitempty"`
	LastErrorMessage    string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:              time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive:   c.connectionsActive.Load(),
		ConnectionsTotal:    c.connectionsTotal.Load(),
		ConnectionsRejected: c.connectionsRejected.Load(),
		RequestsTotal:       c.requestsTotal.Load(),
		ParseErrors:         c.parseErrors.Load(),
		MissingResponses:    c.missingResponses.Load(),
		SendErrors:          c.sendErrors.Load(),
		BytesIn:             c.bytesIn.Load(),
		BytesOut:            c.bytesOut.Load(),
		Restarts:            c.restarts.Load(),
		ErrorsTotal:         c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
