// Package session represents the application state of one admitted
// connection: who is on the other end, what it has asked for so far,
// and a logger tagged with its identity.
//
// The server treats a Session as opaque; it is created by the
// connection-init callback and handed back on every request and on
// teardown.
package session

import (
	"net"
	"time"

	"github.com/google/uuid"

	"gohttpd/util"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID       uuid.UUID
	Local    net.IP
	Remote   net.IP
	Opened   time.Time
	Requests int
	Logger   *util.Logger

	// Values is scratch space for request handlers that keep state
	// across requests on one connection (e.g. an RTSP session id).
	Values map[string]string
}

// New creates a Session for a connection between the given raw local
// and remote addresses (4 or 16 bytes each).
func New(local, remote []byte, logger *util.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:     id,
		Local:  copyIP(local),
		Remote: copyIP(remote),
		Opened: time.Now(),
		Logger: logger.With("conn " + id.String()[:8]),
		Values: make(map[string]string),
	}
}

// Touch records that another request arrived and returns its 1-based
// sequence number on this connection.
func (s *Session) Touch() int {
	s.Requests++
	return s.Requests
}

// Age is how long the connection has been open.
func (s *Session) Age() time.Duration {
	return time.Since(s.Opened)
}

func copyIP(b []byte) net.IP {
	if len(b) != net.IPv4len && len(b) != net.IPv6len {
		return nil
	}
	ip := make(net.IP, len(b))
	copy(ip, b)
	return ip
}
