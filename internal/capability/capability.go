// Package capability defines how the bundled daemon answers requests.
// Each Capability encapsulates a single behaviour (a status page, an
// RTSP responder) and operates on a Session rather than on the server's
// raw connection state, which keeps capabilities testable and
// decoupled from the event loop.
package capability

import (
	"gohttpd/httpmsg"
	"gohttpd/internal/session"
)

// Capability answers one complete request on a connection.  A nil
// response sends nothing and leaves the connection open.
type Capability interface {
	Handle(sess *session.Session, req *httpmsg.Request) *httpmsg.Response
}

// Func adapts a plain function to Capability.
type Func func(sess *session.Session, req *httpmsg.Request) *httpmsg.Response

// Handle calls f.
func (f Func) Handle(sess *session.Session, req *httpmsg.Request) *httpmsg.Response {
	return f(sess, req)
}
