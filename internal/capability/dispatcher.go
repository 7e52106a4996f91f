package capability

import (
	"time"

	"gohttpd/httpmsg"
	"gohttpd/internal/session"
	"gohttpd/util"
)

// Dispatcher is the server callback set of the bundled daemon: it
// opens a Session for every admitted connection and routes each
// request on it to a Capability.
type Dispatcher struct {
	Capability Capability
	Logger     *util.Logger
}

// ConnInit opens a session for the connection.
func (d *Dispatcher) ConnInit(local, remote []byte) any {
	sess := session.New(local, remote, d.Logger)
	sess.Logger.Verbose("opened (%s -> %s)", sess.Remote, sess.Local)
	return sess
}

// ConnDestroy logs the end of the session.
func (d *Dispatcher) ConnDestroy(state any) {
	sess, ok := state.(*session.Session)
	if !ok {
		return
	}
	sess.Logger.Verbose("closed after %d request(s), %v",
		sess.Requests, sess.Age().Round(time.Millisecond))
}

// ConnRequest numbers the request and hands it to the capability.
func (d *Dispatcher) ConnRequest(state any, req *httpmsg.Request) *httpmsg.Response {
	sess, ok := state.(*session.Session)
	if !ok {
		d.Logger.Warn("request %s %s without a session", req.Method(), req.URL())
		return nil
	}
	n := sess.Touch()
	sess.Logger.Info("%s %s %s (#%d)", req.Method(), req.URL(), req.Protocol(), n)
	return d.Capability.Handle(sess, req)
}
