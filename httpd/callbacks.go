package httpd

import "gohttpd/httpmsg"

// Callbacks is the application side of a Server.  All three methods
// are invoked from the server's worker goroutine, one at a time, so an
// implementation needs no locking of its own for per-connection state.
type Callbacks interface {
	// ConnInit is called once per admitted connection with the raw
	// local and remote addresses (4 bytes for IPv4, 16 for IPv6).  The
	// returned value is handed back on every later call for that
	// connection.
	ConnInit(local, remote []byte) any

	// ConnDestroy is called exactly once when an admitted connection
	// is torn down, whether by the peer, an error, or Stop.
	ConnDestroy(state any)

	// ConnRequest is called for each complete request.  A nil
	// response sends nothing and leaves the connection open.
	ConnRequest(state any, req *httpmsg.Request) *httpmsg.Response
}

// CallbackFuncs adapts plain functions to Callbacks.  Nil fields are
// no-ops; a nil Request answers nothing.
type CallbackFuncs struct {
	Init    func(local, remote []byte) any
	Destroy func(state any)
	Request func(state any, req *httpmsg.Request) *httpmsg.Response
}

func (f CallbackFuncs) ConnInit(local, remote []byte) any {
	if f.Init == nil {
		return nil
	}
	return f.Init(local, remote)
}

func (f CallbackFuncs) ConnDestroy(state any) {
	if f.Destroy != nil {
		f.Destroy(state)
	}
}

func (f CallbackFuncs) ConnRequest(state any, req *httpmsg.Request) *httpmsg.Response {
	if f.Request == nil {
		return nil
	}
	return f.Request(state, req)
}
