package capability

import (
	"strings"

	"gohttpd/httpmsg"
	"gohttpd/internal/session"
)

// rtspPublic lists the methods advertised in reply to OPTIONS.
var rtspPublic = []string{
	"ANNOUNCE", "SETUP", "RECORD", "PAUSE", "FLUSH", "TEARDOWN",
	"OPTIONS", "GET_PARAMETER", "SET_PARAMETER",
}

// RTSP is a minimal RTSP/1.0 responder of the kind an AirPlay-style
// receiver runs: it answers OPTIONS, tracks a session id across SETUP
// and TEARDOWN, and echoes CSeq on every reply.
type RTSP struct {
	ServerName string
}

// Handle answers one RTSP request.  TEARDOWN closes the connection
// after the reply; unknown methods get 501.
func (r *RTSP) Handle(sess *session.Session, req *httpmsg.Request) *httpmsg.Response {
	var res *httpmsg.Response

	switch req.Method() {
	case "OPTIONS":
		res = r.newResponse(req, 200)
		res.AddHeader("Public", strings.Join(rtspPublic, ", "))

	case "SETUP":
		id, ok := sess.Values["rtsp-session"]
		if !ok {
			id = sess.ID.String()[:8]
			sess.Values["rtsp-session"] = id
		}
		res = r.newResponse(req, 200)
		res.AddHeader("Session", id)
		if t := req.Header("Transport"); t != "" {
			res.AddHeader("Transport", t)
		}

	case "ANNOUNCE", "RECORD", "PAUSE", "FLUSH", "GET_PARAMETER", "SET_PARAMETER":
		res = r.newResponse(req, 200)
		if id, ok := sess.Values["rtsp-session"]; ok {
			res.AddHeader("Session", id)
		}

	case "TEARDOWN":
		delete(sess.Values, "rtsp-session")
		res = r.newResponse(req, 200)
		res.AddHeader("Connection", "close")
		res.SetDisconnect(true)

	default:
		sess.Logger.Verbose("unsupported RTSP method %s", req.Method())
		res = r.newResponse(req, 501)
	}

	res.Finish(nil)
	return res
}

func (r *RTSP) newResponse(req *httpmsg.Request, code int) *httpmsg.Response {
	res := httpmsg.NewResponse(responseProtocol(req, "RTSP/1.0"), code, "")
	if cseq := req.Header("CSeq"); cseq != "" {
		res.AddHeader("CSeq", cseq)
	}
	if r.ServerName != "" {
		res.AddHeader("Server", r.ServerName)
	}
	return res
}
