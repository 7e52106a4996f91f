package capability

import (
	"fmt"
	"strings"

	"gohttpd/httpmsg"
	"gohttpd/internal/metrics"
	"gohttpd/internal/session"
)

// Status serves a tiny HTTP status site: a greeting on "/" and the
// metrics snapshot as JSON on "/metrics.json".
type Status struct {
	ServerName string
	Metrics    *metrics.Collector
}

// Handle answers GET and HEAD; every other method gets 405.
func (s *Status) Handle(sess *session.Session, req *httpmsg.Request) *httpmsg.Response {
	proto := responseProtocol(req, "HTTP/1.1")

	if req.Method() != "GET" && req.Method() != "HEAD" {
		res := s.newResponse(proto, 405)
		res.AddHeader("Allow", "GET, HEAD")
		res.AddHeader("Content-Type", "text/plain; charset=utf-8")
		res.Finish([]byte("method not allowed\n"))
		return res
	}

	var (
		code  int
		ctype string
		body  []byte
	)
	path, _, _ := strings.Cut(req.URL(), "?")
	switch path {
	case "/":
		code, ctype = 200, "text/plain; charset=utf-8"
		body = []byte(fmt.Sprintf("%s: hello %s, this is request %d on your connection\n",
			s.name(), sess.Remote, sess.Requests))
	case "/metrics.json":
		code, ctype = 200, "application/json"
		body = []byte(s.Metrics.JSON() + "\n")
	default:
		code, ctype = 404, "text/plain; charset=utf-8"
		body = []byte("not found\n")
	}

	res := s.newResponse(proto, code)
	res.AddHeader("Content-Type", ctype)
	if req.Method() == "HEAD" {
		res.AddHeader("Content-Length", fmt.Sprint(len(body)))
		body = nil
	}
	res.Finish(body)
	return res
}

func (s *Status) newResponse(proto string, code int) *httpmsg.Response {
	res := httpmsg.NewResponse(proto, code, "")
	res.AddHeader("Server", s.name())
	return res
}

func (s *Status) name() string {
	if s.ServerName == "" {
		return "gohttpd"
	}
	return s.ServerName
}

// responseProtocol answers in the client's protocol version when it is
// one we speak, falling back to def.
func responseProtocol(req *httpmsg.Request, def string) string {
	switch p := req.Protocol(); p {
	case "HTTP/1.0", "HTTP/1.1", "RTSP/1.0":
		return p
	}
	return def
}
