package httpmsg

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// Response accumulates a serialized response message.  Headers are
// added first; Finish appends the body and seals the message.
type Response struct {
	buf        bytes.Buffer
	finished   bool
	hasLength  bool
	disconnect bool
}

// NewResponse starts a response with the given status line.  An empty
// message is replaced with the standard reason phrase for code.
func NewResponse(protocol string, code int, message string) *Response {
	if message == "" {
		message = http.StatusText(code)
	}
	r := &Response{}
	r.buf.WriteString(protocol)
	r.buf.WriteByte(' ')
	r.buf.WriteString(strconv.Itoa(code))
	r.buf.WriteByte(' ')
	r.buf.WriteString(message)
	r.buf.WriteString("\r\n")
	return r
}

// AddHeader appends a header field.  It is ignored once the response is
// finished.
func (r *Response) AddHeader(name, value string) {
	if r.finished {
		return
	}
	if strings.EqualFold(name, "Content-Length") {
		r.hasLength = true
	}
	r.buf.WriteString(name)
	r.buf.WriteString(": ")
	r.buf.WriteString(value)
	r.buf.WriteString("\r\n")
}

// Finish terminates the header section and appends data as the body.
// A Content-Length header is added unless one was set explicitly.
// Calling Finish more than once has no effect.
func (r *Response) Finish(data []byte) {
	if r.finished {
		return
	}
	if !r.hasLength {
		r.AddHeader("Content-Length", strconv.Itoa(len(data)))
	}
	r.buf.WriteString("\r\n")
	r.buf.Write(data)
	r.finished = true
}

// Data returns the serialized message, finishing it without a body if
// Finish was never called.
func (r *Response) Data() []byte {
	r.Finish(nil)
	return r.buf.Bytes()
}

// SetDisconnect asks the server to close the connection once the
// response has been written.
func (r *Response) SetDisconnect(disconnect bool) { r.disconnect = disconnect }

// Disconnect reports whether the connection should close after this
// response.
func (r *Response) Disconnect() bool { return r.disconnect }
