// Package httpmsg implements the request parser and response builder
// the server drives for every connection.
//
// A Request is fed bytes incrementally, in whatever fragments the
// network delivers them, and reports when it has either failed or seen
// a complete message.  Two grammars are supported: plain HTTP/1.x and
// RTSP/1.0, which shares the HTTP message syntax but has its own
// methods and protocol tag.
package httpmsg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Limits applied while parsing.
const (
	// MaxHeaderSize bounds the request line plus all header lines.
	MaxHeaderSize = 80 * 1024

	// MaxBodySize bounds the decoded body.
	MaxBodySize = 16 * 1024 * 1024

	maxChunkLine = 4096

	// initialBodyCap bounds what is reserved for a body before any of
	// it has arrived.
	initialBodyCap = 4096
)

// ParseError describes why a request was rejected.  Name is a stable
// identifier suitable for logs and metrics.
type ParseError struct {
	Name   string
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return "httpmsg: " + e.Name
	}
	return fmt.Sprintf("httpmsg: %s: %s", e.Name, e.Detail)
}

// Error names reported by ErrorName.
const (
	ErrInvalidMethod        = "INVALID_METHOD"
	ErrInvalidURL           = "INVALID_URL"
	ErrInvalidVersion       = "INVALID_VERSION"
	ErrInvalidRequestLine   = "INVALID_REQUEST_LINE"
	ErrInvalidHeaderToken   = "INVALID_HEADER_TOKEN"
	ErrHeaderOverflow       = "HEADER_OVERFLOW"
	ErrInvalidContentLength = "INVALID_CONTENT_LENGTH"
	ErrBodyTooLarge         = "BODY_TOO_LARGE"
	ErrInvalidChunkSize     = "INVALID_CHUNK_SIZE"
	ErrInvalidChunk         = "INVALID_CHUNK"
)

var httpMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

var rtspMethods = map[string]bool{
	"DESCRIBE": true, "ANNOUNCE": true, "SETUP": true, "PLAY": true,
	"PAUSE": true, "TEARDOWN": true, "GET_PARAMETER": true,
	"SET_PARAMETER": true, "REDIRECT": true, "RECORD": true, "FLUSH": true,
}

// Header is one header field in arrival order.
type Header struct {
	Name  string
	Value string
}

type parseState uint8

const (
	stateRequestLine parseState = iota
	stateHeaders
	stateBody
	stateChunkSize
	stateChunkData
	stateChunkEnd
	stateTrailers
	stateComplete
	stateError
)

// Request is an incrementally parsed request message.  The zero value
// is not usable; create one with NewRequest.
type Request struct {
	rtsp  bool
	state parseState
	err   *ParseError

	line     []byte // partial line carried between Feed calls
	headSize int

	method   string
	url      string
	protocol string
	headers  []Header

	contentLength int64
	remaining     int64 // body or chunk bytes still expected
	body          []byte
}

// NewRequest returns a parser for one message.  With rtsp set the RTSP
// methods and the RTSP/x.y protocol tag are accepted in addition to
// HTTP's.
func NewRequest(rtsp bool) *Request {
	return &Request{rtsp: rtsp, contentLength: -1}
}

// Feed consumes bytes of the message and returns how many were used.
// Parsing stops at the end of the message or at the first error, so
// n < len(data) means the rest belongs to whatever follows.
func (r *Request) Feed(data []byte) int {
	consumed := 0
	for consumed < len(data) && r.state != stateComplete && r.state != stateError {
		switch r.state {
		case stateBody, stateChunkData:
			consumed += r.feedBody(data[consumed:])
		default:
			n, line, ok := r.nextLine(data[consumed:])
			consumed += n
			if !ok {
				continue
			}
			r.handleLine(line)
		}
	}
	return consumed
}

// nextLine accumulates data up to and including the next LF.  ok is
// false when no full line is available yet.
func (r *Request) nextLine(data []byte) (n int, line []byte, ok bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		r.appendLine(data)
		return len(data), nil, false
	}
	r.appendLine(data[:i+1])
	if r.state == stateError {
		return i + 1, nil, false
	}
	line = bytes.TrimSuffix(bytes.TrimSuffix(r.line, []byte{'\n'}), []byte{'\r'})
	r.line = r.line[:0]
	return i + 1, line, true
}

func (r *Request) appendLine(b []byte) {
	switch r.state {
	case stateRequestLine, stateHeaders, stateTrailers:
		r.headSize += len(b)
		if r.headSize > MaxHeaderSize {
			r.fail(ErrHeaderOverflow, fmt.Sprintf("header exceeds %d bytes", MaxHeaderSize))
			return
		}
	default:
		if len(r.line)+len(b) > maxChunkLine {
			r.fail(ErrInvalidChunkSize, "chunk size line too long")
			return
		}
	}
	r.line = append(r.line, b...)
}

func (r *Request) handleLine(line []byte) {
	switch r.state {
	case stateRequestLine:
		// Stray CRLFs between messages are ignored.
		if len(line) == 0 {
			r.headSize = 0
			return
		}
		r.parseRequestLine(string(line))
	case stateHeaders:
		if len(line) == 0 {
			r.endHeaders()
			return
		}
		r.parseHeader(string(line))
	case stateChunkSize:
		r.parseChunkSize(string(line))
	case stateChunkEnd:
		if len(line) != 0 {
			r.fail(ErrInvalidChunk, "missing CRLF after chunk data")
			return
		}
		r.state = stateChunkSize
	case stateTrailers:
		if len(line) == 0 {
			r.state = stateComplete
		}
	}
}

func (r *Request) parseRequestLine(line string) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		r.fail(ErrInvalidRequestLine, strconv.Quote(line))
		return
	}
	method, url, proto := parts[0], parts[1], parts[2]

	if !httpMethods[method] && !(r.rtsp && rtspMethods[method]) {
		r.fail(ErrInvalidMethod, strconv.Quote(method))
		return
	}
	if url == "" || strings.IndexFunc(url, isCtl) >= 0 {
		r.fail(ErrInvalidURL, strconv.Quote(url))
		return
	}
	if !r.validProtocol(proto) {
		r.fail(ErrInvalidVersion, strconv.Quote(proto))
		return
	}

	r.method, r.url, r.protocol = method, url, proto
	r.state = stateHeaders
}

// validProtocol accepts NAME/d.d where NAME is HTTP, or RTSP when the
// RTSP grammar is enabled.
func (r *Request) validProtocol(proto string) bool {
	name, version, ok := strings.Cut(proto, "/")
	if !ok {
		return false
	}
	if name != "HTTP" && !(r.rtsp && name == "RTSP") {
		return false
	}
	return len(version) == 3 && isDigit(version[0]) && version[1] == '.' && isDigit(version[2])
}

func (r *Request) parseHeader(line string) {
	if line[0] == ' ' || line[0] == '\t' {
		r.fail(ErrInvalidHeaderToken, "folded header line")
		return
	}
	name, value, ok := strings.Cut(line, ":")
	if !ok || name == "" || strings.IndexFunc(name, notToken) >= 0 {
		r.fail(ErrInvalidHeaderToken, strconv.Quote(line))
		return
	}
	value = strings.Trim(value, " \t")

	if strings.EqualFold(name, "Content-Length") {
		n, err := strconv.ParseInt(value, 10, 64)
		if !allDigits(value, isDigit) || err != nil {
			r.fail(ErrInvalidContentLength, strconv.Quote(value))
			return
		}
		if r.contentLength >= 0 && r.contentLength != n {
			r.fail(ErrInvalidContentLength, "conflicting Content-Length headers")
			return
		}
		r.contentLength = n
	}
	r.headers = append(r.headers, Header{Name: name, Value: value})
}

func (r *Request) endHeaders() {
	if r.chunked() {
		r.state = stateChunkSize
		return
	}
	switch {
	case r.contentLength > MaxBodySize:
		r.fail(ErrBodyTooLarge, fmt.Sprintf("%d bytes", r.contentLength))
	case r.contentLength > 0:
		r.remaining = r.contentLength
		r.body = make([]byte, 0, min(r.contentLength, initialBodyCap))
		r.state = stateBody
	default:
		r.state = stateComplete
	}
}

func (r *Request) chunked() bool {
	te := r.Header("Transfer-Encoding")
	return te != "" && strings.EqualFold(strings.TrimSpace(lastToken(te)), "chunked")
}

func (r *Request) parseChunkSize(line string) {
	size, _, _ := strings.Cut(line, ";")
	size = strings.TrimSpace(size)
	n, err := strconv.ParseInt(size, 16, 64)
	if !allDigits(size, isHexDigit) || err != nil {
		r.fail(ErrInvalidChunkSize, strconv.Quote(line))
		return
	}
	if n == 0 {
		r.state = stateTrailers
		return
	}
	if int64(len(r.body))+n > MaxBodySize {
		r.fail(ErrBodyTooLarge, fmt.Sprintf("chunked body exceeds %d bytes", MaxBodySize))
		return
	}
	r.remaining = n
	r.state = stateChunkData
}

func (r *Request) feedBody(data []byte) int {
	n := len(data)
	if int64(n) > r.remaining {
		n = int(r.remaining)
	}
	r.body = append(r.body, data[:n]...)
	r.remaining -= int64(n)
	if r.remaining == 0 {
		if r.state == stateChunkData {
			r.state = stateChunkEnd
		} else {
			r.state = stateComplete
		}
	}
	return n
}

func (r *Request) fail(name, detail string) {
	r.err = &ParseError{Name: name, Detail: detail}
	r.state = stateError
	r.line = nil
}

// HasError reports whether the bytes fed so far are not a valid message.
func (r *Request) HasError() bool { return r.state == stateError }

// ErrorName returns the identifier of the parse error, or "".
func (r *Request) ErrorName() string {
	if r.err == nil {
		return ""
	}
	return r.err.Name
}

// Err returns the parse error, or nil.
func (r *Request) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// IsComplete reports whether a whole message has been parsed.
func (r *Request) IsComplete() bool { return r.state == stateComplete }

// IsRTSP reports whether the parser was created for the RTSP grammar.
func (r *Request) IsRTSP() bool { return r.rtsp }

// Method returns the request method, e.g. "GET" or "SETUP".
func (r *Request) Method() string { return r.method }

// URL returns the request target exactly as sent.
func (r *Request) URL() string { return r.url }

// Protocol returns the protocol tag, e.g. "HTTP/1.1" or "RTSP/1.0".
func (r *Request) Protocol() string { return r.protocol }

// Header returns the value of the first header called name, compared
// case-insensitively, or "".
func (r *Request) Header(name string) string {
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Headers returns all header fields in arrival order.
func (r *Request) Headers() []Header {
	out := make([]Header, len(r.headers))
	copy(out, r.headers)
	return out
}

// Data returns the decoded body.
func (r *Request) Data() []byte { return r.body }

// ── character classes ────────────────────────────────────────────────

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// allDigits reports whether s is non-empty and every byte satisfies ok.
// strconv alone would let a sign through.
func allDigits(s string, ok func(byte) bool) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !ok(s[i]) {
			return false
		}
	}
	return true
}

func isCtl(c rune) bool { return c < 0x20 || c == 0x7f || c == ' ' }

// notToken reports characters outside RFC 9110's tchar set.
func notToken(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	}
	return !strings.ContainsRune("!#$%&'*+-.^_`|~", c)
}

func lastToken(list string) string {
	if i := strings.LastIndexByte(list, ','); i >= 0 {
		return list[i+1:]
	}
	return list
}
