// Package httpd is a connection-multiplexing request server for HTTP
// and RTSP.
//
// A Server accepts TCP connections into a fixed table of slots and
// serves all of them from one background worker: it waits for any
// socket to become readable, feeds what arrives into a per-connection
// request parser and, once a request is complete, asks the
// application's Callbacks for a response and writes it back in full
// before waiting again.
//
// Start and Stop may be called repeatedly; each Start spawns a fresh
// worker and each Stop waits for it to drain every connection.
package httpd

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"gohttpd/config"
	ncerr "gohttpd/internal/errors"
	"gohttpd/internal/metrics"
	"gohttpd/internal/netutil"
	"gohttpd/util"
)

// Config controls a Server.  Zero values of the optional fields pick
// the defaults from package config.
type Config struct {
	MaxConnections int           // slots in the connection table; required
	RTSP           bool          // parse RTSP/1.0 instead of HTTP/1.x
	PollInterval   time.Duration // bound on each readiness wait
	ReadSize       int           // most bytes read from a connection at once
	BindAddress    string        // numeric address; "" binds every interface
	IPv6           bool          // dual-stack IPv6 listening socket
	Backlog        int           // listen(2) backlog
	SendTimeout    time.Duration // per-send bound on accepted sockets; 0 disables
}

// Option customises a Server at construction.
type Option func(*Server)

// WithLogger sets the logger.  The default only reports errors.
func WithLogger(l *util.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records connection and request counters into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// ── Run state ────────────────────────────────────────────────────────

type runState uint8

const (
	stateIdle runState = iota
	stateActive
	stateStopping
	stateClosed
)

func (r runState) String() string {
	switch r {
	case stateIdle:
		return "idle"
	case stateActive:
		return "active"
	case stateStopping:
		return "stopping"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// closedCh is returned by Done while no worker exists.
var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// ── Server ───────────────────────────────────────────────────────────

// Server multiplexes connections onto a single worker goroutine.
type Server struct {
	cfg     Config
	cb      Callbacks
	logger  *util.Logger
	metrics *metrics.Collector

	mu    sync.Mutex
	state runState
	done  chan struct{} // closed by the worker of the current generation
	addr  string
	conns *table
}

// New creates an idle Server.
func New(cfg Config, cb Callbacks, opts ...Option) (*Server, error) {
	if cfg.MaxConnections <= 0 {
		return nil, &ncerr.ConfigError{
			Field:   "max-conns",
			Value:   cfg.MaxConnections,
			Message: "must be at least 1",
		}
	}
	if cb == nil {
		return nil, fmt.Errorf("httpd: nil callbacks")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = config.DefaultReadSize
	}

	s := &Server{
		cfg:    cfg,
		cb:     cb,
		logger: util.NewLogger(int(util.LogQuiet)),
		conns:  newTable(cfg.MaxConnections, cb),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start binds and listens on port (0 picks an ephemeral one), then
// spawns the worker.  It returns the port actually bound.
//
// Start fails with ErrAlreadyRunning while a worker generation exists
// (even one that already exited on a fatal error and has not been
// stopped), with ErrServerClosed after Close, and with an error
// wrapping ErrSocket or ErrListen when the socket cannot be set up.
// A failed Start leaves the server idle.
func (s *Server) Start(port int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateActive, stateStopping:
		s.logger.Debug("start refused: server is %s", s.state)
		return 0, ncerr.ErrAlreadyRunning
	case stateClosed:
		return 0, ncerr.ErrServerClosed
	}

	lc := netutil.ListenConfig{
		Address: s.cfg.BindAddress,
		Port:    port,
		IPv6:    s.cfg.IPv6,
		Backlog: s.cfg.Backlog,
	}
	fd, bound, err := netutil.Listen(lc)
	if err != nil {
		var ne *ncerr.NetworkError
		if ncerr.As(err, &ne) && ne.Op == "listen" {
			return 0, fmt.Errorf("%w: %w", ncerr.ErrListen, err)
		}
		return 0, fmt.Errorf("%w: %w", ncerr.ErrSocket, err)
	}

	lc.Port = bound
	s.addr = netutil.FormatListenAddr(lc)
	s.state = stateActive
	s.done = make(chan struct{})

	s.logger.Verbose("listening on %s (%s, max %d connections)",
		s.addr, s.protocolName(), s.cfg.MaxConnections)

	go s.run(fd, s.conns, s.done)
	return bound, nil
}

// Stop asks the worker to finish, waits until it has evicted every
// connection and closed the listening socket, and returns the server
// to idle.  It does nothing on a server that is not running.
func (s *Server) Stop() {
	s.mu.Lock()
	switch s.state {
	case stateActive:
		s.state = stateStopping
	case stateStopping:
		// Another Stop is in progress; wait alongside it.
		done := s.done
		s.mu.Unlock()
		<-done
		return
	default:
		s.mu.Unlock()
		return
	}
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.state = stateIdle
	s.addr = ""
	s.mu.Unlock()
	s.logger.Verbose("server stopped")
}

// Close stops the server and releases its connection table.  Later
// Start calls fail with ErrServerClosed.  Close is safe on a server
// that was never started and may be called more than once.
func (s *Server) Close() error {
	for {
		s.Stop()
		s.mu.Lock()
		if s.state == stateIdle || s.state == stateClosed {
			break
		}
		// A concurrent Start or Stop slipped in; go round again.
		s.mu.Unlock()
	}
	defer s.mu.Unlock()

	s.state = stateClosed
	s.conns = nil
	return nil
}

// Done returns a channel that is closed when the current worker exits,
// whether through Stop or a fatal error.  While no worker exists the
// returned channel is already closed.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateActive || s.state == stateStopping {
		return s.done
	}
	return closedCh
}

// Addr returns the host:port the server listens on, or "" when it is
// not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound port, or 0 when the server is not running.
func (s *Server) Port() int {
	_, p, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}

// running reports whether the worker should keep going.
func (s *Server) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive
}

func (s *Server) protocolName() string {
	if s.cfg.RTSP {
		return "rtsp"
	}
	return "http"
}
