package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gohttpd/config"
	ncerr "gohttpd/internal/errors"
	"gohttpd/internal/metrics"
	"gohttpd/internal/retry"
	"gohttpd/util"
)

// Server is the part of *httpd.Server that ServeMode drives.
type Server interface {
	Start(port int) (int, error)
	Stop()
	Close() error
	Done() <-chan struct{}
	Addr() string
}

// ServeMode runs a request server until the context is cancelled.  If
// the server's worker dies on a fatal error and AutoRestart is set, the
// server is stopped and started again on the same port with
// exponential backoff.
type ServeMode struct {
	Server      Server
	Port        int
	AutoRestart bool
	Backoff     *retry.Backoff // nil uses the config restart delays
	Metrics     *metrics.Collector
	Logger      *util.Logger
}

// Run starts the server and supervises it.  It returns nil on
// cancellation and an error if the server cannot be started, or dies
// and may not or cannot be restarted.
func (m *ServeMode) Run(ctx context.Context) error {
	defer func() {
		if err := m.Server.Close(); err != nil {
			m.Logger.Warn("closing server: %v", err)
		}
	}()

	port, err := m.Server.Start(m.Port)
	if err != nil {
		return fmt.Errorf("start server on port %d: %w", m.Port, err)
	}
	m.Logger.Info("serving on %s", m.Server.Addr())

	for {
		select {
		case <-ctx.Done():
			m.Logger.Verbose("shutting down")
			return nil
		case <-m.Server.Done():
		}

		if ctx.Err() != nil {
			return nil
		}
		if !m.AutoRestart {
			return errors.New("server worker exited unexpectedly")
		}

		m.Logger.Warn("server worker exited; restarting on port %d", port)
		m.Server.Stop()
		if err := m.restart(ctx, port); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("restart server: %w", err)
		}
		m.Metrics.ServerRestarted()
		m.Logger.Info("serving on %s (restarted)", m.Server.Addr())
	}
}

func (m *ServeMode) restart(ctx context.Context, port int) error {
	b := m.Backoff
	if b == nil {
		b = retry.RestartBackoff(config.DefaultRestartDelay, config.DefaultMaxRestartDelay)
	}
	bo := *b
	bo.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Warn("restart attempt %d failed: %v (next in %v)", attempt, err, wait.Round(time.Millisecond))
	}

	return bo.Do(ctx, func(_ int) error {
		_, err := m.Server.Start(port)
		if errors.Is(err, ncerr.ErrServerClosed) {
			return retry.Permanent(err)
		}
		return err
	})
}
