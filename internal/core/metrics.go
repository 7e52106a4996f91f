package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gohttpd/config"
	"gohttpd/util"
)

// MetricsMode serves a Prometheus registry over HTTP on its own
// listener, separate from the request server.
type MetricsMode struct {
	Address     string
	Gatherer    prometheus.Gatherer
	GracePeriod time.Duration
	Logger      *util.Logger
}

// Run serves /metrics until ctx is cancelled, then shuts the HTTP
// server down gracefully.
func (m *MetricsMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", m.Address, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.Logger.Verbose("metrics on http://%s/metrics", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	grace := m.GracePeriod
	if grace <= 0 {
		grace = config.DefaultGracePeriod
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	return nil
}
