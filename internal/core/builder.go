package core

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gohttpd/config"
	"gohttpd/httpd"
	"gohttpd/internal/capability"
	"gohttpd/internal/metrics"
	"gohttpd/internal/retry"
	"gohttpd/util"
)

// Build constructs the modes the configuration asks for: always a
// ServeMode, plus a MetricsMode when a metrics address is set.  The
// collector is shared by the server, the status capability and the
// metrics endpoint.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) ([]Mode, error) {
	serve, err := buildServe(cfg, logger, m)
	if err != nil {
		return nil, err
	}
	modes := []Mode{serve}

	if cfg.MetricsAddr != "" {
		modes = append(modes, buildMetrics(cfg, logger, m))
	}
	return modes, nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (*ServeMode, error) {
	srv, err := httpd.New(ServerConfig(cfg), &capability.Dispatcher{
		Capability: buildCapability(cfg, m),
		Logger:     logger,
	}, httpd.WithLogger(logger.With("httpd")), httpd.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}

	return &ServeMode{
		Server:      srv,
		Port:        cfg.Port,
		AutoRestart: cfg.AutoRestart,
		Backoff:     retry.RestartBackoff(config.DefaultRestartDelay, config.DefaultMaxRestartDelay),
		Metrics:     m,
		Logger:      logger,
	}, nil
}

func buildMetrics(cfg *config.Config, logger *util.Logger, m *metrics.Collector) *MetricsMode {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsMode{
		Address:     cfg.MetricsAddr,
		Gatherer:    reg,
		GracePeriod: config.DefaultGracePeriod,
		Logger:      logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// ServerConfig maps the daemon configuration onto the server's.
func ServerConfig(cfg *config.Config) httpd.Config {
	return httpd.Config{
		MaxConnections: cfg.MaxConnections,
		RTSP:           cfg.RTSP,
		PollInterval:   cfg.PollInterval,
		ReadSize:       cfg.ReadSize,
		BindAddress:    cfg.BindAddress,
		IPv6:           cfg.IPv6,
		Backlog:        cfg.Backlog,
		SendTimeout:    cfg.SendTimeout,
	}
}

// buildCapability selects the request behaviour for the protocol.
func buildCapability(cfg *config.Config, m *metrics.Collector) capability.Capability {
	if cfg.RTSP {
		return &capability.RTSP{ServerName: cfg.ServerName}
	}
	return &capability.Status{ServerName: cfg.ServerName, Metrics: m}
}
