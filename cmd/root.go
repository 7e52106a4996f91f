// Package cmd wires up the CLI flags and runs the daemon's modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"gohttpd/config"
	"gohttpd/internal/core"
	"gohttpd/internal/metrics"
	"gohttpd/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gohttpd/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --version and --dry-run output; tests replace it.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the server until ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gohttpd", flag.ContinueOnError)

	// ── listening socket ─────────────────────────────────────────
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on (0 = any free port)")
	fs.StringVarP(&cfg.BindAddress, "bind", "b", cfg.BindAddress, "Numeric address to bind (default all interfaces)")
	fs.BoolVarP(&cfg.IPv6, "ipv6", "6", cfg.IPv6, "Dual-stack IPv6 listening socket")
	fs.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "listen(2) backlog")

	// ── event loop ───────────────────────────────────────────────
	fs.IntVarP(&cfg.MaxConnections, "max-conns", "m", cfg.MaxConnections, "Maximum simultaneous connections")
	fs.BoolVar(&cfg.RTSP, "rtsp", cfg.RTSP, "Speak RTSP/1.0 instead of HTTP")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Readiness wait bound")
	fs.IntVar(&cfg.ReadSize, "read-size", cfg.ReadSize, "Bytes read from a connection at once")
	fs.DurationVar(&cfg.SendTimeout, "send-timeout", cfg.SendTimeout, "Per-send timeout (0 = none)")

	// ── application ──────────────────────────────────────────────
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "Value of the Server header")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on host:port")
	var noRestart bool
	fs.BoolVar(&noRestart, "no-restart", false, "Exit instead of restarting after a fatal server error")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	var quiet bool
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only report errors")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "gohttpd %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}
	if noRestart {
		cfg.AutoRestart = false
	}
	if quiet {
		cfg.Verbose = 0
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		printConfig(cfg)
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	m := metrics.New()

	modes, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, mode := range modes {
		mode := mode
		g.Go(func() error { return mode.Run(gctx) })
	}
	err = g.Wait()

	logger.Verbose("final metrics:\n%s", m.JSON())
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

func printConfig(cfg *config.Config) {
	bind := cfg.BindAddress
	if bind == "" {
		bind = "*"
	}
	fmt.Fprintf(stdout, "configuration OK\n")
	fmt.Fprintf(stdout, "  listen        %s (%s, backlog %d)\n",
		util.FormatAddr(bind, cfg.Port), cfg.Protocol(), cfg.Backlog)
	fmt.Fprintf(stdout, "  connections   %d\n", cfg.MaxConnections)
	fmt.Fprintf(stdout, "  poll/read     %v / %d bytes\n", cfg.PollInterval, cfg.ReadSize)
	fmt.Fprintf(stdout, "  send timeout  %v\n", cfg.SendTimeout)
	fmt.Fprintf(stdout, "  auto restart  %v\n", cfg.AutoRestart)
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(stdout, "  metrics       http://%s/metrics\n", cfg.MetricsAddr)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gohttpd – connection-multiplexing HTTP/RTSP server v%s

Serves every connection from a single worker that waits for any socket
to become readable, parses requests incrementally and answers them in
order.

Usage:
  gohttpd [options]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  GOHTTPD_PORT, GOHTTPD_BIND, GOHTTPD_MAX_CONNS, GOHTTPD_RTSP, ...
  are read before flags; flags win.

Examples:
  gohttpd -p 8080                             HTTP status server on 8080
  gohttpd --rtsp -p 5000 -m 4                 RTSP responder, 4 connections
  gohttpd -p 0 --metrics-addr :9100 -vv       Any port, Prometheus on 9100
`)
}
