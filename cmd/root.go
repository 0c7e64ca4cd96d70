// Package cmd wires up the CLI flags, the session dispatcher and the
// interactive console.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"wsmux/config"
	"wsmux/internal/core"
	"wsmux/internal/mux"
	"wsmux/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X wsmux/cmd.version=2.0.0"
var version = "0.3.0" //nolint:gochecknoglobals

// Execute parses args and runs wsmux until stdin ends, the user types
// quit, or ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// ── config file and environment ──────────────────────────────
	cfg := config.New()
	path := configFlag(args)
	if path == "" {
		path = config.ConfigFileFromEnv()
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	// ── flags ────────────────────────────────────────────────────
	fs := flag.NewFlagSet("wsmux", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var configPath string
	fs.StringVarP(&configPath, "config", "f", path, "TOML config file")

	// ── multiplexer ──────────────────────────────────────────────
	fs.IntVar(&cfg.InboxSize, "inbox-size", cfg.InboxSize, "Command mailbox capacity")
	fs.IntVar(&cfg.OutboxSize, "outbox-size", cfg.OutboxSize, "Event mailbox capacity")

	// ── connection ───────────────────────────────────────────────
	fs.StringVar(&cfg.Origin, "origin", cfg.Origin, "Origin header (default http(s)://<host>)")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "Per-attempt connect timeout (0 = none)")
	fs.IntVar(&cfg.DialAttempts, "dial-attempts", cfg.DialAttempts, "Connect attempts per open")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Per-frame write timeout (0 = none)")
	fs.IntVar(&cfg.MaxFrameBytes, "max-frame-bytes", cfg.MaxFrameBytes, "Largest inbound frame accepted")
	fs.BoolVarP(&cfg.Insecure, "insecure", "k", cfg.Insecure, "Skip TLS certificate verification")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach endpoints through SSH [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve /metrics, /stats and /healthz on host:port")
	var verbose int
	var quiet bool
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	fs.BoolVar(&cfg.Timestamps, "timestamps", cfg.Timestamps, "Prefix log lines with timestamps")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")

	fs.Usage = func() { printUsage(fs, stderr) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs, stderr)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "wsmux %s\n", version)
		return nil
	}

	cfg.Verbose += verbose
	if quiet {
		cfg.Verbose = 0
	}
	if err := cfg.AddSessions(fs.Args()...); err != nil {
		return err
	}
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	if cfg.Timestamps {
		logger.SetTimestamps(true)
	}

	if dryRun {
		logger.Info("configuration valid: %d startup session(s), tunnel=%v", len(cfg.Sessions), cfg.TunnelEnabled)
		return nil
	}

	return serve(ctx, cfg, logger, stdin, stdout)
}

// serve runs the dispatcher, the event printer, the console and the
// optional status endpoint until the console ends or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *util.Logger, stdin io.Reader, stdout io.Writer) error {
	st, err := core.Build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()
	d, collector := st.Dispatcher, st.Metrics

	// Bind before starting anything so a bad address fails fast.
	var (
		statusLn net.Listener
		statusH  http.Handler
	)
	if cfg.MetricsAddr != "" {
		h, err := newStatusRouter(collector)
		if err != nil {
			return err
		}
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		statusLn, statusH = ln, h
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	out := zerolog.SyncWriter(stdout)

	g.Go(func() error {
		// Once the dispatcher is gone nothing else has work to do.
		defer stop()
		err := d.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		printEvents(out, d.Events())
		return nil
	})

	if statusLn != nil {
		g.Go(func() error { return serveStatus(gctx, statusLn, statusH, logger) })
	}

	g.Go(func() error {
		defer d.Close()
		for _, s := range cfg.Sessions {
			if err := d.Submit(gctx, mux.OpenSession{ID: s.ID, Address: s.URL}); err != nil {
				return nil
			}
		}
		c := &console{d: d, out: out, metrics: collector}
		return c.run(gctx, stdin)
	})

	return g.Wait()
}

// ── helpers ──────────────────────────────────────────────────────────

// configFlag finds --config/-f ahead of the main parse so the file can
// seed the flag defaults.
func configFlag(args []string) string {
	pre := flag.NewFlagSet("wsmux-config", flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}

	var path string
	pre.StringVarP(&path, "config", "f", "", "")
	pre.BoolP("help", "h", false, "")
	pre.Parse(args) //nolint:errcheck
	return path
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `wsmux – WebSocket session multiplexer v%s

Opens several independent WebSocket sessions and drives them from one
console.  Each URL on the command line is opened at startup as session
1, 2, ... in order.

Usage:
  wsmux [options] [url...]

Console commands (stdin):
%s
Options:
`, version, replCommands)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  wsmux ws://localhost:8080/echo                  Open one session
  wsmux -f sessions.toml --metrics-addr :9101     Sessions from a file, with metrics
  wsmux -T admin@bastion ws://internal:8080/feed  Through an SSH jump host
  printf 'send 1 hi\nquit\n' | wsmux ws://echo.example/
`)
}
