// Command hpcsentry attaches kernel probes to a batch-scheduler node,
// classifies each running job's workload, and reports the result —
// the CLI surface of spec §6, grounded on the teacher's main.go
// ExitCodeError unwrapping and cmd/root.go's flag/dispatch shape.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/ftahirops/hpcsentry/aggregator"
	"github.com/ftahirops/hpcsentry/alert"
	"github.com/ftahirops/hpcsentry/config"
	"github.com/ftahirops/hpcsentry/dashboard"
	"github.com/ftahirops/hpcsentry/httpapi"
	"github.com/ftahirops/hpcsentry/internal/logging"
	"github.com/ftahirops/hpcsentry/model"
	"github.com/ftahirops/hpcsentry/probe"
	"github.com/ftahirops/hpcsentry/report"
	"github.com/ftahirops/hpcsentry/resolver"
	"github.com/ftahirops/hpcsentry/sink/file"
	"github.com/ftahirops/hpcsentry/sink/pg"
	"github.com/ftahirops/hpcsentry/sink/sqlite"
	"github.com/ftahirops/hpcsentry/telemetry"
)

// ExitCodeError signals a non-zero exit code without calling os.Exit
// directly, so deferred cleanup always runs first.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

func main() {
	if err := run(); err != nil {
		var exitErr ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sink is the storage interface every report.Session is written
// through; file, postgres, and sqlite each implement it, keyed by a
// stable per-process session id (the postgres and sqlite sinks use it
// as their upsert key across ticks).
type sink interface {
	Write(ctx context.Context, sessionID string, session report.Session) error
	Close() error
}

// fileSink adapts sink/file.Sink's single-session Write method to the
// sessioned sink interface: the flat file always holds the latest
// snapshot, so the session id and context are unused.
type fileSink struct{ *file.Sink }

func (f fileSink) Write(_ context.Context, _ string, session report.Session) error {
	return f.Sink.Write(session)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `hpcsentry — kernel-event workload classifier for HPC batch jobs

Usage:
  hpcsentry [OPTIONS]

Options:
  --job-id ID       Monitor a single job id only (default: all running jobs)
  --user NAME       Monitor only jobs owned by NAME
  --duration N      Stop after N seconds (default: run until interrupted)
  --output PATH     Report sink path, overrides the config file's sink.path
  --config PATH     Config file path (default: ~/.config/hpcsentry/config.yaml)
  --real-time       Show the live terminal dashboard instead of running headless
  --filter NAME     Probe filter: all, syscall, sched, io, net (default: all)
  --verbose         Enable debug logging

Requires root (kernel probes attach via eBPF).
`)
}

func run() error {
	var (
		jobID      string
		user       string
		durationS  int
		output     string
		configPath string
		realTime   bool
		filterName string
		verbose    bool
	)

	flag.StringVar(&jobID, "job-id", "", "Monitor a single job id only")
	flag.StringVar(&user, "user", "", "Monitor only jobs owned by this user")
	flag.IntVar(&durationS, "duration", 0, "Stop after N seconds (0 = run until interrupted)")
	flag.StringVar(&output, "output", "", "Report sink path, overrides the config file")
	flag.StringVar(&configPath, "config", "", "Config file path")
	flag.BoolVar(&realTime, "real-time", false, "Show the live terminal dashboard")
	flag.StringVar(&filterName, "filter", "", "Probe filter: all, syscall, sched, io, net")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Usage = printUsage
	flag.Parse()

	logging.SetVerbose(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return ExitCodeError{Code: 1}
	}
	if output != "" {
		cfg.Sink.Path = output
	}

	filter := model.FilterAll
	if filterName == "" {
		filterName = cfg.ProbeFilter
	}
	if filterName != "" {
		f, ok := model.ParseProbeFilter(filterName)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown filter %q (want all, syscall, sched, io, net)\n", filterName)
			return ExitCodeError{Code: 1}
		}
		filter = f
	}

	if os.Geteuid() != 0 {
		fmt.Fprintln(os.Stderr, "Error: hpcsentry must run as root — kernel probes require privileged eBPF attach")
		return ExitCodeError{Code: 1}
	}

	p, err := probe.Load(filter)
	if err != nil {
		var loadErr *probe.LoadError
		if errors.As(err, &loadErr) {
			fmt.Fprintf(os.Stderr, "Error: probe load failed (%s): %s\n", loadErr.Kind, loadErr.Detail)
		} else {
			fmt.Fprintf(os.Stderr, "Error: probe load failed: %v\n", err)
		}
		return ExitCodeError{Code: 1}
	}
	defer p.Cleanup()

	st, err := openSink(cfg.Sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open report sink: %v\n", err)
		return ExitCodeError{Code: 1}
	}
	defer st.Close()

	agg := aggregator.New()
	res := resolver.New(cfg.ResolverTTL, cfg.CommandTimeout, cfg.ResolverCommands())
	cpuHi, ioHi, idleHi, ctxHi := cfg.ModelThresholds()
	thresholds := model.Thresholds{CPUHi: cpuHi, IOHi: ioHi, IdleHi: idleHi, CtxHi: ctxHi}

	var api *httpapi.Server
	if cfg.Sink.HTTPAddr != "" {
		api = httpapi.New()
		srv := &http.Server{
			Addr:              cfg.Sink.HTTPAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Warnf("report API server stopped: %v", err)
			}
		}()
		logging.Infof("report API listening on %s", cfg.Sink.HTTPAddr)
	}

	var telStore *telemetry.Store
	if cfg.Prom.Enabled {
		telStore = telemetry.NewStore()
		srv := &http.Server{
			Addr:              cfg.Prom.Addr,
			Handler:           telStore.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Warnf("Prometheus endpoint stopped: %v", err)
			}
		}()
		logging.Infof("Prometheus metrics listening on %s", cfg.Prom.Addr)
	}

	notifier := alert.New(alert.Config{Webhook: cfg.Alerts.Webhook, Command: cfg.Alerts.Command})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := &monitor{
		probe:      p,
		agg:        agg,
		resolver:   res,
		thresholds: thresholds,
		sink:       st,
		sessionID:  uuid.New().String(),
		api:        api,
		telemetry:  telStore,
		notifier:   notifier,
		jobFilter:  jobID,
		userFilter: user,
		start:      time.Now(),
	}

	if durationS > 0 {
		var dcancel context.CancelFunc
		ctx, dcancel = context.WithTimeout(ctx, time.Duration(durationS)*time.Second)
		defer dcancel()
	}

	if realTime {
		dm := dashboard.New(m, cfg.TickInterval)
		prog := tea.NewProgram(dm, tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			prog.Quit()
		}()
		if _, err := prog.Run(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	}

	return m.runHeadless(ctx, cfg.TickInterval, cfg.EvictionTTL)
}

func openSink(cfg config.SinkConfig) (sink, error) {
	switch cfg.Kind {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "hpcsentry-report.json"
		}
		return fileSink{file.New(path)}, nil
	case "postgres":
		return pg.New(context.Background(), cfg.DSN)
	case "sqlite":
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}
