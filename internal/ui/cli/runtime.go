package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreapp "refactorimports/internal/core/app"
	"refactorimports/internal/core/config"
	"refactorimports/internal/shared/observability"

	"github.com/google/uuid"
)

// silent is above every level the code logs at.
const silent = slog.LevelError + 4

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "refactorimports v%s\n", versionString)
		return 0
	}
	if opts.longHelp {
		fmt.Fprint(stdout, longHelp)
		return 0
	}

	cleanupLogs := configureLogging(stderr, logLevel(opts.verbosity, opts.verbose), opts.logFile)
	defer cleanupLogs()

	modes := coreapp.Modes{All: opts.all, Usages: opts.usages, Imports: opts.imports, Dump: opts.dump}
	if !modes.Any() {
		fmt.Fprintln(stderr, "no mode selected: use --all, --usages, --imports or --dump")
		return 1
	}
	root, err := opts.root()
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if _, err := os.Stat(root); err != nil {
		fmt.Fprintf(stderr, "cannot read root %s: %v\n", root, err)
		return 1
	}

	config.LoadDotEnv()
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	app := coreapp.New(cfg, root, stdout)

	if opts.watch {
		return runWatch(ctx, app, modes, opts.configPath, cfg.Observability.MetricsAddr)
	}

	if _, err := app.Run(ctx, modes); err != nil {
		if ctx.Err() != nil {
			slog.Warn("interrupted", "error", err)
		} else {
			slog.Error("run failed", "error", err)
		}
		return 1
	}
	return 0
}

func runWatch(ctx context.Context, app *coreapp.App, modes coreapp.Modes, configPath, metricsAddr string) int {
	if metricsAddr != "" {
		serveCtx, stop := context.WithCancel(ctx)
		_, stopped, err := serveObservability(serveCtx, metricsAddr, app)
		if err != nil {
			stop()
			slog.Error("failed to start observability server", "addr", metricsAddr, "error", err)
			return 1
		}
		defer func() {
			stop()
			<-stopped
		}()
	}

	if err := app.Watch(ctx, modes, configPath); err != nil {
		slog.Error("watch failed", "error", err)
		return 1
	}
	return 0
}

func logLevel(verbosity int, verbose bool) slog.Level {
	if verbose {
		verbosity = 3
	}
	switch {
	case verbosity <= 0:
		return silent
	case verbosity == 1:
		return slog.LevelError
	case verbosity == 2:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// configureLogging installs the default logger. Every record carries the
// run_id of this process; logFile, when set, receives a copy of the output.
func configureLogging(output io.Writer, level slog.Level, logFile string) func() {
	closeFn := func() {}
	if logFile != "" {
		if fi, err := os.Lstat(logFile); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(output, "warning: refusing to write logs to symlink path %s\n", logFile)
		} else {
			f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = io.MultiWriter(output, f)
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(output, "warning: failed to open log file %s: %v\n", logFile, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger.With("run_id", uuid.NewString()))
	return closeFn
}
