package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"refactorimports/internal/core/config"
	"refactorimports/internal/core/errors"
	"refactorimports/internal/engine/catalog"
	"refactorimports/internal/engine/parser"
	"refactorimports/internal/engine/tracer"
	"refactorimports/internal/shared/observability"
	"refactorimports/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
)

// Modes selects which reports a run produces. Any combination is allowed.
type Modes struct {
	Dump    bool
	All     bool
	Usages  bool
	Imports bool
}

func (m Modes) Any() bool {
	return m.Dump || m.All || m.Usages || m.Imports
}

// Report summarizes one run.
type Report struct {
	Modules     int           `json:"modules"`
	ParseErrors int           `json:"parse_errors"`
	Patches     int           `json:"patches"`
	TraceErrors int           `json:"trace_errors"`
	Duration    time.Duration `json:"duration_ns"`
}

type App struct {
	Root string
	Out  io.Writer

	mu     sync.RWMutex
	config *config.Config
	tracer *tracer.Tracer
	parser *parser.Parser

	lastRun    time.Time
	lastReport Report
	lastErr    error
}

func New(cfg *config.Config, root string, out io.Writer) *App {
	a := &App{
		Root:   root,
		Out:    out,
		parser: parser.NewParser(),
	}
	a.SetConfig(cfg)
	return a
}

// SetConfig swaps the configuration used by subsequent runs.
func (a *App) SetConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = cfg
	a.tracer = tracer.New(tracer.Config{
		Interpreter: cfg.Python.Interpreter,
		Timeout:     cfg.Trace.Timeout,
		Pacer:       util.NewPacer(cfg.Trace.SpawnsPerSecond, cfg.Trace.Burst),
	})
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Run builds a fresh catalog for the root and writes the selected reports
// to Out. Per-module failures are logged and counted; the returned error is
// reserved for problems that stop the whole run, including cancellation
// between modules.
func (a *App) Run(ctx context.Context, modes Modes) (Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Run")
	defer span.End()

	start := time.Now()
	report, err := a.run(ctx, modes)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("modules", report.Modules),
		attribute.Int("patches", report.Patches),
		attribute.Int("parse_errors", report.ParseErrors),
		attribute.Int("trace_errors", report.TraceErrors),
	)

	a.mu.Lock()
	a.lastRun, a.lastReport, a.lastErr = time.Now(), report, err
	a.mu.Unlock()

	if err == nil {
		slog.Info("run complete",
			"modules", report.Modules,
			"patches", report.Patches,
			"parse_errors", report.ParseErrors,
			"trace_errors", report.TraceErrors,
			"duration", report.Duration)
	}
	return report, err
}

// LastRun returns when the most recent run finished, its report and its
// run-level error. The time is zero before the first run.
func (a *App) LastRun() (time.Time, Report, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRun, a.lastReport, a.lastErr
}

func (a *App) run(ctx context.Context, modes Modes) (Report, error) {
	var report Report
	if !modes.Any() {
		return report, errors.New(errors.CodeValidationError, "no mode selected")
	}

	a.mu.RLock()
	cfg, tr := a.config, a.tracer
	a.mu.RUnlock()

	cat, err := catalog.New(a.Root,
		catalog.WithParser(a.parser),
		catalog.WithSearchPaths(cfg.Python.SearchPaths...),
		catalog.WithExcludes(cfg.Exclude.Dirs, cfg.Exclude.Files),
		catalog.WithNestedCacheSize(cfg.Catalog.NestedCacheSize),
	)
	if err != nil {
		return report, err
	}
	defer cat.Close()

	records, buildErr := cat.Modules(ctx)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Modules = len(records)
	report.ParseErrors = countErrors(buildErr)
	if buildErr != nil {
		slog.Error("some modules failed to parse", "count", report.ParseErrors, "error", buildErr)
	}

	w := newWriter(a.Out)
	if modes.Dump {
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			w.dump(r)
		}
	}

	if modes.All {
		exportables, _ := cat.Exportables(ctx)
		w.exportables(exportables)
	}

	if modes.Usages {
		calls, _ := cat.Calls(ctx)
		w.usages(calls)
	}

	if modes.Imports {
		// The worker resolves imports the same way the catalog did.
		traced := tr.WithSearchPaths(cat.SearchRoots())
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			p, err := traced.Execute(ctx, r.Module, r.Path)
			if err != nil {
				report.TraceErrors++
				observability.PatchesTotal.WithLabelValues("error").Inc()
				slog.Error("trace failed", "module", r.Module, "path", r.Path, "error", err)
				continue
			}
			if p.Empty() {
				observability.PatchesTotal.WithLabelValues("empty").Inc()
				continue
			}
			report.Patches++
			observability.PatchesTotal.WithLabelValues("changed").Inc()
			w.patch(p)
		}
	}

	return report, w.err
}

func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
