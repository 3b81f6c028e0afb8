package tracer

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"refactorimports/internal/core/errors"
	"refactorimports/internal/engine/patch"
	"refactorimports/internal/shared/observability"
	"refactorimports/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed worker.py
var workerScript string

const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 60 * time.Second

	// resultDrain bounds how long the parent keeps reading the result pipe
	// after the worker exits; a grandchild may still hold it open.
	resultDrain = 2 * time.Second
)

// ExecutionDiff is the step record produced by the worker.
type ExecutionDiff = patch.ExecutionDiff

type Config struct {
	Interpreter string
	// SearchPaths are prepended to the worker's sys.path in order.
	SearchPaths []string
	Timeout     time.Duration
	// Pacer throttles interpreter spawns; nil means no limit.
	Pacer *util.Pacer
}

// Result is the trace of one module import. ImportError carries the
// exception the import raised, if any; Diffs holds what was traced before it.
type Result struct {
	Module      string          `json:"module"`
	File        string          `json:"-"`
	Diffs       []ExecutionDiff `json:"diffs"`
	ImportError string          `json:"error"`
}

// Tracer imports modules in a fresh interpreter process, one per call.
type Tracer struct {
	interpreter string
	searchPaths []string
	timeout     time.Duration
	pacer       *util.Pacer
}

func New(cfg Config) *Tracer {
	t := &Tracer{
		interpreter: cfg.Interpreter,
		searchPaths: append([]string(nil), cfg.SearchPaths...),
		timeout:     cfg.Timeout,
		pacer:       cfg.Pacer,
	}
	if t.interpreter == "" {
		t.interpreter = DefaultInterpreter
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	return t
}

// Execute traces module and turns the trace into a patch for file.
// A failed import inside the worker is not an error; it yields whatever
// the partial trace proves, usually an empty patch.
func (t *Tracer) Execute(ctx context.Context, module, file string) (patch.Patch, error) {
	result, err := t.Trace(ctx, module, file)
	if err != nil {
		return patch.Patch{File: file}, err
	}
	original, err := os.ReadFile(file)
	if err != nil {
		return patch.Patch{File: file}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read traced file"), errors.CtxPath, file)
	}
	return patch.Synthesize(file, original, result.Diffs), nil
}

// Trace imports module in an isolated worker and returns the diffs recorded
// for file. The worker is not interrupted by ctx cancellation; only the
// configured timeout stops it.
func (t *Tracer) Trace(ctx context.Context, module, file string) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "tracer.Trace")
	defer span.End()
	span.SetAttributes(attribute.String("module", module), attribute.String("file", file))

	start := time.Now()
	result, err := t.trace(ctx, module, file)

	status := "ok"
	switch {
	case errors.IsCode(err, errors.CodeTraceTimeout):
		status = "timeout"
	case err != nil:
		status = "error"
	case result.ImportError != "":
		status = "import_error"
	}
	observability.TraceDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("trace.status", status), attribute.Int("trace.diffs", len(result.Diffs)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (t *Tracer) trace(ctx context.Context, module, file string) (Result, error) {
	interpreter, err := exec.LookPath(t.interpreter)
	if err != nil {
		return Result{}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "python interpreter not found"), errors.CtxPath, t.interpreter)
	}

	paths := t.searchPaths
	name := module
	if module == "" {
		// A standalone file is loaded from its path under its stem; its
		// directory goes first so sibling imports resolve.
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		paths = append([]string{filepath.Dir(file)}, paths...)
	}

	if !t.pacer.TryAcquire() {
		slog.Debug("waiting for a worker spawn slot", "module", name)
		if err := t.pacer.Acquire(ctx); err != nil {
			return Result{}, err
		}
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	resultReader, resultWriter, err := os.Pipe()
	if err != nil {
		return Result{}, errors.Wrap(err, errors.CodeInternal, "create result pipe")
	}
	defer resultReader.Close()

	args := append([]string{"-B", "-c", workerScript, module, file}, paths...)
	cmd := exec.CommandContext(runCtx, interpreter, args...)
	cmd.Env = append(os.Environ(), "PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8")
	cmd.ExtraFiles = []*os.File{resultWriter}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = resultDrain

	slog.Debug("spawning trace worker", "module", name, "file", file, "interpreter", interpreter)
	if err := cmd.Start(); err != nil {
		resultWriter.Close()
		return Result{}, errors.AddContext(errors.Wrap(err, errors.CodeTraceFailed, "start trace worker"), errors.CtxModule, name)
	}
	resultWriter.Close()

	payload := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(resultReader)
		payload <- data
	}()

	waitErr := cmd.Wait()
	logWorkerOutput(name, stdout.String(), stderr.String())

	var data []byte
	select {
	case data = <-payload:
	case <-time.After(resultDrain):
	}

	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err := errors.Newf(errors.CodeTraceTimeout, "trace did not finish within %s", t.timeout)
		return Result{Module: name, File: file}, errors.AddContext(err, errors.CtxModule, name)
	}

	result := Result{Module: name, File: file}
	if len(bytes.TrimSpace(data)) == 0 {
		msg := "trace worker produced no result"
		if waitErr != nil {
			msg = fmt.Sprintf("%s: %v: %s", msg, waitErr, lastLine(stderr.String()))
		}
		return result, errors.AddContext(errors.New(errors.CodeTraceFailed, msg), errors.CtxModule, name)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{Module: name, File: file}, errors.AddContext(errors.Wrap(err, errors.CodeTraceFailed, "decode trace result"), errors.CtxModule, name)
	}
	result.File = file

	if result.ImportError != "" {
		slog.Warn("import failed while tracing", "module", name, "error", result.ImportError, "diffs", len(result.Diffs))
	}
	return result, nil
}

func logWorkerOutput(module, stdout, stderr string) {
	if stdout != "" {
		slog.Debug("trace worker stdout", "module", module, "output", stdout)
	}
	if stderr != "" {
		slog.Debug("trace worker stderr", "module", module, "output", stderr)
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// WithSearchPaths returns a copy of t that prepends paths to the worker's sys.path.
func (t *Tracer) WithSearchPaths(paths []string) *Tracer {
	clone := *t
	clone.searchPaths = append([]string(nil), paths...)
	return &clone
}
