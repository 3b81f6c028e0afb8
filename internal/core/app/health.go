package app

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports "up" while the interpreter is reachable and the last run
// finished without a run-level error.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	interpreter := s.app.Config().Python.Interpreter
	if path, err := exec.LookPath(interpreter); err != nil {
		status.Status = "degraded"
		status.Components["python"] = fmt.Sprintf("missing (%s)", interpreter)
	} else {
		status.Components["python"] = "ok (" + path + ")"
	}

	lastRun, report, lastErr := s.app.LastRun()

	switch {
	case lastRun.IsZero():
		status.Components["last_run"] = "pending"
	case lastErr != nil:
		status.Status = "degraded"
		status.Components["last_run"] = "failed: " + lastErr.Error()
	default:
		status.Components["last_run"] = fmt.Sprintf("ok (%d modules, %d patches, %d parse errors, %d trace errors)",
			report.Modules, report.Patches, report.ParseErrors, report.TraceErrors)
	}
	return status
}
