package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	coreapp "refactorimports/internal/core/app"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 5 * time.Second

type lastRunBody struct {
	FinishedAt time.Time      `json:"finished_at"`
	Report     coreapp.Report `json:"report"`
	Error      string         `json:"error,omitempty"`
}

// observabilityHandler serves /metrics, /health and /report for a watching app.
func observabilityHandler(app *coreapp.App) http.Handler {
	health := coreapp.NewHealthService(app)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := health.Check(r.Context())
		code := http.StatusOK
		if status.Status != "up" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})
	mux.HandleFunc("GET /report", func(w http.ResponseWriter, r *http.Request) {
		finished, report, err := app.LastRun()
		if finished.IsZero() {
			http.Error(w, "no run has finished yet", http.StatusNotFound)
			return
		}
		body := lastRunBody{FinishedAt: finished.UTC(), Report: report}
		if err != nil {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusOK, body)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// serveObservability binds addr before returning, so bind errors reach the
// caller, and serves until ctx is done. It returns the bound address and a
// channel closed once the server has shut down.
func serveObservability(ctx context.Context, addr string, app *coreapp.App) (string, <-chan struct{}, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	server := &http.Server{
		Handler:           observabilityHandler(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	bound := ln.Addr().String()
	slog.Info("observability server listening", "addr", bound)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = server.Shutdown(stopCtx)
	}()
	return bound, done, nil
}
