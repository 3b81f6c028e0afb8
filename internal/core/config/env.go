package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "path", f, "error", err)
		}
	}
}

// ApplyEnvOverrides applies REFACTOR_IMPORTS_* environment variables on top
// of cfg. Values that do not parse are logged and ignored.
func ApplyEnvOverrides(cfg *Config) {
	setEnv(&cfg.Python.Interpreter, "REFACTOR_IMPORTS_PYTHON", parseString)
	setEnv(&cfg.Trace.Timeout, "REFACTOR_IMPORTS_TRACE_TIMEOUT", time.ParseDuration)
	setEnv(&cfg.Trace.SpawnsPerSecond, "REFACTOR_IMPORTS_TRACE_SPAWNS_PER_SECOND", parseFloat)
	setEnv(&cfg.Watch.Debounce, "REFACTOR_IMPORTS_WATCH_DEBOUNCE", time.ParseDuration)
	setEnv(&cfg.Observability.MetricsAddr, "REFACTOR_IMPORTS_METRICS_ADDR", parseString)
	setEnv(&cfg.Observability.OTLPEndpoint, "REFACTOR_IMPORTS_OTLP_ENDPOINT", parseString)
}

func setEnv[T any](target *T, key string, parse func(string) (T, error)) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("ignoring invalid env override", "key", key, "value", raw, "error", err)
		return
	}
	slog.Debug("applying env override", "key", key, "value", raw)
	*target = v
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
