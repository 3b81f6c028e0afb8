package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "refactorimports_parse_seconds",
		Help:    "Time spent parsing a Python source file.",
		Buckets: prometheus.DefBuckets,
	})

	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refactorimports_parse_errors_total",
		Help: "Total number of source files rejected because they failed to parse.",
	})

	TraceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refactorimports_trace_seconds",
		Help:    "Wall time of one isolated import trace, including worker start-up.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"status"})

	PatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refactorimports_patches_total",
		Help: "Total number of synthesized patches by result (changed or empty).",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refactorimports_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
