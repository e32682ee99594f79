// Package observability holds the process-wide metrics and the tracer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// Tracer uses the global provider; spans are dropped unless the embedding
// program installs one.
var Tracer = otel.Tracer("github.com/dhamidi/jide")

var (
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jide_parse_seconds",
		Help:    "Time spent parsing a complete source file.",
		Buckets: prometheus.DefBuckets,
	})

	ReparseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jide_reparse_total",
		Help: "Document edits by the scope that was reparsed.",
	}, []string{"scope"})

	Targets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jide_targets",
		Help: "Number of class targets by compiled state.",
	}, []string{"state"})

	GraphEdges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jide_graph_edges",
		Help: "Number of flagged dependency edges by kind.",
	}, []string{"kind"})

	WatcherEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jide_watcher_events_total",
		Help: "File system events received by the watcher.",
	}, []string{"op"})

	CompileJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jide_compile_jobs_total",
		Help: "Finished compile jobs by result.",
	}, []string{"result"})

	CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jide_compile_seconds",
		Help:    "Time spent in one compiler invocation.",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	CompileQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jide_compile_queue_depth",
		Help: "Compile jobs waiting for the worker.",
	})

	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jide_diagnostics_total",
		Help: "Compiler diagnostics by severity.",
	}, []string{"severity"})
)
