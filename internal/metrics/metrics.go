// Package metrics exports controller, tree and HTTP events as Prometheus
// metrics by implementing the hook interfaces of pkg/observability.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/algoviz/pkg/observability"
)

const namespace = "algoviz"

// Metrics holds the collectors. Each instance has its own registry, so
// several can coexist in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	running       *prometheus.GaugeVec
	steps         *prometheus.CounterVec
	pauses        *prometheus.CounterVec
	pausedSeconds *prometheus.HistogramVec

	treeOps   *prometheus.CounterVec
	rotations *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "controller", Name: "runs_started_total",
			Help: "Runs started.",
		}, []string{"algorithm"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "controller", Name: "runs_completed_total",
			Help: "Runs that reached finished, by outcome.",
		}, []string{"algorithm", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "controller", Name: "run_duration_seconds",
			Help:    "Wall-clock duration of runs, including pauses.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"algorithm"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "controller", Name: "running",
			Help: "1 while a run is in progress.",
		}, []string{"algorithm"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "controller", Name: "steps_total",
			Help: "Algorithm steps logged.",
		}, []string{"algorithm"}),
		pauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "controller", Name: "pauses_total",
			Help: "Times a routine suspended at a pause point.",
		}, []string{"algorithm"}),
		pausedSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "controller", Name: "paused_seconds",
			Help:    "Time spent suspended per pause.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"algorithm"}),

		treeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tree", Name: "operations_total",
			Help: "Tree operations, by kind and whether they changed the tree.",
		}, []string{"op", "changed"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tree", Name: "rotations_total",
			Help: "Single rotations performed while rebalancing.",
		}, []string{"kind"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsStarted, m.runsCompleted, m.runDuration, m.running,
		m.steps, m.pauses, m.pausedSeconds,
		m.treeOps, m.rotations,
		m.httpRequests, m.httpDuration, m.httpInflight,
	)
	return m
}

// Install registers m as the global controller, tree and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetControllerHooks(m)
	observability.SetTreeHooks(m)
	observability.SetHTTPHooks(m)
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// =============================================================================
// Controller hooks
// =============================================================================

func (m *Metrics) OnRunStart(_ context.Context, algorithm, _ string) {
	m.runsStarted.WithLabelValues(algorithm).Inc()
	m.running.WithLabelValues(algorithm).Set(1)
}

func (m *Metrics) OnRunComplete(_ context.Context, algorithm string, _ int, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.runsCompleted.WithLabelValues(algorithm, outcome).Inc()
	m.runDuration.WithLabelValues(algorithm).Observe(d.Seconds())
	m.running.WithLabelValues(algorithm).Set(0)
}

func (m *Metrics) OnStep(_ context.Context, algorithm string) {
	m.steps.WithLabelValues(algorithm).Inc()
}

func (m *Metrics) OnPause(_ context.Context, algorithm string) {
	m.pauses.WithLabelValues(algorithm).Inc()
}

func (m *Metrics) OnResume(_ context.Context, algorithm string, waited time.Duration) {
	m.pausedSeconds.WithLabelValues(algorithm).Observe(waited.Seconds())
}

// =============================================================================
// Tree hooks
// =============================================================================

func (m *Metrics) OnOperation(_ context.Context, op string, changed bool) {
	m.treeOps.WithLabelValues(op, strconv.FormatBool(changed)).Inc()
}

func (m *Metrics) OnRotation(_ context.Context, kind string) {
	m.rotations.WithLabelValues(kind).Inc()
}

// =============================================================================
// HTTP hooks
// =============================================================================

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.httpInflight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpInflight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Ensure Metrics implements the hook interfaces.
var (
	_ observability.ControllerHooks = (*Metrics)(nil)
	_ observability.TreeHooks       = (*Metrics)(nil)
	_ observability.HTTPHooks       = (*Metrics)(nil)
)
