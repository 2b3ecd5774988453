package metrics

import (
	"errors"
	"time"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "analyst"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	datasetRows    prometheus.Histogram
	turns          *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	engineRequests *prometheus.CounterVec
	engineLatency  *prometheus.HistogramVec
	skippedRows    prometheus.Counter
	activeSessions prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Dataset uploads by outcome.",
		}, []string{"outcome"}),
		datasetRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows per successfully loaded dataset.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed question turns by status and error kind.",
		}, []string{"status", "error_kind"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a question turn.",
			Buckets:   []float64{.25, .5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"status"}),
		engineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_requests_total",
			Help:      "Engine bridge requests by action and result.",
		}, []string{"action", "result"}),
		engineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_request_duration_seconds",
			Help:      "Engine bridge request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		skippedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_skipped_rows_total",
			Help:      "Rows skipped by in-memory aggregation because the value was not numeric.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.uploads, m.datasetRows, m.turns, m.turnDuration,
		m.engineRequests, m.engineLatency, m.skippedRows, m.activeSessions,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// EngineObserver feeds per-request engine latency into the registry.
func (m *Metrics) EngineObserver() engine.Observer {
	return func(action engine.Action, elapsed time.Duration, err error) {
		result := "ok"
		switch {
		case errors.Is(err, engine.ErrBusy):
			result = "busy"
		case err != nil:
			result = "error"
		}
		m.engineRequests.WithLabelValues(string(action), result).Inc()
		m.engineLatency.WithLabelValues(string(action)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) UploadFailed(kind apperr.Kind) {
	m.uploads.WithLabelValues(outcome(kind)).Inc()
}

func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

func (m *Metrics) DatasetLoaded(_ string, _ string, rows, _ int) {
	m.uploads.WithLabelValues("ok").Inc()
	m.datasetRows.Observe(float64(rows))
}

func (m *Metrics) TurnCompleted(_ string, status conversation.TurnStatus, kind apperr.Kind, elapsed time.Duration) {
	m.turns.WithLabelValues(string(status), outcome(kind)).Inc()
	m.turnDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) AggregationSkew(_ string, skipped int) {
	m.skippedRows.Add(float64(skipped))
}

func outcome(kind apperr.Kind) string {
	if kind == apperr.KindUnknown {
		return "none"
	}
	return string(kind)
}
