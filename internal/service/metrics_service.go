package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/rollcall-ledger/internal/models"
)

// Ledger outcomes reported to metrics.
const (
	LedgerOutcomeCreated   = "created"
	LedgerOutcomeUpdated   = "updated"
	LedgerOutcomeUnchanged = "unchanged"
	LedgerOutcomeConflict  = "conflict"
	LedgerOutcomeStale     = "stale"
	LedgerOutcomeFailed    = "failed"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	ledgerMarks     *prometheus.CounterVec
	ledgerDuration  prometheus.Observer
	checkIns        *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	ledgerMarkCount      uint64
	ledgerConflictCount  uint64
	ledgerFailureCount   uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	ledgerMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_ledger_marks_total",
		Help: "Attendance marks by outcome",
	}, []string{"strategy", "outcome"})

	ledgerDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_ledger_mark_seconds",
		Help:    "Duration of attendance marks including lock wait and refresh",
		Buckets: prometheus.DefBuckets,
	})

	checkIns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkins_total",
		Help: "Roll number check-ins by resolver outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, ledgerMarks, ledgerDuration, checkIns, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		dbQueryDuration: dbQueryDuration,
		ledgerMarks:     ledgerMarks,
		ledgerDuration:  ledgerDuration,
		checkIns:        checkIns,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordLedgerMark counts a ledger mark outcome.
func (m *MetricsService) RecordLedgerMark(strategy, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ledgerMarks.WithLabelValues(strategy, outcome).Inc()
	m.ledgerDuration.Observe(duration.Seconds())
	switch outcome {
	case LedgerOutcomeFailed:
		atomic.AddUint64(&m.ledgerFailureCount, 1)
	case LedgerOutcomeConflict:
		atomic.AddUint64(&m.ledgerConflictCount, 1)
		atomic.AddUint64(&m.ledgerMarkCount, 1)
	default:
		atomic.AddUint64(&m.ledgerMarkCount, 1)
	}
}

// RecordCheckIn counts a check-in by resolver outcome.
func (m *MetricsService) RecordCheckIn(outcome models.MatchKind) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(string(outcome)).Inc()
}

// Snapshot returns aggregated metrics for the summary endpoint.
func (m *MetricsService) Snapshot() models.ServiceMetrics {
	if m == nil {
		return models.ServiceMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.ServiceMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		LedgerMarks:              atomic.LoadUint64(&m.ledgerMarkCount),
		LedgerConflicts:          atomic.LoadUint64(&m.ledgerConflictCount),
		LedgerFailures:           atomic.LoadUint64(&m.ledgerFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
