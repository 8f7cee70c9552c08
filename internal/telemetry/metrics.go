// Package telemetry provides observability for the scheduler backend:
// slog setup plus Prometheus metrics.
//
// All metrics register against the default Prometheus registry and are served
// on the side-channel HTTP listener started by main.go (default port 9090,
// GET /metrics). The endpoint is deliberately not part of the Gin router so a
// scrape never competes with the public ingress or its rate limiting.
//
// HTTP metrics use the Gin route template (c.FullPath(), e.g. /api/classes/:id)
// rather than the raw URL so user-supplied path segments cannot explode label
// cardinality.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestsTotal counts requests by method, route template, and status.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_http_requests_total",
		Help: "Total HTTP requests processed, labelled by method, route template, and status code.",
	},
	[]string{"method", "path", "status"},
)

// HTTPRequestDuration observes request latency by method and route template.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "scheduler_http_request_duration_seconds",
		Help:    "HTTP request latency, labelled by method and route template.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

// GuardRejectionsTotal counts requests short-circuited by the guard pipeline,
// labelled by the stage that rejected them (origin, rate, authn, authz).
var GuardRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_guard_rejections_total",
		Help: "Requests rejected by the guard pipeline, labelled by stage.",
	},
	[]string{"stage"},
)

// AuditWritesDroppedTotal counts audit entries silently dropped by the
// best-effort writer (suppression skips are not counted, only failures).
var AuditWritesDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "scheduler_audit_writes_dropped_total",
		Help: "Audit log writes dropped because the write sequence failed.",
	},
)

// DBOpenConnections gauges the connection pool.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "scheduler_db_open_connections",
		Help: "Open connections in the database pool.",
	},
)

// StartDBPoolCollector polls the pool stats every interval until stop is
// closed. Run it from main on its own goroutine.
func StartDBPoolCollector(db *sqlx.DB, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		case <-stop:
			return
		}
	}
}

// LogStartup emits the standard startup record.
func LogStartup(version string, port int) {
	slog.Info("scheduler backend starting", "version", version, "port", port)
}
