package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

const (
	CommitResultOK               = "ok"
	CommitResultValidation       = "validation"
	CommitResultPermissionDenied = "permission_denied"
	CommitResultPersistence      = "persistence"

	LookupResultHit      = "hit"
	LookupResultMiss     = "miss"
	LookupResultNotFound = "not_found"
	LookupResultError    = "error"

	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonUniqueViolation      = "unique_violation"
	ReasonForeignKeyViolation  = "foreign_key_violation"
	ReasonNotNullViolation     = "not_null_violation"
	ReasonSerializationFailure = "serialization_failure"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

// Config labels every series with the running service.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes the Prometheus instruments of the order desk.
type Metrics struct {
	commits        *prometheus.CounterVec
	commitDuration prometheus.Histogram
	commitErrors   *prometheus.CounterVec
	mirrorRebuilds *prometheus.CounterVec
	postalLookups  *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// New registers the instruments on registerer.
func New(registerer prometheus.Registerer, cfg Config) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "orderdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "orderdesk_order_commits_total",
			Help:        "Order commits by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "orderdesk_order_commit_duration_seconds",
			Help:        "End-to-end order commit latency.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}),
		commitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "orderdesk_order_commit_errors_total",
			Help:        "Storage failures during commit by step and low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"step", "reason"}),
		mirrorRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "orderdesk_order_mirror_rebuilds_total",
			Help:        "Line and stock mirror rebuilds by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		postalLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "orderdesk_postal_lookups_total",
			Help:        "Postal code lookups by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "orderdesk_order_sessions_active",
			Help:        "Open order editing sessions.",
			ConstLabels: constLabels,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "orderdesk_http_requests_total",
			Help:        "HTTP requests by method, route and status.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "orderdesk_http_request_duration_seconds",
			Help:        "HTTP request latency by method and route.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		m.commits,
		m.commitDuration,
		m.commitErrors,
		m.mirrorRebuilds,
		m.postalLookups,
		m.activeSessions,
		m.httpRequests,
		m.httpDuration,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveCommit records one commit attempt.
func (m *Metrics) ObserveCommit(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(result).Inc()
	m.commitDuration.Observe(duration.Seconds())
}

// IncCommitError records a storage failure at step.
func (m *Metrics) IncCommitError(step string, err error) {
	if m == nil {
		return
	}
	m.commitErrors.WithLabelValues(step, ClassifyReason(err)).Inc()
}

func (m *Metrics) IncMirrorRebuild(ok bool) {
	if m == nil {
		return
	}
	result := CommitResultOK
	if !ok {
		result = CommitResultPersistence
	}
	m.mirrorRebuilds.WithLabelValues(result).Inc()
}

func (m *Metrics) IncPostalLookup(result string) {
	if m == nil {
		return
	}
	m.postalLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ClassifyReason maps storage errors to low-cardinality reasons.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ReasonUniqueViolation
		case "23503":
			return ReasonForeignKeyViolation
		case "23502":
			return ReasonNotNullViolation
		case "40001":
			return ReasonSerializationFailure
		default:
			return ReasonDB
		}
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) || errors.Is(err, gorm.ErrInvalidDB) {
		return ReasonDB
	}
	return ReasonUnknown
}
