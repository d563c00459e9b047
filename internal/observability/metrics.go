package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus series exported by the API process.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	journalsPosted    *prometheus.CounterVec
	journalsRejected  *prometheus.CounterVec
	reportCache       *prometheus.CounterVec
	adjustmentsPosted *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and ledger series.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharma_ledger_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharma_ledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	posted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharma_ledger_journal_entries_posted_total",
		Help: "Journal entries posted by source module.",
	}, []string{"source"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharma_ledger_journal_entries_rejected_total",
		Help: "Journal postings rejected by reason.",
	}, []string{"reason"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharma_ledger_report_cache_total",
		Help: "Ledger report cache lookups by report and result.",
	}, []string{"report", "result"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharma_ledger_stock_adjustments_posted_total",
		Help: "Stock adjustments posted by reason.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, posted, rejected, cache, adjustments)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		journalsPosted:    posted,
		journalsRejected:  rejected,
		reportCache:       cache,
		adjustmentsPosted: adjustments,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request under its chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func (m *Metrics) JournalPosted(source string) {
	if m != nil {
		m.journalsPosted.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) JournalRejected(reason string) {
	if m != nil {
		m.journalsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) CacheHit(report string) {
	if m != nil {
		m.reportCache.WithLabelValues(report, "hit").Inc()
	}
}

func (m *Metrics) CacheMiss(report string) {
	if m != nil {
		m.reportCache.WithLabelValues(report, "miss").Inc()
	}
}

func (m *Metrics) AdjustmentPosted(reason string) {
	if m != nil {
		m.adjustmentsPosted.WithLabelValues(reason).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
