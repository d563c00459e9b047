package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsExposeLedgerCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.JournalPosted("MANUAL_JOURNAL")
	metrics.JournalPosted("MANUAL_JOURNAL")
	metrics.JournalRejected("period_closed")
	metrics.CacheHit("trial_balance")
	metrics.CacheMiss("trial_balance")
	metrics.AdjustmentPosted("STOCK_COUNT")

	body := scrape(t, metrics)
	for _, want := range []string{
		`pharma_ledger_journal_entries_posted_total{source="MANUAL_JOURNAL"} 2`,
		`pharma_ledger_journal_entries_rejected_total{reason="period_closed"} 1`,
		`pharma_ledger_report_cache_total{report="trial_balance",result="hit"} 1`,
		`pharma_ledger_report_cache_total{report="trial_balance",result="miss"} 1`,
		`pharma_ledger_stock_adjustments_posted_total{reason="STOCK_COUNT"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.JournalPosted("SALES")
	metrics.CacheMiss("balance_sheet")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}
