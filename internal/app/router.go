package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/closing"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/adjustments"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/observability"
	"github.com/odyssey-erp/pharma-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/jobs"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Services *Services
	Metrics  *observability.Metrics
	Jobs     *jobs.Handler
	// Idempotency enables Idempotency-Key handling on POST routes when set.
	Idempotency *shared.IdempotencyStore
	// Checks run on /readyz keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter constructs the chi.Router serving the ledger API.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Checks, logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	svc := params.Services
	r.Route("/api/v1", func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:      logger,
			Config:      params.Config,
			Metrics:     params.Metrics,
			Idempotency: params.Idempotency,
		}) {
			r.Use(mw)
		}
		if svc == nil {
			return
		}
		r.Route("/accounts", accounts.NewHandler(logger, svc.Accounts).MountRoutes)
		r.Route("/mappings", mappings.NewHandler(logger, svc.Mappings).MountRoutes)
		r.Route("/journals", journals.NewHandler(logger, svc.Journals).MountRoutes)
		r.Route("/periods", func(r chi.Router) {
			closing.NewHandler(logger, svc.Closing).MountRoutes(r)
			periods.NewHandler(logger, svc.Periods).MountRoutes(r)
		})
		r.Route("/ledger", ledger.NewHandler(logger, svc.Ledger).MountRoutes)
		r.Route("/inventory", func(r chi.Router) {
			costlayer.NewHandler(logger, svc.Stock).MountRoutes(r)
			adjustments.NewHandler(logger, svc.Adjustments).MountRoutes(r)
		})
		if params.Jobs != nil {
			r.Route("/jobs", params.Jobs.MountRoutes)
		}
	})

	return r
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				report[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httpx.JSON(w, status, report)
	}
}
