package app

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/closing"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/adjustments"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/observability"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Backend is implemented by both the PostgreSQL and the in-memory store.
type Backend interface {
	ledger.Repository
	accounts.Lookup
	Accounts() accounts.Repository
	Mappings() mappings.Repository
	Periods() periods.Repository
	Journals() journals.Repository
	Lots() costlayer.Repository
	Adjustments() adjustments.Repository
	Closing() closing.Repository
}

// ServiceDeps carries the infrastructure shared by every service.
type ServiceDeps struct {
	Logger  *slog.Logger
	Redis   *redis.Client
	Audit   shared.AuditPort
	Metrics *observability.Metrics
	// CacheTTL and LockTTL fall back to the package defaults when zero.
	CacheTTL time.Duration
	LockTTL  time.Duration
}

// Services is the wired domain layer.
type Services struct {
	Accounts    *accounts.Service
	Mappings    *mappings.Service
	Periods     *periods.Service
	Journals    *journals.Service
	Ledger      *ledger.Service
	Stock       *costlayer.Service
	Adjustments *adjustments.Service
	Closing     *closing.Service
	Cache       *ledger.Cache
}

// NewServices builds the services over backend.
func NewServices(backend Backend, deps ServiceDeps) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	audit := deps.Audit
	if audit == nil {
		audit = shared.NewLogAuditor(logger)
	}

	var cache *ledger.Cache
	if deps.Redis != nil {
		cache = ledger.NewCache(deps.Redis, deps.CacheTTL).WithLogger(logger)
		if deps.Metrics != nil {
			cache.WithMetrics(deps.Metrics)
		}
	}

	journalSvc := journals.NewService(backend.Journals(), audit, logger)
	if cache != nil {
		journalSvc.WithCache(cache)
	}
	if deps.Metrics != nil {
		journalSvc.WithMetrics(deps.Metrics)
	}
	periodSvc := periods.NewService(backend.Periods(), audit, logger)
	stock := costlayer.NewService(backend.Lots())
	adjustmentSvc := adjustments.NewService(backend.Adjustments(), stock, journalSvc, audit, logger)
	if deps.Metrics != nil {
		adjustmentSvc.WithMetrics(deps.Metrics)
	}
	locker := shared.NewLocker(deps.Redis, deps.LockTTL)

	return &Services{
		Accounts:    accounts.NewService(backend.Accounts()),
		Mappings:    mappings.NewService(backend.Mappings(), backend),
		Periods:     periodSvc,
		Journals:    journalSvc,
		Ledger:      ledger.NewService(backend, cache, logger),
		Stock:       stock,
		Adjustments: adjustmentSvc,
		Closing:     closing.NewService(backend.Closing(), journalSvc, periodSvc, locker, audit, logger),
		Cache:       cache,
	}
}
