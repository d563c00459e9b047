package app

import (
	"testing"

	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{StoreDriver: " Memory ", RateLimitPerMinute: 60}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("driver not normalised: %q", cfg.StoreDriver)
	}
	if cfg.WorkerConcurrency != 1 {
		t.Fatalf("expected concurrency default of 1, got %d", cfg.WorkerConcurrency)
	}

	for name, bad := range map[string]Config{
		"missing dsn":    {StoreDriver: StoreDriverPostgres, RateLimitPerMinute: 60},
		"unknown driver": {StoreDriver: "sqlite", RateLimitPerMinute: 60},
		"no rate limit":  {StoreDriver: StoreDriverMemory},
	} {
		if err := bad.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REPORT_CACHE_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ReportCacheTTL.Seconds() != 90 {
		t.Fatalf("unexpected ttl %s", cfg.ReportCacheTTL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.IsProduction() {
		t.Fatal("development by default")
	}
}
