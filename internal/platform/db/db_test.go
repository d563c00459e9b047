package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	versions, err := Migrations()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(versions) == 0 || versions[0] != "0001_ledger.sql" {
		t.Fatalf("unexpected migrations: %v", versions)
	}
	body, err := migrationFiles.ReadFile("migrations/" + versions[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, table := range []string{"accounts", "journal_entries", "journal_lines", "accounting_periods", "cost_lots", "stock_adjustments"} {
		if !strings.Contains(string(body), table) {
			t.Fatalf("expected %s in the schema", table)
		}
	}
}

func TestPostingStampMigration(t *testing.T) {
	versions, err := Migrations()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(versions) < 2 || versions[1] != "0002_posting_stamps.sql" {
		t.Fatalf("expected the posting stamp migration second, got %v", versions)
	}
	body, err := migrationFiles.ReadFile("migrations/" + versions[1])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(body), "last_posting_at") {
		t.Fatalf("expected last_posting_at column, got %s", body)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{fmt.Errorf("post: %w", &pgconn.PgError{Code: "40P01"}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
