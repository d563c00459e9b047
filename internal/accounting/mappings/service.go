package mappings

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Service struct {
	repo     Repository
	accounts accounts.Lookup
}

func NewService(repo Repository, lookup accounts.Lookup) *Service {
	return &Service{repo: repo, accounts: lookup}
}

func (s *Service) List(ctx context.Context) ([]AccountMapping, error) {
	return s.repo.ListMappings(ctx, "")
}

// Set points key at a postable account.
func (s *Service) Set(ctx context.Context, key string, accountID int64) (AccountMapping, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" || strings.ContainsAny(key, " \t") {
		return AccountMapping{}, &shared.ValidationError{Errors: []string{fmt.Sprintf("invalid mapping key %q", key)}}
	}
	if _, err := accounts.EnsurePostable(ctx, s.accounts, []int64{accountID}); err != nil {
		return AccountMapping{}, err
	}
	return s.repo.UpsertMapping(ctx, AccountMapping{Key: key, AccountID: accountID})
}
