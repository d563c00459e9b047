package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Lookup resolves mappings, inside or outside a transaction.
type Lookup interface {
	GetMapping(ctx context.Context, key string) (AccountMapping, error)
	ListMappings(ctx context.Context, prefix string) ([]AccountMapping, error)
}

// Repository persists account mappings.
type Repository interface {
	Lookup
	UpsertMapping(ctx context.Context, mapping AccountMapping) (AccountMapping, error)
}

// Resolve returns the account id for key or ErrMappingNotFound.
func Resolve(ctx context.Context, lookup Lookup, key string) (int64, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return 0, errors.New("accounting: mapping key required")
	}
	m, err := lookup.GetMapping(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, shared.ErrMappingNotFound
		}
		return 0, err
	}
	return m.AccountID, nil
}

// AccountSet returns the account ids mapped under prefix.
func AccountSet(ctx context.Context, lookup Lookup, prefix string) (map[int64]struct{}, error) {
	list, err := lookup.ListMappings(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]struct{}, len(list))
	for _, m := range list {
		out[m.AccountID] = struct{}{}
	}
	return out, nil
}
