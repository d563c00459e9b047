package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// Tree arranges the chart of accounts by parent, roots first.
func (s *Service) Tree(ctx context.Context) ([]Node, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(accounts), nil
}

// Create validates placement in the tree and stores the account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	var problems []string
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		problems = append(problems, "code is required")
	}
	if in.Name == "" {
		problems = append(problems, "name is required")
	}
	if !in.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown account type %q", in.Type))
	}
	if len(problems) > 0 {
		return Account{}, &shared.ValidationError{Errors: problems}
	}
	if in.ParentID != nil {
		parent, err := s.repo.GetAccount(ctx, *in.ParentID)
		if err != nil {
			return Account{}, err
		}
		if !parent.IsHeader {
			return Account{}, &shared.ValidationError{Errors: []string{fmt.Sprintf("parent %s is not a header account", parent.Code)}}
		}
		if parent.Type != in.Type {
			return Account{}, &shared.ValidationError{Errors: []string{fmt.Sprintf("parent %s has type %s", parent.Code, parent.Type)}}
		}
	}
	return s.repo.InsertAccount(ctx, Account{
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		ParentID: in.ParentID,
		IsHeader: in.IsHeader,
		IsActive: true,
	})
}

// Deactivate soft-removes an account. Accounts are never deleted once used.
// An account still carrying a posted balance stays active, since an inactive
// account can no longer be cleared or closed into retained earnings.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		balance, err := tx.PostedBalance(ctx, id)
		if err != nil {
			return err
		}
		if !balance.IsZero() {
			return &shared.AccountHasBalanceError{Code: acc.Code, Balance: balance}
		}
		return tx.SetAccountActive(ctx, id, false)
	})
}

// EnsurePostable loads every referenced account and rejects headers, inactive
// and unknown accounts.
func EnsurePostable(ctx context.Context, lookup Lookup, ids []int64) (map[int64]Account, error) {
	found, err := lookup.AccountsByID(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		acc, ok := found[id]
		if !ok {
			return nil, &shared.InvalidAccountError{AccountID: id, Reason: "does not exist"}
		}
		if acc.IsHeader {
			return nil, &shared.InvalidAccountError{AccountID: id, Code: acc.Code, Reason: "is a header account"}
		}
		if !acc.IsActive {
			return nil, &shared.InvalidAccountError{AccountID: id, Code: acc.Code, Reason: "is inactive"}
		}
	}
	return found, nil
}

// BuildTree nests accounts under their parents. Orphans become roots.
func BuildTree(accounts []Account) []Node {
	sorted := make([]Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	children := make(map[int64][]Account)
	known := make(map[int64]struct{}, len(sorted))
	for _, a := range sorted {
		known[a.ID] = struct{}{}
	}
	var roots []Account
	for _, a := range sorted {
		if a.ParentID != nil {
			if _, ok := known[*a.ParentID]; ok && *a.ParentID != a.ID {
				children[*a.ParentID] = append(children[*a.ParentID], a)
				continue
			}
		}
		roots = append(roots, a)
	}
	var build func(a Account, depth int) Node
	build = func(a Account, depth int) Node {
		node := Node{Account: a}
		if depth > len(sorted) {
			return node
		}
		for _, c := range children[a.ID] {
			node.Children = append(node.Children, build(c, depth+1))
		}
		return node
	}
	out := make([]Node, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r, 0))
	}
	return out
}

// Descendants returns id and every account below it.
func Descendants(accounts []Account, id int64) []int64 {
	byParent := make(map[int64][]int64)
	for _, a := range accounts {
		if a.ParentID != nil {
			byParent[*a.ParentID] = append(byParent[*a.ParentID], a.ID)
		}
	}
	out := []int64{id}
	seen := map[int64]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, c := range byParent[out[i]] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Find returns the account with id from a loaded list.
func Find(accounts []Account, id int64) (Account, error) {
	for _, a := range accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
