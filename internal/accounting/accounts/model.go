package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeCOGS      AccountType = "COGS"
)

// Valid reports whether t is a known type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense, AccountTypeCOGS:
		return true
	}
	return false
}

// DebitNormal reports whether balances of this type grow with debits.
func (t AccountType) DebitNormal() bool {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeCOGS:
		return true
	}
	return false
}

// Temporary reports whether the type is zeroed at year end.
func (t AccountType) Temporary() bool {
	switch t {
	case AccountTypeRevenue, AccountTypeExpense, AccountTypeCOGS:
		return true
	}
	return false
}

// Signed expresses a debit/credit pair in the type's normal direction.
func (t AccountType) Signed(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Account models a chart of accounts node.
type Account struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	ParentID  *int64      `json:"parent_id,omitempty"`
	IsHeader  bool        `json:"is_header"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Node is an account with its children, ordered by code.
type Node struct {
	Account
	Children []Node `json:"children,omitempty"`
}

// CreateInput describes a new chart of accounts entry.
type CreateInput struct {
	Code     string      `json:"code" validate:"required,max=32"`
	Name     string      `json:"name" validate:"required,max=200"`
	Type     AccountType `json:"type" validate:"required"`
	ParentID *int64      `json:"parent_id,omitempty"`
	IsHeader bool        `json:"is_header"`
}
