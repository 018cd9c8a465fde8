package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for missing records. Use with errors.Is().
var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrBatchNotFound    = errors.New("stock batch not found")
	ErrLocationNotFound = errors.New("location not found")
)

// InsufficientStockError is returned when a sell/remove requests more units
// than the item currently holds. Action is the verb of the failed operation
// ("sell" or "remove"). No state is mutated when it is returned.
type InsufficientStockError struct {
	ItemID    int
	ItemName  string
	Action    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot %s %d units of %q: only %d in stock",
		e.Action, e.Requested, e.ItemName, e.Available)
}

// InsufficientFundsError is returned when a debit would push a company cash
// balance below zero. No state is mutated when it is returned.
type InsufficientFundsError struct {
	CompanyID int
	Currency  Currency
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s funds: required %s, available %s",
		e.Currency, e.Required.StringFixed(2), e.Available.StringFixed(2))
}
