package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies one of the two cash accounts a company holds.
type Currency string

const (
	CurrencySRD Currency = "SRD"
	CurrencyUSD Currency = "USD"
)

// ItemStatus is the lifecycle state of an item (and of individual stock batches).
// TO_ORDER and ORDERED are pre-stock states; ARRIVED carries sellable stock;
// SOLD means the quantity reached zero. An item re-enters ARRIVED when stock
// is added back to a SOLD item.
type ItemStatus string

const (
	StatusToOrder ItemStatus = "TO_ORDER"
	StatusOrdered ItemStatus = "ORDERED"
	StatusArrived ItemStatus = "ARRIVED"
	StatusSold    ItemStatus = "SOLD"
)

// Company is a tenant. Each company holds one cash balance per supported
// currency plus cached stock-value rollups recomputed after stock mutations.
type Company struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	CashBalanceSRD decimal.Decimal `json:"cash_balance_srd"`
	CashBalanceUSD decimal.Decimal `json:"cash_balance_usd"`
	StockValueSRD  decimal.Decimal `json:"stock_value_srd"`
	StockValueUSD  decimal.Decimal `json:"stock_value_usd"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Location is a named place stock can sit at (a shelf, store, container).
type Location struct {
	ID          int       `json:"id"`
	CompanyID   int       `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Item is a sellable unit belonging to exactly one company.
// QuantityInStock never goes negative. FreightCostUSD is the freight total for
// the whole order, not per unit. When UseBatchSystem is set, QuantityInStock is
// derived from the item's stock batches by the batch reconciler.
type Item struct {
	ID              int             `json:"id"`
	CompanyID       int             `json:"company_id"`
	LocationID      *int            `json:"location_id,omitempty"`
	Name            string          `json:"name"`
	Status          ItemStatus      `json:"status"`
	QuantityInStock int             `json:"quantity_in_stock"`
	CostPerUnitUSD  decimal.Decimal `json:"cost_per_unit_usd"`
	FreightCostUSD  decimal.Decimal `json:"freight_cost_usd"`
	SellingPriceSRD decimal.Decimal `json:"selling_price_srd"`
	UseBatchSystem  bool            `json:"use_batch_system"`
	Supplier        string          `json:"supplier,omitempty"`
	Assignee        string          `json:"assignee,omitempty"`
	OrderDate       *time.Time      `json:"order_date,omitempty"`
	ArrivalDate     *time.Time      `json:"arrival_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemEconomics holds the derived cost/profit figures for an item.
// Computed at read time, never stored.
type ItemEconomics struct {
	UnitCostUSD    decimal.Decimal `json:"unit_cost_usd"` // cost per unit plus freight share
	UnitProfitSRD  decimal.Decimal `json:"unit_profit_srd"`
	TotalProfitSRD decimal.Decimal `json:"total_profit_srd"`
}

// StockBatch is a discrete lot of an item with its own quantity, status, and
// cost snapshot, optionally pinned to a location.
type StockBatch struct {
	ID             int             `json:"id"`
	ItemID         int             `json:"item_id"`
	LocationID     *int            `json:"location_id,omitempty"`
	Quantity       int             `json:"quantity"`
	Status         ItemStatus      `json:"status"`
	CostPerUnitUSD decimal.Decimal `json:"cost_per_unit_usd"`
	FreightCostUSD decimal.Decimal `json:"freight_cost_usd"`
	OrderDate      *time.Time      `json:"order_date,omitempty"`
	ArrivalDate    *time.Time      `json:"arrival_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Expense is a signed ledger row attached to a company. By this system's
// convention a positive amount is an outflow (expense) and a negative amount
// is an inflow (sale revenue, cost reallocation). Ledger-written rows are
// append-only.
type Expense struct {
	ID          int             `json:"id"`
	CompanyID   int             `json:"company_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    Currency        `json:"currency"`
	Category    string          `json:"category"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BatchSummary is the per-item display aggregate over its stock batches.
type BatchSummary struct {
	BatchCount           int      `json:"batch_count"`
	LocationCount        int      `json:"location_count"`
	Locations            []string `json:"locations"`
	Statuses             []string `json:"statuses"`
	HasMultipleLocations bool     `json:"has_multiple_locations"`
	HasMultipleStatuses  bool     `json:"has_multiple_statuses"`
}

// BatchMismatch describes one batch-tracked item whose stored quantity
// diverges from the sum of its batches.
type BatchMismatch struct {
	ItemID       int    `json:"item_id"`
	ItemName     string `json:"item_name"`
	ItemQuantity int    `json:"item_quantity"`
	BatchTotal   int    `json:"batch_total"`
	Description  string `json:"description"`
}

// ConsistencyReport is the result of a full batch/item consistency sweep.
type ConsistencyReport struct {
	CheckedAt    time.Time       `json:"checked_at"`
	Consistent   int             `json:"consistent"`
	Inconsistent int             `json:"inconsistent"`
	Mismatches   []BatchMismatch `json:"mismatches"`
}
