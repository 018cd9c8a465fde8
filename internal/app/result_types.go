package app

import (
	"github.com/shopspring/decimal"

	"stockdesk/internal/core"
)

// SaleDetail describes a completed sale within an ActionResult.
type SaleDetail struct {
	ItemID       int             `json:"item_id"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
	ExpenseID    int             `json:"expense_id"`
}

// RemovalDetail describes a completed stock removal.
type RemovalDetail struct {
	ItemID          int             `json:"item_id"`
	QuantityRemoved int             `json:"quantity_removed"`
	CostValue       decimal.Decimal `json:"cost_value"`
	ExpenseID       int             `json:"expense_id"`
}

// AdditionDetail describes a completed stock addition.
type AdditionDetail struct {
	ItemID        int `json:"item_id"`
	QuantityAdded int `json:"quantity_added"`
}

// ActionResult is returned by the three inventory actions. Exactly one of
// Sale, Removal, Addition is set, matching the action that ran.
type ActionResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Sale     *SaleDetail     `json:"sale,omitempty"`
	Removal  *RemovalDetail  `json:"removal,omitempty"`
	Addition *AdditionDetail `json:"addition,omitempty"`
	Item     *core.Item      `json:"updatedItem"`
	Company  *core.Company   `json:"company,omitempty"`
}

// ItemView is an item enriched with its derived economics and, for
// batch-tracked items, the batch display aggregate.
type ItemView struct {
	core.Item
	Economics    core.ItemEconomics `json:"economics"`
	BatchSummary *core.BatchSummary `json:"batch_summary,omitempty"`
}

// ItemResult is returned by item creation.
type ItemResult struct {
	Item    *core.Item `json:"item"`
	Merged  bool       `json:"merged"`
	Message string     `json:"message"`
}
