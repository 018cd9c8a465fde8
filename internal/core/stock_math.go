package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemInput carries the fields for creating or merging an item. Optional text
// fields are pointers so "absent" (nil, keep existing on merge) is distinct
// from "explicit empty" (clear the field).
type ItemInput struct {
	CompanyID       int
	LocationID      *int
	Name            string
	Status          ItemStatus
	QuantityInStock int
	CostPerUnitUSD  decimal.Decimal
	FreightCostUSD  decimal.Decimal
	SellingPriceSRD decimal.Decimal
	UseBatchSystem  bool
	Supplier        *string
	Assignee        *string
	OrderDate       *time.Time
	ArrivalDate     *time.Time
	Notes           *string
}

// StatusAfterDeduction returns the item status after a sell/remove left
// newQty units. An ARRIVED item whose stock hits zero becomes SOLD; every
// other state is kept as-is.
func StatusAfterDeduction(current ItemStatus, newQty int) ItemStatus {
	if newQty == 0 && current == StatusArrived {
		return StatusSold
	}
	return current
}

// StatusAfterAddition returns the item status after stock was added back.
// A SOLD item with stock again re-enters ARRIVED.
func StatusAfterAddition(current ItemStatus, newQty int) ItemStatus {
	if current == StatusSold && newQty > 0 {
		return StatusArrived
	}
	return current
}

// WeightedUnitCost combines two unit costs weighted by their quantities,
// rounded to cents. With both quantities zero the incoming cost wins.
func WeightedUnitCost(existingQty int, existingCost decimal.Decimal, incomingQty int, incomingCost decimal.Decimal) decimal.Decimal {
	totalQty := existingQty + incomingQty
	if totalQty == 0 {
		return incomingCost.Round(2)
	}
	existingValue := existingCost.Mul(decimal.NewFromInt(int64(existingQty)))
	incomingValue := incomingCost.Mul(decimal.NewFromInt(int64(incomingQty)))
	return existingValue.Add(incomingValue).Div(decimal.NewFromInt(int64(totalQty))).Round(2)
}

// CanMergeInto reports whether an incoming item may be folded into an
// existing one: the existing item already went through the stock cycle
// (ARRIVED or SOLD) and the incoming one is a fresh (re)order.
func CanMergeInto(existing, incoming ItemStatus) bool {
	existingDone := existing == StatusArrived || existing == StatusSold
	incomingFresh := incoming == StatusToOrder || incoming == StatusOrdered
	return existingDone && incomingFresh
}

// MergeItem folds an incoming order into an existing item: quantities sum,
// unit cost becomes the quantity-weighted average, freight totals are
// averaged, and the selling price is overwritten. Optional text fields are
// overwritten only when the incoming value is present; notes survive an
// absent incoming value.
func MergeItem(existing Item, incoming ItemInput) Item {
	merged := existing
	merged.CostPerUnitUSD = WeightedUnitCost(
		existing.QuantityInStock, existing.CostPerUnitUSD,
		incoming.QuantityInStock, incoming.CostPerUnitUSD,
	)
	merged.QuantityInStock = existing.QuantityInStock + incoming.QuantityInStock
	merged.FreightCostUSD = existing.FreightCostUSD.Add(incoming.FreightCostUSD).
		Div(decimal.NewFromInt(2)).Round(2)
	merged.SellingPriceSRD = incoming.SellingPriceSRD

	merged.Supplier = mergeText(existing.Supplier, incoming.Supplier)
	merged.Assignee = mergeText(existing.Assignee, incoming.Assignee)
	merged.Notes = mergeText(existing.Notes, incoming.Notes)
	if incoming.LocationID != nil {
		merged.LocationID = incoming.LocationID
	}
	if incoming.OrderDate != nil {
		merged.OrderDate = incoming.OrderDate
	}
	if incoming.ArrivalDate != nil {
		merged.ArrivalDate = incoming.ArrivalDate
	}
	return merged
}

// mergeText keeps the existing value when the incoming one is absent; an
// explicitly provided value overwrites, and an explicit empty string clears.
func mergeText(existing string, incoming *string) string {
	if incoming == nil {
		return existing
	}
	return *incoming
}

// Economics computes the derived cost/profit view of an item at the given
// USD→SRD rate. The freight total is spread across the units in stock.
func Economics(item Item, usdToSRD decimal.Decimal) ItemEconomics {
	unitCost := item.CostPerUnitUSD
	if item.QuantityInStock > 0 {
		unitCost = unitCost.Add(item.FreightCostUSD.Div(decimal.NewFromInt(int64(item.QuantityInStock))))
	}
	unitCost = unitCost.Round(2)

	unitProfit := item.SellingPriceSRD.Sub(unitCost.Mul(usdToSRD)).Round(2)
	totalProfit := unitProfit.Mul(decimal.NewFromInt(int64(item.QuantityInStock)))

	return ItemEconomics{
		UnitCostUSD:    unitCost,
		UnitProfitSRD:  unitProfit,
		TotalProfitSRD: totalProfit,
	}
}

// SaleCostBasisSRD converts the cost of qty units into SRD at the given rate.
func SaleCostBasisSRD(unitCostUSD, usdToSRD decimal.Decimal, qty int) decimal.Decimal {
	return unitCostUSD.Mul(usdToSRD).Mul(decimal.NewFromInt(int64(qty))).Round(2)
}
