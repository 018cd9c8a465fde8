package app

import (
	"github.com/shopspring/decimal"
)

// Inventory action names accepted by the actions endpoint.
const (
	ActionSell   = "sell"
	ActionRemove = "remove"
	ActionAdd    = "add"
)

// InventoryActionRequest is the decoded body of POST /api/inventory/actions.
// One quantity field is populated depending on Action.
type InventoryActionRequest struct {
	Action           string           `json:"action" validate:"required,oneof=sell remove add"`
	ItemID           int              `json:"itemId" validate:"required,gt=0"`
	QuantityToSell   int              `json:"quantityToSell" validate:"required_if=Action sell,omitempty,gte=1"`
	QuantityToRemove int              `json:"quantityToRemove" validate:"required_if=Action remove,omitempty,gte=1"`
	QuantityToAdd    int              `json:"quantityToAdd" validate:"required_if=Action add,omitempty,gte=1"`
	SellingPriceSRD  *decimal.Decimal `json:"sellingPriceSRD,omitempty" validate:"omitempty,gte=0"`
	Reason           string           `json:"reason,omitempty"`
}

// CreateItemRequest is the decoded body of POST /api/items. Optional text
// fields are pointers: absent keeps the existing value on merge, an explicit
// empty string clears it.
type CreateItemRequest struct {
	CompanyID       int             `json:"companyId" validate:"required,gt=0"`
	LocationID      *int            `json:"locationId,omitempty"`
	Name            string          `json:"name" validate:"required"`
	Status          string          `json:"status" validate:"omitempty,oneof=TO_ORDER ORDERED ARRIVED SOLD"`
	QuantityInStock int             `json:"quantityInStock" validate:"gte=0"`
	CostPerUnitUSD  decimal.Decimal `json:"costPerUnitUSD" validate:"gte=0"`
	FreightCostUSD  decimal.Decimal `json:"freightCostUSD" validate:"gte=0"`
	SellingPriceSRD decimal.Decimal `json:"sellingPriceSRD" validate:"gte=0"`
	UseBatchSystem  bool            `json:"useBatchSystem"`
	Supplier        *string         `json:"supplier,omitempty"`
	Assignee        *string         `json:"assignee,omitempty"`
	OrderDate       *string         `json:"orderDate,omitempty"`   // YYYY-MM-DD
	ArrivalDate     *string         `json:"arrivalDate,omitempty"` // YYYY-MM-DD
	Notes           *string         `json:"notes,omitempty"`
}

// BatchRequest is the decoded body of batch create/update calls.
type BatchRequest struct {
	LocationID     *int            `json:"locationId,omitempty"`
	Quantity       int             `json:"quantity" validate:"gte=0"`
	Status         string          `json:"status" validate:"omitempty,oneof=TO_ORDER ORDERED ARRIVED SOLD"`
	CostPerUnitUSD decimal.Decimal `json:"costPerUnitUSD" validate:"gte=0"`
	FreightCostUSD decimal.Decimal `json:"freightCostUSD" validate:"gte=0"`
	OrderDate      *string         `json:"orderDate,omitempty"`
	ArrivalDate    *string         `json:"arrivalDate,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// CreateCompanyRequest is the decoded body of POST /api/companies.
type CreateCompanyRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateLocationRequest is the decoded body of POST /api/companies/{id}/locations.
type CreateLocationRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}
