package app

import (
	"context"

	"stockdesk/internal/core"
)

// ApplicationService is the single interface the HTTP adapter calls. It
// decouples presentation from business logic; implementations contain no
// display logic.
type ApplicationService interface {
	// SellItem, RemoveStock, and AddStock apply one inventory action each;
	// stock, balance, and ledger row change atomically or not at all.
	SellItem(ctx context.Context, req InventoryActionRequest) (*ActionResult, error)
	RemoveStock(ctx context.Context, req InventoryActionRequest) (*ActionResult, error)
	AddStock(ctx context.Context, req InventoryActionRequest) (*ActionResult, error)

	// CreateItem creates a new item or merges it into an existing one of the
	// same name and company.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error)
	GetItem(ctx context.Context, id int) (*ItemView, error)
	ListItems(ctx context.Context, companyID int) ([]ItemView, error)

	ListBatches(ctx context.Context, itemID int) ([]core.StockBatch, error)
	CreateBatch(ctx context.Context, itemID int, req BatchRequest) (*core.StockBatch, error)
	UpdateBatch(ctx context.Context, batchID int, req BatchRequest) (*core.StockBatch, error)
	DeleteBatch(ctx context.Context, batchID int) error

	CreateCompany(ctx context.Context, req CreateCompanyRequest) (*core.Company, error)
	GetCompany(ctx context.Context, id int) (*core.Company, error)
	ListCompanies(ctx context.Context) ([]core.Company, error)
	// RecalculateStockValues rewrites a company's cached stock-value rollups
	// from its current items.
	RecalculateStockValues(ctx context.Context, companyID int) (*core.Company, error)
	CreateLocation(ctx context.Context, companyID int, req CreateLocationRequest) (*core.Location, error)
	ListLocations(ctx context.Context, companyID int) ([]core.Location, error)

	ListExpenses(ctx context.Context, companyID int, category string) ([]core.Expense, error)

	// CheckBatchConsistency runs the diagnostic sweep over every
	// batch-tracked item.
	CheckBatchConsistency(ctx context.Context) (*core.ConsistencyReport, error)
}
