package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockdesk/internal/core"
)

type appService struct {
	stock     core.StockService
	batches   core.BatchService
	companies core.CompanyService
	ledger    *core.BalanceLedger
	usdToSRD  decimal.Decimal
}

// NewAppService wires the application facade over the core services.
func NewAppService(stock core.StockService, batches core.BatchService,
	companies core.CompanyService, ledger *core.BalanceLedger, usdToSRD decimal.Decimal) ApplicationService {
	return &appService{
		stock:     stock,
		batches:   batches,
		companies: companies,
		ledger:    ledger,
		usdToSRD:  usdToSRD,
	}
}

func (s *appService) SellItem(ctx context.Context, req InventoryActionRequest) (*ActionResult, error) {
	res, err := s.stock.Sell(ctx, core.SellRequest{
		ItemID:           req.ItemID,
		Quantity:         req.QuantityToSell,
		PriceOverrideSRD: req.SellingPriceSRD,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{
		Success: true,
		Message: fmt.Sprintf("Sold %dx %s for SRD %s",
			req.QuantityToSell, res.Item.Name, res.Revenue.StringFixed(2)),
		Sale: &SaleDetail{
			ItemID:       res.Item.ID,
			QuantitySold: req.QuantityToSell,
			Revenue:      res.Revenue,
			Profit:       res.Profit,
			ExpenseID:    res.ExpenseID,
		},
		Item:    res.Item,
		Company: res.Company,
	}, nil
}

func (s *appService) RemoveStock(ctx context.Context, req InventoryActionRequest) (*ActionResult, error) {
	res, err := s.stock.Remove(ctx, core.RemoveRequest{
		ItemID:   req.ItemID,
		Quantity: req.QuantityToRemove,
		Reason:   req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{
		Success: true,
		Message: fmt.Sprintf("Removed %dx %s from stock", req.QuantityToRemove, res.Item.Name),
		Removal: &RemovalDetail{
			ItemID:          res.Item.ID,
			QuantityRemoved: req.QuantityToRemove,
			CostValue:       res.CostValue,
			ExpenseID:       res.ExpenseID,
		},
		Item:    res.Item,
		Company: res.Company,
	}, nil
}

func (s *appService) AddStock(ctx context.Context, req InventoryActionRequest) (*ActionResult, error) {
	res, err := s.stock.Add(ctx, core.AddRequest{
		ItemID:   req.ItemID,
		Quantity: req.QuantityToAdd,
		Reason:   req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{
		Success: true,
		Message: fmt.Sprintf("Added %dx %s to stock", req.QuantityToAdd, res.Item.Name),
		Addition: &AdditionDetail{
			ItemID:        res.Item.ID,
			QuantityAdded: req.QuantityToAdd,
		},
		Item: res.Item,
	}, nil
}

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error) {
	orderDate, err := parseDate(req.OrderDate)
	if err != nil {
		return nil, fmt.Errorf("invalid order date: %w", err)
	}
	arrivalDate, err := parseDate(req.ArrivalDate)
	if err != nil {
		return nil, fmt.Errorf("invalid arrival date: %w", err)
	}

	change, err := s.stock.CreateOrMergeItem(ctx, core.ItemInput{
		CompanyID:       req.CompanyID,
		LocationID:      req.LocationID,
		Name:            req.Name,
		Status:          core.ItemStatus(req.Status),
		QuantityInStock: req.QuantityInStock,
		CostPerUnitUSD:  req.CostPerUnitUSD,
		FreightCostUSD:  req.FreightCostUSD,
		SellingPriceSRD: req.SellingPriceSRD,
		UseBatchSystem:  req.UseBatchSystem,
		Supplier:        req.Supplier,
		Assignee:        req.Assignee,
		OrderDate:       orderDate,
		ArrivalDate:     arrivalDate,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Item %q created", change.Item.Name)
	if change.Merged {
		msg = fmt.Sprintf("Item %q merged into existing stock", change.Item.Name)
	}
	return &ItemResult{Item: change.Item, Merged: change.Merged, Message: msg}, nil
}

func (s *appService) GetItem(ctx context.Context, id int) (*ItemView, error) {
	item, err := s.stock.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.buildItemViews(ctx, []core.Item{*item})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *appService) ListItems(ctx context.Context, companyID int) ([]ItemView, error) {
	items, err := s.stock.ListItems(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.buildItemViews(ctx, items)
}

// buildItemViews attaches derived economics to every item and the batch
// aggregate to the batch-tracked ones.
func (s *appService) buildItemViews(ctx context.Context, items []core.Item) ([]ItemView, error) {
	var batchTracked []int
	for _, it := range items {
		if it.UseBatchSystem {
			batchTracked = append(batchTracked, it.ID)
		}
	}
	summaries, err := s.batches.AggregateBatchData(ctx, batchTracked)
	if err != nil {
		return nil, err
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		view := ItemView{Item: it, Economics: core.Economics(it, s.usdToSRD)}
		if it.UseBatchSystem {
			if summary, ok := summaries[it.ID]; ok {
				view.BatchSummary = &summary
			} else {
				view.BatchSummary = &core.BatchSummary{}
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *appService) ListBatches(ctx context.Context, itemID int) ([]core.StockBatch, error) {
	return s.batches.ListBatches(ctx, itemID)
}

func (s *appService) CreateBatch(ctx context.Context, itemID int, req BatchRequest) (*core.StockBatch, error) {
	input, err := batchInput(req)
	if err != nil {
		return nil, err
	}
	return s.batches.CreateBatch(ctx, itemID, input)
}

func (s *appService) UpdateBatch(ctx context.Context, batchID int, req BatchRequest) (*core.StockBatch, error) {
	input, err := batchInput(req)
	if err != nil {
		return nil, err
	}
	return s.batches.UpdateBatch(ctx, batchID, input)
}

func (s *appService) DeleteBatch(ctx context.Context, batchID int) error {
	return s.batches.DeleteBatch(ctx, batchID)
}

func (s *appService) CreateCompany(ctx context.Context, req CreateCompanyRequest) (*core.Company, error) {
	return s.companies.CreateCompany(ctx, req.Name)
}

func (s *appService) GetCompany(ctx context.Context, id int) (*core.Company, error) {
	return s.companies.GetCompany(ctx, id)
}

func (s *appService) ListCompanies(ctx context.Context) ([]core.Company, error) {
	return s.companies.ListCompanies(ctx)
}

func (s *appService) RecalculateStockValues(ctx context.Context, companyID int) (*core.Company, error) {
	return s.companies.RecalculateStockValues(ctx, companyID)
}

func (s *appService) CreateLocation(ctx context.Context, companyID int, req CreateLocationRequest) (*core.Location, error) {
	return s.companies.CreateLocation(ctx, companyID, req.Name, req.Description)
}

func (s *appService) ListLocations(ctx context.Context, companyID int) ([]core.Location, error) {
	return s.companies.ListLocations(ctx, companyID)
}

func (s *appService) ListExpenses(ctx context.Context, companyID int, category string) ([]core.Expense, error) {
	return s.ledger.ListExpenses(ctx, companyID, category)
}

func (s *appService) CheckBatchConsistency(ctx context.Context) (*core.ConsistencyReport, error) {
	return s.batches.ValidateItemBatchConsistency(ctx)
}

func batchInput(req BatchRequest) (core.BatchInput, error) {
	orderDate, err := parseDate(req.OrderDate)
	if err != nil {
		return core.BatchInput{}, fmt.Errorf("invalid order date: %w", err)
	}
	arrivalDate, err := parseDate(req.ArrivalDate)
	if err != nil {
		return core.BatchInput{}, fmt.Errorf("invalid arrival date: %w", err)
	}
	return core.BatchInput{
		LocationID:     req.LocationID,
		Quantity:       req.Quantity,
		Status:         core.ItemStatus(req.Status),
		CostPerUnitUSD: req.CostPerUnitUSD,
		FreightCostUSD: req.FreightCostUSD,
		OrderDate:      orderDate,
		ArrivalDate:    arrivalDate,
		Notes:          req.Notes,
	}, nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
