package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SellRequest sells quantity units of an item. PriceOverrideSRD, when set,
// replaces the item's stored selling price for this sale only.
type SellRequest struct {
	ItemID           int
	Quantity         int
	PriceOverrideSRD *decimal.Decimal
}

// SellResult reports the state after a completed sale.
type SellResult struct {
	Item      *Item
	Company   *Company
	Revenue   decimal.Decimal
	Profit    decimal.Decimal
	ExpenseID int
}

// RemoveRequest writes quantity units off an item's stock.
type RemoveRequest struct {
	ItemID   int
	Quantity int
	Reason   string
}

// RemoveResult reports the state after a completed removal.
type RemoveResult struct {
	Item      *Item
	Company   *Company
	CostValue decimal.Decimal // SRD value credited back to the company
	ExpenseID int
}

// AddRequest adds quantity units to an item's stock (a pure correction, no
// cash effect).
type AddRequest struct {
	ItemID   int
	Quantity int
	Reason   string
}

// ItemChange is returned by CreateOrMergeItem; Merged reports whether the
// input was folded into an existing item instead of creating a new row.
type ItemChange struct {
	Item    *Item
	Company *Company
	Merged  bool
}

// StockService validates and applies quantity-changing actions to single
// items, booking the matching cash movement through the BalanceLedger inside
// the same transaction.
type StockService interface {
	Sell(ctx context.Context, req SellRequest) (*SellResult, error)
	Remove(ctx context.Context, req RemoveRequest) (*RemoveResult, error)
	Add(ctx context.Context, req AddRequest) (*AddResult, error)
	// CreateOrMergeItem creates a new item, or folds the input into an
	// existing same-named item of the company when that item already went
	// through the stock cycle. An incoming ORDERED item debits its total cost
	// from the company's USD balance after a pre-flight funds check.
	CreateOrMergeItem(ctx context.Context, input ItemInput) (*ItemChange, error)
	GetItem(ctx context.Context, id int) (*Item, error)
	ListItems(ctx context.Context, companyID int) ([]Item, error)
}

// AddResult reports the state after stock was added back.
type AddResult struct {
	Item *Item
}

type stockService struct {
	pool     *pgxpool.Pool
	ledger   *BalanceLedger
	usdToSRD decimal.Decimal
}

// NewStockService wires a StockService. usdToSRD is the deployment's fixed
// exchange rate used for cost and profit conversion.
func NewStockService(pool *pgxpool.Pool, ledger *BalanceLedger, usdToSRD decimal.Decimal) StockService {
	return &stockService{pool: pool, ledger: ledger, usdToSRD: usdToSRD}
}

const itemColumns = `id, company_id, location_id, name, status, quantity_in_stock,
	cost_per_unit_usd, freight_cost_usd, selling_price_srd, use_batch_system,
	supplier, assignee, order_date, arrival_date, notes, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CompanyID, &it.LocationID, &it.Name, &it.Status,
		&it.QuantityInStock, &it.CostPerUnitUSD, &it.FreightCostUSD, &it.SellingPriceSRD,
		&it.UseBatchSystem, &it.Supplier, &it.Assignee, &it.OrderDate, &it.ArrivalDate,
		&it.Notes, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lockItem fetches an item row FOR UPDATE, pinning it for the transaction.
func lockItem(ctx context.Context, tx pgx.Tx, itemID int) (*Item, error) {
	it, err := scanItem(tx.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = $1 FOR UPDATE", itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to lock item %d: %w", itemID, err)
	}
	return it, nil
}

func fetchItem(ctx context.Context, q pgxQuerier, itemID int) (*Item, error) {
	it, err := scanItem(q.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = $1", itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to fetch item %d: %w", itemID, err)
	}
	return it, nil
}

func (s *stockService) Sell(ctx context.Context, req SellRequest) (*SellResult, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("sell quantity must be at least 1, got %d", req.Quantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := lockItem(ctx, tx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > item.QuantityInStock {
		return nil, &InsufficientStockError{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Action:    "sell",
			Available: item.QuantityInStock,
			Requested: req.Quantity,
		}
	}

	newQty := item.QuantityInStock - req.Quantity
	newStatus := StatusAfterDeduction(item.Status, newQty)
	if err := updateItemStockTx(ctx, tx, item.ID, newQty, newStatus); err != nil {
		return nil, err
	}

	price := item.SellingPriceSRD
	if req.PriceOverrideSRD != nil {
		price = *req.PriceOverrideSRD
	}
	qty := decimal.NewFromInt(int64(req.Quantity))
	revenue := price.Mul(qty).Round(2)
	costBasis := SaleCostBasisSRD(item.CostPerUnitUSD, s.usdToSRD, req.Quantity)
	profit := revenue.Sub(costBasis)

	movement, err := s.ledger.ApplyCashMovementTx(ctx, tx, CashMovement{
		CompanyID:   item.CompanyID,
		Currency:    CurrencySRD,
		Delta:       revenue,
		Description: fmt.Sprintf("Sale of %dx %s", req.Quantity, item.Name),
		Category:    CategorySales,
		Notes: fmt.Sprintf("Profit SRD %s (revenue %s - cost basis %s)",
			profit.StringFixed(2), revenue.StringFixed(2), costBasis.StringFixed(2)),
	})
	if err != nil {
		return nil, err
	}

	updatedItem, company, err := s.finishStockAction(ctx, tx, item.ID, item.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return &SellResult{
		Item:      updatedItem,
		Company:   company,
		Revenue:   revenue,
		Profit:    profit,
		ExpenseID: movement.ExpenseID,
	}, nil
}

func (s *stockService) Remove(ctx context.Context, req RemoveRequest) (*RemoveResult, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("remove quantity must be at least 1, got %d", req.Quantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := lockItem(ctx, tx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > item.QuantityInStock {
		return nil, &InsufficientStockError{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Action:    "remove",
			Available: item.QuantityInStock,
			Requested: req.Quantity,
		}
	}

	newQty := item.QuantityInStock - req.Quantity
	newStatus := StatusAfterDeduction(item.Status, newQty)
	if err := updateItemStockTx(ctx, tx, item.ID, newQty, newStatus); err != nil {
		return nil, err
	}

	// Policy: the cost value of written-off units is credited back to the SRD
	// balance as realized profit instead of being booked as a pure loss.
	costValue := SaleCostBasisSRD(item.CostPerUnitUSD, s.usdToSRD, req.Quantity)

	movement, err := s.ledger.ApplyCashMovementTx(ctx, tx, CashMovement{
		CompanyID:   item.CompanyID,
		Currency:    CurrencySRD,
		Delta:       costValue,
		Description: fmt.Sprintf("Stock removal: %dx %s", req.Quantity, item.Name),
		Category:    CategoryInventory,
		Notes:       req.Reason,
	})
	if err != nil {
		return nil, err
	}

	updatedItem, company, err := s.finishStockAction(ctx, tx, item.ID, item.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit removal: %w", err)
	}
	return &RemoveResult{
		Item:      updatedItem,
		Company:   company,
		CostValue: costValue,
		ExpenseID: movement.ExpenseID,
	}, nil
}

func (s *stockService) Add(ctx context.Context, req AddRequest) (*AddResult, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("add quantity must be at least 1, got %d", req.Quantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := lockItem(ctx, tx, req.ItemID)
	if err != nil {
		return nil, err
	}

	newQty := item.QuantityInStock + req.Quantity
	newStatus := StatusAfterAddition(item.Status, newQty)
	if err := updateItemStockTx(ctx, tx, item.ID, newQty, newStatus); err != nil {
		return nil, err
	}
	if err := refreshStockValuesTx(ctx, tx, item.CompanyID); err != nil {
		return nil, err
	}

	updated, err := fetchItem(ctx, tx, item.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock addition: %w", err)
	}
	return &AddResult{Item: updated}, nil
}

func (s *stockService) CreateOrMergeItem(ctx context.Context, input ItemInput) (*ItemChange, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("item name is required")
	}
	if input.QuantityInStock < 0 {
		return nil, fmt.Errorf("quantity in stock cannot be negative, got %d", input.QuantityInStock)
	}
	if input.Status == "" {
		input.Status = StatusToOrder
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Merge candidate: same name + company, already ARRIVED/SOLD, and the
	// incoming item is a fresh (re)order. Locked so the merge write cannot
	// race a concurrent sell on the same item.
	var existing *Item
	if input.Status == StatusToOrder || input.Status == StatusOrdered {
		existing, err = scanItemOrNil(tx.QueryRow(ctx,
			"SELECT "+itemColumns+` FROM items
			 WHERE company_id = $1 AND name = $2 AND status IN ($3, $4)
			 ORDER BY id LIMIT 1 FOR UPDATE`,
			input.CompanyID, input.Name, string(StatusArrived), string(StatusSold)))
		if err != nil {
			return nil, err
		}
	}

	// Ordering stock debits its full cost from the USD balance up front.
	if input.Status == StatusOrdered {
		totalCost := input.CostPerUnitUSD.Mul(decimal.NewFromInt(int64(input.QuantityInStock))).Round(2)
		if err := debitOrderCostTx(ctx, tx, input.CompanyID, totalCost); err != nil {
			return nil, err
		}
	}

	var item *Item
	merged := false
	if existing != nil && CanMergeInto(existing.Status, input.Status) {
		mergedItem := MergeItem(*existing, input)
		item, err = updateItemTx(ctx, tx, mergedItem)
		if err != nil {
			return nil, err
		}
		merged = true
	} else {
		item, err = insertItemTx(ctx, tx, input)
		if err != nil {
			return nil, err
		}
		if item.UseBatchSystem {
			if _, err := syncItemQuantityTx(ctx, tx, item.ID); err != nil {
				return nil, err
			}
			item, err = fetchItem(ctx, tx, item.ID)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := refreshStockValuesTx(ctx, tx, input.CompanyID); err != nil {
		return nil, err
	}
	company, err := fetchCompany(ctx, tx, input.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit item creation: %w", err)
	}
	return &ItemChange{Item: item, Company: company, Merged: merged}, nil
}

func (s *stockService) GetItem(ctx context.Context, id int) (*Item, error) {
	return fetchItem(ctx, s.pool, id)
}

func (s *stockService) ListItems(ctx context.Context, companyID int) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+itemColumns+" FROM items WHERE company_id = $1 ORDER BY name, id", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CompanyID, &it.LocationID, &it.Name, &it.Status,
			&it.QuantityInStock, &it.CostPerUnitUSD, &it.FreightCostUSD, &it.SellingPriceSRD,
			&it.UseBatchSystem, &it.Supplier, &it.Assignee, &it.OrderDate, &it.ArrivalDate,
			&it.Notes, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

// finishStockAction refreshes the company's stock-value rollups and reloads
// the item and company rows within the transaction.
func (s *stockService) finishStockAction(ctx context.Context, tx pgx.Tx, itemID, companyID int) (*Item, *Company, error) {
	if err := refreshStockValuesTx(ctx, tx, companyID); err != nil {
		return nil, nil, err
	}
	item, err := fetchItem(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	company, err := fetchCompany(ctx, tx, companyID)
	if err != nil {
		return nil, nil, err
	}
	return item, company, nil
}

func updateItemStockTx(ctx context.Context, tx pgx.Tx, itemID, newQty int, newStatus ItemStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE items SET quantity_in_stock = $1, status = $2, updated_at = now()
		WHERE id = $3
	`, newQty, string(newStatus), itemID)
	if err != nil {
		return fmt.Errorf("failed to update item %d stock: %w", itemID, err)
	}
	return nil
}

// debitOrderCostTx takes the order cost straight off the USD balance. Unlike
// sell/remove this writes no expense row: order cost is a direct balance
// mutation, not a ledger narrative.
func debitOrderCostTx(ctx context.Context, tx pgx.Tx, companyID int, totalCost decimal.Decimal) error {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT cash_balance_usd FROM companies WHERE id = $1 FOR UPDATE", companyID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCompanyNotFound
		}
		return fmt.Errorf("failed to lock company %d: %w", companyID, err)
	}
	if balance.LessThan(totalCost) {
		return &InsufficientFundsError{
			CompanyID: companyID,
			Currency:  CurrencyUSD,
			Required:  totalCost,
			Available: balance,
		}
	}
	_, err = tx.Exec(ctx,
		"UPDATE companies SET cash_balance_usd = cash_balance_usd - $1 WHERE id = $2",
		totalCost, companyID)
	if err != nil {
		return fmt.Errorf("failed to debit order cost: %w", err)
	}
	return nil
}

func insertItemTx(ctx context.Context, tx pgx.Tx, input ItemInput) (*Item, error) {
	item, err := scanItem(tx.QueryRow(ctx, `
		INSERT INTO items (company_id, location_id, name, status, quantity_in_stock,
			cost_per_unit_usd, freight_cost_usd, selling_price_srd, use_batch_system,
			supplier, assignee, order_date, arrival_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+itemColumns,
		input.CompanyID, input.LocationID, input.Name, string(input.Status),
		input.QuantityInStock, input.CostPerUnitUSD, input.FreightCostUSD,
		input.SellingPriceSRD, input.UseBatchSystem,
		textOrEmpty(input.Supplier), textOrEmpty(input.Assignee),
		input.OrderDate, input.ArrivalDate, textOrEmpty(input.Notes)))
	if err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}
	return item, nil
}

func updateItemTx(ctx context.Context, tx pgx.Tx, it Item) (*Item, error) {
	item, err := scanItem(tx.QueryRow(ctx, `
		UPDATE items SET location_id = $1, quantity_in_stock = $2, cost_per_unit_usd = $3,
			freight_cost_usd = $4, selling_price_srd = $5, supplier = $6, assignee = $7,
			order_date = $8, arrival_date = $9, notes = $10, updated_at = now()
		WHERE id = $11
		RETURNING `+itemColumns,
		it.LocationID, it.QuantityInStock, it.CostPerUnitUSD, it.FreightCostUSD,
		it.SellingPriceSRD, it.Supplier, it.Assignee, it.OrderDate, it.ArrivalDate,
		it.Notes, it.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", it.ID, err)
	}
	return item, nil
}

func scanItemOrNil(row pgx.Row) (*Item, error) {
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	return it, nil
}

func textOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
