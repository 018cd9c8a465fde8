package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stockdesk/internal/core"
)

func newStockService(pool *pgxpool.Pool) core.StockService {
	ledger := core.NewBalanceLedger(pool)
	return core.NewStockService(pool, ledger, decimal.RequireFromString("5.5"))
}

// seedItem inserts an item for company 1 and returns its id.
func seedItem(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string, status core.ItemStatus, qty int, costUSD, priceSRD string) int {
	t.Helper()
	var id int
	err := pool.QueryRow(ctx, `
		INSERT INTO items (company_id, name, status, quantity_in_stock, cost_per_unit_usd, selling_price_srd)
		VALUES (1, $1, $2, $3, $4, $5)
		RETURNING id
	`, name, string(status), qty, costUSD, priceSRD).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed item %s: %v", name, err)
	}
	return id
}

func TestStock_SellBooksRevenueAtomically(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 10, "10.00", "100.00")

	res, err := svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 3})
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	if res.Item.QuantityInStock != 7 {
		t.Errorf("Expected quantity 7, got %d", res.Item.QuantityInStock)
	}
	if res.Item.Status != core.StatusArrived {
		t.Errorf("Expected status ARRIVED, got %s", res.Item.Status)
	}
	if !res.Revenue.Equal(decimal.RequireFromString("300.00")) {
		t.Errorf("Expected revenue 300.00, got %s", res.Revenue)
	}
	// Profit = 300 - 3*10*5.5 = 135.
	if !res.Profit.Equal(decimal.RequireFromString("135.00")) {
		t.Errorf("Expected profit 135.00, got %s", res.Profit)
	}
	if !res.Company.CashBalanceSRD.Equal(decimal.RequireFromString("1300.00")) {
		t.Errorf("Expected SRD balance 1300.00, got %s", res.Company.CashBalanceSRD)
	}

	// The paired ledger row stores the negated delta.
	var amount decimal.Decimal
	var category string
	err = pool.QueryRow(ctx, "SELECT amount, category FROM expenses WHERE id = $1", res.ExpenseID).
		Scan(&amount, &category)
	if err != nil {
		t.Fatalf("Failed to read ledger row: %v", err)
	}
	if !amount.Equal(decimal.RequireFromString("-300.00")) {
		t.Errorf("Expected ledger amount -300.00, got %s", amount)
	}
	if category != core.CategorySales {
		t.Errorf("Expected category Sales, got %s", category)
	}

	// Stock-value rollups follow the remaining units: 7*10 USD, 7*100 SRD.
	if !res.Company.StockValueUSD.Equal(decimal.RequireFromString("70.00")) {
		t.Errorf("Expected stock value USD 70.00, got %s", res.Company.StockValueUSD)
	}
	if !res.Company.StockValueSRD.Equal(decimal.RequireFromString("700.00")) {
		t.Errorf("Expected stock value SRD 700.00, got %s", res.Company.StockValueSRD)
	}
}

func TestStock_SellAllMarksSold(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 2, "10.00", "100.00")

	res, err := svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 2})
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if res.Item.Status != core.StatusSold {
		t.Errorf("Expected status SOLD after selling out, got %s", res.Item.Status)
	}
	if res.Item.QuantityInStock != 0 {
		t.Errorf("Expected quantity 0, got %d", res.Item.QuantityInStock)
	}
}

func TestStock_SellPriceOverride(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 5, "10.00", "100.00")

	override := decimal.RequireFromString("120.00")
	res, err := svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 2, PriceOverrideSRD: &override})
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if !res.Revenue.Equal(decimal.RequireFromString("240.00")) {
		t.Errorf("Expected revenue 240.00 with override, got %s", res.Revenue)
	}
	// The stored selling price stays untouched.
	item, err := svc.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !item.SellingPriceSRD.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("Expected stored price 100.00, got %s", item.SellingPriceSRD)
	}
}

func TestStock_SellInsufficientStockLeavesStateUntouched(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 2, "10.00", "100.00")

	_, err := svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 5})
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 5 {
		t.Errorf("Expected available=2 requested=5, got %d/%d", stockErr.Available, stockErr.Requested)
	}

	item, err := svc.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.QuantityInStock != 2 {
		t.Errorf("Expected quantity unchanged at 2, got %d", item.QuantityInStock)
	}
	srd, _ := companyBalances(t, ctx, pool, 1)
	if !srd.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("Expected SRD balance unchanged at 1000.00, got %s", srd)
	}
}

// A failure between the item write and the balance write must roll back the
// whole transaction. A trigger on companies forces that failure mid-sell.
func TestStock_SellRollsBackWhenBalanceWriteFails(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 10, "10.00", "100.00")

	_, err := pool.Exec(ctx, `
		CREATE OR REPLACE FUNCTION companies_write_blocker() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'companies writes disabled';
		END;
		$$ LANGUAGE plpgsql;
		CREATE TRIGGER block_companies_update
			BEFORE UPDATE ON companies
			FOR EACH ROW EXECUTE FUNCTION companies_write_blocker();
	`)
	if err != nil {
		t.Fatalf("Failed to install blocking trigger: %v", err)
	}
	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), `
			DROP TRIGGER IF EXISTS block_companies_update ON companies;
			DROP FUNCTION IF EXISTS companies_write_blocker();
		`)
		if err != nil {
			t.Fatalf("Failed to remove blocking trigger: %v", err)
		}
	})

	_, err = svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 3})
	if err == nil {
		t.Fatal("Expected Sell to fail while companies writes are blocked")
	}

	// The item update committed nothing even though it ran before the failure.
	item, err := svc.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.QuantityInStock != 10 {
		t.Errorf("Expected quantity unchanged at 10, got %d", item.QuantityInStock)
	}
	if item.Status != core.StatusArrived {
		t.Errorf("Expected status unchanged at ARRIVED, got %s", item.Status)
	}

	srd, _ := companyBalances(t, ctx, pool, 1)
	if !srd.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("Expected SRD balance unchanged at 1000.00, got %s", srd)
	}

	var ledgerRows int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses").Scan(&ledgerRows); err != nil {
		t.Fatalf("Failed to count ledger rows: %v", err)
	}
	if ledgerRows != 0 {
		t.Errorf("Expected no ledger rows after rollback, got %d", ledgerRows)
	}
}

func TestStock_RemoveCreditsCostValue(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 10, "10.00", "100.00")

	res, err := svc.Remove(ctx, core.RemoveRequest{ItemID: itemID, Quantity: 2, Reason: "damaged in transit"})
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// 2 units * 10 USD * 5.5 = SRD 110 credited back.
	if !res.CostValue.Equal(decimal.RequireFromString("110.00")) {
		t.Errorf("Expected cost value 110.00, got %s", res.CostValue)
	}
	if !res.Company.CashBalanceSRD.Equal(decimal.RequireFromString("1110.00")) {
		t.Errorf("Expected SRD balance 1110.00, got %s", res.Company.CashBalanceSRD)
	}
	if res.Item.QuantityInStock != 8 {
		t.Errorf("Expected quantity 8, got %d", res.Item.QuantityInStock)
	}

	var amount decimal.Decimal
	var notes string
	err = pool.QueryRow(ctx, "SELECT amount, notes FROM expenses WHERE id = $1", res.ExpenseID).
		Scan(&amount, &notes)
	if err != nil {
		t.Fatalf("Failed to read ledger row: %v", err)
	}
	if !amount.Equal(decimal.RequireFromString("-110.00")) {
		t.Errorf("Expected ledger amount -110.00, got %s", amount)
	}
	if notes != "damaged in transit" {
		t.Errorf("Expected reason in notes, got %q", notes)
	}
}

func TestStock_AddRevivesSoldItem(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusSold, 0, "10.00", "100.00")

	res, err := svc.Add(ctx, core.AddRequest{ItemID: itemID, Quantity: 4, Reason: "recount"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if res.Item.QuantityInStock != 4 {
		t.Errorf("Expected quantity 4, got %d", res.Item.QuantityInStock)
	}
	if res.Item.Status != core.StatusArrived {
		t.Errorf("Expected status ARRIVED after restock, got %s", res.Item.Status)
	}

	// Add is a pure correction: no cash movement, no ledger row.
	srd, _ := companyBalances(t, ctx, pool, 1)
	if !srd.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("Expected SRD balance unchanged at 1000.00, got %s", srd)
	}
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM expenses").Scan(&count); err != nil {
		t.Fatalf("Failed to count expenses: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no ledger rows after add, got %d", count)
	}
}

func TestStock_ConservationAcrossActions(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Widget", core.StatusArrived, 5, "10.00", "100.00")

	// 5 - 1(sell) - 4(sell) + 3(add) - 2(remove) = 1; selling down to zero
	// flips the status to SOLD, the add flips it back.
	if _, err := svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 1}); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	res, err := svc.Sell(ctx, core.SellRequest{ItemID: itemID, Quantity: 4})
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if res.Item.Status != core.StatusSold {
		t.Errorf("Expected status SOLD at zero, got %s", res.Item.Status)
	}
	added, err := svc.Add(ctx, core.AddRequest{ItemID: itemID, Quantity: 3})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added.Item.Status != core.StatusArrived {
		t.Errorf("Expected status ARRIVED after restock, got %s", added.Item.Status)
	}
	removed, err := svc.Remove(ctx, core.RemoveRequest{ItemID: itemID, Quantity: 2})
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed.Item.QuantityInStock != 1 {
		t.Errorf("Expected final quantity 1, got %d", removed.Item.QuantityInStock)
	}

	// Balance moved only by the booked revenue/credits:
	// 1000 + 100 + 400 + 2*10*5.5 = 1610.
	srd, _ := companyBalances(t, ctx, pool, 1)
	if !srd.Equal(decimal.RequireFromString("1610.00")) {
		t.Errorf("Expected SRD balance 1610.00, got %s", srd)
	}
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM expenses").Scan(&count); err != nil {
		t.Fatalf("Failed to count expenses: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected exactly one ledger row per cash-affecting action (3), got %d", count)
	}
}

func TestStock_ActionOnUnknownItem(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)

	_, err := svc.Sell(ctx, core.SellRequest{ItemID: 424242, Quantity: 1})
	if !errors.Is(err, core.ErrItemNotFound) {
		t.Fatalf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestStock_CreateItem(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)

	res, err := svc.CreateOrMergeItem(ctx, core.ItemInput{
		CompanyID:       1,
		Name:            "Monitor",
		Status:          core.StatusToOrder,
		QuantityInStock: 4,
		CostPerUnitUSD:  decimal.RequireFromString("50.00"),
		SellingPriceSRD: decimal.RequireFromString("400.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrMergeItem failed: %v", err)
	}
	if res.Merged {
		t.Errorf("Expected a fresh item, got a merge")
	}
	if res.Item.Status != core.StatusToOrder {
		t.Errorf("Expected status TO_ORDER, got %s", res.Item.Status)
	}
	// Stock rollups include the new item immediately.
	if !res.Company.StockValueUSD.Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("Expected stock value USD 200.00, got %s", res.Company.StockValueUSD)
	}
}

func TestStock_CreateMergesIntoArrivedItem(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	itemID := seedItem(t, ctx, pool, "Monitor", core.StatusArrived, 10, "2.00", "40.00")

	res, err := svc.CreateOrMergeItem(ctx, core.ItemInput{
		CompanyID:       1,
		Name:            "Monitor",
		Status:          core.StatusToOrder,
		QuantityInStock: 5,
		CostPerUnitUSD:  decimal.RequireFromString("4.00"),
		SellingPriceSRD: decimal.RequireFromString("45.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrMergeItem failed: %v", err)
	}
	if !res.Merged {
		t.Fatalf("Expected a merge into the existing item")
	}
	if res.Item.ID != itemID {
		t.Errorf("Expected merge into item %d, got %d", itemID, res.Item.ID)
	}
	if res.Item.QuantityInStock != 15 {
		t.Errorf("Expected merged quantity 15, got %d", res.Item.QuantityInStock)
	}
	// Weighted average: (10*2 + 5*4) / 15 = 2.67.
	if !res.Item.CostPerUnitUSD.Equal(decimal.RequireFromString("2.67")) {
		t.Errorf("Expected weighted cost 2.67, got %s", res.Item.CostPerUnitUSD)
	}
	if res.Item.Status != core.StatusArrived {
		t.Errorf("Expected merged item to keep status ARRIVED, got %s", res.Item.Status)
	}
}

func TestStock_CreateDoesNotMergeSameStatus(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)
	seedItem(t, ctx, pool, "Monitor", core.StatusToOrder, 4, "2.00", "40.00")

	res, err := svc.CreateOrMergeItem(ctx, core.ItemInput{
		CompanyID:       1,
		Name:            "Monitor",
		Status:          core.StatusToOrder,
		QuantityInStock: 2,
		CostPerUnitUSD:  decimal.RequireFromString("2.00"),
		SellingPriceSRD: decimal.RequireFromString("40.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrMergeItem failed: %v", err)
	}
	if res.Merged {
		t.Errorf("Expected a second row, not a merge, for two TO_ORDER items")
	}
}

func TestStock_OrderedCreateDebitsUSDBalance(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)

	res, err := svc.CreateOrMergeItem(ctx, core.ItemInput{
		CompanyID:       1,
		Name:            "Keyboard",
		Status:          core.StatusOrdered,
		QuantityInStock: 4,
		CostPerUnitUSD:  decimal.RequireFromString("100.00"),
		SellingPriceSRD: decimal.RequireFromString("900.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrMergeItem failed: %v", err)
	}
	// 4 * 100 = 400 debited from the 500 USD balance.
	if !res.Company.CashBalanceUSD.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("Expected USD balance 100.00, got %s", res.Company.CashBalanceUSD)
	}

	// An order debit is a direct balance mutation with no ledger row.
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM expenses").Scan(&count); err != nil {
		t.Fatalf("Failed to count expenses: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no ledger rows for an order debit, got %d", count)
	}
}

func TestStock_OrderedCreateRollsBackOnInsufficientFunds(t *testing.T) {
	pool, ctx := setupTestDB(t)
	svc := newStockService(pool)

	_, err := svc.CreateOrMergeItem(ctx, core.ItemInput{
		CompanyID:       1,
		Name:            "Server rack",
		Status:          core.StatusOrdered,
		QuantityInStock: 10,
		CostPerUnitUSD:  decimal.RequireFromString("100.00"),
		SellingPriceSRD: decimal.RequireFromString("9000.00"),
	})
	var fundsErr *core.InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("Expected InsufficientFundsError, got %v", err)
	}
	if !fundsErr.Required.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("Expected required 1000.00, got %s", fundsErr.Required)
	}

	// The whole transaction rolls back: no item row, no balance change.
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM items WHERE name = 'Server rack'").Scan(&count); err != nil {
		t.Fatalf("Failed to count items: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no item row after rejected order, got %d", count)
	}
	_, usd := companyBalances(t, ctx, pool, 1)
	if !usd.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("Expected USD balance unchanged at 500.00, got %s", usd)
	}
}
