package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BatchInput carries the fields for creating or updating a stock batch.
type BatchInput struct {
	LocationID     *int
	Quantity       int
	Status         ItemStatus
	CostPerUnitUSD decimal.Decimal
	FreightCostUSD decimal.Decimal
	OrderDate      *time.Time
	ArrivalDate    *time.Time
	Notes          string
}

// BatchService keeps a batch-tracked item's quantity equal to the sum of its
// batch quantities. Every batch mutation locks the owning item row first and
// re-syncs the aggregate inside the same transaction, so batch writes cannot
// interleave with stock actions on the same item.
type BatchService interface {
	ListBatches(ctx context.Context, itemID int) ([]StockBatch, error)
	CreateBatch(ctx context.Context, itemID int, input BatchInput) (*StockBatch, error)
	UpdateBatch(ctx context.Context, batchID int, input BatchInput) (*StockBatch, error)
	DeleteBatch(ctx context.Context, batchID int) error

	// SyncItemQuantityFromBatches recomputes the batch quantity sum and
	// writes it to the item. Idempotent; returns the converged quantity.
	SyncItemQuantityFromBatches(ctx context.Context, itemID int) (int, error)

	// AggregateBatchData computes the per-item display projection (batch
	// count, distinct locations, distinct statuses) for the given items.
	// Read-only, nothing is persisted.
	AggregateBatchData(ctx context.Context, itemIDs []int) (map[int]BatchSummary, error)

	// ValidateItemBatchConsistency sweeps every batch-tracked item and
	// compares its stored quantity against its batches' sum. Diagnostic
	// utility, not on the hot path.
	ValidateItemBatchConsistency(ctx context.Context) (*ConsistencyReport, error)
}

type batchService struct {
	pool *pgxpool.Pool
}

func NewBatchService(pool *pgxpool.Pool) BatchService {
	return &batchService{pool: pool}
}

const batchColumns = `id, item_id, location_id, quantity, status,
	cost_per_unit_usd, freight_cost_usd, order_date, arrival_date, notes, created_at`

func scanBatch(row pgx.Row) (*StockBatch, error) {
	var b StockBatch
	err := row.Scan(&b.ID, &b.ItemID, &b.LocationID, &b.Quantity, &b.Status,
		&b.CostPerUnitUSD, &b.FreightCostUSD, &b.OrderDate, &b.ArrivalDate,
		&b.Notes, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *batchService) ListBatches(ctx context.Context, itemID int) ([]StockBatch, error) {
	if _, err := fetchItem(ctx, s.pool, itemID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+batchColumns+" FROM stock_batches WHERE item_id = $1 ORDER BY id", itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []StockBatch
	for rows.Next() {
		var b StockBatch
		if err := rows.Scan(&b.ID, &b.ItemID, &b.LocationID, &b.Quantity, &b.Status,
			&b.CostPerUnitUSD, &b.FreightCostUSD, &b.OrderDate, &b.ArrivalDate,
			&b.Notes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *batchService) CreateBatch(ctx context.Context, itemID int, input BatchInput) (*StockBatch, error) {
	if input.Quantity < 0 {
		return nil, fmt.Errorf("batch quantity cannot be negative, got %d", input.Quantity)
	}
	if input.Status == "" {
		input.Status = StatusOrdered
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	batch, err := scanBatch(tx.QueryRow(ctx, `
		INSERT INTO stock_batches (item_id, location_id, quantity, status,
			cost_per_unit_usd, freight_cost_usd, order_date, arrival_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+batchColumns,
		itemID, input.LocationID, input.Quantity, string(input.Status),
		input.CostPerUnitUSD, input.FreightCostUSD, input.OrderDate,
		input.ArrivalDate, input.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	if err := s.resyncAfterBatchChange(ctx, tx, item); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit batch creation: %w", err)
	}
	return batch, nil
}

func (s *batchService) UpdateBatch(ctx context.Context, batchID int, input BatchInput) (*StockBatch, error) {
	if input.Quantity < 0 {
		return nil, fmt.Errorf("batch quantity cannot be negative, got %d", input.Quantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := s.lockItemForBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}

	batch, err := scanBatch(tx.QueryRow(ctx, `
		UPDATE stock_batches SET location_id = $1, quantity = $2, status = $3,
			cost_per_unit_usd = $4, freight_cost_usd = $5, order_date = $6,
			arrival_date = $7, notes = $8
		WHERE id = $9
		RETURNING `+batchColumns,
		input.LocationID, input.Quantity, string(input.Status),
		input.CostPerUnitUSD, input.FreightCostUSD, input.OrderDate,
		input.ArrivalDate, input.Notes, batchID))
	if err != nil {
		return nil, fmt.Errorf("failed to update batch %d: %w", batchID, err)
	}

	if err := s.resyncAfterBatchChange(ctx, tx, item); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit batch update: %w", err)
	}
	return batch, nil
}

func (s *batchService) DeleteBatch(ctx context.Context, batchID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := s.lockItemForBatch(ctx, tx, batchID)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, "DELETE FROM stock_batches WHERE id = $1", batchID)
	if err != nil {
		return fmt.Errorf("failed to delete batch %d: %w", batchID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}

	if err := s.resyncAfterBatchChange(ctx, tx, item); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch deletion: %w", err)
	}
	return nil
}

func (s *batchService) SyncItemQuantityFromBatches(ctx context.Context, itemID int) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}

	qty, err := syncItemQuantityTx(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	if err := refreshStockValuesTx(ctx, tx, item.CompanyID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit quantity sync: %w", err)
	}
	return qty, nil
}

func (s *batchService) AggregateBatchData(ctx context.Context, itemIDs []int) (map[int]BatchSummary, error) {
	summaries := make(map[int]BatchSummary, len(itemIDs))
	if len(itemIDs) == 0 {
		return summaries, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT b.item_id, b.status, COALESCE(l.name, '')
		FROM stock_batches b
		LEFT JOIN locations l ON l.id = b.location_id
		WHERE b.item_id = ANY($1)
	`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch aggregates: %w", err)
	}
	defer rows.Close()

	type itemAgg struct {
		count     int
		locations map[string]struct{}
		statuses  map[string]struct{}
	}
	aggs := make(map[int]*itemAgg)

	for rows.Next() {
		var itemID int
		var status, location string
		if err := rows.Scan(&itemID, &status, &location); err != nil {
			return nil, fmt.Errorf("failed to scan batch aggregate row: %w", err)
		}
		agg := aggs[itemID]
		if agg == nil {
			agg = &itemAgg{locations: map[string]struct{}{}, statuses: map[string]struct{}{}}
			aggs[itemID] = agg
		}
		agg.count++
		if location != "" {
			agg.locations[location] = struct{}{}
		}
		agg.statuses[status] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch aggregates: %w", err)
	}

	for itemID, agg := range aggs {
		summaries[itemID] = BatchSummary{
			BatchCount:           agg.count,
			LocationCount:        len(agg.locations),
			Locations:            sortedKeys(agg.locations),
			Statuses:             sortedKeys(agg.statuses),
			HasMultipleLocations: len(agg.locations) > 1,
			HasMultipleStatuses:  len(agg.statuses) > 1,
		}
	}
	return summaries, nil
}

func (s *batchService) ValidateItemBatchConsistency(ctx context.Context) (*ConsistencyReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.name, i.quantity_in_stock, COALESCE(SUM(b.quantity), 0)
		FROM items i
		LEFT JOIN stock_batches b ON b.item_id = i.id
		WHERE i.use_batch_system = true
		GROUP BY i.id, i.name, i.quantity_in_stock
		ORDER BY i.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch consistency: %w", err)
	}
	defer rows.Close()

	report := &ConsistencyReport{CheckedAt: time.Now()}
	for rows.Next() {
		var id, itemQty, batchTotal int
		var name string
		if err := rows.Scan(&id, &name, &itemQty, &batchTotal); err != nil {
			return nil, fmt.Errorf("failed to scan consistency row: %w", err)
		}
		if itemQty == batchTotal {
			report.Consistent++
			continue
		}
		report.Inconsistent++
		report.Mismatches = append(report.Mismatches, BatchMismatch{
			ItemID:       id,
			ItemName:     name,
			ItemQuantity: itemQty,
			BatchTotal:   batchTotal,
			Description: fmt.Sprintf("item %q (id %d) stores quantity %d but its batches sum to %d",
				name, id, itemQty, batchTotal),
		})
	}
	return report, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

// lockItemForBatch resolves a batch's owning item and locks it.
func (s *batchService) lockItemForBatch(ctx context.Context, tx pgx.Tx, batchID int) (*Item, error) {
	var itemID int
	err := tx.QueryRow(ctx, "SELECT item_id FROM stock_batches WHERE id = $1", batchID).Scan(&itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to resolve batch %d: %w", batchID, err)
	}
	return lockItem(ctx, tx, itemID)
}

// resyncAfterBatchChange reconciles the owning item after a structural batch
// change, but only for batch-tracked items; directly-managed items keep
// their stored quantity.
func (s *batchService) resyncAfterBatchChange(ctx context.Context, tx pgx.Tx, item *Item) error {
	if !item.UseBatchSystem {
		return nil
	}
	if _, err := syncItemQuantityTx(ctx, tx, item.ID); err != nil {
		return err
	}
	return refreshStockValuesTx(ctx, tx, item.CompanyID)
}

// syncItemQuantityTx converges the item's stored quantity onto the sum of its
// batch quantities. The caller must already hold the item row lock.
func syncItemQuantityTx(ctx context.Context, tx pgx.Tx, itemID int) (int, error) {
	var total int
	err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM stock_batches WHERE item_id = $1", itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum batches for item %d: %w", itemID, err)
	}
	_, err = tx.Exec(ctx,
		"UPDATE items SET quantity_in_stock = $1, updated_at = now() WHERE id = $2",
		total, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to sync item %d quantity: %w", itemID, err)
	}
	return total, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
