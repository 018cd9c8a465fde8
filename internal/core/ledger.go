package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ledger expense categories written by inventory actions.
const (
	CategorySales     = "Sales"
	CategoryInventory = "Inventory"
)

// CashMovement describes one cash-balance mutation plus its narrative ledger row.
// Delta is positive for a credit (revenue) and negative for a debit (cost).
type CashMovement struct {
	CompanyID   int
	Currency    Currency
	Delta       decimal.Decimal
	Description string
	Category    string
	Notes       string
}

// CashMovementResult reports the balance after the movement and the id of the
// ledger row recording it.
type CashMovementResult struct {
	NewBalance decimal.Decimal
	ExpenseID  int
}

// BalanceLedger atomically moves money on a company's cash balance and appends
// the matching expense row. The stored expense amount is the negative of the
// movement delta: ledger-positive means outflow, ledger-negative means income.
type BalanceLedger struct {
	pool *pgxpool.Pool
}

func NewBalanceLedger(pool *pgxpool.Pool) *BalanceLedger {
	return &BalanceLedger{pool: pool}
}

// ApplyCashMovement runs the movement in its own transaction.
func (l *BalanceLedger) ApplyCashMovement(ctx context.Context, m CashMovement) (*CashMovementResult, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := l.ApplyCashMovementTx(ctx, tx, m)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cash movement: %w", err)
	}
	return res, nil
}

// ApplyCashMovementTx applies the movement within the caller's transaction,
// so stock mutations and their ledger rows commit atomically. The company row
// is locked for the remainder of the transaction.
func (l *BalanceLedger) ApplyCashMovementTx(ctx context.Context, tx pgx.Tx, m CashMovement) (*CashMovementResult, error) {
	col, err := balanceColumn(m.Currency)
	if err != nil {
		return nil, err
	}

	var oldBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM companies WHERE id = $1 FOR UPDATE", col),
		m.CompanyID,
	).Scan(&oldBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to lock company %d: %w", m.CompanyID, err)
	}

	newBalance := oldBalance.Add(m.Delta)
	if m.Delta.IsNegative() && newBalance.IsNegative() {
		return nil, &InsufficientFundsError{
			CompanyID: m.CompanyID,
			Currency:  m.Currency,
			Required:  m.Delta.Neg(),
			Available: oldBalance,
		}
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf("UPDATE companies SET %s = $1 WHERE id = $2", col),
		newBalance, m.CompanyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update company balance: %w", err)
	}

	var expenseID int
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (company_id, description, amount, currency, category, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.CompanyID, m.Description, m.Delta.Neg(), string(m.Currency), m.Category, m.Notes).Scan(&expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return &CashMovementResult{NewBalance: newBalance, ExpenseID: expenseID}, nil
}

// ListExpenses returns a company's ledger rows, newest first. category is an
// optional filter; empty means all categories.
func (l *BalanceLedger) ListExpenses(ctx context.Context, companyID int, category string) ([]Expense, error) {
	query := `
		SELECT id, company_id, description, amount, currency, category, notes, created_at
		FROM expenses
		WHERE company_id = $1`
	args := []any{companyID}
	if category != "" {
		query += " AND category = $2"
		args = append(args, category)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Description, &e.Amount,
			&e.Currency, &e.Category, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// GetExpense fetches one ledger row by id.
func (l *BalanceLedger) GetExpense(ctx context.Context, id int) (*Expense, error) {
	var e Expense
	err := l.pool.QueryRow(ctx, `
		SELECT id, company_id, description, amount, currency, category, notes, created_at
		FROM expenses WHERE id = $1
	`, id).Scan(&e.ID, &e.CompanyID, &e.Description, &e.Amount, &e.Currency, &e.Category, &e.Notes, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch expense %d: %w", id, err)
	}
	return &e, nil
}

func balanceColumn(c Currency) (string, error) {
	switch c {
	case CurrencySRD:
		return "cash_balance_srd", nil
	case CurrencyUSD:
		return "cash_balance_usd", nil
	default:
		return "", fmt.Errorf("unsupported currency %q", c)
	}
}
