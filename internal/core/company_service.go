package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyService manages tenant records and their cached stock-value rollups.
type CompanyService interface {
	CreateCompany(ctx context.Context, name string) (*Company, error)
	GetCompany(ctx context.Context, id int) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	// RecalculateStockValues rewrites both stock-value rollups from the
	// company's current items. Safe to call any number of times.
	RecalculateStockValues(ctx context.Context, companyID int) (*Company, error)

	CreateLocation(ctx context.Context, companyID int, name, description string) (*Location, error)
	ListLocations(ctx context.Context, companyID int) ([]Location, error)
}

type companyService struct {
	pool *pgxpool.Pool
}

func NewCompanyService(pool *pgxpool.Pool) CompanyService {
	return &companyService{pool: pool}
}

const companyColumns = `id, name, cash_balance_srd, cash_balance_usd,
	stock_value_srd, stock_value_usd, created_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.CashBalanceSRD, &c.CashBalanceUSD,
		&c.StockValueSRD, &c.StockValueUSD, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func fetchCompany(ctx context.Context, q pgxQuerier, id int) (*Company, error) {
	c, err := scanCompany(q.QueryRow(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to fetch company %d: %w", id, err)
	}
	return c, nil
}

func (s *companyService) CreateCompany(ctx context.Context, name string) (*Company, error) {
	if name == "" {
		return nil, fmt.Errorf("company name is required")
	}
	c, err := scanCompany(s.pool.QueryRow(ctx,
		"INSERT INTO companies (name) VALUES ($1) RETURNING "+companyColumns, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return c, nil
}

func (s *companyService) GetCompany(ctx context.Context, id int) (*Company, error) {
	return fetchCompany(ctx, s.pool, id)
}

func (s *companyService) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+companyColumns+" FROM companies ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CashBalanceSRD, &c.CashBalanceUSD,
			&c.StockValueSRD, &c.StockValueUSD, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *companyService) RecalculateStockValues(ctx context.Context, companyID int) (*Company, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := refreshStockValuesTx(ctx, tx, companyID); err != nil {
		return nil, err
	}
	company, err := fetchCompany(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock value refresh: %w", err)
	}
	return company, nil
}

func (s *companyService) CreateLocation(ctx context.Context, companyID int, name, description string) (*Location, error) {
	if name == "" {
		return nil, fmt.Errorf("location name is required")
	}
	var loc Location
	err := s.pool.QueryRow(ctx, `
		INSERT INTO locations (company_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, company_id, name, description, created_at
	`, companyID, name, description).Scan(&loc.ID, &loc.CompanyID, &loc.Name, &loc.Description, &loc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return &loc, nil
}

func (s *companyService) ListLocations(ctx context.Context, companyID int) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, description, created_at
		FROM locations WHERE company_id = $1 ORDER BY name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.CompanyID, &loc.Name, &loc.Description, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// refreshStockValuesTx rewrites a company's cached stock-value rollups from
// its items: USD side at cost basis, SRD side at retail value.
func refreshStockValuesTx(ctx context.Context, tx pgx.Tx, companyID int) error {
	_, err := tx.Exec(ctx, `
		UPDATE companies SET
			stock_value_usd = COALESCE((
				SELECT SUM(cost_per_unit_usd * quantity_in_stock)
				FROM items WHERE company_id = $1), 0),
			stock_value_srd = COALESCE((
				SELECT SUM(selling_price_srd * quantity_in_stock)
				FROM items WHERE company_id = $1), 0)
		WHERE id = $1
	`, companyID)
	if err != nil {
		return fmt.Errorf("failed to refresh stock values for company %d: %w", companyID, err)
	}
	return nil
}
