package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// TransactionRepo reads the official sale_transactions table.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

// NewTransactionRepo creates a transaction repository.
func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, org_id, source, external_id, area, property_type,
	bedrooms, size_sqm, building_name, price, date`

// ByArea returns transactions in one area on or after the given date.
func (r *TransactionRepo) ByArea(ctx context.Context, orgID, area string, since time.Time) ([]contracts.SaleTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM sale_transactions
		WHERE org_id = $1 AND area = $2 AND date >= $3
		ORDER BY date DESC`

	rows, err := r.pool.Query(ctx, query, orgID, area, since)
	if err != nil {
		return nil, fmt.Errorf("query transactions by area: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// InWindow returns transactions with from <= date < to.
func (r *TransactionRepo) InWindow(ctx context.Context, orgID string, from, to time.Time) ([]contracts.SaleTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM sale_transactions
		WHERE org_id = $1 AND date >= $2 AND date < $3
		ORDER BY date`

	rows, err := r.pool.Query(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query transactions in window: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]contracts.SaleTransaction, error) {
	var out []contracts.SaleTransaction
	for rows.Next() {
		var tx contracts.SaleTransaction
		if err := rows.Scan(
			&tx.ID, &tx.OrgID, &tx.Source, &tx.ExternalID, &tx.Area,
			&tx.PropertyType, &tx.Bedrooms, &tx.SizeSqm, &tx.BuildingName,
			&tx.Price, &tx.Date,
		); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
