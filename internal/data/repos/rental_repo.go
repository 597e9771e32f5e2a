package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// RentalRepo reads the registered rental_contracts table.
type RentalRepo struct {
	pool *pgxpool.Pool
}

// NewRentalRepo creates a rental contract repository.
func NewRentalRepo(pool *pgxpool.Pool) *RentalRepo {
	return &RentalRepo{pool: pool}
}

// InWindow returns contracts with from <= date < to.
func (r *RentalRepo) InWindow(ctx context.Context, orgID string, from, to time.Time) ([]contracts.RentalContract, error) {
	query := `
		SELECT id, org_id, source, area, property_type, bedrooms, annual_rent, date
		FROM rental_contracts
		WHERE org_id = $1 AND date >= $2 AND date < $3
		ORDER BY date`

	rows, err := r.pool.Query(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query rental contracts in window: %w", err)
	}
	defer rows.Close()

	var out []contracts.RentalContract
	for rows.Next() {
		var rc contracts.RentalContract
		if err := rows.Scan(
			&rc.ID, &rc.OrgID, &rc.Source, &rc.Area, &rc.PropertyType,
			&rc.Bedrooms, &rc.AnnualRent, &rc.Date,
		); err != nil {
			return nil, fmt.Errorf("scan rental contract row: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
