package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// InvestorRepo reads investors and their recipient assignments.
type InvestorRepo struct {
	pool *pgxpool.Pool
}

// NewInvestorRepo creates an investor repository.
func NewInvestorRepo(pool *pgxpool.Pool) *InvestorRepo {
	return &InvestorRepo{pool: pool}
}

// WithMandates returns investors that have a mandate configured. Investors
// without one never participate in mapping.
func (r *InvestorRepo) WithMandates(ctx context.Context, orgID string) ([]contracts.Investor, error) {
	query := `
		SELECT id, org_id, name, mandate
		FROM investors
		WHERE org_id = $1 AND mandate IS NOT NULL
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("query investors with mandates: %w", err)
	}
	defer rows.Close()

	var out []contracts.Investor
	for rows.Next() {
		var inv contracts.Investor
		if err := rows.Scan(&inv.ID, &inv.OrgID, &inv.Name, &inv.Mandate); err != nil {
			return nil, fmt.Errorf("scan investor row: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RecipientsForInvestor resolves the user IDs responsible for an investor.
func (r *InvestorRepo) RecipientsForInvestor(ctx context.Context, orgID, investorID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM investor_recipients
		WHERE org_id = $1 AND investor_id = $2
		ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query, orgID, investorID)
	if err != nil {
		return nil, fmt.Errorf("query investor recipients: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan recipient row: %w", err)
		}
		out = append(out, userID)
	}
	return out, rows.Err()
}
