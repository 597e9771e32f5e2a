package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OrgRepo lists tenants eligible for scheduled pipeline runs.
type OrgRepo struct {
	pool *pgxpool.Pool
}

// NewOrgRepo creates an org repository.
func NewOrgRepo(pool *pgxpool.Pool) *OrgRepo {
	return &OrgRepo{pool: pool}
}

// ListActiveOrgs returns the IDs of all active tenants.
func (r *OrgRepo) ListActiveOrgs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM orgs WHERE active ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active orgs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan org row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
