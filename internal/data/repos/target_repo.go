package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// TargetRepo persists signal-investor mappings keyed by
// (org_id, signal_id, investor_id).
type TargetRepo struct {
	pool *pgxpool.Pool
}

// NewTargetRepo creates a target repository.
func NewTargetRepo(pool *pgxpool.Pool) *TargetRepo {
	return &TargetRepo{pool: pool}
}

// UpsertTargets writes targets update-on-conflict and returns how many rows
// were newly created. Status is preserved on conflict so re-mapping never
// resurrects a published target.
func (r *TargetRepo) UpsertTargets(ctx context.Context, targets []contracts.SignalTarget) (int, error) {
	if len(targets) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO signal_targets (
			org_id, signal_id, investor_id, relevance_score, reason, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_id, signal_id, investor_id)
		DO UPDATE SET
			relevance_score = EXCLUDED.relevance_score,
			reason = EXCLUDED.reason
		RETURNING (xmax = 0) AS inserted`

	batch := &pgx.Batch{}
	for _, t := range targets {
		batch.Queue(query,
			t.OrgID, t.SignalID, t.InvestorID, t.RelevanceScore, t.Reason,
			t.Status, t.CreatedAt,
		)
	}

	return countInserted(ctx, r.pool, batch)
}

// ListNew returns targets not yet published as notifications.
func (r *TargetRepo) ListNew(ctx context.Context, orgID string) ([]contracts.SignalTarget, error) {
	query := `
		SELECT id, org_id, signal_id, investor_id, relevance_score, reason, status, created_at
		FROM signal_targets
		WHERE org_id = $1 AND status = $2
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, orgID, contracts.TargetStatusNew)
	if err != nil {
		return nil, fmt.Errorf("query new targets: %w", err)
	}
	defer rows.Close()

	var out []contracts.SignalTarget
	for rows.Next() {
		var t contracts.SignalTarget
		if err := rows.Scan(
			&t.ID, &t.OrgID, &t.SignalID, &t.InvestorID, &t.RelevanceScore,
			&t.Reason, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan target row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkPublished flips targets out of the new state.
func (r *TargetRepo) MarkPublished(ctx context.Context, orgID string, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE signal_targets SET status = 'published', published_at = now()
		 WHERE org_id = $1 AND id = ANY($2)`,
		orgID, targetIDs,
	)
	if err != nil {
		return fmt.Errorf("mark targets published: %w", err)
	}
	return nil
}
