package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// SignalRepo persists detected signals keyed by (org_id, signal_key).
// Upserts refresh measurement fields only; status and acknowledgement are
// operator-owned and never touched by detection.
type SignalRepo struct {
	pool *pgxpool.Pool
}

// NewSignalRepo creates a signal repository.
func NewSignalRepo(pool *pgxpool.Pool) *SignalRepo {
	return &SignalRepo{pool: pool}
}

const signalColumns = `id, org_id, signal_key, type, source_type, source, geo_type,
	geo_id, segment, timeframe, metric, current_value, prev_value, delta_pct,
	confidence_score, severity, status, evidence, detected_at`

// UpsertSignals writes signals update-on-conflict and returns how many rows
// were newly created.
func (r *SignalRepo) UpsertSignals(ctx context.Context, signals []contracts.Signal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO signals (
			org_id, signal_key, type, source_type, source, geo_type, geo_id,
			segment, timeframe, metric, current_value, prev_value, delta_pct,
			confidence_score, severity, status, evidence, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (org_id, signal_key)
		DO UPDATE SET
			current_value = EXCLUDED.current_value,
			prev_value = EXCLUDED.prev_value,
			delta_pct = EXCLUDED.delta_pct,
			confidence_score = EXCLUDED.confidence_score,
			severity = EXCLUDED.severity,
			evidence = EXCLUDED.evidence,
			detected_at = EXCLUDED.detected_at
		RETURNING (xmax = 0) AS inserted`

	batch := &pgx.Batch{}
	for _, s := range signals {
		batch.Queue(query,
			s.OrgID, s.SignalKey, s.Type, s.SourceType, s.Source, s.GeoType,
			s.GeoID, s.Segment, s.Timeframe, s.Metric, s.CurrentValue,
			s.PrevValue, s.DeltaPct, s.ConfidenceScore, s.Severity, s.Status,
			s.Evidence, s.DetectedAt,
		)
	}

	return countInserted(ctx, r.pool, batch)
}

// ListUnmapped pages through signals the mapper has not processed yet.
// Signals are ordered by id; cursor is the last id of the previous page.
func (r *SignalRepo) ListUnmapped(ctx context.Context, orgID, cursor string, limit int) ([]contracts.Signal, string, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE org_id = $1 AND mapped_at IS NULL AND ($2 = '' OR id > $2)
		ORDER BY id
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, orgID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("query unmapped signals: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignals(rows)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(signals) == limit {
		next = signals[len(signals)-1].ID
	}
	return signals, next, nil
}

// MarkMapped records that the mapper has processed the given signals.
func (r *SignalRepo) MarkMapped(ctx context.Context, orgID string, signalIDs []string) error {
	if len(signalIDs) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE signals SET mapped_at = now() WHERE org_id = $1 AND id = ANY($2)`,
		orgID, signalIDs,
	)
	if err != nil {
		return fmt.Errorf("mark signals mapped: %w", err)
	}
	return nil
}

// GetByIDs loads signals by ID for notification rendering.
func (r *SignalRepo) GetByIDs(ctx context.Context, orgID string, ids []string) ([]contracts.Signal, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE org_id = $1 AND id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("query signals by ids: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// List returns recent signals, optionally filtered by status.
func (r *SignalRepo) List(ctx context.Context, orgID string, status contracts.SignalStatus, limit int) ([]contracts.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE org_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY detected_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, orgID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// UpdateStatus mutates the operator-owned status field only.
func (r *SignalRepo) UpdateStatus(ctx context.Context, orgID, signalID string, status contracts.SignalStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE signals SET status = $3 WHERE org_id = $1 AND id = $2`,
		orgID, signalID, status,
	)
	if err != nil {
		return fmt.Errorf("update signal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("signal %s not found", signalID)
	}
	return nil
}

func scanSignals(rows pgx.Rows) ([]contracts.Signal, error) {
	var out []contracts.Signal
	for rows.Next() {
		var s contracts.Signal
		if err := rows.Scan(
			&s.ID, &s.OrgID, &s.SignalKey, &s.Type, &s.SourceType, &s.Source,
			&s.GeoType, &s.GeoID, &s.Segment, &s.Timeframe, &s.Metric,
			&s.CurrentValue, &s.PrevValue, &s.DeltaPct, &s.ConfidenceScore,
			&s.Severity, &s.Status, &s.Evidence, &s.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
