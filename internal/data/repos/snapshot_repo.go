package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// SnapshotRepo persists and serves metric and portal snapshots. Upserts are
// idempotent on the snapshot identity key; re-running an aggregator on
// unchanged inputs creates zero new rows.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepo creates a snapshot repository.
func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// UpsertMetricSnapshots writes truth snapshots and returns how many rows were
// newly created.
func (r *SnapshotRepo) UpsertMetricSnapshots(ctx context.Context, snapshots []contracts.MetricSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO metric_snapshots (
			org_id, source, geo_type, geo_id, segment, metric, timeframe,
			value, sample_size, window_start, window_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (org_id, source, geo_type, geo_id, segment, metric, timeframe, window_end)
		DO UPDATE SET
			value = EXCLUDED.value,
			sample_size = EXCLUDED.sample_size,
			window_start = EXCLUDED.window_start
		RETURNING (xmax = 0) AS inserted`

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(query,
			s.OrgID, s.Source, s.GeoType, s.GeoID, s.Segment, s.Metric,
			s.Timeframe, s.Value, s.SampleSize, s.WindowStart, s.WindowEnd,
		)
	}

	return countInserted(ctx, r.pool, batch)
}

// UpsertPortalSnapshots writes portal inventory snapshots and returns how
// many rows were newly created.
func (r *SnapshotRepo) UpsertPortalSnapshots(ctx context.Context, snapshots []contracts.PortalListingSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO portal_listing_snapshots (
			org_id, portal, geo_type, geo_id, segment, as_of_date,
			active_listings, price_cuts_count, stale_listings_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (org_id, portal, geo_type, geo_id, segment, as_of_date)
		DO UPDATE SET
			active_listings = EXCLUDED.active_listings,
			price_cuts_count = EXCLUDED.price_cuts_count,
			stale_listings_count = EXCLUDED.stale_listings_count
		RETURNING (xmax = 0) AS inserted`

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(query,
			s.OrgID, s.Portal, s.GeoType, s.GeoID, s.Segment, s.AsOfDate,
			s.ActiveListings, s.PriceCutsCount, s.StaleListingsCount,
		)
	}

	return countInserted(ctx, r.pool, batch)
}

// TruthPairs returns, per (source, geo, segment, metric) group, the latest
// quarterly snapshot paired with its predecessor.
func (r *SnapshotRepo) TruthPairs(ctx context.Context, orgID string) ([]contracts.SnapshotPair, error) {
	query := `
		WITH ranked AS (
			SELECT id, org_id, source, geo_type, geo_id, segment, metric,
			       timeframe, value, sample_size, window_start, window_end,
			       ROW_NUMBER() OVER (
			           PARTITION BY source, geo_type, geo_id, segment, metric
			           ORDER BY window_end DESC
			       ) AS rn
			FROM metric_snapshots
			WHERE org_id = $1 AND timeframe = 'quarterly'
		)
		SELECT id, org_id, source, geo_type, geo_id, segment, metric,
		       timeframe, value, sample_size, window_start, window_end, rn
		FROM ranked
		WHERE rn <= 2
		ORDER BY source, geo_type, geo_id, segment, metric, rn`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("query truth snapshot pairs: %w", err)
	}
	defer rows.Close()

	var pairs []contracts.SnapshotPair
	for rows.Next() {
		var s contracts.MetricSnapshot
		var rn int
		if err := rows.Scan(
			&s.ID, &s.OrgID, &s.Source, &s.GeoType, &s.GeoID, &s.Segment,
			&s.Metric, &s.Timeframe, &s.Value, &s.SampleSize,
			&s.WindowStart, &s.WindowEnd, &rn,
		); err != nil {
			return nil, fmt.Errorf("scan metric snapshot row: %w", err)
		}
		if rn == 1 {
			pairs = append(pairs, contracts.SnapshotPair{Current: s})
		} else if len(pairs) > 0 {
			prev := s
			pairs[len(pairs)-1].Prev = &prev
		}
	}
	return pairs, rows.Err()
}

// PortalPairs returns, per (portal, geo, segment) group, the latest daily
// snapshot left-joined with the one from exactly seven days earlier.
func (r *SnapshotRepo) PortalPairs(ctx context.Context, orgID string) ([]contracts.PortalSnapshotPair, error) {
	query := `
		WITH latest AS (
			SELECT DISTINCT ON (portal, geo_type, geo_id, segment)
			       id, org_id, portal, geo_type, geo_id, segment, as_of_date,
			       active_listings, price_cuts_count, stale_listings_count
			FROM portal_listing_snapshots
			WHERE org_id = $1
			ORDER BY portal, geo_type, geo_id, segment, as_of_date DESC
		)
		SELECT l.id, l.org_id, l.portal, l.geo_type, l.geo_id, l.segment,
		       l.as_of_date, l.active_listings, l.price_cuts_count, l.stale_listings_count,
		       p.id, p.as_of_date, p.active_listings, p.price_cuts_count, p.stale_listings_count
		FROM latest l
		LEFT JOIN portal_listing_snapshots p
		       ON p.org_id = l.org_id AND p.portal = l.portal
		      AND p.geo_type = l.geo_type AND p.geo_id = l.geo_id
		      AND p.segment = l.segment
		      AND p.as_of_date = l.as_of_date - INTERVAL '7 days'
		ORDER BY l.portal, l.geo_id, l.segment`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("query portal snapshot pairs: %w", err)
	}
	defer rows.Close()

	var pairs []contracts.PortalSnapshotPair
	for rows.Next() {
		var cur contracts.PortalListingSnapshot
		var prevID *string
		var prevDate *time.Time
		var prevActive, prevCuts, prevStale *int
		if err := rows.Scan(
			&cur.ID, &cur.OrgID, &cur.Portal, &cur.GeoType, &cur.GeoID,
			&cur.Segment, &cur.AsOfDate, &cur.ActiveListings,
			&cur.PriceCutsCount, &cur.StaleListingsCount,
			&prevID, &prevDate, &prevActive, &prevCuts, &prevStale,
		); err != nil {
			return nil, fmt.Errorf("scan portal snapshot pair: %w", err)
		}

		pair := contracts.PortalSnapshotPair{Current: cur}
		if prevID != nil {
			pair.Prev = &contracts.PortalListingSnapshot{
				ID:                 *prevID,
				OrgID:              cur.OrgID,
				Portal:             cur.Portal,
				GeoType:            cur.GeoType,
				GeoID:              cur.GeoID,
				Segment:            cur.Segment,
				AsOfDate:           *prevDate,
				ActiveListings:     *prevActive,
				PriceCutsCount:     *prevCuts,
				StaleListingsCount: *prevStale,
			}
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// countInserted runs a batch of upserts that each return an inserted flag
// and sums the rows that were newly created.
func countInserted(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch) (int, error) {
	br := pool.SendBatch(ctx, batch)
	defer br.Close()

	created := 0
	for i := 0; i < batch.Len(); i++ {
		var inserted bool
		if err := br.QueryRow().Scan(&inserted); err != nil {
			return created, fmt.Errorf("batch upsert row %d: %w", i, err)
		}
		if inserted {
			created++
		}
	}
	return created, nil
}
