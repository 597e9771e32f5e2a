package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
	"github.com/dxbintel/propsignal/pkg/redis"
)

// MarketRepo serves area-level yield and liquidity aggregates derived from
// the latest snapshots and raw listing rows. Results go through the Redis
// cache when one is configured; cache failures degrade to database reads.
type MarketRepo struct {
	pool  *pgxpool.Pool
	cache *redis.Cache
	log   zerolog.Logger
}

// NewMarketRepo creates a market-data repository. cache may be nil.
func NewMarketRepo(pool *pgxpool.Pool, cache *redis.Cache, log zerolog.Logger) *MarketRepo {
	return &MarketRepo{
		pool:  pool,
		cache: cache,
		log:   log.With().Str("component", "repo.market").Logger(),
	}
}

// AreaYield returns the latest rental yield aggregates for an (area, segment).
// A nil result with nil error means the area has no yield data yet.
func (r *MarketRepo) AreaYield(ctx context.Context, orgID, area, segment string) (*contracts.AreaYield, error) {
	key := redis.AreaYieldKey(orgID, area, segment)
	if r.cache != nil {
		var cached contracts.AreaYield
		if hit, err := r.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	query := `
		SELECT DISTINCT ON (metric) metric, value
		FROM metric_snapshots
		WHERE org_id = $1 AND geo_type = 'area' AND geo_id = $2 AND segment = $3
		  AND timeframe = 'quarterly'
		  AND metric IN ('gross_yield', 'median_annual_rent')
		ORDER BY metric, window_end DESC`

	rows, err := r.pool.Query(ctx, query, orgID, area, segment)
	if err != nil {
		return nil, fmt.Errorf("query area yield: %w", err)
	}
	defer rows.Close()

	yield := &contracts.AreaYield{OrgID: orgID, Area: area, Segment: segment}
	found := false
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("scan area yield row: %w", err)
		}
		found = true
		switch metric {
		case contracts.MetricGrossYield:
			yield.GrossYieldPct = value
		case contracts.MetricMedianAnnualRent:
			yield.MedianAnnualRent = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, yield, redis.TTLLong); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("yield cache write failed")
		}
	}
	return yield, nil
}

// AreaLiquidity returns the days-on-market distribution of an
// (area, segment). A nil result with nil error means no active listings.
func (r *MarketRepo) AreaLiquidity(ctx context.Context, orgID, area, segment string) (*contracts.AreaLiquidity, error) {
	key := redis.AreaLiquidityKey(orgID, area, segment)
	if r.cache != nil {
		var cached contracts.AreaLiquidity
		if hit, err := r.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	query := `
		SELECT percentile_cont(0.25) WITHIN GROUP (ORDER BY days_on_market),
		       percentile_cont(0.50) WITHIN GROUP (ORDER BY days_on_market),
		       percentile_cont(0.75) WITHIN GROUP (ORDER BY days_on_market)
		FROM raw_listings
		WHERE org_id = $1 AND area = $2 AND property_type = $3 AND active`

	var p25, p50, p75 *float64
	err := r.pool.QueryRow(ctx, query, orgID, area, segment).Scan(&p25, &p50, &p75)
	if err != nil {
		return nil, fmt.Errorf("query area liquidity: %w", err)
	}
	if p50 == nil {
		return nil, nil
	}

	liquidity := &contracts.AreaLiquidity{
		OrgID:          orgID,
		Area:           area,
		Segment:        segment,
		DomP25:         int(*p25),
		DomP50:         int(*p50),
		DomP75:         int(*p75),
		LiquidityScore: liquidityScore(*p50),
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, liquidity, redis.TTLLong); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("liquidity cache write failed")
		}
	}
	return liquidity, nil
}

// liquidityScore maps median days-on-market to [0,1]: instant turnover
// scores 1.0, anything at or beyond 180 days scores 0.
func liquidityScore(medianDOM float64) float64 {
	if medianDOM >= 180 {
		return 0
	}
	if medianDOM <= 0 {
		return 1
	}
	return 1 - medianDOM/180
}
