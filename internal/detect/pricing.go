package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/comparables"
	"github.com/dxbintel/propsignal/internal/contracts"
	"github.com/dxbintel/propsignal/internal/scoring"
)

// PricingDetector scores every active for-sale listing against its
// comparables and the area's yield/liquidity profile. Construct one detector
// per pipeline run: the yield/liquidity caches and the matcher's area cache
// are run-scoped.
type PricingDetector struct {
	listings contracts.ListingReader
	matcher  *comparables.Matcher
	market   contracts.MarketDataReader
	signals  contracts.SignalStore
	scorer   *scoring.Scorer
	cfg      contracts.DetectionConfig
	log      zerolog.Logger
	now      func() time.Time

	yieldCache     map[string]*contracts.AreaYield
	liquidityCache map[string]*contracts.AreaLiquidity
}

// NewPricingDetector creates a run-scoped pricing-opportunity detector.
func NewPricingDetector(
	listings contracts.ListingReader,
	matcher *comparables.Matcher,
	market contracts.MarketDataReader,
	signals contracts.SignalStore,
	cfg contracts.DetectionConfig,
	log zerolog.Logger,
) *PricingDetector {
	return &PricingDetector{
		listings:       listings,
		matcher:        matcher,
		market:         market,
		signals:        signals,
		scorer:         scoring.NewScorer(cfg.Scoring),
		cfg:            cfg,
		log:            log.With().Str("component", "detect.pricing").Logger(),
		now:            time.Now,
		yieldCache:     make(map[string]*contracts.AreaYield),
		liquidityCache: make(map[string]*contracts.AreaLiquidity),
	}
}

// Run scores all active for-sale listings of one org. Returns the number of
// newly created signal rows.
func (d *PricingDetector) Run(ctx context.Context, orgID string) (int, error) {
	listings, err := d.listings.ActiveForSale(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("load active listings: %w", err)
	}

	var batch []contracts.Signal
	created := 0
	scored := 0
	skipped := 0
	for _, listing := range listings {
		sig, err := d.evaluate(ctx, orgID, listing)
		if err != nil {
			return created, err
		}
		if sig == nil {
			skipped++
			continue
		}
		scored++
		batch = append(batch, *sig)
		if len(batch) >= d.cfg.Batch.WriteSize {
			n, err := d.signals.UpsertSignals(ctx, batch)
			if err != nil {
				return created, fmt.Errorf("upsert pricing signals: %w", err)
			}
			created += n
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		n, err := d.signals.UpsertSignals(ctx, batch)
		if err != nil {
			return created, fmt.Errorf("upsert pricing signals: %w", err)
		}
		created += n
	}

	d.log.Info().
		Str("org_id", orgID).
		Int("listings", len(listings)).
		Int("scored", scored).
		Int("skipped", skipped).
		Int("created", created).
		Msg("pricing detection completed")
	return created, nil
}

// evaluate scores a single listing. A nil signal without error is a
// missing-data skip, never a failure.
func (d *PricingDetector) evaluate(ctx context.Context, orgID string, listing contracts.RawListing) (*contracts.Signal, error) {
	set, err := d.matcher.Match(ctx, orgID, comparables.Descriptor{
		Area:         listing.Area,
		PropertyType: listing.PropertyType,
		Bedrooms:     listing.Bedrooms,
		SizeSqm:      listing.SizeSqm,
		BuildingName: listing.BuildingName,
	})
	if err != nil {
		return nil, fmt.Errorf("match comparables for listing %s: %w", listing.ID, err)
	}
	if set == nil {
		return nil, nil
	}

	psm := listing.PricePerSqm
	if psm <= 0 && listing.SizeSqm > 0 {
		psm = listing.Price / listing.SizeSqm
	}
	if psm <= 0 {
		return nil, nil
	}

	yield, err := d.areaYield(ctx, orgID, listing.Area, listing.PropertyType)
	if err != nil {
		return nil, err
	}
	liquidity, err := d.areaLiquidity(ctx, orgID, listing.Area, listing.PropertyType)
	if err != nil {
		return nil, err
	}

	in := scoring.Inputs{
		ListingPSM:      psm,
		ComparablePSM:   set.TimeWeightedAvgPSM,
		MatchTier:       set.MatchTier,
		ComparableCount: set.ComparableCount,
		RecencyScore:    set.RecencyScore,
	}
	if yield != nil && listing.Price > 0 && yield.MedianAnnualRent > 0 {
		in.HasYield = true
		in.ListingYieldPct = yield.MedianAnnualRent / listing.Price * 100
		in.AreaYieldPct = yield.GrossYieldPct
	}
	if liquidity != nil {
		in.HasLiquidity = true
		in.LiquidityScore = liquidity.LiquidityScore
	}

	breakdown := d.scorer.Score(in)
	if float64(breakdown.Composite) < d.cfg.Scoring.MinComposite {
		return nil, nil
	}

	return &contracts.Signal{
		OrgID:           orgID,
		SignalKey:       contracts.PricingSignalKey(listing.Portal, listing.Area, listing.PropertyType, listing.ID),
		Type:            contracts.SignalPricingOpportunity,
		SourceType:      contracts.SourceTypePortal,
		Source:          listing.Portal,
		GeoType:         "area",
		GeoID:           listing.Area,
		Segment:         listing.PropertyType,
		Metric:          "price_per_sqm",
		CurrentValue:    psm,
		PrevValue:       set.TimeWeightedAvgPSM,
		DeltaPct:        -breakdown.DiscountPct / 100,
		ConfidenceScore: breakdown.MatchQuality,
		Severity:        breakdown.Severity,
		Status:          contracts.StatusNew,
		Evidence: map[string]any{
			"breakdown":   breakdown,
			"rating":      breakdown.Rating,
			"comparables": set,
			"listing": map[string]any{
				"id":            listing.ID,
				"portal":        listing.Portal,
				"price":         listing.Price,
				"size_sqm":      listing.SizeSqm,
				"bedrooms":      listing.Bedrooms,
				"building_name": listing.BuildingName,
			},
		},
		DetectedAt: d.now(),
	}, nil
}

// areaYield is a per-run read-through cache over the market-data reader.
// Absent areas are cached too, so thin areas cost one lookup per run.
func (d *PricingDetector) areaYield(ctx context.Context, orgID, area, segment string) (*contracts.AreaYield, error) {
	key := area + "|" + segment
	if cached, ok := d.yieldCache[key]; ok {
		return cached, nil
	}

	yield, err := d.market.AreaYield(ctx, orgID, area, segment)
	if err != nil {
		return nil, fmt.Errorf("load area yield for %s: %w", area, err)
	}
	d.yieldCache[key] = yield
	return yield, nil
}

func (d *PricingDetector) areaLiquidity(ctx context.Context, orgID, area, segment string) (*contracts.AreaLiquidity, error) {
	key := area + "|" + segment
	if cached, ok := d.liquidityCache[key]; ok {
		return cached, nil
	}

	liquidity, err := d.market.AreaLiquidity(ctx, orgID, area, segment)
	if err != nil {
		return nil, fmt.Errorf("load area liquidity for %s: %w", area, err)
	}
	d.liquidityCache[key] = liquidity
	return liquidity, nil
}
