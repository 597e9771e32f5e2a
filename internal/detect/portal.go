package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// PortalDetector thresholds listing-inventory snapshot pairs into supply,
// discounting and staleness signals. Snapshot-only by construction.
type PortalDetector struct {
	snapshots contracts.PortalSnapshotReader
	signals   contracts.SignalStore
	cfg       contracts.PortalThresholds
	batchSize int
	log       zerolog.Logger
	now       func() time.Time
}

// NewPortalDetector creates a portal detector.
func NewPortalDetector(snapshots contracts.PortalSnapshotReader, signals contracts.SignalStore, cfg contracts.PortalThresholds, batchSize int, log zerolog.Logger) *PortalDetector {
	return &PortalDetector{
		snapshots: snapshots,
		signals:   signals,
		cfg:       cfg,
		batchSize: batchSize,
		log:       log.With().Str("component", "detect.portal").Logger(),
		now:       time.Now,
	}
}

// Run detects WoW inventory signals for one org. Returns the number of newly
// created signal rows.
func (d *PortalDetector) Run(ctx context.Context, orgID string) (int, error) {
	pairs, err := d.snapshots.PortalPairs(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("load portal snapshot pairs: %w", err)
	}

	var batch []contracts.Signal
	created := 0
	coldStart := 0
	for _, pair := range pairs {
		if pair.Prev == nil {
			coldStart++
			continue
		}
		batch = append(batch, d.evaluate(orgID, pair)...)
		if len(batch) >= d.batchSize {
			n, err := d.signals.UpsertSignals(ctx, batch)
			if err != nil {
				return created, fmt.Errorf("upsert portal signals: %w", err)
			}
			created += n
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		n, err := d.signals.UpsertSignals(ctx, batch)
		if err != nil {
			return created, fmt.Errorf("upsert portal signals: %w", err)
		}
		created += n
	}

	if coldStart > 0 {
		d.log.Warn().
			Str("org_id", orgID).
			Int("groups", coldStart).
			Msg("no prior week snapshot for some groups, skipping delta comparison")
	}
	d.log.Info().
		Str("org_id", orgID).
		Int("pairs", len(pairs)).
		Int("created", created).
		Msg("portal detection completed")
	return created, nil
}

// evaluate computes three independent WoW deltas for one group.
func (d *PortalDetector) evaluate(orgID string, pair contracts.PortalSnapshotPair) []contracts.Signal {
	cur := pair.Current
	prev := pair.Prev

	// Statistically thin areas produce noise, not signals.
	if cur.ActiveListings < d.cfg.MinActiveListings {
		d.log.Debug().
			Str("geo_id", cur.GeoID).
			Str("segment", cur.Segment).
			Int("active", cur.ActiveListings).
			Msg("below active-listings floor, skipping group")
		return nil
	}

	confidence := 0.6
	if cur.ActiveListings >= 2*d.cfg.MinActiveListings {
		confidence = 0.8
	}

	checks := []struct {
		sigType   contracts.SignalType
		metric    string
		current   int
		prev      int
		threshold float64
	}{
		{contracts.SignalSupplySpike, "active_listings", cur.ActiveListings, prev.ActiveListings, d.cfg.SupplyThreshold},
		{contracts.SignalDiscountingSpike, "price_cuts_count", cur.PriceCutsCount, prev.PriceCutsCount, d.cfg.DiscountThreshold},
		{contracts.SignalStalenessRise, "stale_listings_count", cur.StaleListingsCount, prev.StaleListingsCount, d.cfg.StaleThreshold},
	}

	var out []contracts.Signal
	for _, c := range checks {
		if c.prev == 0 {
			continue
		}
		delta := float64(c.current-c.prev) / float64(c.prev)
		if delta < c.threshold {
			continue
		}

		out = append(out, contracts.Signal{
			OrgID:           orgID,
			SignalKey:       contracts.SignalKey(contracts.SourceTypePortal, cur.Portal, c.sigType, cur.GeoType, cur.GeoID, cur.Segment, contracts.TimeframeWeekly, cur.AsOfDate),
			Type:            c.sigType,
			SourceType:      contracts.SourceTypePortal,
			Source:          cur.Portal,
			GeoType:         cur.GeoType,
			GeoID:           cur.GeoID,
			Segment:         cur.Segment,
			Timeframe:       contracts.TimeframeWeekly,
			Metric:          c.metric,
			CurrentValue:    float64(c.current),
			PrevValue:       float64(c.prev),
			DeltaPct:        delta,
			ConfidenceScore: confidence,
			Severity:        d.severity(delta),
			Status:          contracts.StatusNew,
			Evidence: map[string]any{
				"active_listings": cur.ActiveListings,
				"as_of_date":      cur.AsOfDate.Format("2006-01-02"),
				"prev_date":       prev.AsOfDate.Format("2006-01-02"),
			},
			DetectedAt: d.now(),
		})
	}
	return out
}

// severity tiers portal signals by delta magnitude.
func (d *PortalDetector) severity(delta float64) contracts.Severity {
	switch {
	case delta >= d.cfg.UrgentDelta:
		return contracts.SeverityUrgent
	case delta >= d.cfg.WatchDelta:
		return contracts.SeverityWatch
	default:
		return contracts.SeverityInfo
	}
}
