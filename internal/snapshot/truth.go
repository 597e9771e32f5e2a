package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// TruthAggregator reduces official transactions and rental contracts into
// quarterly metric snapshots per (source, geo, segment): median sale price,
// median price per sqm, median annual rent and gross yield.
type TruthAggregator struct {
	transactions contracts.TransactionReader
	rentals      contracts.RentalReader
	store        contracts.SnapshotStore
	log          zerolog.Logger
	now          func() time.Time
}

// NewTruthAggregator creates a truth aggregator.
func NewTruthAggregator(transactions contracts.TransactionReader, rentals contracts.RentalReader, store contracts.SnapshotStore, log zerolog.Logger) *TruthAggregator {
	return &TruthAggregator{
		transactions: transactions,
		rentals:      rentals,
		store:        store,
		log:          log.With().Str("component", "snapshot.truth").Logger(),
		now:          time.Now,
	}
}

type truthGroup struct {
	source  string
	geoID   string
	segment string
}

// Run aggregates the two most recent completed quarters for one org.
// Returns the number of snapshot rows written.
func (a *TruthAggregator) Run(ctx context.Context, orgID string) (int, error) {
	currentStart, currentEnd := lastCompletedQuarter(a.now())
	prevStart, prevEnd := currentStart.AddDate(0, -3, 0), currentStart

	var snapshots []contracts.MetricSnapshot
	windowsWithData := 0
	for _, window := range []struct{ start, end time.Time }{
		{currentStart, currentEnd},
		{prevStart, prevEnd},
	} {
		snaps, err := a.aggregateWindow(ctx, orgID, window.start, window.end)
		if err != nil {
			return 0, err
		}
		if len(snaps) > 0 {
			windowsWithData++
		}
		snapshots = append(snapshots, snaps...)
	}

	if windowsWithData == 1 {
		// Cold start: one quarter of data cannot produce QoQ deltas yet.
		a.log.Warn().
			Str("org_id", orgID).
			Msg("only one quarter has data, QoQ comparison not possible yet")
	}

	written, err := a.store.UpsertMetricSnapshots(ctx, snapshots)
	if err != nil {
		return 0, fmt.Errorf("upsert metric snapshots: %w", err)
	}

	a.log.Info().
		Str("org_id", orgID).
		Int("snapshots", written).
		Msg("truth aggregation completed")
	return written, nil
}

// aggregateWindow computes all metrics for one quarter window.
func (a *TruthAggregator) aggregateWindow(ctx context.Context, orgID string, start, end time.Time) ([]contracts.MetricSnapshot, error) {
	txs, err := a.transactions.InWindow(ctx, orgID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	rents, err := a.rentals.InWindow(ctx, orgID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load rental contracts: %w", err)
	}

	prices := make(map[truthGroup][]float64)
	psms := make(map[truthGroup][]float64)
	for _, tx := range txs {
		if tx.Price <= 0 {
			continue
		}
		key := truthGroup{source: tx.Source, geoID: tx.Area, segment: tx.PropertyType}
		prices[key] = append(prices[key], tx.Price)
		if tx.SizeSqm > 0 {
			psms[key] = append(psms[key], tx.Price/tx.SizeSqm)
		}
	}

	annualRents := make(map[truthGroup][]float64)
	for _, rc := range rents {
		if rc.AnnualRent <= 0 {
			continue
		}
		key := truthGroup{source: rc.Source, geoID: rc.Area, segment: rc.PropertyType}
		annualRents[key] = append(annualRents[key], rc.AnnualRent)
	}

	var out []contracts.MetricSnapshot
	base := func(key truthGroup, metric string, values []float64) contracts.MetricSnapshot {
		return contracts.MetricSnapshot{
			OrgID:       orgID,
			Source:      key.source,
			GeoType:     "area",
			GeoID:       key.geoID,
			Segment:     key.segment,
			Metric:      metric,
			Timeframe:   contracts.TimeframeQuarterly,
			Value:       medianOf(values),
			SampleSize:  len(values),
			WindowStart: start,
			WindowEnd:   end,
		}
	}

	for key, values := range prices {
		out = append(out, base(key, contracts.MetricMedianSalePrice, values))
	}
	for key, values := range psms {
		out = append(out, base(key, contracts.MetricMedianPricePSM, values))
	}
	for key, values := range annualRents {
		out = append(out, base(key, contracts.MetricMedianAnnualRent, values))
	}

	// Gross yield needs both sides; rent and price sources differ (registry
	// vs contracts), so join on (geo, segment) only.
	rentByGeo := make(map[string][]float64)
	for key, values := range annualRents {
		rentByGeo[key.geoID+"|"+key.segment] = append(rentByGeo[key.geoID+"|"+key.segment], values...)
	}
	for key, values := range prices {
		rents, ok := rentByGeo[key.geoID+"|"+key.segment]
		if !ok || len(rents) == 0 {
			continue
		}
		medianPrice := medianOf(values)
		if medianPrice <= 0 {
			continue
		}
		snap := base(key, contracts.MetricGrossYield, values)
		snap.Value = medianOf(rents) / medianPrice * 100
		if len(rents) < snap.SampleSize {
			snap.SampleSize = len(rents)
		}
		out = append(out, snap)
	}

	return out, nil
}

// lastCompletedQuarter returns the window of the most recent fully elapsed
// quarter: [start, end) with end exclusive.
func lastCompletedQuarter(now time.Time) (time.Time, time.Time) {
	quarterStartMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
	end := time.Date(now.Year(), quarterStartMonth, 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -3, 0)
	return start, end
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
