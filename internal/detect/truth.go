package detect

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// TruthDetector thresholds official-transaction snapshot pairs into signals.
// It reads snapshots only — never raw registry rows.
type TruthDetector struct {
	snapshots contracts.SnapshotReader
	signals   contracts.SignalStore
	cfg       contracts.TruthThresholds
	batchSize int
	log       zerolog.Logger
	now       func() time.Time
}

// NewTruthDetector creates a truth detector.
func NewTruthDetector(snapshots contracts.SnapshotReader, signals contracts.SignalStore, cfg contracts.TruthThresholds, batchSize int, log zerolog.Logger) *TruthDetector {
	return &TruthDetector{
		snapshots: snapshots,
		signals:   signals,
		cfg:       cfg,
		batchSize: batchSize,
		log:       log.With().Str("component", "detect.truth").Logger(),
		now:       time.Now,
	}
}

// Run detects price/rent changes and yield opportunities for one org.
// Returns the number of newly created signal rows.
func (d *TruthDetector) Run(ctx context.Context, orgID string) (int, error) {
	pairs, err := d.snapshots.TruthPairs(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("load truth snapshot pairs: %w", err)
	}

	var batch []contracts.Signal
	created := 0
	for _, pair := range pairs {
		if sig := d.evaluate(orgID, pair); sig != nil {
			batch = append(batch, *sig)
		}
		if len(batch) >= d.batchSize {
			n, err := d.signals.UpsertSignals(ctx, batch)
			if err != nil {
				return created, fmt.Errorf("upsert truth signals: %w", err)
			}
			created += n
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		n, err := d.signals.UpsertSignals(ctx, batch)
		if err != nil {
			return created, fmt.Errorf("upsert truth signals: %w", err)
		}
		created += n
	}

	d.log.Info().
		Str("org_id", orgID).
		Int("pairs", len(pairs)).
		Int("created", created).
		Msg("truth detection completed")
	return created, nil
}

// evaluate turns one snapshot pair into at most one signal.
func (d *TruthDetector) evaluate(orgID string, pair contracts.SnapshotPair) *contracts.Signal {
	cur := pair.Current

	if cur.Metric == contracts.MetricGrossYield {
		return d.evaluateYield(orgID, pair)
	}

	sigType := deltaSignalType(cur.Metric)
	if sigType == "" {
		return nil
	}

	if pair.Prev == nil {
		// Cold start: no prior window for this group yet.
		return nil
	}
	if pair.Prev.Value == 0 {
		return nil
	}

	delta := (cur.Value - pair.Prev.Value) / pair.Prev.Value
	if math.Abs(delta) < d.cfg.DeltaThreshold {
		return nil
	}

	confidence := d.cfg.LowConfidence
	if cur.SampleSize >= d.cfg.MinSampleSize {
		confidence = d.cfg.HighConfidence
	}

	severity := contracts.SeverityNormal
	if math.Abs(delta) >= 2*d.cfg.DeltaThreshold {
		severity = contracts.SeverityHigh
	}

	return &contracts.Signal{
		OrgID:           orgID,
		SignalKey:       contracts.SignalKey(contracts.SourceTypeOfficial, cur.Source, sigType, cur.GeoType, cur.GeoID, cur.Segment, cur.Timeframe, cur.WindowEnd),
		Type:            sigType,
		SourceType:      contracts.SourceTypeOfficial,
		Source:          cur.Source,
		GeoType:         cur.GeoType,
		GeoID:           cur.GeoID,
		Segment:         cur.Segment,
		Timeframe:       cur.Timeframe,
		Metric:          cur.Metric,
		CurrentValue:    cur.Value,
		PrevValue:       pair.Prev.Value,
		DeltaPct:        delta,
		ConfidenceScore: confidence,
		Severity:        severity,
		Status:          contracts.StatusNew,
		Evidence: map[string]any{
			"sample_size":      cur.SampleSize,
			"prev_sample_size": pair.Prev.SampleSize,
			"window_end":       cur.WindowEnd.Format("2006-01-02"),
		},
		DetectedAt: d.now(),
	}
}

// evaluateYield emits a yield opportunity whenever the current gross yield
// clears the configured floor, independent of any delta.
func (d *TruthDetector) evaluateYield(orgID string, pair contracts.SnapshotPair) *contracts.Signal {
	cur := pair.Current
	if cur.Value < d.cfg.YieldFloorPct {
		return nil
	}

	var prevValue, delta float64
	if pair.Prev != nil && pair.Prev.Value != 0 {
		prevValue = pair.Prev.Value
		delta = (cur.Value - prevValue) / prevValue
	}

	confidence := d.cfg.LowConfidence
	if cur.SampleSize >= d.cfg.MinSampleSize {
		confidence = d.cfg.HighConfidence
	}

	return &contracts.Signal{
		OrgID:           orgID,
		SignalKey:       contracts.SignalKey(contracts.SourceTypeOfficial, cur.Source, contracts.SignalYieldOpportunity, cur.GeoType, cur.GeoID, cur.Segment, cur.Timeframe, cur.WindowEnd),
		Type:            contracts.SignalYieldOpportunity,
		SourceType:      contracts.SourceTypeOfficial,
		Source:          cur.Source,
		GeoType:         cur.GeoType,
		GeoID:           cur.GeoID,
		Segment:         cur.Segment,
		Timeframe:       cur.Timeframe,
		Metric:          cur.Metric,
		CurrentValue:    cur.Value,
		PrevValue:       prevValue,
		DeltaPct:        delta,
		ConfidenceScore: confidence,
		Severity:        contracts.SeverityHigh,
		Status:          contracts.StatusNew,
		Evidence: map[string]any{
			"sample_size":     cur.SampleSize,
			"yield_floor_pct": d.cfg.YieldFloorPct,
		},
		DetectedAt: d.now(),
	}
}

// deltaSignalType maps a truth metric to the signal type its delta emits.
func deltaSignalType(metric string) contracts.SignalType {
	switch metric {
	case contracts.MetricMedianSalePrice, contracts.MetricMedianPricePSM:
		return contracts.SignalPriceChange
	case contracts.MetricMedianAnnualRent:
		return contracts.SignalRentChange
	default:
		return ""
	}
}
