package detect

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// captureStore is an in-memory SignalStore keyed like the real table:
// re-upserting an existing signal key refreshes the row without counting as
// created.
type captureStore struct {
	byKey map[string]contracts.Signal
	order []string
}

func newCaptureStore() *captureStore {
	return &captureStore{byKey: make(map[string]contracts.Signal)}
}

func (c *captureStore) UpsertSignals(_ context.Context, signals []contracts.Signal) (int, error) {
	created := 0
	for _, s := range signals {
		if _, ok := c.byKey[s.SignalKey]; !ok {
			created++
			c.order = append(c.order, s.SignalKey)
		}
		c.byKey[s.SignalKey] = s
	}
	return created, nil
}

func (c *captureStore) ListUnmapped(_ context.Context, _, _ string, _ int) ([]contracts.Signal, string, error) {
	return nil, "", nil
}

func (c *captureStore) MarkMapped(_ context.Context, _ string, _ []string) error {
	return nil
}

func (c *captureStore) GetByIDs(_ context.Context, _ string, _ []string) ([]contracts.Signal, error) {
	return nil, nil
}

func (c *captureStore) List(_ context.Context, _ string, _ contracts.SignalStatus, _ int) ([]contracts.Signal, error) {
	return nil, nil
}

func (c *captureStore) UpdateStatus(_ context.Context, _, _ string, _ contracts.SignalStatus) error {
	return nil
}

func (c *captureStore) all() []contracts.Signal {
	out := make([]contracts.Signal, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byKey[key])
	}
	return out
}

type stubSnapshotReader struct {
	pairs []contracts.SnapshotPair
}

func (s *stubSnapshotReader) TruthPairs(_ context.Context, _ string) ([]contracts.SnapshotPair, error) {
	return s.pairs, nil
}

type stubPortalReader struct {
	pairs []contracts.PortalSnapshotPair
}

func (s *stubPortalReader) PortalPairs(_ context.Context, _ string) ([]contracts.PortalSnapshotPair, error) {
	return s.pairs, nil
}

// metricPair builds a quarterly snapshot pair for one metric.
func metricPair(metric string, prevValue, curValue float64, sampleSize int) contracts.SnapshotPair {
	windowEnd := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	cur := contracts.MetricSnapshot{
		OrgID:       "org-1",
		Source:      "dld",
		GeoType:     "area",
		GeoID:       "marina",
		Segment:     "apartment",
		Metric:      metric,
		Timeframe:   contracts.TimeframeQuarterly,
		Value:       curValue,
		SampleSize:  sampleSize,
		WindowStart: windowEnd.AddDate(0, -3, 0),
		WindowEnd:   windowEnd,
	}
	prev := cur
	prev.Value = prevValue
	prev.WindowEnd = cur.WindowStart
	prev.WindowStart = cur.WindowStart.AddDate(0, -3, 0)
	return contracts.SnapshotPair{Current: cur, Prev: &prev}
}

// portalPair builds a weekly portal snapshot pair.
func portalPair(curActive, prevActive, curCuts, prevCuts, curStale, prevStale int) contracts.PortalSnapshotPair {
	asOf := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	cur := contracts.PortalListingSnapshot{
		OrgID:              "org-1",
		Portal:             "bayut",
		GeoType:            "area",
		GeoID:              "marina",
		Segment:            "apartment",
		AsOfDate:           asOf,
		ActiveListings:     curActive,
		PriceCutsCount:     curCuts,
		StaleListingsCount: curStale,
	}
	prev := cur
	prev.AsOfDate = asOf.AddDate(0, 0, -7)
	prev.ActiveListings = prevActive
	prev.PriceCutsCount = prevCuts
	prev.StaleListingsCount = prevStale
	return contracts.PortalSnapshotPair{Current: cur, Prev: &prev}
}
