package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// In-memory stores wired together so one Run exercises every stage.

type memListings struct{}

func (memListings) ActiveForSale(_ context.Context, _ string) ([]contracts.RawListing, error) {
	return nil, nil
}

func (memListings) Since(_ context.Context, _ string, _ time.Time) ([]contracts.RawListing, error) {
	return nil, nil
}

type memTransactions struct {
	err error
}

func (m memTransactions) ByArea(_ context.Context, _, _ string, _ time.Time) ([]contracts.SaleTransaction, error) {
	return nil, m.err
}

func (m memTransactions) InWindow(_ context.Context, _ string, _, _ time.Time) ([]contracts.SaleTransaction, error) {
	return nil, m.err
}

type memRentals struct{}

func (memRentals) InWindow(_ context.Context, _ string, _, _ time.Time) ([]contracts.RentalContract, error) {
	return nil, nil
}

type memSnapshots struct{}

func (memSnapshots) UpsertMetricSnapshots(_ context.Context, snapshots []contracts.MetricSnapshot) (int, error) {
	return len(snapshots), nil
}

func (memSnapshots) UpsertPortalSnapshots(_ context.Context, snapshots []contracts.PortalListingSnapshot) (int, error) {
	return len(snapshots), nil
}

type memTruthReader struct {
	pairs []contracts.SnapshotPair
}

func (m memTruthReader) TruthPairs(_ context.Context, _ string) ([]contracts.SnapshotPair, error) {
	return m.pairs, nil
}

type memPortalReader struct{}

func (memPortalReader) PortalPairs(_ context.Context, _ string) ([]contracts.PortalSnapshotPair, error) {
	return nil, nil
}

type memSignals struct {
	byKey  map[string]*contracts.Signal
	order  []string
	mapped map[string]bool
}

func newMemSignals() *memSignals {
	return &memSignals{byKey: make(map[string]*contracts.Signal), mapped: make(map[string]bool)}
}

func (m *memSignals) UpsertSignals(_ context.Context, signals []contracts.Signal) (int, error) {
	created := 0
	for _, sig := range signals {
		if _, ok := m.byKey[sig.SignalKey]; !ok {
			sig.ID = sig.SignalKey
			m.byKey[sig.SignalKey] = &sig
			m.order = append(m.order, sig.SignalKey)
			created++
		}
	}
	return created, nil
}

func (m *memSignals) ListUnmapped(_ context.Context, _, _ string, _ int) ([]contracts.Signal, string, error) {
	var out []contracts.Signal
	for _, key := range m.order {
		if !m.mapped[key] {
			out = append(out, *m.byKey[key])
		}
	}
	return out, "", nil
}

func (m *memSignals) MarkMapped(_ context.Context, _ string, ids []string) error {
	for _, id := range ids {
		m.mapped[id] = true
	}
	return nil
}

func (m *memSignals) GetByIDs(_ context.Context, _ string, ids []string) ([]contracts.Signal, error) {
	var out []contracts.Signal
	for _, id := range ids {
		if sig, ok := m.byKey[id]; ok {
			out = append(out, *sig)
		}
	}
	return out, nil
}

func (m *memSignals) List(_ context.Context, _ string, _ contracts.SignalStatus, _ int) ([]contracts.Signal, error) {
	return nil, nil
}

func (m *memSignals) UpdateStatus(_ context.Context, _, _ string, _ contracts.SignalStatus) error {
	return nil
}

type memInvestors struct {
	investors []contracts.Investor
}

func (m memInvestors) WithMandates(_ context.Context, _ string) ([]contracts.Investor, error) {
	return m.investors, nil
}

type memTargets struct {
	byKey     map[string]*contracts.SignalTarget
	published []string
}

func newMemTargets() *memTargets {
	return &memTargets{byKey: make(map[string]*contracts.SignalTarget)}
}

func (m *memTargets) UpsertTargets(_ context.Context, targets []contracts.SignalTarget) (int, error) {
	created := 0
	for _, target := range targets {
		key := target.SignalID + "|" + target.InvestorID
		if _, ok := m.byKey[key]; !ok {
			target.ID = key
			m.byKey[key] = &target
			created++
		}
	}
	return created, nil
}

func (m *memTargets) ListNew(_ context.Context, _ string) ([]contracts.SignalTarget, error) {
	var out []contracts.SignalTarget
	for _, target := range m.byKey {
		if target.Status == contracts.TargetStatusNew {
			out = append(out, *target)
		}
	}
	return out, nil
}

func (m *memTargets) MarkPublished(_ context.Context, _ string, ids []string) error {
	for _, id := range ids {
		if target, ok := m.byKey[id]; ok {
			target.Status = contracts.TargetStatusPublished
		}
	}
	m.published = append(m.published, ids...)
	return nil
}

type memNotifications struct {
	byKey map[string]contracts.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{byKey: make(map[string]contracts.Notification)}
}

func (m *memNotifications) InsertNotifications(_ context.Context, notifications []contracts.Notification) (int, error) {
	created := 0
	for _, n := range notifications {
		if _, ok := m.byKey[n.NotificationKey]; !ok {
			m.byKey[n.NotificationKey] = n
			created++
		}
	}
	return created, nil
}

type memMarket struct{}

func (memMarket) AreaYield(_ context.Context, _, _, _ string) (*contracts.AreaYield, error) {
	return nil, nil
}

func (memMarket) AreaLiquidity(_ context.Context, _, _, _ string) (*contracts.AreaLiquidity, error) {
	return nil, nil
}

type memRecipients struct{}

func (memRecipients) RecipientsForInvestor(_ context.Context, _, _ string) ([]string, error) {
	return []string{"user-a"}, nil
}

func truthPair() contracts.SnapshotPair {
	prev := contracts.MetricSnapshot{
		OrgID:      "org-1",
		Source:     "dld",
		GeoType:    "area",
		GeoID:      "marina",
		Segment:    "apartment",
		Metric:     contracts.MetricMedianSalePrice,
		Timeframe:  contracts.TimeframeQuarterly,
		Value:      1_000_000,
		SampleSize: 40,
		WindowEnd:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	current := prev
	current.Value = 1_080_000
	current.WindowEnd = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return contracts.SnapshotPair{Current: current, Prev: &prev}
}

func testStores(txs memTransactions) (Stores, *memSignals, *memTargets, *memNotifications) {
	signals := newMemSignals()
	targets := newMemTargets()
	notifications := newMemNotifications()
	stores := Stores{
		Listings:     memListings{},
		Transactions: txs,
		Rentals:      memRentals{},
		Snapshots:    memSnapshots{},
		TruthReader:  memTruthReader{pairs: []contracts.SnapshotPair{truthPair()}},
		PortalReader: memPortalReader{},
		Signals:      signals,
		Investors: memInvestors{investors: []contracts.Investor{{
			ID:      "inv-1",
			OrgID:   "org-1",
			Name:    "inv-1",
			Mandate: &contracts.Mandate{PreferredAreas: []string{"marina"}},
		}}},
		Targets:       targets,
		Notifications: notifications,
		Market:        memMarket{},
		Recipients:    memRecipients{},
	}
	return stores, signals, targets, notifications
}

func TestOrchestrator_FullRun(t *testing.T) {
	stores, signals, targets, notifications := testStores(memTransactions{})
	o := New(stores, nil, contracts.DefaultDetectionConfig(), zerolog.Nop())

	res := o.Run(context.Background(), "org-1")

	assert.Empty(t, res.Errors)
	assert.Equal(t, "org-1", res.OrgID)
	assert.Equal(t, 1, res.TruthSignals, "the 8% QoQ price move becomes a signal")
	assert.Equal(t, 0, res.PortalSignals)
	assert.Equal(t, 1, res.TargetsCreated, "the marina mandate matches the signal")
	assert.Equal(t, 1, res.NotificationsSent)

	require.Len(t, signals.byKey, 1)
	for _, sig := range signals.byKey {
		assert.True(t, signals.mapped[sig.ID], "detected signals leave the run mapped")
	}
	assert.Len(t, targets.published, 1)
	assert.Len(t, notifications.byKey, 1)
}

func TestOrchestrator_RerunIsIdempotent(t *testing.T) {
	stores, _, _, notifications := testStores(memTransactions{})
	o := New(stores, nil, contracts.DefaultDetectionConfig(), zerolog.Nop())

	first := o.Run(context.Background(), "org-1")
	second := o.Run(context.Background(), "org-1")

	assert.Equal(t, 1, first.TruthSignals)
	assert.Equal(t, 0, second.TruthSignals, "the same snapshot pair upserts onto the same key")
	assert.Equal(t, 0, second.TargetsCreated)
	assert.Equal(t, 0, second.NotificationsSent)
	assert.Len(t, notifications.byKey, 1)
}

func TestOrchestrator_FailingStageDoesNotStopTheRun(t *testing.T) {
	stores, _, _, _ := testStores(memTransactions{err: errors.New("connection refused")})
	o := New(stores, nil, contracts.DefaultDetectionConfig(), zerolog.Nop())

	res := o.Run(context.Background(), "org-1")

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "snapshot.truth")
	assert.Equal(t, 1, res.TruthSignals, "detection reads snapshots, not raw rows, and still runs")
	assert.Equal(t, 1, res.TargetsCreated)
	assert.Equal(t, 1, res.NotificationsSent)
}
