package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxbintel/propsignal/internal/contracts"
)

type snapStore struct {
	metrics []contracts.MetricSnapshot
	portals []contracts.PortalListingSnapshot
}

func (s *snapStore) UpsertMetricSnapshots(_ context.Context, snapshots []contracts.MetricSnapshot) (int, error) {
	s.metrics = append(s.metrics, snapshots...)
	return len(snapshots), nil
}

func (s *snapStore) UpsertPortalSnapshots(_ context.Context, snapshots []contracts.PortalListingSnapshot) (int, error) {
	s.portals = append(s.portals, snapshots...)
	return len(snapshots), nil
}

type stubTransactions struct {
	txs []contracts.SaleTransaction
}

func (s *stubTransactions) ByArea(_ context.Context, _, area string, _ time.Time) ([]contracts.SaleTransaction, error) {
	var out []contracts.SaleTransaction
	for _, tx := range s.txs {
		if tx.Area == area {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *stubTransactions) InWindow(_ context.Context, _ string, from, to time.Time) ([]contracts.SaleTransaction, error) {
	var out []contracts.SaleTransaction
	for _, tx := range s.txs {
		if !tx.Date.Before(from) && tx.Date.Before(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type stubRentals struct {
	contracts []contracts.RentalContract
}

func (s *stubRentals) InWindow(_ context.Context, _ string, from, to time.Time) ([]contracts.RentalContract, error) {
	var out []contracts.RentalContract
	for _, rc := range s.contracts {
		if !rc.Date.Before(from) && rc.Date.Before(to) {
			out = append(out, rc)
		}
	}
	return out, nil
}

func saleTx(price, sizeSqm float64, date time.Time) contracts.SaleTransaction {
	return contracts.SaleTransaction{
		OrgID:        "org-1",
		Source:       "dld",
		Area:         "marina",
		PropertyType: "apartment",
		Bedrooms:     2,
		SizeSqm:      sizeSqm,
		Price:        price,
		Date:         date,
	}
}

func rentalContract(annualRent float64, date time.Time) contracts.RentalContract {
	return contracts.RentalContract{
		OrgID:        "org-1",
		Source:       "ejari",
		Area:         "marina",
		PropertyType: "apartment",
		Bedrooms:     2,
		AnnualRent:   annualRent,
		Date:         date,
	}
}

func newTruthAggregator(txs *stubTransactions, rents *stubRentals, store *snapStore) *TruthAggregator {
	agg := NewTruthAggregator(txs, rents, store, zerolog.Nop())
	agg.now = func() time.Time { return time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC) }
	return agg
}

func findMetric(snaps []contracts.MetricSnapshot, metric string, windowStart time.Time) *contracts.MetricSnapshot {
	for i := range snaps {
		if snaps[i].Metric == metric && snaps[i].WindowStart.Equal(windowStart) {
			return &snaps[i]
		}
	}
	return nil
}

func TestTruthAggregator_QuarterlyMedians(t *testing.T) {
	q2 := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	q1 := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	txs := &stubTransactions{txs: []contracts.SaleTransaction{
		saleTx(1_000_000, 100, q2),
		saleTx(1_200_000, 100, q2),
		saleTx(1_400_000, 100, q2),
		saleTx(900_000, 100, q1),
		saleTx(1_100_000, 100, q1),
	}}
	rents := &stubRentals{contracts: []contracts.RentalContract{
		rentalContract(72_000, q2),
		rentalContract(84_000, q2),
	}}
	store := &snapStore{}

	written, err := newTruthAggregator(txs, rents, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 6, written, "four current metrics plus price and psm for the prior quarter")

	currentStart := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	currentEnd := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	price := findMetric(store.metrics, contracts.MetricMedianSalePrice, currentStart)
	require.NotNil(t, price)
	assert.InDelta(t, 1_200_000, price.Value, 1e-6)
	assert.Equal(t, 3, price.SampleSize)
	assert.Equal(t, contracts.TimeframeQuarterly, price.Timeframe)
	assert.True(t, price.WindowEnd.Equal(currentEnd))

	psm := findMetric(store.metrics, contracts.MetricMedianPricePSM, currentStart)
	require.NotNil(t, psm)
	assert.InDelta(t, 12_000, psm.Value, 1e-6)

	rent := findMetric(store.metrics, contracts.MetricMedianAnnualRent, currentStart)
	require.NotNil(t, rent)
	assert.InDelta(t, 78_000, rent.Value, 1e-6)
	assert.Equal(t, 2, rent.SampleSize)
	assert.Equal(t, "ejari", rent.Source)

	prevPrice := findMetric(store.metrics, contracts.MetricMedianSalePrice, currentStart.AddDate(0, -3, 0))
	require.NotNil(t, prevPrice)
	assert.InDelta(t, 1_000_000, prevPrice.Value, 1e-6)
}

func TestTruthAggregator_GrossYieldJoinsAcrossSources(t *testing.T) {
	q2 := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)

	txs := &stubTransactions{txs: []contracts.SaleTransaction{
		saleTx(1_000_000, 100, q2),
		saleTx(1_200_000, 100, q2),
		saleTx(1_400_000, 100, q2),
	}}
	rents := &stubRentals{contracts: []contracts.RentalContract{
		rentalContract(72_000, q2),
		rentalContract(84_000, q2),
	}}
	store := &snapStore{}

	_, err := newTruthAggregator(txs, rents, store).Run(context.Background(), "org-1")
	require.NoError(t, err)

	currentStart := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	yield := findMetric(store.metrics, contracts.MetricGrossYield, currentStart)
	require.NotNil(t, yield, "rent and price sources differ, the join is on geo and segment")
	assert.InDelta(t, 6.5, yield.Value, 1e-9, "78k median rent on a 1.2M median price")
	assert.Equal(t, 2, yield.SampleSize, "sample is the thinner side of the join")
	assert.Equal(t, "dld", yield.Source)
}

func TestTruthAggregator_SizelessAndZeroPriceRows(t *testing.T) {
	q2 := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)

	txs := &stubTransactions{txs: []contracts.SaleTransaction{
		saleTx(1_000_000, 100, q2),
		saleTx(1_200_000, 0, q2),
		saleTx(0, 100, q2),
	}}
	store := &snapStore{}

	_, err := newTruthAggregator(txs, &stubRentals{}, store).Run(context.Background(), "org-1")
	require.NoError(t, err)

	currentStart := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	price := findMetric(store.metrics, contracts.MetricMedianSalePrice, currentStart)
	require.NotNil(t, price)
	assert.Equal(t, 2, price.SampleSize, "zero-price rows are dropped entirely")

	psm := findMetric(store.metrics, contracts.MetricMedianPricePSM, currentStart)
	require.NotNil(t, psm)
	assert.Equal(t, 1, psm.SampleSize, "sizeless rows count toward price but not psm")
}

func TestTruthAggregator_EmptyWindows(t *testing.T) {
	store := &snapStore{}
	written, err := newTruthAggregator(&stubTransactions{}, &stubRentals{}, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func TestLastCompletedQuarter(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		start time.Time
		end   time.Time
	}{
		{
			name:  "mid q3 yields q2",
			now:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
			start: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "january yields prior year q4",
			now:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			start: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "last day of year yields q3",
			now:   time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC),
			start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := lastCompletedQuarter(tt.now)
			assert.True(t, start.Equal(tt.start), "start %v", start)
			assert.True(t, end.Equal(tt.end), "end %v", end)
		})
	}
}

func TestMedianOf(t *testing.T) {
	assert.Equal(t, 0.0, medianOf(nil))
	assert.Equal(t, 5.0, medianOf([]float64{5}))
	assert.Equal(t, 3.0, medianOf([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, medianOf([]float64{4, 1, 2, 3}))
}
