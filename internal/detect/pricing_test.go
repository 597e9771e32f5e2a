package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxbintel/propsignal/internal/comparables"
	"github.com/dxbintel/propsignal/internal/contracts"
)

type stubListings struct {
	listings []contracts.RawListing
}

func (s *stubListings) ActiveForSale(_ context.Context, _ string) ([]contracts.RawListing, error) {
	return s.listings, nil
}

func (s *stubListings) Since(_ context.Context, _ string, _ time.Time) ([]contracts.RawListing, error) {
	return s.listings, nil
}

type stubTxReader struct {
	txs []contracts.SaleTransaction
}

func (s *stubTxReader) ByArea(_ context.Context, _, area string, _ time.Time) ([]contracts.SaleTransaction, error) {
	var out []contracts.SaleTransaction
	for _, tx := range s.txs {
		if tx.Area == area {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *stubTxReader) InWindow(_ context.Context, _ string, _, _ time.Time) ([]contracts.SaleTransaction, error) {
	return s.txs, nil
}

type stubMarket struct {
	yield      *contracts.AreaYield
	liquidity  *contracts.AreaLiquidity
	yieldCalls int
}

func (s *stubMarket) AreaYield(_ context.Context, _, _, _ string) (*contracts.AreaYield, error) {
	s.yieldCalls++
	return s.yield, nil
}

func (s *stubMarket) AreaLiquidity(_ context.Context, _, _, _ string) (*contracts.AreaLiquidity, error) {
	return s.liquidity, nil
}

func marinaComparables(psm float64, n int) []contracts.SaleTransaction {
	txs := make([]contracts.SaleTransaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, contracts.SaleTransaction{
			OrgID:        "org-1",
			Source:       "dld",
			Area:         "marina",
			PropertyType: "apartment",
			Bedrooms:     2,
			SizeSqm:      100,
			Price:        psm * 100,
			Date:         time.Now().AddDate(0, 0, -10),
		})
	}
	return txs
}

func marinaListing(price float64) contracts.RawListing {
	return contracts.RawListing{
		ID:           "lst-1",
		OrgID:        "org-1",
		Portal:       "bayut",
		Area:         "marina",
		PropertyType: "apartment",
		Bedrooms:     2,
		SizeSqm:      100,
		Price:        price,
		Purpose:      "sale",
		Active:       true,
		AsOfDate:     time.Now(),
	}
}

func newPricingDetector(listings *stubListings, txs *stubTxReader, market *stubMarket, store *captureStore) *PricingDetector {
	cfg := contracts.DefaultDetectionConfig()
	matcher := comparables.NewMatcher(txs, cfg.Comparables, testLogger())
	return NewPricingDetector(listings, matcher, market, store, cfg, testLogger())
}

func TestPricingDetector_DiscountedListingScores(t *testing.T) {
	store := newCaptureStore()
	listings := &stubListings{listings: []contracts.RawListing{marinaListing(1_600_000)}}
	txs := &stubTxReader{txs: marinaComparables(20_000, 4)}
	market := &stubMarket{}

	created, err := newPricingDetector(listings, txs, market, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, 1, created)

	sig := store.all()[0]
	assert.Equal(t, contracts.SignalPricingOpportunity, sig.Type)
	assert.Equal(t, contracts.SourceTypePortal, sig.SourceType)
	assert.Equal(t, "price_per_sqm", sig.Metric)
	assert.InDelta(t, 16_000, sig.CurrentValue, 1e-6)
	assert.InDelta(t, 20_000, sig.PrevValue, 1e-6, "prev value is the time-weighted comparable PSM")
	assert.InDelta(t, -0.20, sig.DeltaPct, 1e-9)
	assert.InDelta(t, 0.80, sig.ConfidenceScore, 1e-9, "confidence mirrors match quality")
	assert.Contains(t, sig.SignalKey, "lst-1", "key is anchored on the listing")
}

func TestPricingDetector_MarketPricedListingSkipped(t *testing.T) {
	store := newCaptureStore()
	// 10% above comparables: composite lands below the floor.
	listings := &stubListings{listings: []contracts.RawListing{marinaListing(2_200_000)}}
	txs := &stubTxReader{txs: marinaComparables(20_000, 4)}
	market := &stubMarket{}

	created, err := newPricingDetector(listings, txs, market, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestPricingDetector_NoComparablesSkipped(t *testing.T) {
	store := newCaptureStore()
	listings := &stubListings{listings: []contracts.RawListing{marinaListing(1_600_000)}}
	txs := &stubTxReader{txs: marinaComparables(20_000, 2)}
	market := &stubMarket{}

	created, err := newPricingDetector(listings, txs, market, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, created, "below the comparable floor nothing is scored")
}

func TestPricingDetector_YieldBoost(t *testing.T) {
	store := newCaptureStore()
	listings := &stubListings{listings: []contracts.RawListing{marinaListing(1_600_000)}}
	txs := &stubTxReader{txs: marinaComparables(20_000, 4)}
	market := &stubMarket{
		yield: &contracts.AreaYield{
			OrgID:            "org-1",
			Area:             "marina",
			Segment:          "apartment",
			MedianAnnualRent: 128_000,
			GrossYieldPct:    6.0,
		},
	}

	created, err := newPricingDetector(listings, txs, market, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, 1, created)

	// 128k rent on a 1.6M ask is an 8% yield, 2pp above the area average:
	// the yield sub-score saturates and lifts severity.
	sig := store.all()[0]
	assert.Equal(t, contracts.SeverityHigh, sig.Severity)
}

func TestPricingDetector_AreaLookupsCachedPerRun(t *testing.T) {
	store := newCaptureStore()
	many := make([]contracts.RawListing, 0, 5)
	for i := 0; i < 5; i++ {
		l := marinaListing(1_600_000)
		l.ID = string(rune('a' + i))
		many = append(many, l)
	}
	listings := &stubListings{listings: many}
	txs := &stubTxReader{txs: marinaComparables(20_000, 4)}
	market := &stubMarket{}

	_, err := newPricingDetector(listings, txs, market, store).Run(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, market.yieldCalls, "absent yield data is cached per (area, segment) too")
}
