package comparables

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// Descriptor identifies the listing being matched.
type Descriptor struct {
	Area         string
	PropertyType string
	Bedrooms     int
	SizeSqm      float64
	BuildingName string
}

// Matcher finds historical comparable transactions for a listing using
// tiered fallback: tier 1 is the tightest match, tier 4 the broadest.
// Construct one Matcher per pipeline run; the per-area transaction cache is
// run-scoped and must not survive across runs.
type Matcher struct {
	transactions contracts.TransactionReader
	cfg          contracts.ComparableSettings
	log          zerolog.Logger

	areaCache map[string][]contracts.SaleTransaction
	now       func() time.Time
}

// NewMatcher creates a run-scoped matcher.
func NewMatcher(transactions contracts.TransactionReader, cfg contracts.ComparableSettings, log zerolog.Logger) *Matcher {
	return &Matcher{
		transactions: transactions,
		cfg:          cfg,
		log:          log.With().Str("component", "comparables.matcher").Logger(),
		areaCache:    make(map[string][]contracts.SaleTransaction),
		now:          time.Now,
	}
}

// Match attempts tiers in strict order and stops at the first tier yielding
// at least cfg.MinComparables. It returns (nil, nil) when even tier 4 is too
// thin: the caller skips the listing, it is not an error.
func (m *Matcher) Match(ctx context.Context, orgID string, d Descriptor) (*contracts.ComparableSet, error) {
	pool, err := m.areaTransactions(ctx, orgID, d.Area)
	if err != nil {
		return nil, fmt.Errorf("load area transactions: %w", err)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	for tier := 1; tier <= 4; tier++ {
		matched := m.filterTier(pool, d, tier)
		if len(matched) < m.cfg.MinComparables {
			continue
		}

		set := m.buildSet(matched, tier)
		m.log.Debug().
			Str("area", d.Area).
			Int("tier", tier).
			Int("count", set.ComparableCount).
			Float64("twa_psm", set.TimeWeightedAvgPSM).
			Msg("comparables matched")
		return set, nil
	}

	m.log.Debug().
		Str("area", d.Area).
		Str("property_type", d.PropertyType).
		Int("pool", len(pool)).
		Msg("no tier reached minimum comparable count")
	return nil, nil
}

// areaTransactions loads (once per run per area) the lookback window of
// transactions for the listing's area.
func (m *Matcher) areaTransactions(ctx context.Context, orgID, area string) ([]contracts.SaleTransaction, error) {
	key := orgID + "|" + area
	if cached, ok := m.areaCache[key]; ok {
		return cached, nil
	}

	since := m.now().AddDate(0, -m.cfg.LookbackMonths, 0)
	txs, err := m.transactions.ByArea(ctx, orgID, area, since)
	if err != nil {
		return nil, err
	}

	m.areaCache[key] = txs
	return txs, nil
}

func (m *Matcher) filterTier(pool []contracts.SaleTransaction, d Descriptor, tier int) []contracts.SaleTransaction {
	var out []contracts.SaleTransaction
	for _, tx := range pool {
		if tx.Price <= 0 {
			continue
		}
		switch tier {
		case 1:
			if d.BuildingName == "" {
				continue
			}
			if !strings.EqualFold(tx.BuildingName, d.BuildingName) {
				continue
			}
			if tx.Bedrooms != d.Bedrooms || !m.sizeWithinBand(tx.SizeSqm, d.SizeSqm) {
				continue
			}
		case 2:
			if !strings.EqualFold(tx.PropertyType, d.PropertyType) {
				continue
			}
			if tx.Bedrooms != d.Bedrooms || !m.sizeWithinBand(tx.SizeSqm, d.SizeSqm) {
				continue
			}
		case 3:
			if !strings.EqualFold(tx.PropertyType, d.PropertyType) {
				continue
			}
		case 4:
			// area-only fallback, every priced row qualifies
		}
		out = append(out, tx)
	}
	return out
}

func (m *Matcher) sizeWithinBand(txSize, listingSize float64) bool {
	if listingSize <= 0 || txSize <= 0 {
		return false
	}
	band := listingSize * m.cfg.SizeTolerance
	return math.Abs(txSize-listingSize) <= band
}

// buildSet computes the winning tier's statistics.
func (m *Matcher) buildSet(txs []contracts.SaleTransaction, tier int) *contracts.ComparableSet {
	prices := make([]float64, 0, len(txs))
	psms := make([]float64, 0, len(txs))
	minPrice := math.MaxFloat64
	maxPrice := 0.0
	latest := txs[0].Date

	var weightedSum, weightTotal float64
	now := m.now()

	for _, tx := range txs {
		prices = append(prices, tx.Price)
		if tx.Price < minPrice {
			minPrice = tx.Price
		}
		if tx.Price > maxPrice {
			maxPrice = tx.Price
		}
		if tx.Date.After(latest) {
			latest = tx.Date
		}

		if tx.SizeSqm > 0 {
			psm := tx.Price / tx.SizeSqm
			psms = append(psms, psm)

			// Exponential decay: recent transactions dominate the average.
			ageDays := now.Sub(tx.Date).Hours() / 24
			if ageDays < 0 {
				ageDays = 0
			}
			weight := math.Pow(0.5, ageDays/m.cfg.HalfLifeDays)
			weightedSum += psm * weight
			weightTotal += weight
		}
	}

	set := &contracts.ComparableSet{
		MatchTier:       tier,
		ComparableCount: len(txs),
		MedianPrice:     median(prices),
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		LatestDate:      latest,
	}
	if len(psms) > 0 {
		set.MedianPricePerSqm = median(psms)
	}
	if weightTotal > 0 {
		set.TimeWeightedAvgPSM = weightedSum / weightTotal
	}

	ageDays := now.Sub(latest).Hours() / 24
	set.RecencyScore = recencyScore(ageDays)

	return set
}

// recencyScore maps the age of the freshest comparable to [0,1]; data older
// than a year contributes nothing.
func recencyScore(ageDays float64) float64 {
	score := 1 - ageDays/365
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func median(values []float64) float64 {
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
