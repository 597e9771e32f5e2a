package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dxbintel/propsignal/internal/contracts"
)

func TestPriceScore(t *testing.T) {
	tests := []struct {
		name     string
		discount float64
		want     float64
	}{
		{"deep discount saturates", 35, 1.0},
		{"saturation boundary", 30, 1.0},
		{"strong discount", 25, 0.925},
		{"twenty percent", 20, 0.85},
		{"fifteen percent", 15, 0.775},
		{"ten percent", 10, 0.70},
		{"five percent", 5, 0.60},
		{"at market", 0, 0.50},
		{"small premium", -5, 0.375},
		{"ten percent premium", -10, 0.25},
		{"fifteen percent premium", -15, 0.175},
		{"twenty percent premium", -20, 0.10},
		{"deep premium floors at zero", -25, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PriceScore(tt.discount), 1e-9)
		})
	}
}

func TestPriceScore_Monotonic(t *testing.T) {
	prev := PriceScore(-40)
	for d := -39.0; d <= 40; d++ {
		cur := PriceScore(d)
		assert.GreaterOrEqual(t, cur, prev, "score must not decrease at discount %v", d)
		prev = cur
	}
}

func TestYieldScore(t *testing.T) {
	tests := []struct {
		name    string
		premium float64
		want    float64
	}{
		{"large premium saturates", 3, 1.0},
		{"two points", 2, 1.0},
		{"one and a half points", 1.5, 0.925},
		{"one point", 1, 0.85},
		{"at area average", 0, 0.50},
		{"half point below", -0.5, 0.40},
		{"one point below", -1, 0.30},
		{"two points below", -2, 0.15},
		{"floor below minus two", -3, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, YieldScore(tt.premium), 1e-9)
		})
	}
}

func TestMatchQualityScore(t *testing.T) {
	tests := []struct {
		name  string
		tier  int
		count int
		want  float64
	}{
		{"tier1 thin", 1, 5, 0.95},
		{"tier1 large sample caps at one", 1, 50, 1.0},
		{"tier2 medium sample", 2, 20, 0.83},
		{"tier3 small sample", 3, 10, 0.61},
		{"tier4 no bonus", 4, 3, 0.40},
		{"no match", 0, 100, 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MatchQualityScore(tt.tier, tt.count), 1e-9)
		})
	}
}

func TestScorer_Score_DiscountScenario(t *testing.T) {
	scorer := NewScorer(contracts.DefaultDetectionConfig().Scoring)

	// Listing 20% below its comparables, tier-2 match with a healthy sample,
	// fresh data, yield and liquidity unknown.
	b := scorer.Score(Inputs{
		ListingPSM:      8_000,
		ComparablePSM:   10_000,
		MatchTier:       2,
		ComparableCount: 40,
		RecencyScore:    1.0,
	})

	assert.InDelta(t, 20.0, b.DiscountPct, 1e-9)
	assert.InDelta(t, 0.85, b.Price, 1e-9)
	assert.InDelta(t, neutral, b.Yield, 1e-9, "unknown yield must stay neutral")
	assert.InDelta(t, 0.83, b.MatchQuality, 1e-9)
	assert.InDelta(t, SentimentNeutral, b.Sentiment, 1e-9)
	assert.Equal(t, 70, b.Composite)
	assert.Equal(t, RatingStrongBuy, b.Rating)
	assert.Equal(t, contracts.SeverityHigh, b.Severity)
}

func TestScorer_Score_YieldPremium(t *testing.T) {
	scorer := NewScorer(contracts.DefaultDetectionConfig().Scoring)

	b := scorer.Score(Inputs{
		ListingPSM:      9_500,
		ComparablePSM:   10_000,
		ListingYieldPct: 8.2,
		AreaYieldPct:    6.2,
		HasYield:        true,
		MatchTier:       1,
		ComparableCount: 12,
		LiquidityScore:  0.7,
		HasLiquidity:    true,
		RecencyScore:    0.8,
	})

	assert.InDelta(t, 2.0, b.YieldPremiumPP, 1e-9)
	assert.InDelta(t, 1.0, b.Yield, 1e-9)
	assert.InDelta(t, 0.96, b.MatchQuality, 1e-9)
	assert.InDelta(t, 0.7, b.Liquidity, 1e-9)
}

func TestScorer_Score_OverpricedListing(t *testing.T) {
	scorer := NewScorer(contracts.DefaultDetectionConfig().Scoring)

	b := scorer.Score(Inputs{
		ListingPSM:      13_000,
		ComparablePSM:   10_000,
		MatchTier:       4,
		ComparableCount: 3,
		RecencyScore:    0,
	})

	assert.InDelta(t, -30.0, b.DiscountPct, 1e-9)
	assert.InDelta(t, 0.0, b.Price, 1e-9)
	assert.Less(t, b.Composite, 40)
	assert.Equal(t, RatingOverpriced, b.Rating)
	assert.Equal(t, contracts.SeverityLow, b.Severity)
}

func TestScorer_Score_NoComparablePSM(t *testing.T) {
	scorer := NewScorer(contracts.DefaultDetectionConfig().Scoring)

	b := scorer.Score(Inputs{ListingPSM: 9_000, ComparablePSM: 0})
	assert.InDelta(t, 0.0, b.DiscountPct, 1e-9, "missing comparable PSM means no discount claim")
}

func TestRating(t *testing.T) {
	tests := []struct {
		composite int
		want      string
	}{
		{100, RatingExceptional},
		{85, RatingExceptional},
		{84, RatingStrongBuy},
		{70, RatingStrongBuy},
		{69, RatingFairDeal},
		{55, RatingFairDeal},
		{54, RatingMarketPrice},
		{40, RatingMarketPrice},
		{39, RatingOverpriced},
		{0, RatingOverpriced},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Rating(tt.composite), "composite %d", tt.composite)
	}
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, contracts.SeverityUrgent, SeverityFor(85))
	assert.Equal(t, contracts.SeverityHigh, SeverityFor(70))
	assert.Equal(t, contracts.SeverityNormal, SeverityFor(55))
	assert.Equal(t, contracts.SeverityLow, SeverityFor(54))
}
