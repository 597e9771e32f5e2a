package scoring

import (
	"math"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// SentimentNeutral is the placeholder sentiment sub-score. No NLP signal
// feeds it yet; replacing this constant is the intended upgrade path, so the
// weight stays in the blend instead of being silently dropped.
const SentimentNeutral = 0.5

// neutral is used for sub-scores whose inputs are unavailable.
const neutral = 0.5

// Ratings in descending order.
const (
	RatingExceptional = "exceptional_opportunity"
	RatingStrongBuy   = "strong_buy"
	RatingFairDeal    = "fair_deal"
	RatingMarketPrice = "market_price"
	RatingOverpriced  = "overpriced"
)

// Inputs are the raw facts behind one pricing-opportunity score.
type Inputs struct {
	ListingPSM    float64 // listing price per sqm
	ComparablePSM float64 // time-weighted comparable price per sqm

	ListingYieldPct float64 // implied gross yield of the listing
	AreaYieldPct    float64 // area average gross yield
	HasYield        bool

	MatchTier       int // 1..4, 0 = no match
	ComparableCount int

	LiquidityScore float64 // [0,1]
	HasLiquidity   bool

	RecencyScore float64 // [0,1]
}

// Breakdown is the full scoring result, persisted as signal evidence.
type Breakdown struct {
	Price        float64 `json:"price"`
	Yield        float64 `json:"yield"`
	MatchQuality float64 `json:"match_quality"`
	Sentiment    float64 `json:"sentiment"`
	Liquidity    float64 `json:"liquidity"`
	Recency      float64 `json:"recency"`

	DiscountPct    float64 `json:"discount_pct"`
	YieldPremiumPP float64 `json:"yield_premium_pp"`

	Composite int                `json:"composite"`
	Rating    string             `json:"rating"`
	Severity  contracts.Severity `json:"severity"`
}

// Scorer computes the weighted composite score for pricing opportunities.
type Scorer struct {
	weights contracts.ScoringWeights
}

// NewScorer creates a scorer with the given weights. Weights must sum to 1.0
// for the composite to stay within [0,100].
func NewScorer(weights contracts.ScoringWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the six sub-scores and the composite.
func (s *Scorer) Score(in Inputs) Breakdown {
	b := Breakdown{
		Sentiment: SentimentNeutral,
		Recency:   clamp01(in.RecencyScore),
	}

	b.DiscountPct = discountPct(in.ListingPSM, in.ComparablePSM)
	b.Price = PriceScore(b.DiscountPct)

	if in.HasYield {
		b.YieldPremiumPP = in.ListingYieldPct - in.AreaYieldPct
		b.Yield = YieldScore(b.YieldPremiumPP)
	} else {
		b.Yield = neutral
	}

	b.MatchQuality = MatchQualityScore(in.MatchTier, in.ComparableCount)

	if in.HasLiquidity {
		b.Liquidity = clamp01(in.LiquidityScore)
	} else {
		b.Liquidity = neutral
	}

	w := s.weights
	total := b.Price*w.Price +
		b.Yield*w.Yield +
		b.MatchQuality*w.MatchQuality +
		b.Sentiment*w.Sentiment +
		b.Liquidity*w.Liquidity +
		b.Recency*w.Recency

	b.Composite = int(math.Round(100 * total))
	if b.Composite < 0 {
		b.Composite = 0
	}
	if b.Composite > 100 {
		b.Composite = 100
	}
	b.Rating = Rating(b.Composite)
	b.Severity = SeverityFor(b.Composite)

	return b
}

// discountPct returns how far the listing sits below the comparable PSM, in
// percent. Positive = listing is cheaper than comparables.
func discountPct(listingPSM, comparablePSM float64) float64 {
	if comparablePSM <= 0 {
		return 0
	}
	return (comparablePSM - listingPSM) / comparablePSM * 100
}

// PriceScore maps a discount percentage to [0,1] on an asymmetric
// piecewise-linear curve: discounts are rewarded more steeply than premiums
// are penalized, and the curve saturates at both ends.
func PriceScore(d float64) float64 {
	switch {
	case d >= 30:
		return 1.0
	case d >= 20:
		return 0.85 + 0.015*(d-20)
	case d >= 10:
		return 0.70 + 0.015*(d-10)
	case d >= 0:
		return 0.50 + 0.02*d
	case d >= -10:
		return 0.25 + 0.025*(d+10)
	case d >= -20:
		return 0.10 + 0.015*(d+20)
	default:
		return 0.0
	}
}

// YieldScore maps the yield premium (listing yield minus area average, in
// percentage points) to [0,1], with a 0.1 floor below -2pp.
func YieldScore(premium float64) float64 {
	switch {
	case premium >= 2:
		return 1.0
	case premium >= 1:
		return 0.70 + 0.15*premium
	case premium >= -1:
		return 0.50 + 0.20*premium
	case premium >= -2:
		return 0.30 + 0.15*(premium+1)
	default:
		return 0.1
	}
}

// MatchQualityScore maps comparable tier and sample size to [0,1].
func MatchQualityScore(tier, count int) float64 {
	var base float64
	switch tier {
	case 1:
		base = 0.95
	case 2:
		base = 0.80
	case 3:
		base = 0.60
	case 4:
		base = 0.40
	default:
		base = 0.10
	}

	var bonus float64
	switch {
	case count >= 50:
		bonus = 0.05
	case count >= 20:
		bonus = 0.03
	case count >= 10:
		bonus = 0.01
	}

	score := base + bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Rating maps a composite score to its rating bucket.
func Rating(composite int) string {
	switch {
	case composite >= 85:
		return RatingExceptional
	case composite >= 70:
		return RatingStrongBuy
	case composite >= 55:
		return RatingFairDeal
	case composite >= 40:
		return RatingMarketPrice
	default:
		return RatingOverpriced
	}
}

// SeverityFor maps a composite score to signal severity.
func SeverityFor(composite int) contracts.Severity {
	switch {
	case composite >= 85:
		return contracts.SeverityUrgent
	case composite >= 70:
		return contracts.SeverityHigh
	case composite >= 55:
		return contracts.SeverityNormal
	default:
		return contracts.SeverityLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
