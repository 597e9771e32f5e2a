package contracts

// DetectionConfig is the single structured configuration object for every
// pipeline threshold and weight. It is injected into each component;
// components never read scattered constants.
type DetectionConfig struct {
	Truth       TruthThresholds    `json:"truth"`
	Portal      PortalThresholds   `json:"portal"`
	Comparables ComparableSettings `json:"comparables"`
	Scoring     ScoringWeights     `json:"scoring"`
	Mapper      MapperWeights      `json:"mapper"`
	Batch       BatchSettings      `json:"batch"`
}

// TruthThresholds controls the official-transaction detector.
type TruthThresholds struct {
	DeltaThreshold float64 `json:"delta_threshold"` // e.g. 0.05 = 5% QoQ
	MinSampleSize  int     `json:"min_sample_size"`
	HighConfidence float64 `json:"high_confidence"`
	LowConfidence  float64 `json:"low_confidence"`
	YieldFloorPct  float64 `json:"yield_floor_pct"`
}

// PortalThresholds controls the listing-inventory detector and aggregator.
type PortalThresholds struct {
	MinActiveListings int     `json:"min_active_listings"`
	SupplyThreshold   float64 `json:"supply_threshold"`
	DiscountThreshold float64 `json:"discount_threshold"`
	StaleThreshold    float64 `json:"stale_threshold"`
	UrgentDelta       float64 `json:"urgent_delta"`
	WatchDelta        float64 `json:"watch_delta"`
	StaleDaysOnMarket int     `json:"stale_days_on_market"`
	LookbackDays      int     `json:"lookback_days"`
}

// ComparableSettings controls the tiered comparable matcher.
type ComparableSettings struct {
	MinComparables int     `json:"min_comparables"`
	SizeTolerance  float64 `json:"size_tolerance"` // band around listing size, e.g. 0.15
	LookbackMonths int     `json:"lookback_months"`
	HalfLifeDays   float64 `json:"half_life_days"` // recency weighting decay
}

// ScoringWeights controls the composite scorer. The six weights sum to 1.0.
type ScoringWeights struct {
	Price        float64 `json:"price"`
	Yield        float64 `json:"yield"`
	MatchQuality float64 `json:"match_quality"`
	Sentiment    float64 `json:"sentiment"`
	Liquidity    float64 `json:"liquidity"`
	Recency      float64 `json:"recency"`
	MinComposite float64 `json:"min_composite"` // below this, no signal
}

// MapperWeights controls the investor mapper's additive relevance score.
type MapperWeights struct {
	YieldMet      float64 `json:"yield_met"`
	AreaExact     float64 `json:"area_exact"`
	AreaOpen      float64 `json:"area_open"`
	BudgetWithin  float64 `json:"budget_within"`
	BudgetSoft    float64 `json:"budget_soft"`
	ExposureBoost float64 `json:"exposure_boost"`
	RiskCap       float64 `json:"risk_cap"`
	MinRelevance  float64 `json:"min_relevance"`
	PageSize      int     `json:"page_size"`
}

// BatchSettings bounds single-request write sizes.
type BatchSettings struct {
	WriteSize int `json:"write_size"`
}

// DefaultDetectionConfig returns the production defaults.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		Truth: TruthThresholds{
			DeltaThreshold: 0.05,
			MinSampleSize:  25,
			HighConfidence: 0.85,
			LowConfidence:  0.60,
			YieldFloorPct:  6.5,
		},
		Portal: PortalThresholds{
			MinActiveListings: 30,
			SupplyThreshold:   0.15,
			DiscountThreshold: 0.20,
			StaleThreshold:    0.20,
			UrgentDelta:       0.25,
			WatchDelta:        0.15,
			StaleDaysOnMarket: 60,
			LookbackDays:      28,
		},
		Comparables: ComparableSettings{
			MinComparables: 3,
			SizeTolerance:  0.15,
			LookbackMonths: 18,
			HalfLifeDays:   180,
		},
		Scoring: ScoringWeights{
			Price:        0.30,
			Yield:        0.20,
			MatchQuality: 0.15,
			Sentiment:    0.15,
			Liquidity:    0.10,
			Recency:      0.10,
			MinComposite: 55,
		},
		Mapper: MapperWeights{
			YieldMet:      0.30,
			AreaExact:     0.35,
			AreaOpen:      0.15,
			BudgetWithin:  0.25,
			BudgetSoft:    0.10,
			ExposureBoost: 0.10,
			RiskCap:       0.65,
			MinRelevance:  0.35,
			PageSize:      100,
		},
		Batch: BatchSettings{
			WriteSize: 200,
		},
	}
}
