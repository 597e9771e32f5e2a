package contracts

import "time"

// Timeframe identifies the comparison window of a snapshot.
type Timeframe string

const (
	TimeframeWeekly    Timeframe = "weekly"
	TimeframeQuarterly Timeframe = "quarterly"
)

// Well-known truth metrics.
const (
	MetricMedianSalePrice  = "median_sale_price"
	MetricMedianPricePSM   = "median_price_psm"
	MetricMedianAnnualRent = "median_annual_rent"
	MetricGrossYield       = "gross_yield"
)

// MetricSnapshot is an aggregate value of one metric for one
// (geo, segment, timeframe, window). Never mutated after creation;
// superseded by later windows. Exactly one row exists per
// (org, source, geo, segment, metric, timeframe, window_end).
type MetricSnapshot struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Source      string    `json:"source"`
	GeoType     string    `json:"geo_type"` // "area"
	GeoID       string    `json:"geo_id"`
	Segment     string    `json:"segment"`
	Metric      string    `json:"metric"`
	Timeframe   Timeframe `json:"timeframe"`
	Value       float64   `json:"value"`
	SampleSize  int       `json:"sample_size"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// SnapshotPair is a current snapshot with its predecessor for the same group.
// Prev is nil during cold start, when only one window exists yet.
type SnapshotPair struct {
	Current MetricSnapshot  `json:"current"`
	Prev    *MetricSnapshot `json:"prev,omitempty"`
}

// PortalListingSnapshot is the daily inventory aggregate per
// (org, portal, geo, segment, as_of_date).
type PortalListingSnapshot struct {
	ID                 string    `json:"id"`
	OrgID              string    `json:"org_id"`
	Portal             string    `json:"portal"`
	GeoType            string    `json:"geo_type"`
	GeoID              string    `json:"geo_id"`
	Segment            string    `json:"segment"`
	AsOfDate           time.Time `json:"as_of_date"`
	ActiveListings     int       `json:"active_listings"`
	PriceCutsCount     int       `json:"price_cuts_count"`
	StaleListingsCount int       `json:"stale_listings_count"`
}

// PortalSnapshotPair is a current portal snapshot with the one from exactly
// seven days earlier. Prev is nil during cold start.
type PortalSnapshotPair struct {
	Current PortalListingSnapshot  `json:"current"`
	Prev    *PortalListingSnapshot `json:"prev,omitempty"`
}

// ComparableSet is the ephemeral result of the comparable matcher.
// It is computed on demand per listing and never persisted.
type ComparableSet struct {
	MatchTier          int       `json:"match_tier"` // 1 (tightest) .. 4 (broadest)
	ComparableCount    int       `json:"comparable_count"`
	MedianPrice        float64   `json:"median_price"`
	MedianPricePerSqm  float64   `json:"median_price_per_sqm"`
	TimeWeightedAvgPSM float64   `json:"time_weighted_avg_psm"`
	MinPrice           float64   `json:"min_price"`
	MaxPrice           float64   `json:"max_price"`
	RecencyScore       float64   `json:"recency_score"` // [0,1]
	LatestDate         time.Time `json:"latest_date"`
}

// AreaYield holds rental yield aggregates for an (area, segment).
type AreaYield struct {
	OrgID            string  `json:"org_id"`
	Area             string  `json:"area"`
	Segment          string  `json:"segment"`
	MedianAnnualRent float64 `json:"median_annual_rent"`
	GrossYieldPct    float64 `json:"gross_yield_pct"`
}

// AreaLiquidity holds days-on-market distribution for an (area, segment).
type AreaLiquidity struct {
	OrgID          string  `json:"org_id"`
	Area           string  `json:"area"`
	Segment        string  `json:"segment"`
	DomP25         int     `json:"dom_p25"`
	DomP50         int     `json:"dom_p50"`
	DomP75         int     `json:"dom_p75"`
	LiquidityScore float64 `json:"liquidity_score"` // [0,1]
}
