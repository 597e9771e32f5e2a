package contracts

import (
	"strings"
	"time"
)

// SignalType identifies the detected market event.
type SignalType string

const (
	SignalPriceChange        SignalType = "price_change"
	SignalRentChange         SignalType = "rent_change"
	SignalYieldOpportunity   SignalType = "yield_opportunity"
	SignalSupplySpike        SignalType = "supply_spike"
	SignalDiscountingSpike   SignalType = "discounting_spike"
	SignalStalenessRise      SignalType = "staleness_rise"
	SignalPricingOpportunity SignalType = "pricing_opportunity"
)

// Source types.
const (
	SourceTypeOfficial = "official"
	SourceTypePortal   = "portal"
)

// Severity buckets. Portal detectors use info/watch/urgent; the pricing
// detector uses low/normal/high/urgent.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityWatch  Severity = "watch"
	SeverityLow    Severity = "low"
	SeverityNormal Severity = "normal"
	SeverityHigh   Severity = "high"
	SeverityUrgent Severity = "urgent"
)

// SignalStatus is mutated by operator actions only. signal_key never changes.
type SignalStatus string

const (
	StatusNew          SignalStatus = "new"
	StatusAcknowledged SignalStatus = "acknowledged"
	StatusDismissed    SignalStatus = "dismissed"
)

// Signal is a detected, deduplicated market event.
type Signal struct {
	ID              string         `json:"id"`
	OrgID           string         `json:"org_id"`
	SignalKey       string         `json:"signal_key"`
	Type            SignalType     `json:"type"`
	SourceType      string         `json:"source_type"` // official | portal
	Source          string         `json:"source"`      // "dld", "bayut", ...
	GeoType         string         `json:"geo_type"`
	GeoID           string         `json:"geo_id"`
	Segment         string         `json:"segment"`
	Timeframe       Timeframe      `json:"timeframe"`
	Metric          string         `json:"metric"`
	CurrentValue    float64        `json:"current_value"`
	PrevValue       float64        `json:"prev_value"`
	DeltaPct        float64        `json:"delta_pct"`
	ConfidenceScore float64        `json:"confidence_score"` // [0,1]
	Severity        Severity       `json:"severity"`
	Status          SignalStatus   `json:"status"`
	Evidence        map[string]any `json:"evidence,omitempty"`
	DetectedAt      time.Time      `json:"detected_at"`
}

// SignalKey builds the deterministic identity string for snapshot-derived
// signals. Re-running detection on the same inputs yields the same key, so
// detection upserts instead of duplicating.
func SignalKey(sourceType, source string, typ SignalType, geoType, geoID, segment string, tf Timeframe, anchor time.Time) string {
	return strings.Join([]string{
		sourceType,
		source,
		string(typ),
		geoType,
		geoID,
		segment,
		string(tf),
		anchor.Format("2006-01-02"),
	}, "|")
}

// PricingSignalKey builds the identity string for pricing-opportunity
// signals, anchored on the listing rather than a time window.
func PricingSignalKey(portal, area, propertyType, listingID string) string {
	return strings.Join([]string{
		SourceTypePortal,
		portal,
		string(SignalPricingOpportunity),
		"area",
		area,
		propertyType,
		"listing",
		listingID,
	}, "|")
}

// IsRiskCorrelated reports whether a signal type correlates with downside
// risk. Low-risk-tolerance investors have their relevance capped for these.
func (t SignalType) IsRiskCorrelated() bool {
	switch t {
	case SignalDiscountingSpike, SignalSupplySpike, SignalStalenessRise:
		return true
	default:
		return false
	}
}
