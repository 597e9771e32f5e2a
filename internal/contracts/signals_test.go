package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalKey(t *testing.T) {
	anchor := time.Date(2026, 7, 1, 14, 30, 0, 0, time.UTC)
	key := SignalKey(SourceTypeOfficial, "dld", SignalPriceChange, "area", "marina", "apartment", TimeframeQuarterly, anchor)

	assert.Equal(t, "official|dld|price_change|area|marina|apartment|quarterly|2026-07-01", key)

	later := SignalKey(SourceTypeOfficial, "dld", SignalPriceChange, "area", "marina", "apartment", TimeframeQuarterly, anchor.Add(3*time.Hour))
	assert.Equal(t, key, later, "the anchor is truncated to the date")
}

func TestPricingSignalKey(t *testing.T) {
	key := PricingSignalKey("bayut", "marina", "apartment", "lst-42")
	assert.Equal(t, "portal|bayut|pricing_opportunity|area|marina|apartment|listing|lst-42", key)
}

func TestNotificationKey(t *testing.T) {
	assert.Equal(t, "org-1|user-a|sig-1|inv-1", NotificationKey("org-1", "user-a", "sig-1", "inv-1"))
}

func TestSignalType_IsRiskCorrelated(t *testing.T) {
	assert.True(t, SignalSupplySpike.IsRiskCorrelated())
	assert.True(t, SignalDiscountingSpike.IsRiskCorrelated())
	assert.True(t, SignalStalenessRise.IsRiskCorrelated())

	assert.False(t, SignalPriceChange.IsRiskCorrelated())
	assert.False(t, SignalRentChange.IsRiskCorrelated())
	assert.False(t, SignalYieldOpportunity.IsRiskCorrelated())
	assert.False(t, SignalPricingOpportunity.IsRiskCorrelated())
}

func TestMandate_IsOpen(t *testing.T) {
	open := &Mandate{}
	assert.True(t, open.IsOpen())

	constrained := &Mandate{PreferredAreas: []string{"marina"}}
	assert.False(t, constrained.IsOpen())
}

func TestDefaultDetectionConfig_ScoringWeightsSumToOne(t *testing.T) {
	w := DefaultDetectionConfig().Scoring
	sum := w.Price + w.Yield + w.MatchQuality + w.Sentiment + w.Liquidity + w.Recency
	assert.InDelta(t, 1.0, sum, 1e-9)
}
