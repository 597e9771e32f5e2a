package contracts

import "time"

// Risk tolerance levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Mandate is an investor's structured acquisition preferences.
// Pointer fields are nil when the investor never configured them, which is
// different from a zero value: a nil yield target means yield signals cannot
// be evaluated for this investor at all.
type Mandate struct {
	PreferredAreas []string `json:"preferred_areas"` // areas and project names
	BudgetMin      *float64 `json:"budget_min,omitempty"`
	BudgetMax      *float64 `json:"budget_max,omitempty"`
	YieldTargetPct *float64 `json:"yield_target_pct,omitempty"`
	RiskTolerance  string   `json:"risk_tolerance"`
}

// IsOpen reports whether the investor accepts any area.
func (m *Mandate) IsOpen() bool {
	return len(m.PreferredAreas) == 0
}

// Investor is one investor of a tenant. Only investors with a mandate
// participate in mapping.
type Investor struct {
	ID      string   `json:"id"`
	OrgID   string   `json:"org_id"`
	Name    string   `json:"name"`
	Mandate *Mandate `json:"mandate,omitempty"`
}

// MatchReason is the machine-readable explanation of why a signal matched an
// investor, written alongside every target for auditability.
type MatchReason struct {
	Matched        []string      `json:"matched"`          // sub-matches that fired
	AreaMatch      string        `json:"area_match"`       // "exact" | "open" | "none"
	BudgetCheck    string        `json:"budget_check"`     // "within" | "outside" | "soft"
	YieldMet       *bool         `json:"yield_met,omitempty"`
	ExposureBoost  bool          `json:"exposure_boost"`
	RiskCapApplied bool          `json:"risk_cap_applied"`
	Config         MapperWeights `json:"config"` // threshold configuration used
}

// SignalTarget maps one signal to one investor. Unique per
// (org, signal_id, investor_id).
type SignalTarget struct {
	ID             string      `json:"id"`
	OrgID          string      `json:"org_id"`
	SignalID       string      `json:"signal_id"`
	InvestorID     string      `json:"investor_id"`
	RelevanceScore float64     `json:"relevance_score"` // [0,1]
	Reason         MatchReason `json:"reason"`
	Status         string      `json:"status"` // "new", ...
	CreatedAt      time.Time   `json:"created_at"`
}

// Target lifecycle: targets start "new" and move to "published" once their
// notifications are written.
const (
	TargetStatusNew       = "new"
	TargetStatusPublished = "published"
)
