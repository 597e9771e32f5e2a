package mapper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// Mapper scores unmapped signals against investor mandates and writes
// signal targets for every pair clearing the relevance floor. Exposure
// lookups are best effort: a failing lookup costs the boost, never the run.
type Mapper struct {
	signals   contracts.SignalStore
	investors contracts.InvestorReader
	targets   contracts.TargetStore
	exposure  contracts.ExposureLookup
	cfg       contracts.MapperWeights
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a mapper. exposure may be nil when no exposure collaborator is
// configured.
func New(signals contracts.SignalStore, investors contracts.InvestorReader, targets contracts.TargetStore, exposure contracts.ExposureLookup, cfg contracts.MapperWeights, log zerolog.Logger) *Mapper {
	return &Mapper{
		signals:   signals,
		investors: investors,
		targets:   targets,
		exposure:  exposure,
		cfg:       cfg,
		log:       log.With().Str("component", "mapper").Logger(),
		now:       time.Now,
	}
}

// Result summarizes one mapping run.
type Result struct {
	SignalsProcessed int
	TargetsCreated   int
	BelowThreshold   int
}

// Run maps all unmapped signals of one org, page by page. Each page is
// marked mapped only after its targets are written, so a mid-run failure
// re-processes at most one page on retry.
func (m *Mapper) Run(ctx context.Context, orgID string) (Result, error) {
	var res Result

	investors, err := m.investors.WithMandates(ctx, orgID)
	if err != nil {
		return res, fmt.Errorf("load investors: %w", err)
	}
	if len(investors) == 0 {
		m.log.Info().Str("org_id", orgID).Msg("no investors with mandates, nothing to map")
		return res, nil
	}

	cursor := ""
	for {
		signals, next, err := m.signals.ListUnmapped(ctx, orgID, cursor, m.cfg.PageSize)
		if err != nil {
			return res, fmt.Errorf("list unmapped signals: %w", err)
		}
		if len(signals) == 0 {
			break
		}

		var targets []contracts.SignalTarget
		ids := make([]string, 0, len(signals))
		for _, sig := range signals {
			ids = append(ids, sig.ID)
			for _, inv := range investors {
				target, below := m.score(ctx, sig, inv)
				if below {
					res.BelowThreshold++
				}
				if target != nil {
					targets = append(targets, *target)
				}
			}
		}

		created, err := m.targets.UpsertTargets(ctx, targets)
		if err != nil {
			return res, fmt.Errorf("upsert targets: %w", err)
		}
		if err := m.signals.MarkMapped(ctx, orgID, ids); err != nil {
			return res, fmt.Errorf("mark signals mapped: %w", err)
		}

		res.SignalsProcessed += len(signals)
		res.TargetsCreated += created
		if next == "" {
			break
		}
		cursor = next
	}

	m.log.Info().
		Str("org_id", orgID).
		Int("signals", res.SignalsProcessed).
		Int("targets", res.TargetsCreated).
		Int("below_threshold", res.BelowThreshold).
		Msg("mapping completed")
	return res, nil
}

// score evaluates one signal-investor pair. Returns (nil, false) for a hard
// disqualification, (nil, true) when the pair scored below the relevance
// floor, and a target otherwise.
func (m *Mapper) score(ctx context.Context, sig contracts.Signal, inv contracts.Investor) (*contracts.SignalTarget, bool) {
	mandate := inv.Mandate
	if mandate == nil {
		return nil, false
	}

	reason := contracts.MatchReason{Config: m.cfg}
	score := 0.0

	// Yield signals are gated hard: an investor without a yield target, or
	// with an unmet one, is not a candidate at all.
	if sig.Type == contracts.SignalYieldOpportunity {
		if mandate.YieldTargetPct == nil {
			return nil, false
		}
		met := sig.CurrentValue >= *mandate.YieldTargetPct
		reason.YieldMet = &met
		if !met {
			return nil, false
		}
		score += m.cfg.YieldMet
		reason.Matched = append(reason.Matched, "yield_met")
	}

	switch {
	case m.areaMatches(mandate, sig.GeoID):
		score += m.cfg.AreaExact
		reason.AreaMatch = "exact"
		reason.Matched = append(reason.Matched, "area_exact")
	case mandate.IsOpen():
		score += m.cfg.AreaOpen
		reason.AreaMatch = "open"
		reason.Matched = append(reason.Matched, "area_open")
	default:
		reason.AreaMatch = "none"
	}

	if priceMetric(sig.Metric) && mandate.BudgetMin != nil && mandate.BudgetMax != nil {
		if sig.CurrentValue >= *mandate.BudgetMin && sig.CurrentValue <= *mandate.BudgetMax {
			score += m.cfg.BudgetWithin
			reason.BudgetCheck = "within"
			reason.Matched = append(reason.Matched, "budget_within")
		} else {
			reason.BudgetCheck = "outside"
		}
	} else {
		// Budget cannot be evaluated against this signal, soft credit only.
		score += m.cfg.BudgetSoft
		reason.BudgetCheck = "soft"
		reason.Matched = append(reason.Matched, "budget_soft")
	}

	if m.exposure != nil {
		has, err := m.exposure.HasExposure(ctx, sig.OrgID, inv.ID, sig.GeoID)
		if err != nil {
			m.log.Warn().
				Err(err).
				Str("investor_id", inv.ID).
				Str("geo_id", sig.GeoID).
				Msg("exposure lookup failed, skipping boost")
		} else if has {
			score += m.cfg.ExposureBoost
			reason.ExposureBoost = true
			reason.Matched = append(reason.Matched, "exposure")
		}
	}

	if mandate.RiskTolerance == contracts.RiskLow && sig.Type.IsRiskCorrelated() && score > m.cfg.RiskCap {
		score = m.cfg.RiskCap
		reason.RiskCapApplied = true
	}

	if score > 1 {
		score = 1
	}
	if score < m.cfg.MinRelevance {
		return nil, true
	}

	return &contracts.SignalTarget{
		OrgID:          sig.OrgID,
		SignalID:       sig.ID,
		InvestorID:     inv.ID,
		RelevanceScore: score,
		Reason:         reason,
		Status:         contracts.TargetStatusNew,
		CreatedAt:      m.now(),
	}, false
}

func (m *Mapper) areaMatches(mandate *contracts.Mandate, geoID string) bool {
	for _, area := range mandate.PreferredAreas {
		if strings.EqualFold(area, geoID) {
			return true
		}
	}
	return false
}

// priceMetric reports whether a signal's metric carries a price the budget
// band can be compared against.
func priceMetric(metric string) bool {
	return strings.Contains(metric, "price") ||
		strings.Contains(metric, "ask") ||
		strings.Contains(metric, "psf")
}
