package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/comparables"
	"github.com/dxbintel/propsignal/internal/contracts"
	"github.com/dxbintel/propsignal/internal/detect"
	"github.com/dxbintel/propsignal/internal/mapper"
	"github.com/dxbintel/propsignal/internal/notify"
	"github.com/dxbintel/propsignal/internal/snapshot"
)

// Stores bundles every persistence dependency of the pipeline.
type Stores struct {
	Listings      contracts.ListingReader
	Transactions  contracts.TransactionReader
	Rentals       contracts.RentalReader
	Snapshots     contracts.SnapshotStore
	TruthReader   contracts.SnapshotReader
	PortalReader  contracts.PortalSnapshotReader
	Signals       contracts.SignalStore
	Investors     contracts.InvestorReader
	Targets       contracts.TargetStore
	Notifications contracts.NotificationStore
	Market        contracts.MarketDataReader
	Recipients    contracts.RecipientResolver
}

// Orchestrator runs the full signal pipeline for one org: aggregate
// snapshots, detect signals, map investors, publish notifications. Stages
// are best effort: a failing stage is recorded and the rest still run, since
// every write is idempotent and the next run repairs the gap.
type Orchestrator struct {
	stores   Stores
	exposure contracts.ExposureLookup
	cfg      contracts.DetectionConfig
	log      zerolog.Logger
}

// New creates an orchestrator. exposure may be nil.
func New(stores Stores, exposure contracts.ExposureLookup, cfg contracts.DetectionConfig, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		stores:   stores,
		exposure: exposure,
		cfg:      cfg,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// RunResult is the per-run report.
type RunResult struct {
	OrgID             string        `json:"org_id"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	TruthSnapshots    int           `json:"truth_snapshots"`
	PortalSnapshots   int           `json:"portal_snapshots"`
	TruthSignals      int           `json:"truth_signals"`
	PortalSignals     int           `json:"portal_signals"`
	PricingSignals    int           `json:"pricing_signals"`
	TargetsCreated    int           `json:"targets_created"`
	BelowThreshold    int           `json:"below_threshold"`
	NotificationsSent int           `json:"notifications_sent"`
	Errors            []string      `json:"errors,omitempty"`
}

// Run executes all stages for one org and never returns a stage error;
// failures are collected in the result.
func (o *Orchestrator) Run(ctx context.Context, orgID string) RunResult {
	res := RunResult{OrgID: orgID, StartedAt: time.Now()}
	log := o.log.With().Str("org_id", orgID).Logger()
	log.Info().Msg("pipeline run started")

	run := func(stage string, fn func() error) {
		if err := fn(); err != nil {
			log.Error().Err(err).Str("stage", stage).Msg("stage failed, continuing")
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", stage, err))
		}
	}

	run("snapshot.truth", func() error {
		agg := snapshot.NewTruthAggregator(o.stores.Transactions, o.stores.Rentals, o.stores.Snapshots, o.log)
		n, err := agg.Run(ctx, orgID)
		res.TruthSnapshots = n
		return err
	})
	run("snapshot.portal", func() error {
		agg := snapshot.NewPortalAggregator(o.stores.Listings, o.stores.Snapshots, o.cfg.Portal, o.log)
		n, err := agg.Run(ctx, orgID)
		res.PortalSnapshots = n
		return err
	})

	run("detect.truth", func() error {
		det := detect.NewTruthDetector(o.stores.TruthReader, o.stores.Signals, o.cfg.Truth, o.cfg.Batch.WriteSize, o.log)
		n, err := det.Run(ctx, orgID)
		res.TruthSignals = n
		return err
	})
	run("detect.portal", func() error {
		det := detect.NewPortalDetector(o.stores.PortalReader, o.stores.Signals, o.cfg.Portal, o.cfg.Batch.WriteSize, o.log)
		n, err := det.Run(ctx, orgID)
		res.PortalSignals = n
		return err
	})
	run("detect.pricing", func() error {
		// Matcher and detector caches are scoped to this run.
		matcher := comparables.NewMatcher(o.stores.Transactions, o.cfg.Comparables, o.log)
		det := detect.NewPricingDetector(o.stores.Listings, matcher, o.stores.Market, o.stores.Signals, o.cfg, o.log)
		n, err := det.Run(ctx, orgID)
		res.PricingSignals = n
		return err
	})

	run("mapper", func() error {
		m := mapper.New(o.stores.Signals, o.stores.Investors, o.stores.Targets, o.exposure, o.cfg.Mapper, o.log)
		r, err := m.Run(ctx, orgID)
		res.TargetsCreated = r.TargetsCreated
		res.BelowThreshold = r.BelowThreshold
		return err
	})

	run("notify", func() error {
		pub := notify.NewPublisher(o.stores.Targets, o.stores.Signals, o.stores.Recipients, o.stores.Notifications, o.log)
		r, err := pub.Run(ctx, orgID)
		res.NotificationsSent = r.Created
		return err
	})

	res.Duration = time.Since(res.StartedAt)
	log.Info().
		Int("truth_signals", res.TruthSignals).
		Int("portal_signals", res.PortalSignals).
		Int("pricing_signals", res.PricingSignals).
		Int("targets", res.TargetsCreated).
		Int("notifications", res.NotificationsSent).
		Int("errors", len(res.Errors)).
		Dur("duration", res.Duration).
		Msg("pipeline run completed")
	return res
}
