package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// Publisher turns new signal targets into durable notification rows, one per
// (recipient, signal, investor). The notification key makes re-publishing a
// no-op; delivery channels live outside this core.
type Publisher struct {
	targets       contracts.TargetStore
	signals       contracts.SignalStore
	recipients    contracts.RecipientResolver
	notifications contracts.NotificationStore
	log           zerolog.Logger
}

// NewPublisher creates a publisher.
func NewPublisher(targets contracts.TargetStore, signals contracts.SignalStore, recipients contracts.RecipientResolver, notifications contracts.NotificationStore, log zerolog.Logger) *Publisher {
	return &Publisher{
		targets:       targets,
		signals:       signals,
		recipients:    recipients,
		notifications: notifications,
		log:           log.With().Str("component", "notify").Logger(),
	}
}

// Result summarizes one publishing run.
type Result struct {
	TargetsPublished int
	Created          int
}

// Run publishes all new targets of one org. Targets are marked published
// only after their notification rows are written.
func (p *Publisher) Run(ctx context.Context, orgID string) (Result, error) {
	var res Result

	targets, err := p.targets.ListNew(ctx, orgID)
	if err != nil {
		return res, fmt.Errorf("list new targets: %w", err)
	}
	if len(targets) == 0 {
		return res, nil
	}

	signalIDs := make([]string, 0, len(targets))
	seen := make(map[string]bool)
	for _, t := range targets {
		if !seen[t.SignalID] {
			seen[t.SignalID] = true
			signalIDs = append(signalIDs, t.SignalID)
		}
	}
	signals, err := p.signals.GetByIDs(ctx, orgID, signalIDs)
	if err != nil {
		return res, fmt.Errorf("load signals for rendering: %w", err)
	}
	byID := make(map[string]contracts.Signal, len(signals))
	for _, sig := range signals {
		byID[sig.ID] = sig
	}

	var rows []contracts.Notification
	published := make([]string, 0, len(targets))
	for _, target := range targets {
		sig, ok := byID[target.SignalID]
		if !ok {
			p.log.Warn().
				Str("target_id", target.ID).
				Str("signal_id", target.SignalID).
				Msg("target references missing signal, skipping")
			continue
		}

		recipients, err := p.recipients.RecipientsForInvestor(ctx, orgID, target.InvestorID)
		if err != nil {
			return res, fmt.Errorf("resolve recipients for investor %s: %w", target.InvestorID, err)
		}
		for _, recipientID := range recipients {
			rows = append(rows, contracts.Notification{
				OrgID:           orgID,
				NotificationKey: contracts.NotificationKey(orgID, recipientID, sig.ID, target.InvestorID),
				RecipientID:     recipientID,
				SignalID:        sig.ID,
				InvestorID:      target.InvestorID,
				Title:           renderTitle(sig),
				Body:            renderBody(sig, target),
			})
		}
		published = append(published, target.ID)
	}

	created, err := p.notifications.InsertNotifications(ctx, rows)
	if err != nil {
		return res, fmt.Errorf("insert notifications: %w", err)
	}
	if err := p.targets.MarkPublished(ctx, orgID, published); err != nil {
		return res, fmt.Errorf("mark targets published: %w", err)
	}

	res.TargetsPublished = len(published)
	res.Created = created
	p.log.Info().
		Str("org_id", orgID).
		Int("targets", res.TargetsPublished).
		Int("created", created).
		Msg("publishing completed")
	return res, nil
}

// renderTitle prefixes by source family so operators can scan severity at a
// glance.
func renderTitle(sig contracts.Signal) string {
	prefix := "Inventory Signal"
	if sig.SourceType == contracts.SourceTypeOfficial {
		prefix = "Market Truth"
	}
	return fmt.Sprintf("%s: %s in %s (%s)", prefix, signalLabel(sig.Type), sig.GeoID, sig.Severity)
}

func renderBody(sig contracts.Signal, target contracts.SignalTarget) string {
	return fmt.Sprintf(
		"%s for %s / %s: %s moved %+.1f%% (now %.2f, was %.2f). Confidence %.0f%%, relevance %.0f%%.",
		signalLabel(sig.Type),
		sig.GeoID,
		sig.Segment,
		sig.Metric,
		sig.DeltaPct*100,
		sig.CurrentValue,
		sig.PrevValue,
		sig.ConfidenceScore*100,
		target.RelevanceScore*100,
	)
}

func signalLabel(t contracts.SignalType) string {
	switch t {
	case contracts.SignalPriceChange:
		return "Price change"
	case contracts.SignalRentChange:
		return "Rent change"
	case contracts.SignalYieldOpportunity:
		return "Yield opportunity"
	case contracts.SignalSupplySpike:
		return "Supply spike"
	case contracts.SignalDiscountingSpike:
		return "Discounting spike"
	case contracts.SignalStalenessRise:
		return "Staleness rise"
	case contracts.SignalPricingOpportunity:
		return "Pricing opportunity"
	default:
		return string(t)
	}
}
