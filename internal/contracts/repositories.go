package contracts

import (
	"context"
	"time"
)

// Read interfaces over the ingestion collaborator's raw tables. Detector
// packages must never depend on these; they see snapshots only.

// ListingReader reads raw portal listing rows.
type ListingReader interface {
	// ActiveForSale returns all currently active for-sale listings of an org.
	ActiveForSale(ctx context.Context, orgID string) ([]RawListing, error)
	// Since returns listing rows observed on or after the given date.
	Since(ctx context.Context, orgID string, since time.Time) ([]RawListing, error)
}

// TransactionReader reads official sale transactions.
type TransactionReader interface {
	// ByArea returns transactions in one area on or after the given date.
	ByArea(ctx context.Context, orgID, area string, since time.Time) ([]SaleTransaction, error)
	// InWindow returns transactions with from <= date < to.
	InWindow(ctx context.Context, orgID string, from, to time.Time) ([]SaleTransaction, error)
}

// RentalReader reads registered rental contracts.
type RentalReader interface {
	// InWindow returns contracts with from <= date < to.
	InWindow(ctx context.Context, orgID string, from, to time.Time) ([]RentalContract, error)
}

// SnapshotReader is the only data dependency of the truth detector.
type SnapshotReader interface {
	// TruthPairs returns, for each (source, geo, segment, metric) group, the
	// latest quarterly snapshot paired with its predecessor. Prev is nil
	// when only one window exists.
	TruthPairs(ctx context.Context, orgID string) ([]SnapshotPair, error)
}

// PortalSnapshotReader is the only data dependency of the portal detector.
type PortalSnapshotReader interface {
	// PortalPairs returns, for each (portal, geo, segment) group, the latest
	// daily snapshot paired with the one from exactly seven days earlier.
	// Prev is nil when the earlier date is absent.
	PortalPairs(ctx context.Context, orgID string) ([]PortalSnapshotPair, error)
}

// SnapshotStore persists aggregator output. Upserts are idempotent on the
// snapshot identity key.
type SnapshotStore interface {
	UpsertMetricSnapshots(ctx context.Context, snapshots []MetricSnapshot) (int, error)
	UpsertPortalSnapshots(ctx context.Context, snapshots []PortalListingSnapshot) (int, error)
}

// SignalStore persists detected signals, keyed by (org_id, signal_key).
type SignalStore interface {
	// UpsertSignals writes signals update-on-conflict and returns how many
	// rows were newly created (as opposed to refreshed).
	UpsertSignals(ctx context.Context, signals []Signal) (created int, err error)
	// ListUnmapped pages through signals not yet run through the mapper.
	// cursor is the last signal ID of the previous page; "" starts over.
	ListUnmapped(ctx context.Context, orgID, cursor string, limit int) (signals []Signal, nextCursor string, err error)
	// MarkMapped records that the mapper has processed the given signals.
	MarkMapped(ctx context.Context, orgID string, signalIDs []string) error
	// GetByIDs loads signals by ID for notification rendering.
	GetByIDs(ctx context.Context, orgID string, ids []string) ([]Signal, error)
	// List returns recent signals, optionally filtered by status.
	List(ctx context.Context, orgID string, status SignalStatus, limit int) ([]Signal, error)
	// UpdateStatus mutates status/acknowledged fields only. signal_key is
	// never altered.
	UpdateStatus(ctx context.Context, orgID, signalID string, status SignalStatus) error
}

// InvestorReader reads investors restricted to those with a mandate.
type InvestorReader interface {
	WithMandates(ctx context.Context, orgID string) ([]Investor, error)
}

// TargetStore persists signal-investor mappings, keyed by
// (org_id, signal_id, investor_id).
type TargetStore interface {
	UpsertTargets(ctx context.Context, targets []SignalTarget) (created int, err error)
	ListNew(ctx context.Context, orgID string) ([]SignalTarget, error)
	MarkPublished(ctx context.Context, orgID string, targetIDs []string) error
}

// NotificationStore persists notifications, deduplicated by notification_key.
type NotificationStore interface {
	// InsertNotifications is insert-if-absent; it returns how many rows were
	// actually created.
	InsertNotifications(ctx context.Context, notifications []Notification) (created int, err error)
}

// MarketDataReader serves area-level yield and liquidity aggregates.
// A nil result with nil error means the area has no data yet.
type MarketDataReader interface {
	AreaYield(ctx context.Context, orgID, area, segment string) (*AreaYield, error)
	AreaLiquidity(ctx context.Context, orgID, area, segment string) (*AreaLiquidity, error)
}

// ExposureLookup is the external collaborator answering whether an investor
// already holds a position in a geo.
type ExposureLookup interface {
	HasExposure(ctx context.Context, orgID, investorID, geoID string) (bool, error)
}

// RecipientResolver resolves the users responsible for an investor.
type RecipientResolver interface {
	RecipientsForInvestor(ctx context.Context, orgID, investorID string) ([]string, error)
}

// OrgReader lists tenants eligible for scheduled pipeline runs.
type OrgReader interface {
	ListActiveOrgs(ctx context.Context) ([]string, error)
}
