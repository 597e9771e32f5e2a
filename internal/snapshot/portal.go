package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// PortalAggregator reduces raw portal listing rows into daily inventory
// snapshots per (portal, geo, segment), for the latest available date and
// the date exactly seven days earlier.
type PortalAggregator struct {
	listings contracts.ListingReader
	store    contracts.SnapshotStore
	cfg      contracts.PortalThresholds
	log      zerolog.Logger
	now      func() time.Time
}

// NewPortalAggregator creates a portal aggregator.
func NewPortalAggregator(listings contracts.ListingReader, store contracts.SnapshotStore, cfg contracts.PortalThresholds, log zerolog.Logger) *PortalAggregator {
	return &PortalAggregator{
		listings: listings,
		store:    store,
		cfg:      cfg,
		log:      log.With().Str("component", "snapshot.portal").Logger(),
		now:      time.Now,
	}
}

type portalGroup struct {
	portal  string
	geoID   string
	segment string
}

// Run aggregates the trailing lookback window for one org. Returns the
// number of snapshot rows written.
func (a *PortalAggregator) Run(ctx context.Context, orgID string) (int, error) {
	since := a.now().AddDate(0, 0, -a.cfg.LookbackDays)
	rows, err := a.listings.Since(ctx, orgID, since)
	if err != nil {
		return 0, fmt.Errorf("load listing rows: %w", err)
	}
	if len(rows) == 0 {
		a.log.Info().Str("org_id", orgID).Msg("no listing rows in lookback window")
		return 0, nil
	}

	latest := rows[0].AsOfDate
	dates := make(map[time.Time]bool)
	for _, row := range rows {
		day := dateOnly(row.AsOfDate)
		dates[day] = true
		if day.After(latest) {
			latest = day
		}
	}
	latest = dateOnly(latest)
	prevWeek := latest.AddDate(0, 0, -7)

	anchors := []time.Time{latest}
	if dates[prevWeek] {
		anchors = append(anchors, prevWeek)
	} else {
		// Cold start: expected while the first week of data accumulates.
		a.log.Warn().
			Str("org_id", orgID).
			Str("latest", latest.Format("2006-01-02")).
			Msg("no snapshot date one week earlier, WoW comparison not possible yet")
	}

	var snapshots []contracts.PortalListingSnapshot
	for _, anchor := range anchors {
		groups := make(map[portalGroup]*contracts.PortalListingSnapshot)
		for _, row := range rows {
			if !dateOnly(row.AsOfDate).Equal(anchor) || !row.Active {
				continue
			}
			key := portalGroup{portal: row.Portal, geoID: row.Area, segment: row.PropertyType}
			snap, ok := groups[key]
			if !ok {
				snap = &contracts.PortalListingSnapshot{
					OrgID:    orgID,
					Portal:   row.Portal,
					GeoType:  "area",
					GeoID:    row.Area,
					Segment:  row.PropertyType,
					AsOfDate: anchor,
				}
				groups[key] = snap
			}
			snap.ActiveListings++
			if row.PriceCut {
				snap.PriceCutsCount++
			}
			if row.DaysOnMarket >= a.cfg.StaleDaysOnMarket {
				snap.StaleListingsCount++
			}
		}
		for _, snap := range groups {
			snapshots = append(snapshots, *snap)
		}
	}

	written, err := a.store.UpsertPortalSnapshots(ctx, snapshots)
	if err != nil {
		return 0, fmt.Errorf("upsert portal snapshots: %w", err)
	}

	a.log.Info().
		Str("org_id", orgID).
		Int("rows", len(rows)).
		Int("anchors", len(anchors)).
		Int("snapshots", written).
		Msg("portal aggregation completed")
	return written, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
