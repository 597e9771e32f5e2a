package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// ListingRepo reads the ingestion collaborator's raw_listings table.
type ListingRepo struct {
	pool *pgxpool.Pool
}

// NewListingRepo creates a listing repository.
func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

const listingColumns = `id, org_id, portal, external_id, area, property_type, bedrooms,
	size_sqm, building_name, price, price_per_sqm, purpose, active, price_cut,
	days_on_market, as_of_date`

// ActiveForSale returns all currently active for-sale listings of an org.
func (r *ListingRepo) ActiveForSale(ctx context.Context, orgID string) ([]contracts.RawListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM raw_listings
		WHERE org_id = $1 AND active AND purpose = 'sale'
		ORDER BY area, id`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// Since returns listing rows observed on or after the given date.
func (r *ListingRepo) Since(ctx context.Context, orgID string, since time.Time) ([]contracts.RawListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM raw_listings
		WHERE org_id = $1 AND as_of_date >= $2
		ORDER BY as_of_date, id`

	rows, err := r.pool.Query(ctx, query, orgID, since)
	if err != nil {
		return nil, fmt.Errorf("query listings since %s: %w", since.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return scanListings(rows)
}

func scanListings(rows pgx.Rows) ([]contracts.RawListing, error) {
	var out []contracts.RawListing
	for rows.Next() {
		var l contracts.RawListing
		if err := rows.Scan(
			&l.ID, &l.OrgID, &l.Portal, &l.ExternalID, &l.Area, &l.PropertyType,
			&l.Bedrooms, &l.SizeSqm, &l.BuildingName, &l.Price, &l.PricePerSqm,
			&l.Purpose, &l.Active, &l.PriceCut, &l.DaysOnMarket, &l.AsOfDate,
		); err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
