package contracts

import "time"

// Raw observation rows are owned by the ingestion collaborator. The pipeline
// only reads them; it never writes or mutates these tables.

// RawListing is one portal listing row as of a given day.
type RawListing struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Portal       string    `json:"portal"` // "bayut", "pf", ...
	ExternalID   string    `json:"external_id"`
	Area         string    `json:"area"`
	PropertyType string    `json:"property_type"` // "apartment", "villa", "townhouse"
	Bedrooms     int       `json:"bedrooms"`
	SizeSqm      float64   `json:"size_sqm"`
	BuildingName string    `json:"building_name"`
	Price        float64   `json:"price"`
	PricePerSqm  float64   `json:"price_per_sqm"` // 0 when the portal did not report it
	Purpose      string    `json:"purpose"`       // "sale" | "rent"
	Active       bool      `json:"active"`
	PriceCut     bool      `json:"price_cut"`
	DaysOnMarket int       `json:"days_on_market"`
	AsOfDate     time.Time `json:"as_of_date"`
}

// SaleTransaction is one official registry transaction row.
type SaleTransaction struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Source       string    `json:"source"` // "dld"
	ExternalID   string    `json:"external_id"`
	Area         string    `json:"area"`
	PropertyType string    `json:"property_type"`
	Bedrooms     int       `json:"bedrooms"`
	SizeSqm      float64   `json:"size_sqm"`
	BuildingName string    `json:"building_name"`
	Price        float64   `json:"price"`
	Date         time.Time `json:"date"`
}

// RentalContract is one registered rental contract row.
type RentalContract struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Source       string    `json:"source"` // "ejari"
	Area         string    `json:"area"`
	PropertyType string    `json:"property_type"`
	Bedrooms     int       `json:"bedrooms"`
	AnnualRent   float64   `json:"annual_rent"`
	Date         time.Time `json:"date"`
}
