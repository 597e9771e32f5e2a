package exposure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dxbintel/propsignal/pkg/config"
)

// Client asks the portfolio collaborator whether an investor already holds a
// position in a geo. Requests are rate limited client-side; the collaborator
// throttles aggressively.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates an exposure client from config.
func NewClient(cfg config.ExposureConfig, log zerolog.Logger) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log.With().Str("component", "exposure").Logger(),
	}
}

type exposureResponse struct {
	HasExposure bool `json:"has_exposure"`
}

// HasExposure reports whether the investor holds a position in the geo.
func (c *Client) HasExposure(ctx context.Context, orgID, investorID, geoID string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("exposure rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/orgs/%s/investors/%s/exposure?geo_id=%s",
		c.baseURL, url.PathEscape(orgID), url.PathEscape(investorID), url.QueryEscape(geoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build exposure request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("exposure request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("exposure request: unexpected status %d", resp.StatusCode)
	}

	var body exposureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode exposure response: %w", err)
	}
	return body.HasExposure, nil
}

// Static is an in-memory ExposureLookup keyed by "investorID|geoID".
type Static struct {
	positions map[string]bool
}

// NewStatic creates a static lookup from held (investorID, geoID) pairs.
func NewStatic(pairs map[string]bool) *Static {
	if pairs == nil {
		pairs = make(map[string]bool)
	}
	return &Static{positions: pairs}
}

// HasExposure reports whether the pair was registered.
func (s *Static) HasExposure(_ context.Context, _, investorID, geoID string) (bool, error) {
	return s.positions[investorID+"|"+geoID], nil
}
