// Package geonames provides a client for the GeoNames searchJSON gazetteer
// API.
package geonames

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/crisisgraph/fieldgeo/internal/resilience"
)

// Client defines the gazetteer lookup used by the enrichment stage.
type Client interface {
	// Search returns the best match for the query, or (nil, nil) when the
	// gazetteer has no match.
	Search(ctx context.Context, q Query) (*Place, error)
}

// Query scopes a gazetteer search. FeatureClass "A" with FeatureCode "ADM1"
// targets first-order administrative divisions; FeatureClass "P" targets
// populated places.
type Query struct {
	Name         string
	CountryCode  string
	FeatureClass string
	FeatureCode  string
}

// Place is one gazetteer record. Coordinates arrive as strings on the wire.
type Place struct {
	GeoNameID   int64  `json:"geonameId"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	FeatureCode string `json:"fcode"`
	Population  int64  `json:"population"`
	Lat         string `json:"lat"`
	Lng         string `json:"lng"`
}

// Coordinates parses the place's latitude and longitude.
func (p *Place) Coordinates() (lat, lng float64) {
	lat, _ = strconv.ParseFloat(p.Lat, 64)
	lng, _ = strconv.ParseFloat(p.Lng, 64)
	return lat, lng
}

type searchResponse struct {
	GeoNames []Place `json:"geonames"`
	Status   *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

// Option configures the GeoNames client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	username string
	baseURL  string
	http     *http.Client
}

// NewClient creates a GeoNames client for the given account username.
func NewClient(username string, opts ...Option) Client {
	c := &httpClient{
		username: username,
		baseURL:  "http://api.geonames.org",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, q Query) (*Place, error) {
	params := url.Values{}
	params.Set("q", q.Name)
	params.Set("maxRows", "1")
	params.Set("username", c.username)
	if q.CountryCode != "" {
		params.Set("country", q.CountryCode)
	}
	if q.FeatureClass != "" {
		params.Set("featureClass", q.FeatureClass)
	}
	if q.FeatureCode != "" {
		params.Set("featureCode", q.FeatureCode)
	}

	endpoint := fmt.Sprintf("%s/searchJSON?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geonames: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "geonames: search %q", q.Name), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geonames: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geonames: status %d searching %q", resp.StatusCode, q.Name)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrapf(err, "geonames: decode response for %q", q.Name)
	}

	// GeoNames reports quota and auth problems as a status object inside a
	// 200 response.
	if parsed.Status != nil {
		return nil, eris.Errorf("geonames: api error %d for %q: %s",
			parsed.Status.Value, q.Name, parsed.Status.Message)
	}

	if len(parsed.GeoNames) == 0 {
		return nil, nil
	}
	return &parsed.GeoNames[0], nil
}
