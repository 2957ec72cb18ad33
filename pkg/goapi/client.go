// Package goapi provides a client for the IFRC GO field-report API.
package goapi

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
	"golang.org/x/time/rate"

	"github.com/crisisgraph/fieldgeo/internal/resilience"
)

// Client defines the GO API operations the pipeline uses.
type Client interface {
	// ListFieldReports fetches one page of field reports.
	ListFieldReports(ctx context.Context, params ListParams) (*Page, error)
}

// ListParams filter and page a field-report listing. Results are always
// ordered newest first.
type ListParams struct {
	Limit        int
	Offset       int
	CreatedAtGTE time.Time
}

// Page is one page of a paginated field-report listing. Results stay raw so
// the original payloads can be archived before cleaning.
type Page struct {
	Count   int               `json:"count"`
	Next    string            `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// Option configures the GO API client.
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

// WithPageInterval sets the minimum interval between page requests.
func WithPageInterval(d time.Duration) Option {
	return func(c *httpClient) {
		c.pacer = rate.NewLimiter(rate.Every(d), 1)
	}
}

type httpClient struct {
	authToken string
	baseURL   string
	http      *http.Client
	pacer     *rate.Limiter
}

// NewClient creates a GO API client. The token may be empty; the field-report
// listing is readable without authentication but returns fewer fields.
func NewClient(authToken string, opts ...Option) Client {
	c := &httpClient{
		authToken: authToken,
		baseURL:   "https://goadmin.ifrc.org/api/v2",
		pacer:     rate.NewLimiter(rate.Every(time.Second), 1),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListFieldReports(ctx context.Context, params ListParams) (*Page, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "goapi: wait for page interval")
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("ordering", "-created_at")
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset))
	if !params.CreatedAtGTE.IsZero() {
		q.Set("created_at__gte", params.CreatedAtGTE.UTC().Format("2006-01-02T15:04:05Z"))
	}

	endpoint := fmt.Sprintf("%s/field-report/?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "goapi: build request")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Token "+c.authToken)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fieldgeo/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "goapi: list field reports"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "goapi: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("goapi: status %d listing field reports", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "goapi: decode page")
	}
	return &page, nil
}
