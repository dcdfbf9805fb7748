package clarity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://www.clarity.ms/export-data/api/v1/project-live-insights"

// Dimension is a categorical breakdown axis for the export endpoint.
type Dimension string

const (
	DimBrowser  Dimension = "Browser"
	DimDevice   Dimension = "Device"
	DimCountry  Dimension = "Country"
	DimOS       Dimension = "OS"
	DimSource   Dimension = "Source"
	DimMedium   Dimension = "Medium"
	DimCampaign Dimension = "Campaign"
	DimChannel  Dimension = "Channel"
	DimURL      Dimension = "URL"
)

// Params describes one export request. NumDays must be 1-3; up to three
// dimensions may be set.
type Params struct {
	NumDays    int
	Dimension1 Dimension
	Dimension2 Dimension
	Dimension3 Dimension
}

// MetricInfo is one per-dimension-value record inside a metric result.
// Dimension values arrive as dynamically named keys, so the whole record
// stays schemaless.
type MetricInfo map[string]any

// MetricResult is one metric with its breakdown records.
type MetricResult struct {
	MetricName  string       `json:"metricName"`
	Information []MetricInfo `json:"information"`
}

// APIResponse is the export endpoint's top-level payload.
type APIResponse []MetricResult

// Dataset bundles the six payloads one full fetch produces.
type Dataset struct {
	ByURL                       APIResponse `json:"byUrl"`
	ByDevice                    APIResponse `json:"byDevice"`
	ByBrowser                   APIResponse `json:"byBrowser"`
	DeadClicksByURL             APIResponse `json:"deadClicksByUrl"`
	RageClicksByURL             APIResponse `json:"rageClicksByUrl"`
	ScrollDepthByBrowserCountry APIResponse `json:"scrollDepthByBrowserCountry"`
	FetchedAt                   string      `json:"fetchedAt"`
	APICallsUsed                int         `json:"apiCallsUsed"`
}

// QuotaExceededError means the daily call budget is spent. Fatal; the run
// can only proceed from cache.
type QuotaExceededError struct {
	Used int
	Max  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Clarity API daily quota reached: %d calls/day, used %d. Try again tomorrow.", e.Max, e.Used)
}

// AuthError is a 401/403 from the export endpoint. Fatal; credentials must
// be fixed out-of-band.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	if e.Status == http.StatusForbidden {
		return "Clarity API: forbidden (403). Token may not have sufficient permissions."
	}
	return "Clarity API: unauthorized (401). Check the analytics API token."
}

// RateLimitedError is a 429 from the export endpoint. Not retried here: the
// daily quota is the real constraint.
type RateLimitedError struct{}

func (e *RateLimitedError) Error() string {
	return "Clarity API: rate limit exceeded (429)"
}

// UpstreamError is any other non-2xx export response.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Clarity API error %d: %s", e.Status, e.Body)
}

// Client talks to the Clarity data-export endpoint under a hard daily call
// budget. The counter is process-scoped and guarded for the parallel
// batches FetchAll issues.
type Client struct {
	Token   string
	BaseURL string
	NumDays int

	maxCalls int
	mu       sync.Mutex
	calls    int
	client   *http.Client
}

// NewClient creates a client reading its token from the given environment
// variable. maxCallsPerDay bounds the number of export calls this process
// may issue.
func NewClient(tokenEnv string, numDays, maxCallsPerDay int) *Client {
	return &Client{
		Token:    os.Getenv(tokenEnv),
		BaseURL:  defaultBaseURL,
		NumDays:  numDays,
		maxCalls: maxCallsPerDay,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// IsConfigured returns whether the API token is available.
func (c *Client) IsConfigured() bool {
	return c.Token != ""
}

// CallCount returns the number of export calls issued so far.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Remaining returns how many calls are left in the daily budget.
func (c *Client) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxCalls - c.calls
}

// reserve claims one call from the budget before any network traffic.
func (c *Client) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= c.maxCalls {
		return &QuotaExceededError{Used: c.calls, Max: c.maxCalls}
	}
	c.calls++
	return nil
}

func (c *Client) release() {
	c.mu.Lock()
	c.calls--
	c.mu.Unlock()
}

// Fetch issues one export call. The quota check happens before the request;
// at the cap it fails with QuotaExceededError and issues no traffic.
func (c *Client) Fetch(ctx context.Context, params Params) (APIResponse, error) {
	if err := c.reserve(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("numOfDays", fmt.Sprintf("%d", params.NumDays))
	if params.Dimension1 != "" {
		q.Set("dimension1", string(params.Dimension1))
	}
	if params.Dimension2 != "" {
		q.Set("dimension2", string(params.Dimension2))
	}
	if params.Dimension3 != "" {
		q.Set("dimension3", string(params.Dimension3))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		c.release()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.release()
		return nil, fmt.Errorf("Clarity API error: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.release()
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		c.release()
		return nil, &RateLimitedError{}
	case resp.StatusCode != http.StatusOK:
		c.release()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var result APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.release()
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// FetchAll performs the six strategic export calls in two batches of three
// parallel requests:
//
// Batch 1 (core breakdowns): by URL, by Device+OS, by Browser+Country.
// Batch 2 (extended UX signals): dead clicks by URL, rage clicks by URL,
// scroll depth by Browser+Country.
//
// Batch 2 repeats dimensions already requested in batch 1; this mirrors the
// export usage this tool was tuned against and is kept as-is. Six of the
// ten daily calls are spent, leaving headroom for ad-hoc queries.
func (c *Client) FetchAll(ctx context.Context) (*Dataset, error) {
	log.Printf("Fetching Clarity data (6 API calls)...")

	ds := &Dataset{}
	days := c.NumDays

	batch1 := []fetchTarget{
		{Params{NumDays: days, Dimension1: DimURL}, &ds.ByURL},
		{Params{NumDays: days, Dimension1: DimDevice, Dimension2: DimOS}, &ds.ByDevice},
		{Params{NumDays: days, Dimension1: DimBrowser, Dimension2: DimCountry}, &ds.ByBrowser},
	}
	if err := c.fetchBatch(ctx, batch1); err != nil {
		return nil, err
	}
	log.Printf("  Batch 1 complete (%d calls used)", c.CallCount())

	batch2 := []fetchTarget{
		{Params{NumDays: days, Dimension1: DimURL}, &ds.DeadClicksByURL},
		{Params{NumDays: days, Dimension1: DimURL}, &ds.RageClicksByURL},
		{Params{NumDays: days, Dimension1: DimBrowser, Dimension2: DimCountry}, &ds.ScrollDepthByBrowserCountry},
	}
	if err := c.fetchBatch(ctx, batch2); err != nil {
		return nil, err
	}
	log.Printf("  Batch 2 complete (%d calls used)", c.CallCount())

	ds.FetchedAt = time.Now().UTC().Format(time.RFC3339)
	ds.APICallsUsed = c.CallCount()
	log.Printf("Clarity data fetched. API calls used: %d/%d", c.CallCount(), c.maxCalls)
	return ds, nil
}

type fetchTarget struct {
	params Params
	dest   *APIResponse
}

func (c *Client) fetchBatch(ctx context.Context, batch []fetchTarget) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, item := range batch {
		item := item
		g.Go(func() error {
			resp, err := c.Fetch(ctx, item.params)
			if err != nil {
				return err
			}
			*item.dest = resp
			return nil
		})
	}
	return g.Wait()
}
