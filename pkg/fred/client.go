// Package fred is a minimal client for the FRED (Federal Reserve Economic
// Data) API.
package fred

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred"

// Client fetches economic time series observations.
type Client interface {
	// LatestObservation returns the most recent data point of a series.
	LatestObservation(ctx context.Context, seriesID string) (*Observation, error)
}

// Observation is a single series data point.
type Observation struct {
	SeriesID string  `json:"series_id"`
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a FRED API client. The key is the provisioned FRED
// access key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// observationsResponse mirrors the FRED series/observations payload. Values
// arrive as strings, with "." marking a missing point.
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

func (c *httpClient) LatestObservation(ctx context.Context, seriesID string) (*Observation, error) {
	if seriesID == "" {
		return nil, eris.New("fred: series ID is required")
	}
	if c.apiKey == "" {
		return nil, eris.New("fred: API key is required")
	}

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/series/observations?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fred: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fred: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fred: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fred: unexpected status %d for series %s", resp.StatusCode, seriesID)
	}

	var result observationsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "fred: unmarshal response")
	}

	if len(result.Observations) == 0 {
		return nil, eris.Errorf("fred: no observations for series %s", seriesID)
	}

	obs := result.Observations[0]
	if obs.Value == "." {
		return nil, eris.Errorf("fred: latest observation for series %s is missing", seriesID)
	}

	value, err := strconv.ParseFloat(obs.Value, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "fred: parse value %q for series %s", obs.Value, seriesID)
	}

	return &Observation{
		SeriesID: seriesID,
		Date:     obs.Date,
		Value:    value,
	}, nil
}
