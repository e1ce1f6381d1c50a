// Package fedreg is a minimal client for the Federal Register API.
package fedreg

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

const defaultBaseURL = "https://www.federalregister.gov/api/v1"

// DefaultSearchTerms are the standing queries used to surface hardwood
// tariff activity.
func DefaultSearchTerms() []string {
	return []string{
		"China hardwood tariff 2026",
		"Section 301 tariff updates",
		"USITC hardwood investigation",
	}
}

// Client searches Federal Register documents.
type Client interface {
	SearchDocuments(ctx context.Context, params SearchParams) (*SearchResponse, error)
}

// SearchParams filter a full-text document search.
type SearchParams struct {
	Term    string
	Type    string // e.g. "PRESDOCU", "NOTICE"
	PerPage int
	Order   string // e.g. "newest"
}

// Document is a single Federal Register entry.
type Document struct {
	Title           string `json:"title"`
	PublicationDate string `json:"publication_date"`
	Abstract        string `json:"abstract"`
	HTMLURL         string `json:"html_url"`
	Type            string `json:"type"`
	DocumentNumber  string `json:"document_number"`
}

// SearchResponse is the result of a document search.
type SearchResponse struct {
	Count   int        `json:"count"`
	Results []Document `json:"results"`
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
	baseURL string
	http    *http.Client
}

// NewClient creates a Federal Register API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
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

func (c *httpClient) SearchDocuments(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	if params.PerPage == 0 {
		params.PerPage = 10
	}
	if params.Order == "" {
		params.Order = "newest"
	}

	q := url.Values{}
	q.Set("conditions[term]", params.Term)
	q.Set("per_page", strconv.Itoa(params.PerPage))
	q.Set("order", params.Order)
	if params.Type != "" {
		q.Set("conditions[type][]", params.Type)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fedreg: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fedreg: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fedreg: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fedreg: unexpected status %d", resp.StatusCode)
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "fedreg: unmarshal response")
	}

	return &result, nil
}
