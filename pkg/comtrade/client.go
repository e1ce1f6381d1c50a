// Package comtrade is a minimal client for the UN Comtrade public API.
package comtrade

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
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://comtradeapi.un.org/public/v1"

// Trade-area codes for the US-China corridor.
const (
	ReporterUSA  = 842
	PartnerChina = 156
)

// FlowImports selects the import flow direction.
const FlowImports = "M"

// Client queries UN Comtrade trade statistics.
type Client interface {
	// GetTradeData fetches trade statistics for the given query. The payload
	// is returned opaque: downstream consumers embed it, they do not parse it.
	GetTradeData(ctx context.Context, params Params) (json.RawMessage, error)

	// GetTariffLine fetches tariff-line data for a reporter/partner/commodity.
	GetTariffLine(ctx context.Context, reporter, partner int, cmdCode string) (json.RawMessage, error)

	// GetUSChinaHardwoodTrade fans out over all hardwood commodity codes for
	// US imports from China.
	GetUSChinaHardwoodTrade(ctx context.Context) (*HardwoodTrade, error)
}

// Params are the query parameters for GetTradeData. Zero values fall back
// to the US-China hardwood defaults.
type Params struct {
	ReporterCode int
	PartnerCode  int
	CmdCode      string
	FlowCode     string
	Period       string
}

// HardwoodTrade bundles the per-code payloads from a hardwood fan-out.
type HardwoodTrade struct {
	Codes     []string          `json:"codes"`
	Data      []json.RawMessage `json:"data"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// HardwoodCodes returns the HS chapter 44 commodity codes tracked for
// hardwood trade.
func HardwoodCodes() []string {
	return []string{
		"4407", // wood sawn or chipped lengthwise
		"4408", // sheets for veneering
		"4409", // wood continuously shaped
		"4412", // plywood, veneered panels
		"4418", // builders' joinery and carpentry
	}
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

// NewClient creates a Comtrade API client.
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

func (c *httpClient) GetTradeData(ctx context.Context, params Params) (json.RawMessage, error) {
	if params.ReporterCode == 0 {
		params.ReporterCode = ReporterUSA
	}
	if params.PartnerCode == 0 {
		params.PartnerCode = PartnerChina
	}
	if params.CmdCode == "" {
		params.CmdCode = "44"
	}
	if params.FlowCode == "" {
		params.FlowCode = FlowImports
	}

	q := url.Values{}
	q.Set("reporterCode", strconv.Itoa(params.ReporterCode))
	q.Set("partnerCode", strconv.Itoa(params.PartnerCode))
	q.Set("cmdCode", params.CmdCode)
	q.Set("flowCode", params.FlowCode)
	if params.Period != "" {
		q.Set("period", params.Period)
	}

	return c.get(ctx, "/getDA", q)
}

func (c *httpClient) GetTariffLine(ctx context.Context, reporter, partner int, cmdCode string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("reporter", strconv.Itoa(reporter))
	q.Set("partner", strconv.Itoa(partner))
	q.Set("cmdCode", cmdCode)

	return c.get(ctx, "/getTariffline", q)
}

func (c *httpClient) GetUSChinaHardwoodTrade(ctx context.Context) (*HardwoodTrade, error) {
	codes := HardwoodCodes()
	data := make([]json.RawMessage, len(codes))

	g, gCtx := errgroup.WithContext(ctx)
	for i, code := range codes {
		g.Go(func() error {
			payload, err := c.GetTradeData(gCtx, Params{CmdCode: code})
			if err != nil {
				return eris.Wrapf(err, "comtrade: hardwood code %s", code)
			}
			data[i] = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &HardwoodTrade{
		Codes:     codes,
		Data:      data,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "comtrade: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "comtrade: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "comtrade: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("comtrade: unexpected status %d from %s", resp.StatusCode, path)
	}

	if !json.Valid(body) {
		return nil, eris.Errorf("comtrade: malformed payload from %s", path)
	}

	return json.RawMessage(body), nil
}
