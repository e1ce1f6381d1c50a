// Package model defines the tariff data structures shared across the
// aggregation pipeline.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// AggregationState represents the aggregator's position in a refresh cycle.
type AggregationState string

const (
	StateIdle     AggregationState = "idle"
	StateFetching AggregationState = "fetching"
	StateSuccess  AggregationState = "success"
	StateDegraded AggregationState = "degraded"
	StateFailed   AggregationState = "failed"
)

// Source labels as they appear in the record's provenance list.
const (
	SourceComtrade       = "UN Comtrade API"
	SourceFederalReg     = "Federal Register API"
	SourceFRED           = "FRED"
	SourceUSITCCached    = "USITC HTS (Cached)"
	SourceFedRegCached   = "Federal Register (Cached)"
	SourceUSTRCached     = "USTR (Cached)"
)

// TariffRecord is the raw aggregate of one refresh cycle: headline rates,
// provenance, and whatever raw payloads the live sources returned.
type TariffRecord struct {
	Reciprocal float64 `json:"reciprocal"` // percent
	Fentanyl   float64 `json:"fentanyl"`   // percent
	Section301 string  `json:"section301"` // range, e.g. "25-30"
	Section232 float64 `json:"section232"` // percent, 0 unless Commerce acts

	LastUpdated time.Time `json:"last_updated"`
	Sources     []string  `json:"sources"`

	IsCached  bool   `json:"is_cached,omitempty"`
	CacheNote string `json:"cache_note,omitempty"`

	// Raw payloads from whichever sources responded this cycle.
	TradeData json.RawMessage `json:"trade_data,omitempty"`
	Updates   []NewsItem      `json:"updates,omitempty"`
	Indicator *IndicatorPoint `json:"indicator,omitempty"`
}

// Validate checks the record's rate invariants.
func (r *TariffRecord) Validate() error {
	if r.Reciprocal < 0 || r.Fentanyl < 0 || r.Section232 < 0 {
		return eris.New("model: tariff rates must be non-negative")
	}
	if _, err := ParseRange(r.Section301); err != nil {
		return eris.Wrap(err, "model: section 301")
	}
	return nil
}

// RateRange is a tariff rate expressed as an inclusive percent range.
// Low == High collapses to a single rate.
type RateRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Mid returns the midpoint of the range.
func (r RateRange) Mid() float64 {
	return (r.Low + r.High) / 2
}

// ParseRange parses a rate range string like "25-30" or "25".
func ParseRange(s string) (RateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RateRange{}, eris.New("model: empty rate range")
	}

	parts := strings.SplitN(s, "-", 2)
	low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return RateRange{}, eris.Wrapf(err, "model: parse rate range %q", s)
	}
	high := low
	if len(parts) == 2 {
		high, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return RateRange{}, eris.Wrapf(err, "model: parse rate range %q", s)
		}
	}

	if low < 0 {
		return RateRange{}, eris.Errorf("model: negative rate in range %q", s)
	}
	if low > high {
		return RateRange{}, eris.Errorf("model: inverted rate range %q", s)
	}
	return RateRange{Low: low, High: high}, nil
}

// TariffView is the display-ready derivation of a TariffRecord. It is
// always recomputed from the record, never mutated independently.
type TariffView struct {
	Reciprocal     float64   `json:"reciprocal"`
	Fentanyl       float64   `json:"fentanyl"`
	Section301     RateRange `json:"section301"`
	Section232     float64   `json:"section232"`
	EffectiveTotal string    `json:"effective_total"`
	LastUpdated    time.Time `json:"last_updated"`
	Sources        []string  `json:"sources"`
	IsCached       bool      `json:"is_cached,omitempty"`
	CacheNote      string    `json:"cache_note,omitempty"`
}

// HTSLine is one row of the fixed HTS classification breakdown.
type HTSLine struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Reciprocal  float64 `json:"reciprocal"`
	Fentanyl    float64 `json:"fentanyl"`
	Section301  float64 `json:"section301"`
	Total       float64 `json:"total"`
}

// Scenario is one probability-weighted policy future.
type Scenario struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Probability  int     `json:"probability" yaml:"probability"` // percent, table sums to 100
	Description  string  `json:"description" yaml:"description"`
	PriceImpact  string  `json:"price_impact" yaml:"price_impact"`
	VolumeImpact string  `json:"volume_impact" yaml:"volume_impact"`
	JobsImpact   string  `json:"jobs_impact" yaml:"jobs_impact"`
}

// CompanyImpact is a transient projection from user-supplied inputs.
// Never persisted; recomputed on every input change.
type CompanyImpact struct {
	Revenue   float64 `json:"revenue"` // $M
	ExportPct float64 `json:"export_pct"`
	ChinaPct  float64 `json:"china_pct"`
	Headcount int     `json:"headcount"`

	ChinaRevenue    float64 `json:"china_revenue"`
	RevenueAtRisk   float64 `json:"revenue_at_risk"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	JobsAtRisk      int     `json:"jobs_at_risk"`
	ExpectedJobs    int     `json:"expected_jobs"`
}

// NewsItem is the uniform shape for regulatory-notice documents.
type NewsItem struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Source  string `json:"source"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// IndicatorPoint is the most recent observation of an economic series.
type IndicatorPoint struct {
	SeriesID string  `json:"series_id"`
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
}
