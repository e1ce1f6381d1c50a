// Package rates derives display-ready tariff figures from raw records.
// Everything here is pure: no I/O, no shared state.
package rates

import (
	"math"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tariff-radar/internal/model"
)

// ReciprocalExpiry is the date the current 10% reciprocal rate lapses
// absent another extension.
var ReciprocalExpiry = time.Date(2026, time.November, 10, 0, 0, 0, 0, time.UTC)

// Company impact multipliers, pinned to the scenario table as published.
// 0.9 models Scenario C's ~90% volume collapse on China-bound revenue.
// 0.947 and 0.053 come from the probability-weighted price impacts
// (0.5×0% + 0.25×-15% + 0.25×-35% ≈ -5.3%). Editing the scenario table
// does NOT recompute these; update them together.
const (
	scenarioCVolumeCollapse = 0.9
	expectedRevenueMul      = 0.947
	expectedJobsFraction    = 0.053
)

// EffectiveBounds returns the stacked tariff total at the low and high
// ends of the Section 301 range.
func EffectiveBounds(rec *model.TariffRecord) (float64, float64, error) {
	r301, err := model.ParseRange(rec.Section301)
	if err != nil {
		return 0, 0, err
	}
	base := rec.Reciprocal + rec.Fentanyl + rec.Section232
	return base + r301.Low, base + r301.High, nil
}

// EffectiveTotal renders the stacked total as "45%" or "45-50%". The range
// collapses to a single value only when the bounds coincide.
func EffectiveTotal(rec *model.TariffRecord) (string, error) {
	lo, hi, err := EffectiveBounds(rec)
	if err != nil {
		return "", err
	}
	if lo == hi {
		return formatPct(lo) + "%", nil
	}
	return formatPct(lo) + "-" + formatPct(hi) + "%", nil
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// View derives the display record. Deterministic: same record in, same
// view out.
func View(rec *model.TariffRecord) (*model.TariffView, error) {
	r301, err := model.ParseRange(rec.Section301)
	if err != nil {
		return nil, eris.Wrap(err, "rates: derive view")
	}
	total, err := EffectiveTotal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "rates: derive view")
	}

	return &model.TariffView{
		Reciprocal:     rec.Reciprocal,
		Fentanyl:       rec.Fentanyl,
		Section301:     r301,
		Section232:     rec.Section232,
		EffectiveTotal: total,
		LastUpdated:    rec.LastUpdated,
		Sources:        rec.Sources,
		IsCached:       rec.IsCached,
		CacheNote:      rec.CacheNote,
	}, nil
}

// Calculator applies a policy table to records. A nil policy means the
// baked-in defaults.
type Calculator struct {
	policy *Policy
}

// NewCalculator creates a calculator over the given policy.
func NewCalculator(p *Policy) *Calculator {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Calculator{policy: p}
}

// Policy returns the calculator's policy table.
func (c *Calculator) Policy() *Policy {
	return c.policy
}

// HTSBreakdown substitutes the record's reciprocal and fentanyl rates into
// the fixed HTS classification table. The table is reference data: it is
// recomputed whenever the record changes and has no lifecycle of its own.
func (c *Calculator) HTSBreakdown(rec *model.TariffRecord) []model.HTSLine {
	lines := make([]model.HTSLine, 0, len(c.policy.HTS))
	for _, h := range c.policy.HTS {
		lines = append(lines, model.HTSLine{
			Code:        h.Code,
			Description: h.Description,
			Reciprocal:  rec.Reciprocal,
			Fentanyl:    rec.Fentanyl,
			Section301:  h.Section301,
			Total:       rec.Reciprocal + rec.Fentanyl + h.Section301,
		})
	}
	return lines
}

// Scenarios returns the static forecast table. Probabilities sum to 100,
// enforced by Policy.Validate.
func (c *Calculator) Scenarios() []model.Scenario {
	return c.policy.Scenarios
}

// CompanyImpact projects revenue and jobs exposure from four user inputs.
// Revenue is in the caller's unit (the CLI uses $M); outputs share it.
func CompanyImpact(revenue, exportPct, chinaPct float64, headcount int) (*model.CompanyImpact, error) {
	if revenue <= 0 {
		return nil, eris.New("rates: revenue must be positive")
	}
	if exportPct < 0 || exportPct > 100 {
		return nil, eris.Errorf("rates: export percent %v outside [0,100]", exportPct)
	}
	if chinaPct < 0 || chinaPct > 100 {
		return nil, eris.Errorf("rates: china percent %v outside [0,100]", chinaPct)
	}
	if headcount < 0 {
		return nil, eris.New("rates: headcount must be non-negative")
	}

	chinaRevenue := revenue * (exportPct / 100) * (chinaPct / 100)
	revenueAtRisk := chinaRevenue * scenarioCVolumeCollapse

	return &model.CompanyImpact{
		Revenue:   revenue,
		ExportPct: exportPct,
		ChinaPct:  chinaPct,
		Headcount: headcount,

		ChinaRevenue:    chinaRevenue,
		RevenueAtRisk:   revenueAtRisk,
		ExpectedRevenue: revenue * expectedRevenueMul,
		JobsAtRisk:      int(math.Round(float64(headcount) * (revenueAtRisk / revenue))),
		ExpectedJobs:    int(math.Round(float64(headcount) * expectedJobsFraction)),
	}, nil
}

// DaysUntil counts days from now to target, rounding partial days up.
// Negative once the target has passed; callers decide how to render that.
func DaysUntil(target, now time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / 24))
}
