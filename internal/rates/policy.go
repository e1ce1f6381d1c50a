package rates

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tariff-radar/internal/model"
)

// Policy holds the headline rate defaults, the HTS sub-rate table, and the
// forecast scenario table. Rates are policy-set by proclamation, not derived
// from trade volumes, so they live in versioned config rather than in any
// live feed.
type Policy struct {
	Rates     HeadlineRates    `yaml:"rates"`
	HTS       []HTSRate        `yaml:"hts"`
	Scenarios []model.Scenario `yaml:"scenarios"`
}

// HeadlineRates are the default rate components applied to composed records.
type HeadlineRates struct {
	Reciprocal float64 `yaml:"reciprocal"`
	Fentanyl   float64 `yaml:"fentanyl"`
	Section301 string  `yaml:"section301"`
	Section232 float64 `yaml:"section232"`
}

// HTSRate is one row of the HTS classification table with its Section 301
// sub-rate.
type HTSRate struct {
	Code        string  `yaml:"code"`
	Description string  `yaml:"description"`
	Section301  float64 `yaml:"section301"`
}

// DefaultPolicy returns the baked-in policy table, current as of the
// January 2026 reciprocal-rate extension.
func DefaultPolicy() *Policy {
	return &Policy{
		Rates: HeadlineRates{
			Reciprocal: 10,
			Fentanyl:   10,
			Section301: "25-30",
			Section232: 0,
		},
		HTS: []HTSRate{
			{Code: "4407.11-19", Description: "Coniferous Wood (Sawn/Sliced)", Section301: 25},
			{Code: "4407.21-29", Description: "Tropical Wood (Sawn/Sliced)", Section301: 25},
			// Midpoint of the 25-30 range: hardwood lines straddle both tiers.
			{Code: "4407.91-99", Description: "Other Wood (Hardwoods)", Section301: 27.5},
			{Code: "4408.10-90", Description: "Veneer Sheets", Section301: 25},
			{Code: "4412.31-34", Description: "Hardwood Plywood", Section301: 25},
		},
		Scenarios: []model.Scenario{
			{
				ID:           "A",
				Name:         "Status Quo Extension",
				Probability:  50,
				Description:  "10% reciprocal rate extended beyond Nov 10, 2026. Current ~45-50% effective rate maintained.",
				PriceImpact:  "0% to -3%",
				VolumeImpact: "Stable",
				JobsImpact:   "Minimal",
			},
			{
				ID:           "B",
				Name:         "Section 232 Addition",
				Probability:  25,
				Description:  "Commerce adds hardwoods to Section 232. New 10-25% tariff stacks (total: 55-75%).",
				PriceImpact:  "-15% to -20%",
				VolumeImpact: "-40% to -50%",
				JobsImpact:   "-1,500 to -2,500",
			},
			{
				ID:           "C",
				Name:         "Reciprocal Reversion",
				Probability:  25,
				Description:  "Reciprocal rate reverts to 145%. Total effective 180-185%. Trade collapse.",
				PriceImpact:  "-30% to -40%",
				VolumeImpact: "-95% to -98%",
				JobsImpact:   "-4,000 to -6,000",
			},
		},
	}
}

// LoadPolicy reads a policy override file. Sections left empty in the file
// fall back to the baked-in defaults.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rates: read policy %s", path)
	}

	var wrapper struct {
		Policy Policy `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "rates: parse policy")
	}

	p := &wrapper.Policy
	def := DefaultPolicy()
	if p.Rates == (HeadlineRates{}) {
		p.Rates = def.Rates
	}
	if len(p.HTS) == 0 {
		p.HTS = def.HTS
	}
	if len(p.Scenarios) == 0 {
		p.Scenarios = def.Scenarios
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks rate invariants and that scenario probabilities sum to 100.
func (p *Policy) Validate() error {
	if p.Rates.Reciprocal < 0 || p.Rates.Fentanyl < 0 || p.Rates.Section232 < 0 {
		return eris.New("rates: policy rates must be non-negative")
	}
	if _, err := model.ParseRange(p.Rates.Section301); err != nil {
		return eris.Wrap(err, "rates: policy section 301")
	}

	for _, h := range p.HTS {
		if h.Section301 < 0 {
			return eris.Errorf("rates: negative section 301 sub-rate for %s", h.Code)
		}
	}

	sum := 0
	for _, s := range p.Scenarios {
		sum += s.Probability
	}
	if sum != 100 {
		return eris.Errorf("rates: scenario probabilities sum to %d, want 100", sum)
	}

	return nil
}
