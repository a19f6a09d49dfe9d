// Package rates holds the subject pricing table and the per-region charge rates used to
// prefill a settlement note.
package rates

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/classify"
)

// DefaultBaselineChargeRate applies to regions missing from the table.
const DefaultBaselineChargeRate = 2.5

// SubjectRate is the default hourly rate billed to the family and the hourly pay of
// the instructor for one subject category.
type SubjectRate struct {
	HourlyRate    float64 `yaml:"hourly_rate"`
	InstructorPay float64 `yaml:"instructor_pay"`
}

// Table maps subject categories to rates and region prefixes to charge rates.
type Table struct {
	Subjects           map[classify.Category]SubjectRate `yaml:"subjects"`
	Regions            map[string]float64                `yaml:"regions"`
	BaselineChargeRate float64                           `yaml:"baseline_charge_rate"`
}

// Default returns the compiled-in table.
func Default() Table {
	return Table{
		Subjects: map[classify.Category]SubjectRate{
			classify.Mathematics: {HourlyRate: 30, InstructorPay: 22},
			classify.Physics:     {HourlyRate: 30, InstructorPay: 22},
			classify.Chemistry:   {HourlyRate: 29, InstructorPay: 21},
			classify.Biology:     {HourlyRate: 28, InstructorPay: 20},
			classify.French:      {HourlyRate: 27, InstructorPay: 19},
			classify.English:     {HourlyRate: 28, InstructorPay: 20},
			classify.Spanish:     {HourlyRate: 26, InstructorPay: 18},
			classify.German:      {HourlyRate: 28, InstructorPay: 20},
			classify.History:     {HourlyRate: 25, InstructorPay: 18},
			classify.Geography:   {HourlyRate: 25, InstructorPay: 18},
			classify.Philosophy:  {HourlyRate: 30, InstructorPay: 22},
			classify.Default:     {HourlyRate: 26, InstructorPay: 19},
		},
		Regions: map[string]float64{
			"75": 3.2,
			"92": 3.0,
			"93": 2.8,
			"94": 2.8,
			"78": 2.9,
			"69": 2.9,
			"13": 2.7,
			"06": 3.0,
			"33": 2.6,
			"31": 2.6,
			"44": 2.6,
			"59": 2.7,
			"67": 2.7,
		},
		BaselineChargeRate: DefaultBaselineChargeRate,
	}
}

// Load returns the default table with the entries of the YAML file at path layered on
// top. An empty path returns the default table unchanged.
func Load(path string) (Table, error) {
	table := Default()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table, fmt.Errorf("rates file %s not found: %w", path, err)
		}
		return table, fmt.Errorf("read rates file: %w", err)
	}

	var override Table
	if err := yaml.Unmarshal(data, &override); err != nil {
		return table, fmt.Errorf("parse rates file: %w", err)
	}

	for category, rate := range override.Subjects {
		table.Subjects[category] = rate
	}
	for prefix, rate := range override.Regions {
		table.Regions[prefix] = rate
	}
	if override.BaselineChargeRate > 0 {
		table.BaselineChargeRate = override.BaselineChargeRate
	}

	return table, nil
}

// Subject returns the rates for a category, falling back to the Default category.
func (t Table) Subject(category classify.Category) SubjectRate {
	if rate, ok := t.Subjects[category]; ok {
		return rate
	}
	return t.Subjects[classify.Default]
}

// ChargeRate resolves a region code such as "75 - Paris" or "06/Nice" by its numeric
// prefix. Unknown or malformed codes resolve to the baseline rate.
func (t Table) ChargeRate(regionCode string) float64 {
	if rate, ok := t.Regions[RegionPrefix(regionCode)]; ok {
		return rate
	}
	return t.BaselineChargeRate
}

// RegionPrefix returns the leading token of a region code, cut at the first separator.
// It returns "" when that token is not purely numeric.
func RegionPrefix(regionCode string) string {
	code := strings.TrimSpace(regionCode)
	if i := strings.IndexAny(code, " -/.,_"); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		return ""
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return code
}
