package pricing

import "math"

// Input represents the per-hour figures of one subject line of a settlement note.
type Input struct {
	HourlyRate    float64
	Quantity      float64
	InstructorPay float64
	ChargeRate    float64
}

// Line is one subject line without the charge rate, which is global to a note.
type Line struct {
	HourlyRate    float64
	Quantity      float64
	InstructorPay float64
}

// Result contains the revenue, cost and margin figures of a calculation.
type Result struct {
	Revenue        float64 `json:"revenue"`
	InstructorCost float64 `json:"instructor_cost"`
	ChargeCost     float64 `json:"charge_cost"`
	Margin         float64 `json:"margin"`
	MarginPercent  float64 `json:"margin_percent"`
}

// Compute derives revenue, costs and margin from one line. Values are kept at full
// precision; use Round at the presentation boundary.
func Compute(in Input) Result {
	revenue := finite(in.HourlyRate * in.Quantity)
	instructorCost := finite(in.InstructorPay * in.Quantity)
	chargeCost := finite(in.ChargeRate * in.Quantity)

	return withMargin(Result{
		Revenue:        revenue,
		InstructorCost: instructorCost,
		ChargeCost:     chargeCost,
	})
}

// Sum aggregates several lines billed under the same charge rate.
func Sum(lines []Line, chargeRate float64) Result {
	var total Result
	for _, line := range lines {
		r := Compute(Input{
			HourlyRate:    line.HourlyRate,
			Quantity:      line.Quantity,
			InstructorPay: line.InstructorPay,
			ChargeRate:    chargeRate,
		})
		total.Revenue += r.Revenue
		total.InstructorCost += r.InstructorCost
		total.ChargeCost += r.ChargeCost
	}
	return withMargin(total)
}

// Hours returns the total quantity of hours across lines.
func Hours(lines []Line) float64 {
	var hours float64
	for _, line := range lines {
		hours += finite(line.Quantity)
	}
	return hours
}

// Round returns r with money rounded to cents and the margin percentage to one decimal.
func Round(r Result) Result {
	return Result{
		Revenue:        RoundMoney(r.Revenue),
		InstructorCost: RoundMoney(r.InstructorCost),
		ChargeCost:     RoundMoney(r.ChargeCost),
		Margin:         RoundMoney(r.Margin),
		MarginPercent:  RoundPercent(r.MarginPercent),
	}
}

// RoundMoney rounds to 2 decimals.
func RoundMoney(v float64) float64 {
	return roundTo(v, 100)
}

// RoundPercent rounds to 1 decimal.
func RoundPercent(v float64) float64 {
	return roundTo(v, 10)
}

func withMargin(r Result) Result {
	r.Margin = finite(r.Revenue - r.InstructorCost - r.ChargeCost)
	r.MarginPercent = 0
	if r.Revenue > 0 {
		r.MarginPercent = finite(r.Margin / r.Revenue * 100)
	}
	return r
}

func roundTo(v, scale float64) float64 {
	return finite(math.Round(finite(v)*scale) / scale)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
