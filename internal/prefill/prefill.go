// Package prefill suggests pricing for a settlement note from the selected subjects and
// the client's region.
package prefill

import (
	"math"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/classify"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/pricing"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/rates"
)

// DefaultHoursPerSubject is the number of hours proposed for each selected subject.
const DefaultHoursPerSubject = 8

// ClientKind distinguishes prospects from clients with a settlement history.
type ClientKind string

const (
	Prospect ClientKind = "prospect"
	Existing ClientKind = "existing"
)

// Payment methods proposed by the recommender.
const (
	PaymentBankTransfer = "bank-transfer"
	PaymentCheck        = "check"
)

// PaymentTypeDeferredTaxCredit is the payment type every proposal carries.
const PaymentTypeDeferredTaxCredit = "deferred-tax-credit"

// Subject is a catalog entry as seen by the recommender.
type Subject struct {
	ID   string
	Name string
}

// Recommendation is a suggested pricing proposal. It is never applied without the
// caller's confirmation.
type Recommendation struct {
	HourlyRate    float64 `json:"hourly_rate"`
	InstructorPay float64 `json:"instructor_pay"`
	Quantity      float64 `json:"quantity"`
	ChargeRate    float64 `json:"charge_rate"`
	PaymentMethod string  `json:"payment_method"`
	PaymentType   string  `json:"payment_type"`
}

// Recommender produces proposals from a rate table.
type Recommender struct {
	table           rates.Table
	hoursPerSubject float64
}

// New returns a Recommender. A non-positive hoursPerSubject selects the default.
func New(table rates.Table, hoursPerSubject float64) *Recommender {
	if hoursPerSubject <= 0 || math.IsNaN(hoursPerSubject) || math.IsInf(hoursPerSubject, 0) {
		hoursPerSubject = DefaultHoursPerSubject
	}
	return &Recommender{table: table, hoursPerSubject: hoursPerSubject}
}

// Recommend averages the category rates of subjects and derives quantity, charge rate
// and payment terms. Identical inputs always give identical output.
func (r *Recommender) Recommend(subjects []Subject, regionCode string, kind ClientKind) Recommendation {
	rec := Recommendation{
		ChargeRate:    r.table.ChargeRate(regionCode),
		PaymentMethod: PaymentCheck,
		PaymentType:   PaymentTypeDeferredTaxCredit,
	}
	if kind == Existing {
		rec.PaymentMethod = PaymentBankTransfer
	}

	if len(subjects) == 0 {
		fallback := r.table.Subject(classify.Default)
		rec.HourlyRate = fallback.HourlyRate
		rec.InstructorPay = fallback.InstructorPay
		return rec
	}

	var hourly, pay float64
	for _, s := range subjects {
		rate := r.table.Subject(classify.Classify(s.Name))
		hourly += rate.HourlyRate
		pay += rate.InstructorPay
	}
	n := float64(len(subjects))
	rec.HourlyRate = pricing.RoundMoney(hourly / n)
	rec.InstructorPay = pricing.RoundMoney(pay / n)
	rec.Quantity = n * r.hoursPerSubject

	return rec
}

// SuggestOptimalRate returns the hourly rate reaching targetMarginPercent with the
// recommended instructor pay and charge rate held fixed. Targets of 100% or more have
// no solution and fall back to the recommended hourly rate.
func (r *Recommender) SuggestOptimalRate(subjects []Subject, regionCode string, targetMarginPercent float64) float64 {
	rec := r.Recommend(subjects, regionCode, Prospect)
	if math.IsNaN(targetMarginPercent) || targetMarginPercent >= 100 {
		return rec.HourlyRate
	}

	rate := (rec.InstructorPay + rec.ChargeRate) / (1 - targetMarginPercent/100)
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return rec.HourlyRate
	}
	return pricing.RoundMoney(rate)
}
