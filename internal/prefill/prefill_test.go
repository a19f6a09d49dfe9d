package prefill

import (
	"math"
	"testing"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/pricing"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/rates"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestRecommend_AveragesCategoryRates(t *testing.T) {
	r := New(rates.Default(), 0)

	// biology (28,20), mathematics (30,22), history (25,18)
	subjects := []Subject{
		{ID: "s1", Name: "SVT"},
		{ID: "s2", Name: "Mathématiques"},
		{ID: "s3", Name: "Histoire"},
	}

	rec := r.Recommend(subjects, "75 - Paris", Prospect)

	nearlyEqual(t, "hourlyRate", rec.HourlyRate, 27.67)
	nearlyEqual(t, "instructorPay", rec.InstructorPay, 20)
	nearlyEqual(t, "quantity", rec.Quantity, 24)
	nearlyEqual(t, "chargeRate", rec.ChargeRate, 3.2)
	if rec.PaymentMethod != PaymentCheck {
		t.Fatalf("paymentMethod = %q, want %q", rec.PaymentMethod, PaymentCheck)
	}
	if rec.PaymentType != PaymentTypeDeferredTaxCredit {
		t.Fatalf("paymentType = %q", rec.PaymentType)
	}
}

func TestRecommend_ExistingClientPaysByTransfer(t *testing.T) {
	rec := New(rates.Default(), 0).Recommend([]Subject{{ID: "s1", Name: "Anglais"}}, "92", Existing)

	if rec.PaymentMethod != PaymentBankTransfer {
		t.Fatalf("paymentMethod = %q, want %q", rec.PaymentMethod, PaymentBankTransfer)
	}
}

func TestRecommend_NoSubjectsFallsBackToDefault(t *testing.T) {
	table := rates.Default()
	rec := New(table, 0).Recommend(nil, "", Prospect)

	nearlyEqual(t, "hourlyRate", rec.HourlyRate, table.Subjects["default"].HourlyRate)
	nearlyEqual(t, "instructorPay", rec.InstructorPay, table.Subjects["default"].InstructorPay)
	nearlyEqual(t, "quantity", rec.Quantity, 0)
	nearlyEqual(t, "chargeRate", rec.ChargeRate, rates.DefaultBaselineChargeRate)
}

func TestRecommend_UnknownRegionUsesBaseline(t *testing.T) {
	rec := New(rates.Default(), 0).Recommend([]Subject{{ID: "s1", Name: "Piano"}}, "ZZ-Nowhere", Prospect)

	nearlyEqual(t, "chargeRate", rec.ChargeRate, rates.DefaultBaselineChargeRate)
}

func TestRecommend_CustomHoursPerSubject(t *testing.T) {
	rec := New(rates.Default(), 10).Recommend([]Subject{{Name: "Maths"}, {Name: "Physique"}}, "75", Prospect)

	nearlyEqual(t, "quantity", rec.Quantity, 20)
}

func TestRecommend_IsDeterministic(t *testing.T) {
	r := New(rates.Default(), 0)
	subjects := []Subject{{Name: "Maths"}, {Name: "Espagnol"}}

	first := r.Recommend(subjects, "13 - Marseille", Existing)
	for i := 0; i < 5; i++ {
		if got := r.Recommend(subjects, "13 - Marseille", Existing); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}

func TestSuggestOptimalRate_ReachesTargetMargin(t *testing.T) {
	r := New(rates.Default(), 0)
	subjects := []Subject{{Name: "Maths"}}

	// (22 + 2.5) / (1 - 0.12) = 27.8409...
	rate := r.SuggestOptimalRate(subjects, "01", 12)
	nearlyEqual(t, "rate", rate, 27.84)

	result := pricing.Compute(pricing.Input{HourlyRate: rate, Quantity: 8, InstructorPay: 22, ChargeRate: 2.5})
	if math.Abs(result.MarginPercent-12) > 0.1 {
		t.Fatalf("marginPercent = %v, want ~12", result.MarginPercent)
	}
}

func TestSuggestOptimalRate_ImpossibleTargetFallsBack(t *testing.T) {
	r := New(rates.Default(), 0)
	subjects := []Subject{{Name: "Maths"}}

	for _, target := range []float64{100, 150, math.NaN()} {
		nearlyEqual(t, "rate", r.SuggestOptimalRate(subjects, "75", target), 30)
	}
}
