package wizard

import (
	"math"
	"strings"
	"time"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/installments"
)

const (
	minClientAge    = 16
	maxClientAge    = 100
	birthDateLayout = "2006-01-02"
)

// Field keys of the error surface.
const (
	FieldClient          = "client"
	FieldBirthDate       = "primary_contact.birth_date"
	FieldBeneficiaries   = "beneficiaries"
	FieldSubjects        = "subjects"
	FieldPaymentMethod   = "payment_method"
	FieldPaymentType     = "payment_type"
	FieldRates           = "rates"
	FieldInstallMethod   = "installments.method"
	FieldInstallCount    = "installments.count"
	FieldInstallDay      = "installments.day_of_month"
	familyKeyPrefix      = "family"
	studentKeyPrefix     = "students."
	locationAddressField = ".location.address"
	locationOtherField   = ".location.other_details"
)

// ValidateStep1Data checks the client step. now anchors the age computation, which
// compares calendar years only.
func ValidateStep1Data(d Step1Data, now time.Time) Result {
	errs := FieldErrors{}

	if strings.TrimSpace(d.ClientID) == "" {
		errs[FieldClient] = "Select a client."
	}

	if raw := strings.TrimSpace(d.PrimaryContact.BirthDate); raw != "" {
		birth, err := time.Parse(birthDateLayout, raw)
		if err != nil {
			errs[FieldBirthDate] = "Birth date must use the YYYY-MM-DD format."
		} else if age := now.Year() - birth.Year(); age < minClientAge || age > maxClientAge {
			errs[FieldBirthDate] = "The contact must be between 16 and 100 years old."
		}
	}

	return Result{Errors: errs, Valid: len(errs) == 0}
}

// ValidateStep2Data checks beneficiaries, subjects and course locations. Only the
// first location problem found is reported, scanning the family before the students.
func ValidateStep2Data(d Step2Data) Result {
	errs := FieldErrors{}

	if !d.FamilySelected && len(d.StudentIDs) == 0 {
		errs[FieldBeneficiaries] = "Select the family or at least one student."
	}
	if len(d.SelectedSubjectIDs) == 0 {
		errs[FieldSubjects] = "Select at least one subject."
	}

	if key, msg, ok := firstLocationProblem(d); ok {
		errs[key] = msg
	}

	return Result{Errors: errs, Valid: len(errs) == 0}
}

func firstLocationProblem(d Step2Data) (string, string, bool) {
	if d.FamilySelected && d.FamilyDetail != nil {
		if field, msg, ok := locationProblem(*d.FamilyDetail); ok {
			return familyKeyPrefix + field, msg, true
		}
	}
	for _, id := range d.StudentIDs {
		detail, ok := d.StudentDetails[id]
		if !ok {
			continue
		}
		if field, msg, ok := locationProblem(detail); ok {
			return studentKeyPrefix + id + field, msg, true
		}
	}
	return "", "", false
}

func locationProblem(d BeneficiaryDetail) (string, string, bool) {
	switch d.Location.Kind {
	case LocationOther:
		if strings.TrimSpace(d.Location.OtherDetails) == "" {
			return locationOtherField, "Describe where the courses take place.", true
		}
	case LocationHome:
		a := d.Location.Address
		if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.PostalCode) == "" {
			return locationAddressField, "Street, city and postal code are required for courses at home.", true
		}
	}
	return "", "", false
}

// ValidateStep3Data checks payment terms and pricing rows. Any incomplete row fails the
// whole step with a single message.
func ValidateStep3Data(d Step3Data) Result {
	errs := FieldErrors{}

	switch {
	case d.PaymentMethod == "":
		errs[FieldPaymentMethod] = "Choose a payment method."
	case !d.PaymentMethod.Valid():
		errs[FieldPaymentMethod] = "Unknown payment method."
	}

	if d.PaymentType != "" && !d.PaymentType.Valid() {
		errs[FieldPaymentType] = "Unknown payment type."
	}

	for _, r := range d.Rates {
		if !positive(r.HourlyRate) || !positive(r.Quantity) || !positive(r.InstructorPay) {
			errs[FieldRates] = "Every subject needs an hourly rate, a quantity and an instructor pay greater than 0."
			break
		}
	}

	if d.HasInstallments {
		plan := d.Installments
		if !plan.Method.Valid() {
			errs[FieldInstallMethod] = "Choose direct debit or check for the installments."
		}
		if plan.Count < 1 || plan.Count > installments.MaxCount {
			errs[FieldInstallCount] = "The number of installments must be between 1 and 12."
		}
		if plan.DayOfMonth < 1 || plan.DayOfMonth > 31 {
			errs[FieldInstallDay] = "The payment day must be between 1 and 31."
		}
	}

	return Result{Errors: errs, Valid: len(errs) == 0}
}

func positive(v *float64) bool {
	return v != nil && *v > 0 && !math.IsInf(*v, 1)
}
