package wizard

import (
	"bytes"
	"maps"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
)

// Field is one optional value of a patch. Fields left unset do not touch the state.
// A set field replaces the target wholesale, nested structs included: patches are
// shallow merges at every step.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the field as set whenever its key is present, null included.
// Unknown keys inside nested objects are rejected.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(&f.Value)
}

func (f Field[T]) applyTo(dst *T) bool {
	if !f.Set {
		return false
	}
	*dst = f.Value
	return true
}

// Step1Patch is a partial update of Step1Data.
type Step1Patch struct {
	ClientID             Field[string]             `json:"client_id"`
	DisplayName          Field[string]             `json:"display_name"`
	RegionCode           Field[string]             `json:"region_code"`
	ClientKind           Field[prefill.ClientKind] `json:"client_kind"`
	PrimaryContact       Field[Contact]            `json:"primary_contact"`
	Address              Field[Address]            `json:"address"`
	Company              Field[*Company]           `json:"company"`
	BillingSameAsPrimary Field[bool]               `json:"billing_same_as_primary"`
	BillingAddress       Field[*Address]           `json:"billing_address"`
}

func (p Step1Patch) apply(d *Step1Data) bool {
	changed := false
	changed = p.ClientID.applyTo(&d.ClientID) || changed
	changed = p.DisplayName.applyTo(&d.DisplayName) || changed
	changed = p.RegionCode.applyTo(&d.RegionCode) || changed
	changed = p.ClientKind.applyTo(&d.ClientKind) || changed
	changed = p.PrimaryContact.applyTo(&d.PrimaryContact) || changed
	changed = p.Address.applyTo(&d.Address) || changed
	changed = p.BillingSameAsPrimary.applyTo(&d.BillingSameAsPrimary) || changed
	if p.Company.Set {
		d.Company = nil
		if p.Company.Value != nil {
			c := *p.Company.Value
			d.Company = &c
		}
		changed = true
	}
	if p.BillingAddress.Set {
		d.BillingAddress = nil
		if p.BillingAddress.Value != nil {
			a := *p.BillingAddress.Value
			d.BillingAddress = &a
		}
		changed = true
	}
	return changed
}

// Step2Patch is a partial update of Step2Data.
type Step2Patch struct {
	FamilySelected     Field[bool]                         `json:"family_selected"`
	StudentIDs         Field[[]string]                     `json:"student_ids"`
	StudentDetails     Field[map[string]BeneficiaryDetail] `json:"student_details"`
	FamilyDetail       Field[*BeneficiaryDetail]           `json:"family_detail"`
	SelectedSubjectIDs Field[[]string]                     `json:"selected_subject_ids"`
}

func (p Step2Patch) apply(d *Step2Data) bool {
	changed := p.FamilySelected.applyTo(&d.FamilySelected)
	if p.StudentIDs.Set {
		d.StudentIDs = uniqueIDs(p.StudentIDs.Value)
		changed = true
	}
	if p.StudentDetails.Set {
		d.StudentDetails = maps.Clone(p.StudentDetails.Value)
		if d.StudentDetails == nil {
			d.StudentDetails = map[string]BeneficiaryDetail{}
		}
		changed = true
	}
	if p.FamilyDetail.Set {
		d.FamilyDetail = nil
		if p.FamilyDetail.Value != nil {
			f := *p.FamilyDetail.Value
			d.FamilyDetail = &f
		}
		changed = true
	}
	if p.SelectedSubjectIDs.Set {
		d.SelectedSubjectIDs = uniqueIDs(p.SelectedSubjectIDs.Value)
		changed = true
	}
	return changed
}

// Step3Patch is a partial update of Step3Data. The derived margin and cost fields are
// not part of it.
type Step3Patch struct {
	Rates           Field[[]SubjectRate]   `json:"rates"`
	Charges         Field[*float64]        `json:"charges"`
	PaymentMethod   Field[PaymentMethod]   `json:"payment_method"`
	PaymentType     Field[PaymentType]     `json:"payment_type"`
	HasInstallments Field[bool]            `json:"has_installments"`
	Installments    Field[InstallmentPlan] `json:"installments"`
	Notes           Field[string]          `json:"notes"`
}

func (p Step3Patch) apply(d *Step3Data) bool {
	changed := false
	if p.Rates.Set {
		d.Rates = cloneRates(p.Rates.Value)
		changed = true
	}
	if p.Charges.Set {
		d.Charges = cloneFloat(p.Charges.Value)
		changed = true
	}
	changed = p.PaymentMethod.applyTo(&d.PaymentMethod) || changed
	changed = p.PaymentType.applyTo(&d.PaymentType) || changed
	changed = p.HasInstallments.applyTo(&d.HasInstallments) || changed
	changed = p.Installments.applyTo(&d.Installments) || changed
	changed = p.Notes.applyTo(&d.Notes) || changed
	return changed
}

// CourseLocationUpdate edits one field of a beneficiary's course details.
// Implementations are SetLocationKind, SetLocationAddress, SetOtherDetails and
// SetAvailability.
type CourseLocationUpdate interface {
	applyTo(d *BeneficiaryDetail)
}

type SetLocationKind struct{ Kind LocationKind }

type SetLocationAddress struct{ Address Address }

type SetOtherDetails struct{ Details string }

type SetAvailability struct{ Availability string }

func (u SetLocationKind) applyTo(d *BeneficiaryDetail)    { d.Location.Kind = u.Kind }
func (u SetLocationAddress) applyTo(d *BeneficiaryDetail) { d.Location.Address = u.Address }
func (u SetOtherDetails) applyTo(d *BeneficiaryDetail)    { d.Location.OtherDetails = u.Details }
func (u SetAvailability) applyTo(d *BeneficiaryDetail)    { d.Availability = u.Availability }

// RateUpdate edits one field of a Step 3 pricing row. Implementations are
// SetHourlyRate, SetQuantity and SetInstructorPay; a nil Value clears the field.
type RateUpdate interface {
	applyTo(r *SubjectRate)
}

type SetHourlyRate struct{ Value *float64 }

type SetQuantity struct{ Value *float64 }

type SetInstructorPay struct{ Value *float64 }

func (u SetHourlyRate) applyTo(r *SubjectRate)    { r.HourlyRate = cloneFloat(u.Value) }
func (u SetQuantity) applyTo(r *SubjectRate)      { r.Quantity = cloneFloat(u.Value) }
func (u SetInstructorPay) applyTo(r *SubjectRate) { r.InstructorPay = cloneFloat(u.Value) }

// Float returns a pointer to v, for filling nullable numeric fields.
func Float(v float64) *float64 {
	return &v
}

// syncRates keeps exactly one row per subject, in subject order, reusing existing rows.
func syncRates(rows []SubjectRate, subjectIDs []string) ([]SubjectRate, bool) {
	byID := make(map[string]SubjectRate, len(rows))
	for _, r := range rows {
		byID[r.SubjectID] = r
	}

	out := make([]SubjectRate, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, SubjectRate{SubjectID: id})
	}

	changed := len(out) != len(rows) || !slices.EqualFunc(out, rows, func(a, b SubjectRate) bool {
		return a.SubjectID == b.SubjectID
	})
	return out, changed
}
