package wizard

import (
	"maps"
	"slices"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
)

// Step identifies one of the three wizard steps.
type Step int

const (
	Step1 Step = 1
	Step2 Step = 2
	Step3 Step = 3
)

// FirstStep and LastStep bound the step range.
const (
	FirstStep = Step1
	LastStep  = Step3
)

func clampStep(s Step) Step {
	if s < FirstStep {
		return FirstStep
	}
	if s > LastStep {
		return LastStep
	}
	return s
}

// LocationKind is where the courses of a beneficiary take place.
type LocationKind string

const (
	LocationHome           LocationKind = "home"
	LocationInstructorSite LocationKind = "instructor-site"
	LocationOther          LocationKind = "other"
)

// PaymentMethod is how the family settles the note.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = prefill.PaymentBankTransfer
	PaymentCheck        PaymentMethod = prefill.PaymentCheck
	PaymentDirectDebit  PaymentMethod = "direct-debit"
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
)

var paymentMethods = []PaymentMethod{PaymentBankTransfer, PaymentCheck, PaymentDirectDebit, PaymentCard, PaymentCash}

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	return slices.Contains(paymentMethods, m)
}

// PaymentType selects when the family benefits from the tax credit.
type PaymentType string

const (
	PaymentTypeImmediateTaxCredit PaymentType = "immediate-tax-credit"
	PaymentTypeDeferredTaxCredit  PaymentType = prefill.PaymentTypeDeferredTaxCredit
)

// Valid reports whether t is one of the known payment types.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeImmediateTaxCredit || t == PaymentTypeDeferredTaxCredit
}

// InstallmentMethod is how individual installments are collected.
type InstallmentMethod string

const (
	InstallmentDirectDebit InstallmentMethod = "direct-debit"
	InstallmentCheck       InstallmentMethod = "check"
)

// Valid reports whether m is a known installment method.
func (m InstallmentMethod) Valid() bool {
	return m == InstallmentDirectDebit || m == InstallmentCheck
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Contact is the primary contact of the client. BirthDate uses the YYYY-MM-DD layout.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

type Company struct {
	Name      string `json:"name"`
	SIRET     string `json:"siret,omitempty"`
	VATNumber string `json:"vat_number,omitempty"`
}

// Step1Data identifies the client.
type Step1Data struct {
	ClientID             string             `json:"client_id"`
	DisplayName          string             `json:"display_name"`
	RegionCode           string             `json:"region_code"`
	ClientKind           prefill.ClientKind `json:"client_kind,omitempty"`
	PrimaryContact       Contact            `json:"primary_contact"`
	Address              Address            `json:"address"`
	Company              *Company           `json:"company,omitempty"`
	BillingSameAsPrimary bool               `json:"billing_same_as_primary"`
	BillingAddress       *Address           `json:"billing_address,omitempty"`
}

type CourseLocation struct {
	Kind         LocationKind `json:"kind"`
	Address      Address      `json:"address"`
	OtherDetails string       `json:"other_details,omitempty"`
}

// BeneficiaryDetail describes where and when one beneficiary takes courses.
type BeneficiaryDetail struct {
	Location     CourseLocation `json:"location"`
	Availability string         `json:"availability,omitempty"`
}

// Step2Data holds the beneficiaries and the subjects of the note. StudentIDs and
// SelectedSubjectIDs are ordered sets.
type Step2Data struct {
	FamilySelected     bool                         `json:"family_selected"`
	StudentIDs         []string                     `json:"student_ids"`
	StudentDetails     map[string]BeneficiaryDetail `json:"student_details"`
	FamilyDetail       *BeneficiaryDetail           `json:"family_detail,omitempty"`
	SelectedSubjectIDs []string                     `json:"selected_subject_ids"`
}

// SubjectRate is the pricing row of one selected subject. Nil fields have not been
// filled in yet.
type SubjectRate struct {
	SubjectID     string   `json:"subject_id"`
	HourlyRate    *float64 `json:"hourly_rate"`
	Quantity      *float64 `json:"quantity"`
	InstructorPay *float64 `json:"instructor_pay"`
}

type InstallmentPlan struct {
	Method     InstallmentMethod `json:"method"`
	Count      int               `json:"count"`
	DayOfMonth int               `json:"day_of_month"`
}

// Step3Data holds pricing and payment terms. MarginAmount, MarginPercentage,
// ChargesToPay and PayrollToPay are derived from the rates and charges after every
// mutation and are never set directly.
type Step3Data struct {
	Rates           []SubjectRate   `json:"rates"`
	Charges         *float64        `json:"charges"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentType     PaymentType     `json:"payment_type,omitempty"`
	HasInstallments bool            `json:"has_installments"`
	Installments    InstallmentPlan `json:"installments"`
	Notes           string          `json:"notes,omitempty"`

	MarginAmount     float64 `json:"margin_amount"`
	MarginPercentage float64 `json:"margin_percentage"`
	ChargesToPay     float64 `json:"charges_to_pay"`
	PayrollToPay     float64 `json:"payroll_to_pay"`
}

// Validity records, per step, whether the last validator run on the current contents
// succeeded.
type Validity struct {
	Step1 bool `json:"step1"`
	Step2 bool `json:"step2"`
	Step3 bool `json:"step3"`
}

func (v *Validity) set(step Step, valid bool) {
	switch step {
	case Step1:
		v.Step1 = valid
	case Step2:
		v.Step2 = valid
	case Step3:
		v.Step3 = valid
	}
}

// Of returns the validity flag of step.
func (v Validity) Of(step Step) bool {
	switch step {
	case Step1:
		return v.Step1
	case Step2:
		return v.Step2
	case Step3:
		return v.Step3
	}
	return false
}

// State is the whole wizard aggregate.
type State struct {
	CurrentStep   Step      `json:"current_step"`
	Step1         Step1Data `json:"step1"`
	Step2         Step2Data `json:"step2"`
	Step3         Step3Data `json:"step3"`
	Validity      Validity  `json:"validity"`
	ReturnContext string    `json:"return_context,omitempty"`
}

func defaultState() State {
	return State{
		CurrentStep: FirstStep,
		Step2: Step2Data{
			StudentDetails: map[string]BeneficiaryDetail{},
		},
	}
}

// FieldErrors maps a field key to a human-readable message.
type FieldErrors map[string]string

// ValidationErrors holds the field errors of every step that has been validated.
type ValidationErrors map[Step]FieldErrors

// Result is the outcome of one step validator run.
type Result struct {
	Errors FieldErrors `json:"errors"`
	Valid  bool        `json:"valid"`
}

func (s State) clone() State {
	out := s
	out.Step1 = s.Step1.clone()
	out.Step2 = s.Step2.clone()
	out.Step3 = s.Step3.clone()
	return out
}

func (d Step1Data) clone() Step1Data {
	out := d
	if d.Company != nil {
		c := *d.Company
		out.Company = &c
	}
	if d.BillingAddress != nil {
		a := *d.BillingAddress
		out.BillingAddress = &a
	}
	return out
}

func (d Step2Data) clone() Step2Data {
	out := d
	out.StudentIDs = slices.Clone(d.StudentIDs)
	out.SelectedSubjectIDs = slices.Clone(d.SelectedSubjectIDs)
	out.StudentDetails = maps.Clone(d.StudentDetails)
	if out.StudentDetails == nil {
		out.StudentDetails = map[string]BeneficiaryDetail{}
	}
	if d.FamilyDetail != nil {
		f := *d.FamilyDetail
		out.FamilyDetail = &f
	}
	return out
}

func (d Step3Data) clone() Step3Data {
	out := d
	out.Charges = cloneFloat(d.Charges)
	out.Rates = cloneRates(d.Rates)
	return out
}

func cloneRates(rows []SubjectRate) []SubjectRate {
	if rows == nil {
		return nil
	}
	out := make([]SubjectRate, len(rows))
	for i, r := range rows {
		out[i] = SubjectRate{
			SubjectID:     r.SubjectID,
			HourlyRate:    cloneFloat(r.HourlyRate),
			Quantity:      cloneFloat(r.Quantity),
			InstructorPay: cloneFloat(r.InstructorPay),
		}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func (e ValidationErrors) clone() ValidationErrors {
	out := make(ValidationErrors, len(e))
	for step, fields := range e {
		out[step] = maps.Clone(fields)
	}
	return out
}

// uniqueIDs drops empty and duplicate ids, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
