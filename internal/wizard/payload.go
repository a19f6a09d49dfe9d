package wizard

import (
	"context"
	"slices"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/installments"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
)

// PayloadRate is a fully filled pricing row.
type PayloadRate struct {
	SubjectID     string  `json:"subject_id"`
	HourlyRate    float64 `json:"hourly_rate"`
	Quantity      float64 `json:"quantity"`
	InstructorPay float64 `json:"instructor_pay"`
}

// Payload is the flattened settlement note handed to the settlement service.
type Payload struct {
	ClientID       string             `json:"client_id"`
	DisplayName    string             `json:"display_name"`
	RegionCode     string             `json:"region_code"`
	ClientKind     prefill.ClientKind `json:"client_kind"`
	PrimaryContact Contact            `json:"primary_contact"`
	Address        Address            `json:"address"`
	Company        *Company           `json:"company,omitempty"`
	BillingAddress Address            `json:"billing_address"`

	FamilySelected bool                         `json:"family_selected"`
	FamilyDetail   *BeneficiaryDetail           `json:"family_detail,omitempty"`
	StudentIDs     []string                     `json:"student_ids"`
	StudentDetails map[string]BeneficiaryDetail `json:"student_details"`
	SubjectIDs     []string                     `json:"subject_ids"`

	Rates           []PayloadRate              `json:"rates"`
	ChargeRate      float64                    `json:"charge_rate"`
	PaymentMethod   PaymentMethod              `json:"payment_method"`
	PaymentType     PaymentType                `json:"payment_type,omitempty"`
	HasInstallments bool                       `json:"has_installments"`
	Installments    *InstallmentPlan           `json:"installments,omitempty"`
	Schedule        []installments.Installment `json:"schedule,omitempty"`
	Notes           string                     `json:"notes,omitempty"`

	TotalHours       float64 `json:"total_hours"`
	Revenue          float64 `json:"revenue"`
	MarginAmount     float64 `json:"margin_amount"`
	MarginPercentage float64 `json:"margin_percentage"`
	ChargesToPay     float64 `json:"charges_to_pay"`
	PayrollToPay     float64 `json:"payroll_to_pay"`
}

// SubmitOutcome is the result of Submit. When Accepted is false the note failed
// validation and Errors holds the error surface.
type SubmitOutcome struct {
	ID            string           `json:"id,omitempty"`
	Accepted      bool             `json:"accepted"`
	Errors        ValidationErrors `json:"errors,omitempty"`
	ReturnContext string           `json:"return_context,omitempty"`
}

// BuildPayload validates every step, recomputes the derived fields and flattens the
// state. It reports false when any step is invalid.
func (m *Machine) BuildPayload() (Payload, bool) {
	valid := true
	for step := FirstStep; step <= LastStep; step++ {
		if !m.ValidateStep(step).Valid {
			valid = false
		}
	}
	m.recompute()
	if !valid {
		return Payload{}, false
	}

	s1, s2, s3 := m.state.Step1, m.state.Step2, m.state.Step3

	p := Payload{
		ClientID:       s1.ClientID,
		DisplayName:    s1.DisplayName,
		RegionCode:     s1.RegionCode,
		ClientKind:     m.clientKind(),
		PrimaryContact: s1.PrimaryContact,
		Address:        s1.Address,
		BillingAddress: s1.Address,

		FamilySelected: s2.FamilySelected,
		StudentIDs:     slices.Clone(s2.StudentIDs),
		StudentDetails: make(map[string]BeneficiaryDetail, len(s2.StudentIDs)),
		SubjectIDs:     slices.Clone(s2.SelectedSubjectIDs),

		ChargeRate:      valueOf(s3.Charges),
		PaymentMethod:   s3.PaymentMethod,
		PaymentType:     s3.PaymentType,
		HasInstallments: s3.HasInstallments,
		Notes:           s3.Notes,

		TotalHours:       m.Hours(),
		Revenue:          m.Totals().Revenue,
		MarginAmount:     s3.MarginAmount,
		MarginPercentage: s3.MarginPercentage,
		ChargesToPay:     s3.ChargesToPay,
		PayrollToPay:     s3.PayrollToPay,
	}

	if s1.Company != nil {
		c := *s1.Company
		p.Company = &c
	}
	if !s1.BillingSameAsPrimary && s1.BillingAddress != nil {
		p.BillingAddress = *s1.BillingAddress
	}

	if s2.FamilySelected && s2.FamilyDetail != nil {
		f := *s2.FamilyDetail
		p.FamilyDetail = &f
	}
	for _, id := range s2.StudentIDs {
		if detail, ok := s2.StudentDetails[id]; ok {
			p.StudentDetails[id] = detail
		}
	}

	p.Rates = make([]PayloadRate, 0, len(s3.Rates))
	for _, r := range s3.Rates {
		p.Rates = append(p.Rates, PayloadRate{
			SubjectID:     r.SubjectID,
			HourlyRate:    valueOf(r.HourlyRate),
			Quantity:      valueOf(r.Quantity),
			InstructorPay: valueOf(r.InstructorPay),
		})
	}

	if s3.HasInstallments {
		plan := s3.Installments
		p.Installments = &plan
		p.Schedule = slices.Collect(m.Schedule(m.opts.Now()))
	}

	return p, true
}

// Submit builds the payload and hands it to the settlement service. An invalid note is
// not sent: the outcome carries the errors instead. When the service fails, the state
// is kept for a retry and a *CollaboratorError is returned. On success the wizard is
// reset and the return context handed back.
func (m *Machine) Submit(ctx context.Context, settlements Settlements) (SubmitOutcome, error) {
	payload, ok := m.BuildPayload()
	if !ok {
		return SubmitOutcome{Errors: m.Errors()}, nil
	}

	id, err := settlements.SubmitSettlement(ctx, payload)
	if err != nil {
		return SubmitOutcome{}, collaboratorError("submit settlement", err)
	}

	returnContext := m.state.ReturnContext
	m.ResetWizard()
	return SubmitOutcome{ID: id, Accepted: true, ReturnContext: returnContext}, nil
}
