// Package wizard drives the three-step creation of a settlement note: client identity,
// beneficiaries and subjects, then pricing and payment terms.
//
// A Machine is owned by one workflow session and is not safe for concurrent use.
// Validation never returns an error: problems are reported as field errors, and only
// collaborator failures surface as errors.
package wizard

import (
	"iter"
	"maps"
	"time"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/installments"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/pricing"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/rates"
)

// Options configures a Machine.
type Options struct {
	// PermissiveNext lets NextStep advance without validating the current step.
	PermissiveNext bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Recommender produces prefill proposals. Defaults to the compiled-in rate table.
	Recommender *prefill.Recommender
}

// Machine owns the state of one settlement-note wizard.
type Machine struct {
	opts     Options
	state    State
	errors   ValidationErrors
	students []Student
	subjects []Subject
}

// New returns a Machine at step 1 with empty data.
func New(opts Options) *Machine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recommender == nil {
		opts.Recommender = prefill.New(rates.Default(), prefill.DefaultHoursPerSubject)
	}
	return &Machine{
		opts:   opts,
		state:  defaultState(),
		errors: ValidationErrors{},
	}
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() State {
	return m.state.clone()
}

// Errors returns a deep copy of the error surface.
func (m *Machine) Errors() ValidationErrors {
	return m.errors.clone()
}

// CurrentStep returns the active step.
func (m *Machine) CurrentStep() Step {
	return m.state.CurrentStep
}

// SetReturnContext stores an opaque value carried through to the submit outcome.
func (m *Machine) SetReturnContext(v string) {
	m.state.ReturnContext = v
}

// GoToStep jumps to step without validating anything. Out-of-range steps are clamped.
func (m *Machine) GoToStep(step Step) {
	m.state.CurrentStep = clampStep(step)
}

// NextStep moves to the following step and reports whether the step changed. Unless
// the machine is permissive, the current step is validated first and an invalid step
// stays current.
func (m *Machine) NextStep() bool {
	if m.state.CurrentStep >= LastStep {
		return false
	}
	if !m.opts.PermissiveNext && !m.ValidateStep(m.state.CurrentStep).Valid {
		return false
	}
	m.state.CurrentStep = clampStep(m.state.CurrentStep + 1)
	return true
}

// PreviousStep moves back one step, keeping all entered data.
func (m *Machine) PreviousStep() bool {
	if m.state.CurrentStep <= FirstStep {
		return false
	}
	m.state.CurrentStep = clampStep(m.state.CurrentStep - 1)
	return true
}

// ResetWizard restores the initial state and clears every error.
func (m *Machine) ResetWizard() {
	m.state = defaultState()
	m.errors = ValidationErrors{}
	m.students = nil
}

// UpdateStep1 merges patch into the client step.
func (m *Machine) UpdateStep1(patch Step1Patch) {
	if patch.apply(&m.state.Step1) {
		m.state.Validity.Step1 = false
	}
}

// UpdateStep2 merges patch into the beneficiaries step. Changing the selected subjects
// adds or drops the matching Step 3 pricing rows.
func (m *Machine) UpdateStep2(patch Step2Patch) {
	if !patch.apply(&m.state.Step2) {
		return
	}
	m.state.Validity.Step2 = false
	if patch.SelectedSubjectIDs.Set {
		m.SyncRatesWithSubjects()
	}
}

// UpdateStep3 merges patch into the pricing step and recomputes the derived totals.
func (m *Machine) UpdateStep3(patch Step3Patch) {
	if patch.apply(&m.state.Step3) {
		m.state.Validity.Step3 = false
	}
	m.recompute()
}

// UpdateStudentDetail edits the course details of one student.
func (m *Machine) UpdateStudentDetail(studentID string, u CourseLocationUpdate) {
	if studentID == "" || u == nil {
		return
	}
	if m.state.Step2.StudentDetails == nil {
		m.state.Step2.StudentDetails = map[string]BeneficiaryDetail{}
	}
	detail := m.state.Step2.StudentDetails[studentID]
	u.applyTo(&detail)
	m.state.Step2.StudentDetails[studentID] = detail
	m.state.Validity.Step2 = false
}

// UpdateFamilyDetail edits the course details of the family.
func (m *Machine) UpdateFamilyDetail(u CourseLocationUpdate) {
	if u == nil {
		return
	}
	if m.state.Step2.FamilyDetail == nil {
		m.state.Step2.FamilyDetail = &BeneficiaryDetail{}
	}
	u.applyTo(m.state.Step2.FamilyDetail)
	m.state.Validity.Step2 = false
}

// SetRate edits one field of the pricing row of subjectID and reports whether the row
// exists.
func (m *Machine) SetRate(subjectID string, u RateUpdate) bool {
	if u == nil {
		return false
	}
	for i := range m.state.Step3.Rates {
		if m.state.Step3.Rates[i].SubjectID != subjectID {
			continue
		}
		u.applyTo(&m.state.Step3.Rates[i])
		m.state.Validity.Step3 = false
		m.recompute()
		return true
	}
	return false
}

// SyncRatesWithSubjects keeps one pricing row per selected subject. Rows of subjects
// still selected keep their values.
func (m *Machine) SyncRatesWithSubjects() {
	rows, changed := syncRates(m.state.Step3.Rates, m.state.Step2.SelectedSubjectIDs)
	if !changed {
		return
	}
	m.state.Step3.Rates = rows
	m.state.Validity.Step3 = false
	m.recompute()
}

// ValidateStep runs the validator of step, records its errors and validity, and
// returns the result. A step that passes has no entry in Errors.
func (m *Machine) ValidateStep(step Step) Result {
	var res Result
	switch step {
	case Step1:
		res = ValidateStep1Data(m.state.Step1, m.opts.Now())
	case Step2:
		res = ValidateStep2Data(m.state.Step2)
	case Step3:
		res = ValidateStep3Data(m.state.Step3)
	default:
		return Result{Errors: FieldErrors{}, Valid: false}
	}

	if res.Valid {
		delete(m.errors, step)
	} else {
		m.errors[step] = res.Errors
	}
	m.state.Validity.set(step, res.Valid)
	return Result{Errors: maps.Clone(res.Errors), Valid: res.Valid}
}

// ValidateStep1 validates the client step.
func (m *Machine) ValidateStep1() Result { return m.ValidateStep(Step1) }

// ValidateStep2 validates the beneficiaries step.
func (m *Machine) ValidateStep2() Result { return m.ValidateStep(Step2) }

// ValidateStep3 validates the pricing step.
func (m *Machine) ValidateStep3() Result { return m.ValidateStep(Step3) }

// Recommend builds a prefill proposal from the selected subjects, the client's region
// and kind. Subjects missing from the loaded catalog are priced with the default rates.
func (m *Machine) Recommend() prefill.Recommendation {
	return m.opts.Recommender.Recommend(m.selectedSubjects(), m.state.Step1.RegionCode, m.clientKind())
}

// SuggestOptimalRate returns the hourly rate reaching targetMarginPercent for the
// selected subjects and region.
func (m *Machine) SuggestOptimalRate(targetMarginPercent float64) float64 {
	return m.opts.Recommender.SuggestOptimalRate(m.selectedSubjects(), m.state.Step1.RegionCode, targetMarginPercent)
}

// ApplyPrefill writes a confirmed proposal into every pricing row and the payment
// terms. The proposal quantity is shared evenly between the rows.
func (m *Machine) ApplyPrefill(rec prefill.Recommendation) {
	m.SyncRatesWithSubjects()

	rows := m.state.Step3.Rates
	if len(rows) > 0 {
		perRow := rec.Quantity / float64(len(rows))
		for i := range rows {
			rows[i].HourlyRate = Float(rec.HourlyRate)
			rows[i].InstructorPay = Float(rec.InstructorPay)
			rows[i].Quantity = Float(perRow)
		}
	}
	m.state.Step3.Charges = Float(rec.ChargeRate)
	m.state.Step3.PaymentMethod = PaymentMethod(rec.PaymentMethod)
	m.state.Step3.PaymentType = PaymentType(rec.PaymentType)
	m.state.Validity.Step3 = false
	m.recompute()
}

// Totals aggregates the pricing rows at full precision. Unfilled values count as 0.
func (m *Machine) Totals() pricing.Result {
	return pricing.Sum(m.lines(), m.chargeRate())
}

// Preview returns Totals rounded for display.
func (m *Machine) Preview() pricing.Result {
	return pricing.Round(m.Totals())
}

// Hours returns the total number of hours across pricing rows.
func (m *Machine) Hours() float64 {
	return pricing.Hours(m.lines())
}

// Schedule returns the installment schedule of the current revenue starting in the
// month of start. It is empty when installments are disabled or the plan is out of
// range.
func (m *Machine) Schedule(start time.Time) iter.Seq[installments.Installment] {
	d := m.state.Step3
	plan := d.Installments
	if !d.HasInstallments || plan.Count > installments.MaxCount || plan.DayOfMonth < 1 || plan.DayOfMonth > 31 {
		return func(func(installments.Installment) bool) {}
	}
	return installments.Schedule(m.Totals().Revenue, plan.Count, plan.DayOfMonth, start)
}

func (m *Machine) recompute() {
	totals := m.Totals()
	d := &m.state.Step3
	d.MarginAmount = totals.Margin
	d.MarginPercentage = totals.MarginPercent
	d.ChargesToPay = totals.ChargeCost
	d.PayrollToPay = totals.InstructorCost
}

func (m *Machine) lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(m.state.Step3.Rates))
	for _, r := range m.state.Step3.Rates {
		lines = append(lines, pricing.Line{
			HourlyRate:    valueOf(r.HourlyRate),
			Quantity:      valueOf(r.Quantity),
			InstructorPay: valueOf(r.InstructorPay),
		})
	}
	return lines
}

func (m *Machine) chargeRate() float64 {
	return valueOf(m.state.Step3.Charges)
}

func (m *Machine) clientKind() prefill.ClientKind {
	if m.state.Step1.ClientKind == prefill.Existing {
		return prefill.Existing
	}
	return prefill.Prospect
}

func (m *Machine) selectedSubjects() []prefill.Subject {
	names := make(map[string]string, len(m.subjects))
	for _, s := range m.subjects {
		names[s.ID] = s.Name
	}

	out := make([]prefill.Subject, 0, len(m.state.Step2.SelectedSubjectIDs))
	for _, id := range m.state.Step2.SelectedSubjectIDs {
		out = append(out, prefill.Subject{ID: id, Name: names[id]})
	}
	return out
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
