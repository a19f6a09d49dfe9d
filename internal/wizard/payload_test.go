package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBuildPayloadFlattensState(t *testing.T) {
	m := newTestMachine(t)
	fillValid(t, m)
	m.UpdateStep1(Step1Patch{
		Company:              Some(&Company{Name: "Martin SARL", SIRET: "12345678900011"}),
		BillingSameAsPrimary: Some(false),
		BillingAddress:       Some(&Address{Street: "5 quai Ouest", City: "Paris", PostalCode: "75019"}),
	})
	m.UpdateStep3(Step3Patch{
		HasInstallments: Some(true),
		Installments:    Some(InstallmentPlan{Method: InstallmentCheck, Count: 3, DayOfMonth: 31}),
		Notes:           Some("Cours le mercredi"),
	})

	p, ok := m.BuildPayload()
	require.True(t, ok)

	assert.Equal(t, "client-1", p.ClientID)
	assert.Equal(t, "75019", p.BillingAddress.PostalCode)
	require.NotNil(t, p.Company)
	assert.Equal(t, "Martin SARL", p.Company.Name)
	assert.Equal(t, []string{"math", "physics"}, p.SubjectIDs)
	assert.Equal(t, []PayloadRate{
		{SubjectID: "math", HourlyRate: 30, Quantity: 8, InstructorPay: 22},
		{SubjectID: "physics", HourlyRate: 30, Quantity: 8, InstructorPay: 22},
	}, p.Rates)
	assert.Equal(t, 2.5, p.ChargeRate)
	assert.Equal(t, 16.0, p.TotalHours)
	assert.InDelta(t, 480, p.Revenue, 1e-9)
	assert.InDelta(t, 88, p.MarginAmount, 1e-9)
	assert.InDelta(t, 40, p.ChargesToPay, 1e-9)
	assert.InDelta(t, 352, p.PayrollToPay, 1e-9)

	require.Len(t, p.Schedule, 3)
	assert.Equal(t, 160.0, p.Schedule[0].Amount)
	assert.Equal(t, 31, p.Schedule[0].DueDate.Day())
	assert.Equal(t, 30, p.Schedule[1].DueDate.Day())

	s := m.Snapshot()
	assert.True(t, s.Validity.Step1)
	assert.True(t, s.Validity.Step2)
	assert.True(t, s.Validity.Step3)
}

func TestBuildPayloadUsesPrimaryAddressForBilling(t *testing.T) {
	m := newTestMachine(t)
	fillValid(t, m)
	m.UpdateStep1(Step1Patch{BillingAddress: Some(&Address{City: "Ignored"})})

	p, ok := m.BuildPayload()
	require.True(t, ok)
	assert.Equal(t, "Paris", p.BillingAddress.City)
	assert.Nil(t, p.Installments)
	assert.Empty(t, p.Schedule)
}

func TestSubmitSuccessResetsWizard(t *testing.T) {
	m := newTestMachine(t)
	fillValid(t, m)
	m.SetReturnContext("/clients/client-1")

	settlements := new(mockSettlements)
	settlements.On("SubmitSettlement", mock.Anything, mock.MatchedBy(func(p Payload) bool {
		return p.ClientID == "client-1" && len(p.Rates) == 2
	})).Return("note-42", nil)

	out, err := m.Submit(context.Background(), settlements)
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, "note-42", out.ID)
	assert.Equal(t, "/clients/client-1", out.ReturnContext)

	s := m.Snapshot()
	assert.Equal(t, Step1, s.CurrentStep)
	assert.Empty(t, s.Step1.ClientID)
	assert.Empty(t, s.Step3.Rates)
	assert.Empty(t, m.Errors())
	settlements.AssertExpectations(t)
}

func TestSubmitInvalidNoteIsNotSent(t *testing.T) {
	m := newTestMachine(t)
	m.UpdateStep1(Step1Patch{ClientID: Some("client-1")})

	settlements := new(mockSettlements)
	out, err := m.Submit(context.Background(), settlements)
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.NotContains(t, out.Errors, Step1)
	assert.Contains(t, out.Errors[Step2], FieldSubjects)
	assert.Contains(t, out.Errors[Step3], FieldPaymentMethod)
	assert.Equal(t, "client-1", m.Snapshot().Step1.ClientID)
	settlements.AssertNotCalled(t, "SubmitSettlement", mock.Anything, mock.Anything)
}

func TestSubmitFailureKeepsState(t *testing.T) {
	m := newTestMachine(t)
	fillValid(t, m)
	m.GoToStep(Step3)
	before := m.Snapshot()

	cause := errors.New("503 service unavailable")
	settlements := new(mockSettlements)
	settlements.On("SubmitSettlement", mock.Anything, mock.Anything).Return("", cause)

	out, err := m.Submit(context.Background(), settlements)

	var cerr *CollaboratorError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "submit settlement", cerr.Op)
	assert.Equal(t, GenericFailureMessage, cerr.UserMessage())
	assert.False(t, out.Accepted)

	after := m.Snapshot()
	assert.Equal(t, before.CurrentStep, after.CurrentStep)
	assert.Equal(t, before.Step1, after.Step1)
	assert.Equal(t, before.Step2, after.Step2)
	assert.Equal(t, before.Step3, after.Step3)

	settlements.ExpectedCalls = nil
	settlements.On("SubmitSettlement", mock.Anything, mock.Anything).Return("note-43", nil)
	out, err = m.Submit(context.Background(), settlements)
	require.NoError(t, err)
	assert.Equal(t, "note-43", out.ID)
}
