package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	return New(Options{Now: func() time.Time { return testNow }})
}

// fillValid puts m in a state where every step validates: two subjects at 30/h for
// 8 hours each, instructor pay 22/h and charges 2.5/h.
func fillValid(t *testing.T, m *Machine) {
	t.Helper()

	m.UpdateStep1(Step1Patch{
		ClientID:    Some("client-1"),
		DisplayName: Some("Famille Martin"),
		RegionCode:  Some("75"),
		PrimaryContact: Some(Contact{
			FirstName: "Claire",
			LastName:  "Martin",
			Email:     "claire.martin@example.com",
			Phone:     "0601020304",
			BirthDate: "1984-03-12",
		}),
		Address:              Some(Address{Street: "12 rue des Lilas", City: "Paris", PostalCode: "75011"}),
		BillingSameAsPrimary: Some(true),
	})
	m.UpdateStep2(Step2Patch{
		FamilySelected:     Some(true),
		SelectedSubjectIDs: Some([]string{"math", "physics"}),
	})
	for _, id := range []string{"math", "physics"} {
		m.SetRate(id, SetHourlyRate{Value: Float(30)})
		m.SetRate(id, SetQuantity{Value: Float(8)})
		m.SetRate(id, SetInstructorPay{Value: Float(22)})
	}
	m.UpdateStep3(Step3Patch{
		Charges:       Some(Float(2.5)),
		PaymentMethod: Some(PaymentCheck),
	})
}

type mockSettlements struct {
	mock.Mock
}

func (m *mockSettlements) SubmitSettlement(ctx context.Context, payload Payload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Beneficiaries(ctx context.Context, clientID string) ([]Student, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Student), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListSubjects(ctx context.Context) ([]Subject, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Subject), args.Error(1)
}
