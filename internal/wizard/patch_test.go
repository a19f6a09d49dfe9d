package wizard

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep1PatchDecodesPresentKeysOnly(t *testing.T) {
	var p Step1Patch
	require.NoError(t, json.Unmarshal([]byte(`{"display_name":"Famille Roux","company":null}`), &p))

	assert.True(t, p.DisplayName.Set)
	assert.Equal(t, "Famille Roux", p.DisplayName.Value)
	assert.True(t, p.Company.Set)
	assert.Nil(t, p.Company.Value)
	assert.False(t, p.ClientID.Set)
	assert.False(t, p.PrimaryContact.Set)
}

func TestStep1PatchNullClearsCompany(t *testing.T) {
	m := newTestMachine(t)
	m.UpdateStep1(Step1Patch{Company: Some(&Company{Name: "Roux SAS"})})
	require.NotNil(t, m.Snapshot().Step1.Company)

	var p Step1Patch
	require.NoError(t, json.Unmarshal([]byte(`{"company":null}`), &p))
	m.UpdateStep1(p)

	assert.Nil(t, m.Snapshot().Step1.Company)
}

func TestStep3PatchDecodesRates(t *testing.T) {
	var p Step3Patch
	body := `{"rates":[{"subject_id":"math","hourly_rate":30,"quantity":null,"instructor_pay":22}],"payment_method":"card"}`
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	require.True(t, p.Rates.Set)
	require.Len(t, p.Rates.Value, 1)
	assert.Equal(t, 30.0, *p.Rates.Value[0].HourlyRate)
	assert.Nil(t, p.Rates.Value[0].Quantity)
	assert.Equal(t, PaymentCard, p.PaymentMethod.Value)
	assert.False(t, p.Charges.Set)
}

func TestEmptyPatchChangesNothing(t *testing.T) {
	m := newTestMachine(t)
	fillValid(t, m)
	require.True(t, m.ValidateStep2().Valid)
	before := m.Snapshot()

	m.UpdateStep2(Step2Patch{})

	assert.Equal(t, before, m.Snapshot())
}

func TestPatchDoesNotAliasCallerSlices(t *testing.T) {
	m := newTestMachine(t)
	ids := []string{"math", "physics"}
	m.UpdateStep2(Step2Patch{SelectedSubjectIDs: Some(ids)})

	ids[0] = "changed"

	assert.Equal(t, []string{"math", "physics"}, m.Snapshot().Step2.SelectedSubjectIDs)
}

func TestPatchRejectsUnknownNestedKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"contact", `{"primary_contact":{"frist_name":"Claire"}}`},
		{"address", `{"address":{"street":"12 rue des Lilas","zip":"75011"}}`},
		{"company", `{"company":{"name":"ACME","vat":"FR1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Step1Patch
			assert.Error(t, json.Unmarshal([]byte(tt.body), &p))
		})
	}

	var p Step1Patch
	require.NoError(t, json.Unmarshal([]byte(`{"primary_contact":{"first_name":"Claire"}}`), &p))
	assert.Equal(t, "Claire", p.PrimaryContact.Value.FirstName)
}
