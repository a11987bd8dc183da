package crew_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crew "github.com/goliatone/go-crew"
)

func validContact() crew.Contact {
	return crew.Contact{
		FirstName:   "Sara",
		LastName:    "Karimi",
		Email:       "sara@example.com",
		CountryCode: "+98",
		Mobile:      "9121234567",
		Password:    "password123",
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, crew.TextCodeValidation, richErr.TextCode)
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}

func TestContactValidate(t *testing.T) {
	require.NoError(t, validContact().Validate())

	c := validContact()
	c.FirstName = ""
	c.Email = "not-an-email"
	c.Mobile = "91a"

	fields := fieldErrors(t, c.Validate())
	assert.Contains(t, fields, "first_name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "mobile")
	assert.NotContains(t, fields, "last_name")
	assert.Equal(t, "Sara Karimi", validContact().FullName())
}

func TestJoinRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     crew.JoinRequest
		field   string
		wantErr bool
	}{
		{"talent needs no code", crew.JoinRequest{Contact: validContact(), Intent: crew.IntentTalent}, "", false},
		{"office needs a code", crew.JoinRequest{Contact: validContact(), Intent: crew.IntentOffice}, "code", true},
		{"field with code", crew.JoinRequest{Contact: validContact(), Intent: crew.IntentField, Code: "ABCD1234"}, "", false},
		{"unknown intent", crew.JoinRequest{Contact: validContact(), Intent: "VISITOR", Code: "X"}, "intent", true},
		{"missing intent", crew.JoinRequest{Contact: validContact()}, "intent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestCompanyInfoValidate(t *testing.T) {
	assert.NoError(t, crew.CompanyInfo{Name: "Deep Drill", Industry: crew.IndustryMixed}.Validate())

	fields := fieldErrors(t, crew.CompanyInfo{Name: "D", Industry: "Mining"}.Validate())
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "industry")
}

func TestIdentitySubmissionValidate(t *testing.T) {
	ok := crew.IdentitySubmission{
		NationalID: "0012345678",
		Address:    crew.Address{Country: "Iran", City: "Tehran"},
		IDCardURL:  "https://files.example.com/id.png",
	}
	assert.NoError(t, ok.Validate())

	bad := crew.IdentitySubmission{NationalID: "12", IDCardURL: "nope nope"}
	fields := fieldErrors(t, bad.Validate())
	assert.Contains(t, fields, "national_id")
	assert.Contains(t, fields, "address")
	assert.Contains(t, fields, "id_card_url")
}
