package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

func postForm(v url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(v.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestMemberForm(t *testing.T) {
	r := postForm(url.Values{
		"name":               {"  Sita Sharma "},
		"phone":              {"9812345678"},
		"email":              {"Sita@Example.COM"},
		"gender":             {"f"},
		"citizenship_number": {"CIT-1"},
		"membership_type":    {models.TypeRegular},
		"payment_frequency":  {models.FreqAnnual},
		"join_date":          {"2024-01-15"},
		"is_active":          {"on"},
		"child_name":         {"Asha", "", "Bikash"},
		"child_dob":          {"2015-05-01", "", ""},
		"child_gender":       {"F", "", "m"},
	})

	in, kids, err := memberForm(r)
	require.NoError(t, err)
	assert.Equal(t, "Sita Sharma", in.Name)
	assert.Equal(t, "+9779812345678", in.Phone)
	assert.Equal(t, "sita@example.com", in.Email)
	assert.Equal(t, "FEMALE", in.Gender)
	assert.True(t, in.IsActive)
	assert.Equal(t, "2024-01-15", in.JoinDate.Format("2006-01-02"))
	assert.Nil(t, in.DateOfBirth)

	require.Len(t, kids, 2)
	assert.Equal(t, "Asha", kids[0].Name)
	require.NotNil(t, kids[0].DateOfBirth)
	assert.Equal(t, "2015-05-01", kids[0].DateOfBirth.Format("2006-01-02"))
	assert.Equal(t, "Bikash", kids[1].Name)
	assert.Equal(t, "MALE", kids[1].Gender)
	assert.Nil(t, kids[1].DateOfBirth)
}

func TestMemberForm_BadDates(t *testing.T) {
	_, _, err := memberForm(postForm(url.Values{
		"name":          {"X"},
		"join_date":     {"yesterday"},
		"date_of_birth": {"31-31-31"},
	}))
	require.Error(t, err)

	ve, ok := services.AsValidation(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Error
	}
	assert.Equal(t, "enter a valid date", fields["join_date"])
	assert.Equal(t, "enter a valid date", fields["date_of_birth"])
}

func TestPaymentForm(t *testing.T) {
	in, err := paymentForm(postForm(url.Values{
		"member":         {"7"},
		"membership_fee": {"2"},
		"amount":         {"1,500.50"},
		"payment_date":   {"2024-06-30"},
		"payment_mode":   {models.ModeCash},
		"collected_by":   {" Treasurer "},
	}))
	require.NoError(t, err)
	assert.EqualValues(t, 7, in.MemberID)
	assert.EqualValues(t, 2, in.MembershipFeeID)
	assert.InDelta(t, 1500.50, in.Amount, 0.001)
	assert.Equal(t, "Treasurer", in.CollectedBy)

	_, err = paymentForm(postForm(url.Values{"member": {"abc"}, "amount": {"lots"}}))
	fields, _, ok := formErrors(err)
	require.True(t, ok)
	assert.Equal(t, "select a valid choice", fields["member"])
	assert.Equal(t, "enter a number", fields["amount"])
}

func TestFeeForm_BlankAmountIsZero(t *testing.T) {
	in, err := feeForm(postForm(url.Values{
		"membership_type":   {models.TypeLifetime},
		"payment_frequency": {models.FreqOneTime},
	}))
	require.NoError(t, err)
	assert.Zero(t, in.Amount)
	assert.False(t, in.IsActive)
}

func TestFormIDs(t *testing.T) {
	r := postForm(url.Values{"user_ids": {"3", "x", "0", " 9 "}})
	require.NoError(t, r.ParseForm())
	assert.Equal(t, []uint{3, 9}, formIDs(r, "user_ids"))
}

func TestFormErrors_SplitsGeneralMessages(t *testing.T) {
	err := services.NewValidationError(errBadInput,
		services.FieldError{Field: "name", Error: "required"},
		services.FieldError{Field: "name", Error: "too long"},
		services.FieldError{Error: "member already paid today"},
	)
	fields, general, ok := formErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "required"}, fields)
	assert.Equal(t, []string{"member already paid today"}, general)

	_, _, ok = formErrors(assert.AnError)
	assert.False(t, ok)
}

func TestReceiptQRText(t *testing.T) {
	assert.Equal(t, "NSS-20240630-0001|NSS-MEM-00007|NPR 1500.00|2024-06-30",
		receiptQRText("NSS-20240630-0001", "NSS-MEM-00007", 1500, "2024-06-30"))
}
