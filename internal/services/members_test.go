package services

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nssnepal/membership/internal/models"
)

func TestCreateMember_AssignsSequentialNumbers(t *testing.T) {
	gdb := openTestDB(t)

	var got []string
	for i, cit := range []string{"C-1", "C-2", "C-3"} {
		m := mustMember(t, gdb, "Member "+cit, cit, models.TypeRegular, models.FreqAnnual)
		got = append(got, m.MembershipNumber)
		assert.NotZero(t, m.ID, "member %d", i)
	}
	assert.Equal(t, []string{"NSS-MEM-00001", "NSS-MEM-00002", "NSS-MEM-00003"}, got)
}

func TestCreateMember_ExplicitNumberAdvancesCounter(t *testing.T) {
	gdb := openTestDB(t)

	in := memberInput("Explicit", "C-1", models.TypeRegular, models.FreqAnnual)
	in.MembershipNumber = "NSS-MEM-00050"
	m, err := CreateMember(gdb, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "NSS-MEM-00050", m.MembershipNumber)

	next := mustMember(t, gdb, "Next", "C-2", models.TypeRegular, models.FreqAnnual)
	assert.Equal(t, "NSS-MEM-00051", next.MembershipNumber)
}

func TestCreateMember_SeedsCounterFromExistingMembers(t *testing.T) {
	gdb := openTestDB(t)

	legacy := models.Member{
		Name: "Legacy", CitizenshipNumber: "L-1", MembershipNumber: "NSS-MEM-00007",
		MembershipType: models.TypeRegular, PaymentFrequency: models.FreqAnnual,
		JoinDate: day("2020-01-01"), IsActive: true,
	}
	require.NoError(t, gdb.Create(&legacy).Error)

	m := mustMember(t, gdb, "New", "C-1", models.TypeRegular, models.FreqAnnual)
	assert.Equal(t, "NSS-MEM-00008", m.MembershipNumber)
}

func TestCreateMember_DuplicateCitizenship(t *testing.T) {
	gdb := openTestDB(t)
	mustMember(t, gdb, "First", "DUP-1", models.TypeRegular, models.FreqAnnual)

	_, err := CreateMember(gdb, memberInput("Second", "DUP-1", models.TypeRegular, models.FreqAnnual), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.FieldMap(), "citizenship_number")

	var n int64
	gdb.Model(&models.Member{}).Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestCreateMember_ValidationErrors(t *testing.T) {
	gdb := openTestDB(t)

	in := memberInput("", "C-1", "GOLD", models.FreqAnnual)
	in.Phone = "12ab"
	_, err := CreateMember(gdb, in, nil)
	ve, ok := AsValidation(err)
	require.True(t, ok, "want validation error, got %v", err)

	fields := ve.FieldMap()
	assert.Equal(t, "this field is required", fields["name"])
	assert.Contains(t, fields, "phone")
	assert.Equal(t, "select a valid choice", fields["membership_type"])
}

func TestCreateMember_WithChildren(t *testing.T) {
	gdb := openTestDB(t)

	dob := day("2015-05-05")
	m, err := CreateMember(gdb, memberInput("Parent", "C-1", models.TypeRegular, models.FreqAnnual), []ChildInput{
		{Name: "Kid One", DateOfBirth: &dob, Gender: "FEMALE"},
		{Name: "Kid Two"},
	})
	require.NoError(t, err)

	got, err := GetMember(gdb, m.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "Kid One", got.Children[1].Name, "children without a birth date sort first")
}

func TestCreateMember_InactiveIsStored(t *testing.T) {
	gdb := openTestDB(t)

	in := memberInput("Dormant", "C-1", models.TypeRegular, models.FreqAnnual)
	in.IsActive = false
	m, err := CreateMember(gdb, in, nil)
	require.NoError(t, err)
	assert.False(t, reload(t, gdb, m.ID).IsActive)
}

func TestUpdateMember_KeepsMembershipNumber(t *testing.T) {
	gdb := openTestDB(t)
	m := mustMember(t, gdb, "Before", "C-1", models.TypeRegular, models.FreqAnnual)

	in := memberInput("After", "C-1", models.TypeRegular, models.FreqAnnual)
	in.MembershipNumber = "NSS-MEM-99999"
	got, err := UpdateMember(gdb, m.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, m.MembershipNumber, got.MembershipNumber)
}

func TestUpdateMember_TermsChangeRederivesValidity(t *testing.T) {
	gdb := openTestDB(t)
	m := mustMember(t, gdb, "Switcher", "C-1", models.TypeRegular, models.FreqAnnual)
	fee := mustFee(t, gdb, models.TypeRegular, models.FreqAnnual, 1200)
	mustPay(t, gdb, m, fee, "2024-01-01")
	require.NotNil(t, reload(t, gdb, m.ID).MembershipValidUntil)

	_, err := UpdateMember(gdb, m.ID, memberInput("Switcher", "C-1", models.TypeLifetime, models.FreqOneTime))
	require.NoError(t, err)

	got := reload(t, gdb, m.ID)
	assert.Nil(t, got.MembershipValidUntil)
	assertDay(t, "2024-01-01", got.LastPaymentDate)
}

func TestUpdateMember_NotFound(t *testing.T) {
	gdb := openTestDB(t)
	_, err := UpdateMember(gdb, 404, memberInput("Ghost", "C-1", models.TypeRegular, models.FreqAnnual))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteMember_RemovesChildrenAndPayments(t *testing.T) {
	gdb := openTestDB(t)
	m, err := CreateMember(gdb, memberInput("Gone", "C-1", models.TypeRegular, models.FreqAnnual), []ChildInput{{Name: "Kid"}})
	require.NoError(t, err)
	fee := mustFee(t, gdb, models.TypeRegular, models.FreqAnnual, 1200)
	mustPay(t, gdb, m, fee, "2024-01-01")

	require.NoError(t, DeleteMember(gdb, m.ID))

	var members, children, payments int64
	gdb.Model(&models.Member{}).Count(&members)
	gdb.Model(&models.Child{}).Count(&children)
	gdb.Model(&models.Payment{}).Count(&payments)
	assert.Zero(t, members)
	assert.Zero(t, children)
	assert.Zero(t, payments)

	assert.True(t, errors.Is(DeleteMember(gdb, m.ID), ErrNotFound))
}

func TestListMembers_Filters(t *testing.T) {
	gdb := openTestDB(t)
	mustMember(t, gdb, "Sita Sharma", "C-1", models.TypeRegular, models.FreqAnnual)
	mustMember(t, gdb, "Gita Karki", "C-2", models.TypeLifetime, models.FreqOneTime)
	in := memberInput("Hari Sharma", "C-3", models.TypeRegular, models.FreqMonthly)
	in.IsActive = false
	_, err := CreateMember(gdb, in, nil)
	require.NoError(t, err)

	names := func(f MemberFilter) []string {
		ms, err := ListMembers(gdb, f)
		require.NoError(t, err)
		var out []string
		for _, m := range ms {
			out = append(out, m.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Sita Sharma", "Hari Sharma"}, names(MemberFilter{Q: "sharma"}))
	assert.Equal(t, []string{"Gita Karki"}, names(MemberFilter{Type: models.TypeLifetime}))
	assert.Equal(t, []string{"Hari Sharma"}, names(MemberFilter{Status: "inactive"}))
	assert.Len(t, names(MemberFilter{Q: "NSS-MEM-00002"}), 1)
}

func TestChildren_CRUD(t *testing.T) {
	gdb := openTestDB(t)
	m := mustMember(t, gdb, "Parent", "C-1", models.TypeRegular, models.FreqAnnual)

	c, err := AddChild(gdb, m.ID, ChildInput{Name: "Asha", Gender: "FEMALE"})
	require.NoError(t, err)

	_, err = UpdateChild(gdb, m.ID, ChildInput{ID: c.ID, Name: "Asha Rai", Gender: "FEMALE"})
	require.NoError(t, err)
	got, err := GetMember(gdb, m.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "Asha Rai", got.Children[0].Name)

	other := mustMember(t, gdb, "Other", "C-2", models.TypeRegular, models.FreqAnnual)
	assert.True(t, errors.Is(DeleteChild(gdb, other.ID, c.ID), ErrNotFound), "child belongs to another member")
	require.NoError(t, DeleteChild(gdb, m.ID, c.ID))

	_, err = AddChild(gdb, m.ID, ChildInput{Name: "Bad", Gender: "X"})
	_, ok := AsValidation(err)
	assert.True(t, ok)
}
