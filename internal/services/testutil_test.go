package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/db"
	"github.com/nssnepal/membership/internal/models"
)

// openTestDB returns a migrated SQLite database in a temp directory.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"), true)
	require.NoError(t, err)
	return gdb
}

// pinNow fixes the service clock for the rest of the test.
func pinNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func memberInput(name, citizenship, typ, freq string) MemberInput {
	return MemberInput{
		Name:              name,
		Phone:             "+9779812345678",
		Email:             "member@example.com",
		Address:           "Kathmandu",
		FatherName:        "Father " + name,
		CitizenshipNumber: citizenship,
		MembershipType:    typ,
		PaymentFrequency:  freq,
		JoinDate:          day("2024-01-01"),
		IsActive:          true,
	}
}

func mustMember(t *testing.T, gdb *gorm.DB, name, citizenship, typ, freq string) models.Member {
	t.Helper()
	m, err := CreateMember(gdb, memberInput(name, citizenship, typ, freq), nil)
	require.NoError(t, err)
	return m
}

func mustFee(t *testing.T, gdb *gorm.DB, typ, freq string, amount float64) models.MembershipFee {
	t.Helper()
	f, err := CreateFee(gdb, FeeInput{MembershipType: typ, PaymentFrequency: freq, Amount: amount, IsActive: true})
	require.NoError(t, err)
	return f
}

func mustPay(t *testing.T, gdb *gorm.DB, m models.Member, f models.MembershipFee, on string) models.Payment {
	t.Helper()
	p, err := RecordPayment(gdb, PaymentInput{
		MemberID:        m.ID,
		MembershipFeeID: f.ID,
		PaymentDate:     day(on),
		PaymentMode:     models.ModeCash,
	})
	require.NoError(t, err)
	return p
}

func reload(t *testing.T, gdb *gorm.DB, id uint) models.Member {
	t.Helper()
	var m models.Member
	require.NoError(t, gdb.First(&m, id).Error)
	return m
}

// assertDay compares a stored date by calendar day; want "" expects nil.
func assertDay(t *testing.T, want string, got *time.Time) {
	t.Helper()
	if want == "" {
		assert.Nil(t, got)
		return
	}
	if assert.NotNil(t, got) {
		assert.Equal(t, want, got.UTC().Format("2006-01-02"))
	}
}
