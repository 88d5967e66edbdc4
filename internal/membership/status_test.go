package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nssnepal/membership/internal/models"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr(t time.Time) *time.Time { return &t }

func TestStatus_Thresholds(t *testing.T) {
	today := date("2025-06-15")
	paid := ptr(date("2025-01-01"))

	cases := []struct {
		name       string
		validUntil *time.Time
		wantCode   string
		wantDays   int
	}{
		{"31 days out is active", ptr(today.AddDate(0, 0, 31)), Active, 31},
		{"30 days out is expiring", ptr(today.AddDate(0, 0, 30)), Expiring, 30},
		{"1 day out is expiring", ptr(today.AddDate(0, 0, 1)), Expiring, 1},
		{"expires today", ptr(today), Expired, 0},
		{"expired yesterday", ptr(today.AddDate(0, 0, -1)), Expired, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Status(Input{
				Type:            models.TypeRegular,
				Frequency:       models.FreqAnnual,
				LastPaymentDate: paid,
				ValidUntil:      tc.validUntil,
			}, today)
			assert.Equal(t, tc.wantCode, res.Code)
			require.NotNil(t, res.DaysRemaining)
			assert.Equal(t, tc.wantDays, *res.DaysRemaining)
		})
	}
}

func TestStatus_ExpiredReportsOverdue(t *testing.T) {
	today := date("2025-06-15")
	res := Status(Input{
		Type:       models.TypeRegular,
		Frequency:  models.FreqMonthly,
		ValidUntil: ptr(today.AddDate(0, 0, -1)),
	}, today)

	assert.True(t, res.IsExpired)
	require.NotNil(t, res.DaysOverdue)
	assert.Equal(t, 1, *res.DaysOverdue)
	assert.Equal(t, "Expired 1 days ago", res.Message)
}

func TestStatus_PendingWithoutPayment(t *testing.T) {
	res := Status(Input{Type: models.TypeRegular, Frequency: models.FreqAnnual}, date("2025-06-15"))
	assert.Equal(t, Pending, res.Code)
	assert.Nil(t, res.DaysRemaining)
	assert.Equal(t, "Awaiting initial payment", res.Message)
}

func TestStatus_LifetimeAndHonoraryNeverExpire(t *testing.T) {
	today := date("2025-06-15")
	for _, typ := range []string{models.TypeLifetime, models.TypeHonorary} {
		// a stale valid-until in the past must not make these expire
		paid := Status(Input{
			Type:            typ,
			Frequency:       models.FreqOneTime,
			LastPaymentDate: ptr(date("2020-01-01")),
			ValidUntil:      ptr(date("2020-02-01")),
		}, today)
		assert.Equal(t, Active, paid.Code, typ)
		assert.False(t, paid.IsExpired)
		assert.Nil(t, paid.DaysRemaining)

		unpaid := Status(Input{Type: typ, Frequency: models.FreqOneTime}, today)
		assert.Equal(t, Pending, unpaid.Code, typ)
	}
}

// A REGULAR member must still expire; any-type-never-expires would be a bug.
func TestStatus_RegularIsNotTreatedAsLifetime(t *testing.T) {
	res := Status(Input{
		Type:            models.TypeRegular,
		Frequency:       models.FreqAnnual,
		LastPaymentDate: ptr(date("2020-01-01")),
		ValidUntil:      ptr(date("2021-01-01")),
	}, date("2025-06-15"))
	assert.Equal(t, Expired, res.Code)
}

func TestAddMonths_ClampsMonthEnd(t *testing.T) {
	cases := map[string]struct {
		from   string
		months int
		want   string
	}{
		"jan 31 leap year":  {"2024-01-31", 1, "2024-02-29"},
		"jan 31 plain year": {"2025-01-31", 1, "2025-02-28"},
		"mar 31 to apr":     {"2025-03-31", 1, "2025-04-30"},
		"dec rolls year":    {"2024-12-31", 1, "2025-01-31"},
		"feb 29 plus year":  {"2024-02-29", 12, "2025-02-28"},
		"plain":             {"2024-01-01", 1, "2024-02-01"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, date(tc.want), AddMonths(date(tc.from), tc.months))
		})
	}
}

func TestValidUntilAfterPayment(t *testing.T) {
	got := ValidUntilAfterPayment(models.TypeRegular, models.FreqMonthly, date("2024-01-31"))
	require.NotNil(t, got)
	assert.Equal(t, date("2024-02-29"), *got)

	got = ValidUntilAfterPayment(models.TypeRegular, models.FreqAnnual, date("2024-03-10"))
	require.NotNil(t, got)
	assert.Equal(t, date("2025-03-10"), *got)

	assert.Nil(t, ValidUntilAfterPayment(models.TypeLifetime, models.FreqAnnual, date("2024-03-10")))
	assert.Nil(t, ValidUntilAfterPayment(models.TypeHonorary, models.FreqHonorary, date("2024-03-10")))
}

func TestNextDueDate(t *testing.T) {
	join := date("2024-01-01")

	due := NextDueDate(models.TypeRegular, models.FreqMonthly, join, nil)
	require.NotNil(t, due)
	assert.Equal(t, join, *due, "never paid: due on join date")

	due = NextDueDate(models.TypeRegular, models.FreqMonthly, join, ptr(date("2024-02-01")))
	require.NotNil(t, due)
	assert.Equal(t, date("2024-03-01"), *due)

	assert.Nil(t, NextDueDate(models.TypeLifetime, models.FreqOneTime, join, nil))
}

func TestBadgeFor(t *testing.T) {
	today := date("2025-06-15")
	in := Input{Type: models.TypeRegular, Frequency: models.FreqAnnual, ValidUntil: ptr(today.AddDate(0, 0, 5))}
	b := BadgeFor(in, Status(in, today), true)
	assert.Equal(t, "bg-danger", b.Class)
	assert.Equal(t, "Expiring Soon (5 days left)", b.Text)

	b = BadgeFor(in, Status(in, today), false)
	assert.Equal(t, "No Payment Made", b.Text)
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(date("2024-02-10"))
	assert.Equal(t, date("2024-02-01"), first)
	assert.Equal(t, date("2024-02-29"), last)
}
