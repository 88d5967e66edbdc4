// Package membership holds the validity rules for a member's dues: when a
// payment makes membership valid until, when the next payment is due, and
// how a cached valid-until date reads as a status on a given day.
//
// All dates are calendar days. Callers pass values through Day so that
// time-of-day and zone never leak into day arithmetic.
package membership

import (
	"fmt"
	"time"

	"github.com/nssnepal/membership/internal/models"
)

// Status codes
const (
	Active   = "ACTIVE"
	Expiring = "EXPIRING"
	Expired  = "EXPIRED"
	Pending  = "PENDING"
)

// ExpiringWindow is the number of days before expiry a membership reads as EXPIRING.
const ExpiringWindow = 30

type Input struct {
	Type            string
	Frequency       string
	LastPaymentDate *time.Time
	ValidUntil      *time.Time
}

type Result struct {
	Code          string
	Display       string
	Message       string
	IsExpired     bool
	DaysRemaining *int // nil when the membership has no expiry
	DaysOverdue   *int // set only for EXPIRED
}

// FromMember builds the calculator input from a member's cached fields.
func FromMember(m models.Member) Input {
	return Input{
		Type:            m.MembershipType,
		Frequency:       m.PaymentFrequency,
		LastPaymentDate: m.LastPaymentDate,
		ValidUntil:      m.MembershipValidUntil,
	}
}

// NeverExpires reports whether a membership of this type/frequency has no validity window.
func NeverExpires(typ, freq string) bool {
	switch typ {
	case models.TypeLifetime, models.TypeHonorary:
		return true
	}
	switch freq {
	case models.FreqOneTime, models.FreqHonorary:
		return true
	}
	return false
}

func Status(in Input, today time.Time) Result {
	if NeverExpires(in.Type, in.Frequency) {
		if in.LastPaymentDate != nil {
			return Result{
				Code:    Active,
				Display: "Active (" + models.Label(models.MembershipTypes, in.Type) + ")",
				Message: "Membership never expires",
			}
		}
		return pending()
	}

	if in.ValidUntil == nil {
		return pending()
	}

	until := Day(*in.ValidUntil)
	days := DaysBetween(Day(today), until)
	switch {
	case days > ExpiringWindow:
		return Result{
			Code:          Active,
			Display:       "Active",
			Message:       "Valid until " + until.Format("January 02, 2006"),
			DaysRemaining: &days,
		}
	case days > 0:
		return Result{
			Code:          Expiring,
			Display:       "Expiring Soon",
			Message:       fmt.Sprintf("Expires in %d days", days),
			DaysRemaining: &days,
		}
	default:
		overdue := -days
		return Result{
			Code:          Expired,
			Display:       "Expired",
			Message:       fmt.Sprintf("Expired %d days ago", overdue),
			IsExpired:     true,
			DaysRemaining: &days,
			DaysOverdue:   &overdue,
		}
	}
}

func pending() Result {
	return Result{
		Code:    Pending,
		Display: "Pending Payment",
		Message: "Awaiting initial payment",
	}
}

// NextDueDate returns when the next payment falls due, or nil when nothing recurs.
func NextDueDate(typ, freq string, joinDate time.Time, lastPayment *time.Time) *time.Time {
	if NeverExpires(typ, freq) {
		return nil
	}
	if lastPayment == nil {
		d := Day(joinDate)
		return &d
	}
	return advance(freq, Day(*lastPayment))
}

// ValidUntilAfterPayment is the membership_valid_until a payment on paymentDate buys.
func ValidUntilAfterPayment(typ, freq string, paymentDate time.Time) *time.Time {
	if NeverExpires(typ, freq) {
		return nil
	}
	return advance(freq, Day(paymentDate))
}

func advance(freq string, from time.Time) *time.Time {
	var d time.Time
	if freq == models.FreqMonthly {
		d = AddMonths(from, 1)
	} else {
		d = AddMonths(from, 12)
	}
	return &d
}

// AddMonths adds n calendar months, clamping to the last day of the target
// month: Jan 31 + 1 = Feb 28/29, Feb 29 + 12 = Feb 28.
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day truncates t to its calendar date, expressed as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	return Day(time.Now().In(loc))
}

// DaysBetween counts calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// MonthBounds returns the first and last day of the month containing d.
func MonthBounds(d time.Time) (time.Time, time.Time) {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
