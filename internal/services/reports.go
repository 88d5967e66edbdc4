package services

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
)

// Reports are read-only and computed per request from the cached
// membership_valid_until, compared against calendar days relative to today.

const (
	BucketExpired   = "expired"
	BucketThisMonth = "this_month"
	BucketNextMonth = "next_month"
	BucketLater     = "later"

	birthdayWindow = 7
)

type TypeCount struct {
	Type    string
	Label   string
	Count   int64
	Percent float64
}

type Birthday struct {
	Member    models.Member
	Date      time.Time
	DaysUntil int
}

type ExpiryRow struct {
	Member      models.Member
	ValidUntil  time.Time
	Bucket      string
	DaysLeft    int // > 0 unless expired
	DaysOverdue int // >= 0 when expired
	ElapsedPct  float64
}

type Dashboard struct {
	ActiveMembers  int64
	ByType         []TypeCount
	TotalRevenue   float64
	Birthdays      []Birthday
	RecentPayments []models.Payment
	ExpiringSoon   []ExpiryRow
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(int64(float64(n)/float64(total)*1000+0.5)) / 10
}

func countActiveByType(gdb *gorm.DB) ([]TypeCount, int64, error) {
	var rows []struct {
		MembershipType string
		N              int64
	}
	err := gdb.Model(&models.Member{}).Select("membership_type, COUNT(*) AS n").
		Where("is_active = ?", true).Group("membership_type").Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	byType := map[string]int64{}
	var total int64
	for _, r := range rows {
		byType[r.MembershipType] = r.N
		total += r.N
	}
	out := make([]TypeCount, 0, len(models.MembershipTypes))
	for _, c := range models.MembershipTypes {
		out = append(out, TypeCount{Type: c.Value, Label: c.Label, Count: byType[c.Value], Percent: percent(byType[c.Value], total)})
	}
	return out, total, nil
}

// NextBirthday is the next occurrence of dob on or after today. Feb 29
// birthdays fall on Feb 28 in common years.
func NextBirthday(dob, today time.Time) time.Time {
	at := func(year int) time.Time {
		day := dob.Day()
		if dob.Month() == time.February && day == 29 && membership.DaysIn(year, time.February) == 28 {
			day = 28
		}
		return time.Date(year, dob.Month(), day, 0, 0, 0, 0, time.UTC)
	}
	today = membership.Day(today)
	b := at(today.Year())
	if b.Before(today) {
		b = at(today.Year() + 1)
	}
	return b
}

// UpcomingBirthdays lists active members whose birthday falls within the next week, soonest first.
func UpcomingBirthdays(gdb *gorm.DB, today time.Time) ([]Birthday, error) {
	var members []models.Member
	if err := gdb.Where("is_active = ? AND date_of_birth IS NOT NULL", true).Find(&members).Error; err != nil {
		return nil, err
	}
	var out []Birthday
	for _, m := range members {
		next := NextBirthday(*m.DateOfBirth, today)
		if d := membership.DaysBetween(today, next); d >= 0 && d <= birthdayWindow {
			out = append(out, Birthday{Member: m, Date: next, DaysUntil: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntil < out[j].DaysUntil })
	return out, nil
}

func BuildDashboard(gdb *gorm.DB, today time.Time) (Dashboard, error) {
	var d Dashboard
	var err error
	if d.ByType, d.ActiveMembers, err = countActiveByType(gdb); err != nil {
		return d, errors.Wrap(err, "count members")
	}
	if err = gdb.Model(&models.Payment{}).Select("COALESCE(SUM(amount), 0)").Scan(&d.TotalRevenue).Error; err != nil {
		return d, errors.Wrap(err, "total revenue")
	}
	d.TotalRevenue = roundCents(d.TotalRevenue)
	if d.Birthdays, err = UpcomingBirthdays(gdb, today); err != nil {
		return d, errors.Wrap(err, "birthdays")
	}
	if err = gdb.Preload("Member").Preload("MembershipFee").
		Order("payment_date desc, id desc").Limit(5).Find(&d.RecentPayments).Error; err != nil {
		return d, errors.Wrap(err, "recent payments")
	}
	rows, err := expiryRows(gdb, today)
	if err != nil {
		return d, errors.Wrap(err, "expiring members")
	}
	for _, r := range rows {
		if r.Member.MembershipType == models.TypeRegular && r.DaysLeft > 0 && r.DaysLeft <= membership.ExpiringWindow {
			d.ExpiringSoon = append(d.ExpiringSoon, r)
			if len(d.ExpiringSoon) == 5 {
				break
			}
		}
	}
	return d, nil
}

// ---- revenue ----

type Breakdown struct {
	Key   string
	Label string
	Total float64
	Count int64
}

type DailyTotal struct {
	Day   time.Time
	Total float64
	Count int
}

type RevenueReport struct {
	From, To time.Time
	Total    float64
	Count    int64
	ByMode   []Breakdown
	ByType   []Breakdown
	Daily    []DailyTotal
	Payments []models.Payment
}

// DefaultRevenueWindow is the first of today's month through today.
func DefaultRevenueWindow(today time.Time) (time.Time, time.Time) {
	first, _ := membership.MonthBounds(today)
	return first, membership.Day(today)
}

func BuildRevenueReport(gdb *gorm.DB, from, to time.Time) (RevenueReport, error) {
	rep := RevenueReport{From: membership.Day(from), To: membership.Day(to)}
	inRange := func() *gorm.DB {
		return gdb.Model(&models.Payment{}).
			Where("payments.payment_date >= ? AND payments.payment_date <= ?", rep.From, rep.To)
	}

	var err error
	if rep.ByMode, err = breakdown(inRange(), "payments.payment_mode", models.PaymentModes); err != nil {
		return rep, errors.Wrap(err, "revenue by mode")
	}
	byType := inRange().Joins("JOIN membership_fees ON membership_fees.id = payments.membership_fee_id")
	if rep.ByType, err = breakdown(byType, "membership_fees.membership_type", models.MembershipTypes); err != nil {
		return rep, errors.Wrap(err, "revenue by type")
	}

	if err = inRange().Preload("Member").Preload("MembershipFee").
		Order("payments.payment_date desc, payments.id desc").Find(&rep.Payments).Error; err != nil {
		return rep, errors.Wrap(err, "list payments")
	}
	rep.Count = int64(len(rep.Payments))

	daily := map[time.Time]*DailyTotal{}
	for _, p := range rep.Payments {
		rep.Total += p.Amount
		day := membership.Day(p.PaymentDate)
		dt, ok := daily[day]
		if !ok {
			dt = &DailyTotal{Day: day}
			daily[day] = dt
		}
		dt.Total += p.Amount
		dt.Count++
	}
	rep.Total = roundCents(rep.Total)
	for _, dt := range daily {
		dt.Total = roundCents(dt.Total)
		rep.Daily = append(rep.Daily, *dt)
	}
	sort.Slice(rep.Daily, func(i, j int) bool { return rep.Daily[i].Day.Before(rep.Daily[j].Day) })
	return rep, nil
}

// breakdown groups q by column, largest total first.
func breakdown(q *gorm.DB, column string, labels []models.Choice) ([]Breakdown, error) {
	var rows []struct {
		Grp   string
		Total float64
		N     int64
	}
	err := q.Select(column + " AS grp, SUM(payments.amount) AS total, COUNT(*) AS n").
		Group(column).Order("total desc").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Breakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, Breakdown{Key: r.Grp, Label: models.Label(labels, r.Grp), Total: roundCents(r.Total), Count: r.N})
	}
	return out, nil
}

// ---- expiry & renewal ----

// Bucket places a valid-until date relative to today's calendar month.
func Bucket(until, today time.Time) string {
	until, today = membership.Day(until), membership.Day(today)
	_, monthEnd := membership.MonthBounds(today)
	_, nextEnd := membership.MonthBounds(monthEnd.AddDate(0, 0, 1))
	switch {
	case !until.After(today):
		return BucketExpired
	case !until.After(monthEnd):
		return BucketThisMonth
	case !until.After(nextEnd):
		return BucketNextMonth
	}
	return BucketLater
}

func newExpiryRow(m models.Member, today time.Time) ExpiryRow {
	until := membership.Day(*m.MembershipValidUntil)
	r := ExpiryRow{Member: m, ValidUntil: until, Bucket: Bucket(until, today)}
	days := membership.DaysBetween(today, until)
	if days <= 0 {
		r.DaysOverdue = -days
		r.ElapsedPct = 100
		return r
	}
	r.DaysLeft = days
	months := 12
	if m.PaymentFrequency == models.FreqMonthly {
		months = 1
	}
	period := membership.DaysBetween(membership.AddMonths(until, -months), until)
	elapsed := float64(period-days) / float64(period) * 100
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > 100 {
		elapsed = 100
	}
	r.ElapsedPct = float64(int(elapsed*10+0.5)) / 10
	return r
}

// expiryRows loads active members that carry a validity date, soonest expiry first.
func expiryRows(gdb *gorm.DB, today time.Time) ([]ExpiryRow, error) {
	var members []models.Member
	err := gdb.Where("is_active = ? AND membership_valid_until IS NOT NULL", true).
		Order("membership_valid_until asc, id asc").Find(&members).Error
	if err != nil {
		return nil, err
	}
	out := make([]ExpiryRow, 0, len(members))
	for _, m := range members {
		if membership.NeverExpires(m.MembershipType, m.PaymentFrequency) {
			continue
		}
		out = append(out, newExpiryRow(m, today))
	}
	return out, nil
}

type ExpiryReport struct {
	Status string
	Rows   []ExpiryRow
	Counts map[string]int
}

// BuildExpiryReport buckets every expiring membership; status narrows Rows
// to one bucket while Counts always covers all of them.
func BuildExpiryReport(gdb *gorm.DB, today time.Time, status string) (ExpiryReport, error) {
	rep := ExpiryReport{Status: status, Counts: map[string]int{
		BucketExpired: 0, BucketThisMonth: 0, BucketNextMonth: 0, BucketLater: 0,
	}}
	rows, err := expiryRows(gdb, today)
	if err != nil {
		return rep, errors.Wrap(err, "expiry report")
	}
	for _, r := range rows {
		rep.Counts[r.Bucket]++
		if status == "" || status == r.Bucket {
			rep.Rows = append(rep.Rows, r)
		}
	}
	return rep, nil
}

type RenewalReport struct {
	Expired  []ExpiryRow
	Expiring []ExpiryRow
}

func (r RenewalReport) Total() int { return len(r.Expired) + len(r.Expiring) }

// BuildRenewalReport lists regular members that are expired or within the expiring window.
func BuildRenewalReport(gdb *gorm.DB, today time.Time) (RenewalReport, error) {
	var rep RenewalReport
	rows, err := expiryRows(gdb, today)
	if err != nil {
		return rep, errors.Wrap(err, "renewal report")
	}
	for _, r := range rows {
		if r.Member.MembershipType != models.TypeRegular {
			continue
		}
		switch {
		case r.Bucket == BucketExpired:
			rep.Expired = append(rep.Expired, r)
		case r.DaysLeft <= membership.ExpiringWindow:
			rep.Expiring = append(rep.Expiring, r)
		}
	}
	return rep, nil
}

// ---- new members ----

type NewMemberRow struct {
	Member           models.Member
	DaysSinceJoining int
}

type NewMembersReport struct {
	From, To  time.Time
	Type      string
	Rows      []NewMemberRow
	ThisMonth int64
	ByType    []TypeCount
}

// DefaultNewMembersWindow is the 30 days ending today.
func DefaultNewMembersWindow(today time.Time) (time.Time, time.Time) {
	to := membership.Day(today)
	return to.AddDate(0, 0, -30), to
}

func BuildNewMembersReport(gdb *gorm.DB, from, to, today time.Time, typ string) (NewMembersReport, error) {
	rep := NewMembersReport{From: membership.Day(from), To: membership.Day(to), Type: typ}
	q := gdb.Where("join_date >= ? AND join_date <= ?", rep.From, rep.To)
	if typ != "" {
		q = q.Where("membership_type = ?", typ)
	}
	var members []models.Member
	if err := q.Order("join_date desc, id desc").Find(&members).Error; err != nil {
		return rep, errors.Wrap(err, "new members")
	}
	byType := map[string]int64{}
	for _, m := range members {
		rep.Rows = append(rep.Rows, NewMemberRow{Member: m, DaysSinceJoining: membership.DaysBetween(m.JoinDate, today)})
		byType[m.MembershipType]++
	}
	total := int64(len(members))
	for _, c := range models.MembershipTypes {
		rep.ByType = append(rep.ByType, TypeCount{Type: c.Value, Label: c.Label, Count: byType[c.Value], Percent: percent(byType[c.Value], total)})
	}
	first, _ := membership.MonthBounds(today)
	if err := gdb.Model(&models.Member{}).Where("join_date >= ?", first).Count(&rep.ThisMonth).Error; err != nil {
		return rep, errors.Wrap(err, "new members this month")
	}
	return rep, nil
}
