// Package bsdate converts Gregorian dates to and from Bikram Sambat (BS),
// the calendar printed next to AD dates on receipts and member records.
//
// Conversion is table driven and covers BS years 2000 through 2089.
package bsdate

import (
	"fmt"
	"time"
)

const (
	MinYear = 2000
	MaxYear = 2089
)

// 2000-01-01 BS falls on 1943-04-14 AD.
var refAD = time.Date(1943, time.April, 14, 0, 0, 0, 0, time.UTC)

var MonthNames = [12]string{
	"Baisakh", "Jestha", "Ashadh", "Shrawan", "Bhadra", "Ashwin",
	"Kartik", "Mangsir", "Poush", "Magh", "Falgun", "Chaitra",
}

type Date struct {
	Year  int
	Month int // 1..12
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Medium renders "15 Ashadh 2081".
func (d Date) Medium() string {
	return fmt.Sprintf("%d %s %d", d.Day, MonthNames[d.Month-1], d.Year)
}

// Long renders "15 Ashadh, 2081".
func (d Date) Long() string {
	return fmt.Sprintf("%d %s, %d", d.Day, MonthNames[d.Month-1], d.Year)
}

// FromAD converts a Gregorian calendar date. ok is false outside the table.
func FromAD(t time.Time) (Date, bool) {
	y, m, d := t.Date()
	delta := int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(refAD).Hours() / 24)
	if delta < 0 {
		return Date{}, false
	}

	bs := Date{Year: MinYear, Month: 1, Day: 1}
	for delta > 0 {
		months, ok := monthDays[bs.Year]
		if !ok {
			return Date{}, false
		}
		left := months[bs.Month-1] - bs.Day + 1
		if delta < left {
			bs.Day += delta
			break
		}
		delta -= left
		bs.Day = 1
		bs.Month++
		if bs.Month > 12 {
			bs.Month = 1
			bs.Year++
		}
	}
	if _, ok := monthDays[bs.Year]; !ok {
		return Date{}, false
	}
	return bs, true
}

// ToAD converts a BS date back to a Gregorian date at UTC midnight.
func ToAD(d Date) (time.Time, bool) {
	months, ok := monthDays[d.Year]
	if !ok || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > months[d.Month-1] {
		return time.Time{}, false
	}
	days := 0
	for y := MinYear; y < d.Year; y++ {
		for _, n := range monthDays[y] {
			days += n
		}
	}
	for m := 0; m < d.Month-1; m++ {
		days += months[m]
	}
	days += d.Day - 1
	return refAD.AddDate(0, 0, days), true
}

// Format renders t in BS using style "short" (2081-03-15), "medium" or "long".
// Dates outside the table render as "".
func Format(t time.Time, style string) string {
	if t.IsZero() {
		return ""
	}
	bs, ok := FromAD(t)
	if !ok {
		return ""
	}
	switch style {
	case "medium":
		return bs.Medium()
	case "long":
		return bs.Long()
	default:
		return bs.String()
	}
}

// Dual renders "2024-06-28 (2081-03-14 BS)"; the BS half is dropped when out of range.
func Dual(t time.Time, style string) string {
	if t.IsZero() {
		return ""
	}
	var ad, bs string
	if style == "short" || style == "" {
		ad = t.Format("2006-01-02")
		bs = Format(t, "short")
	} else {
		ad = t.Format("Jan 02, 2006")
		bs = Format(t, "medium")
	}
	if bs == "" {
		return ad
	}
	return ad + " (" + bs + " BS)"
}
