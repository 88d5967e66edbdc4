package web

import (
	"html/template"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nssnepal/membership/internal/bsdate"
	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
)

var printer = message.NewPrinter(language.English)

// npr renders an amount as "NPR 1,234,567.00".
func npr(v float64) string {
	return printer.Sprintf("NPR %.2f", v)
}

// asTime unwraps the date shapes templates pass around; ok is false for nil or zero.
func asTime(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, !d.IsZero()
	}
	return time.Time{}, false
}

func dateLayout(layout string) func(any) string {
	return func(v any) string {
		t, ok := asTime(v)
		if !ok {
			return ""
		}
		return t.Format(layout)
	}
}

// datetime shows a timestamp in the association's timezone.
func datetime(v any) string {
	t, ok := asTime(v)
	if !ok {
		return ""
	}
	return t.In(config.Location()).Format("Mon, 02 Jan 2006 15:04")
}

func bsStyle(style string) func(any) string {
	return func(v any) string {
		t, ok := asTime(v)
		if !ok {
			return ""
		}
		return bsdate.Format(t, style)
	}
}

func dualStyle(style string) func(any) string {
	return func(v any) string {
		t, ok := asTime(v)
		if !ok {
			return ""
		}
		return bsdate.Dual(t, style)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var choiceSets = map[string][]models.Choice{
	"type":   models.MembershipTypes,
	"freq":   models.PaymentFrequencies,
	"mode":   models.PaymentModes,
	"gender": models.Genders,
}

// label shows the display text of an enum value, e.g. {{label "mode" .PaymentMode}}.
func label(set, value string) string {
	return models.Label(choiceSets[set], value)
}

// statusClass maps a status code to its bootstrap badge colour.
func statusClass(code string) string {
	switch code {
	case membership.Active:
		return "bg-success"
	case membership.Expiring:
		return "bg-warning"
	case membership.Expired:
		return "bg-danger"
	}
	return "bg-secondary"
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// seq yields n items for ranging blank form rows.
func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"year":        func() string { return time.Now().In(config.Location()).Format("2006") },
		"date":        dateLayout("2006-01-02"),
		"longdate":    dateLayout("Jan 02, 2006"),
		"datetime":    datetime,
		"bs":          bsStyle("short"),
		"bsmedium":    bsStyle("medium"),
		"bslong":      bsStyle("long"),
		"dualdate":    dualStyle("short"),
		"duallong":    dualStyle("medium"),
		"npr":         npr,
		"money":       func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"pct":         func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
		"abs":         abs,
		"deref":       deref,
		"label":       label,
		"statusClass": statusClass,
		"add":         func(a, b int) int { return a + b },
		"seq":         seq,
	}
}
