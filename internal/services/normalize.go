package services

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var (
	reLetters = regexp.MustCompile(`[A-Za-z]`)
	// Only allow digits, spaces, +, -, (, )
	reAllowed = regexp.MustCompile(`^[0-9+\-\s\(\)]+$`)
)

// NormPhone normalizes phone numbers to the +977… form used in the app.
// Rules: strip spaces/dashes/parens; 00.. -> +..; 977.. -> +977..; 9XXXXXXXXX (local mobile) -> +9779XXXXXXXXX.
// Landlines and anything else keep their digits untouched. Returns "" for unusable input.
func NormPhone(p string) string {
	s := strings.TrimSpace(p)

	if s == "" {
		return ""
	}
	if reLetters.MatchString(s) {
		return ""
	}
	if !reAllowed.MatchString(s) {
		return ""
	}

	// strip separators
	repl := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\n", "", "\r", "")
	s = repl.Replace(s)

	// 00.. -> +..
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	// 977.. (no plus) -> +977..
	if strings.HasPrefix(s, "977") {
		s = "+" + s
	}
	// local mobile: 10 digits starting with 9
	if len(s) == 10 && strings.HasPrefix(s, "9") {
		s = "+977" + s
	}
	return s
}

func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", true // treat empty as ok/optional
	}
	_, err := mail.ParseAddress(e)
	return e, err == nil
}

// NormGender maps free-form input onto MALE/FEMALE/OTHER ("" when unknown).
func NormGender(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return "MALE"
	case "F", "FEMALE":
		return "FEMALE"
	case "O", "OTHER":
		return "OTHER"
	}
	return ""
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01-02-06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts the date spellings seen in forms and spreadsheets.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseOptionalDate returns nil for blank input and ok=false for garbage.
func ParseOptionalDate(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, ok := ParseDate(s)
	if !ok {
		return nil, false
	}
	return &t, true
}
