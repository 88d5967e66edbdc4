package models

// Membership types
const (
	TypeRegular  = "REGULAR"
	TypeLifetime = "LIFETIME"
	TypeHonorary = "HONORARY"
)

// Payment frequencies
const (
	FreqAnnual   = "ANNUAL"
	FreqMonthly  = "MONTHLY"
	FreqOneTime  = "ONE-TIME"
	FreqHonorary = "HONORARY"
)

// Payment modes
const (
	ModeCash         = "CASH"
	ModeBankTransfer = "BANK_TRANSFER"
	ModeOnline       = "ONLINE"
	ModeCheque       = "CHEQUE"
)

type Choice struct {
	Value string
	Label string
}

var (
	MembershipTypes = []Choice{
		{TypeRegular, "Regular"},
		{TypeLifetime, "Lifetime Membership"},
		{TypeHonorary, "Honorary"},
	}
	PaymentFrequencies = []Choice{
		{FreqAnnual, "Annual"},
		{FreqMonthly, "Monthly"},
		{FreqOneTime, "One-time"},
		{FreqHonorary, "Honorary"},
	}
	PaymentModes = []Choice{
		{ModeCash, "Cash"},
		{ModeBankTransfer, "Bank Transfer"},
		{ModeOnline, "Online Payment"},
		{ModeCheque, "Cheque"},
	}
	Genders = []Choice{
		{"MALE", "Male"},
		{"FEMALE", "Female"},
		{"OTHER", "Other"},
	}
)

// Label returns the display label for value, or value itself when unknown.
func Label(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

func Valid(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}
