package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nssnepal/membership/internal/services"
)

var errBadInput = errors.New("please correct the errors below")

// formReader collects parse failures while reading typed values off a form.
type formReader struct {
	r    *http.Request
	errs []services.FieldError
}

func (f *formReader) str(key string) string {
	return strings.TrimSpace(f.r.FormValue(key))
}

func (f *formReader) checkbox(key string) bool {
	v := strings.ToLower(f.r.FormValue(key))
	return v == "on" || v == "true" || v == "1"
}

func (f *formReader) id(key string) uint {
	s := f.str(key)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		f.errs = append(f.errs, services.FieldError{Field: key, Error: "select a valid choice"})
		return 0
	}
	return uint(n)
}

func (f *formReader) amount(key string) float64 {
	s := strings.ReplaceAll(f.str(key), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.errs = append(f.errs, services.FieldError{Field: key, Error: "enter a number"})
		return 0
	}
	return v
}

func (f *formReader) date(key string) time.Time {
	s := f.str(key)
	if s == "" {
		return time.Time{}
	}
	d, ok := services.ParseDate(s)
	if !ok {
		f.errs = append(f.errs, services.FieldError{Field: key, Error: "enter a valid date"})
	}
	return d
}

func (f *formReader) optDate(key string) *time.Time {
	d, ok := services.ParseOptionalDate(f.str(key))
	if !ok {
		f.errs = append(f.errs, services.FieldError{Field: key, Error: "enter a valid date"})
	}
	return d
}

func (f *formReader) err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return services.NewValidationError(errBadInput, f.errs...)
}

// normalizedPhone keeps the raw value when it cannot be normalized so the
// validator reports it against what the user typed.
func normalizedPhone(raw string) string {
	if p := services.NormPhone(raw); p != "" {
		return p
	}
	return strings.TrimSpace(raw)
}

func memberForm(r *http.Request) (services.MemberInput, []services.ChildInput, error) {
	if err := r.ParseForm(); err != nil {
		return services.MemberInput{}, nil, err
	}
	f := &formReader{r: r}
	email, _ := services.NormEmail(f.str("email"))
	in := services.MemberInput{
		Name:                     f.str("name"),
		DateOfBirth:              f.optDate("date_of_birth"),
		Gender:                   services.NormGender(f.str("gender")),
		Phone:                    normalizedPhone(f.str("phone")),
		Email:                    email,
		Address:                  f.str("address"),
		FatherName:               f.str("father_name"),
		GrandfatherName:          f.str("grandfather_name"),
		SpouseName:               f.str("spouse_name"),
		CitizenshipNumber:        f.str("citizenship_number"),
		CitizenshipIssueDate:     f.optDate("citizenship_issue_date"),
		CitizenshipIssueDistrict: f.str("citizenship_issue_district"),
		MembershipType:           f.str("membership_type"),
		PaymentFrequency:         f.str("payment_frequency"),
		MembershipNumber:         f.str("membership_number"),
		JoinDate:                 f.date("join_date"),
		IsActive:                 f.checkbox("is_active"),
	}

	// Inline children rows; a row without a name is an unused blank.
	var kids []services.ChildInput
	names := r.Form["child_name"]
	dobs := r.Form["child_dob"]
	genders := r.Form["child_gender"]
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k := services.ChildInput{Name: name}
		if i < len(dobs) {
			d, ok := services.ParseOptionalDate(dobs[i])
			if !ok {
				f.errs = append(f.errs, services.FieldError{Field: "child_dob", Error: "enter a valid date"})
			}
			k.DateOfBirth = d
		}
		if i < len(genders) {
			k.Gender = services.NormGender(genders[i])
		}
		kids = append(kids, k)
	}
	return in, kids, f.err()
}

func childForm(r *http.Request) (services.ChildInput, error) {
	if err := r.ParseForm(); err != nil {
		return services.ChildInput{}, err
	}
	f := &formReader{r: r}
	in := services.ChildInput{
		ID:          f.id("child_id"),
		Name:        f.str("child_name"),
		DateOfBirth: f.optDate("child_dob"),
		Gender:      services.NormGender(f.str("child_gender")),
	}
	return in, f.err()
}

func feeForm(r *http.Request) (services.FeeInput, error) {
	if err := r.ParseForm(); err != nil {
		return services.FeeInput{}, err
	}
	f := &formReader{r: r}
	in := services.FeeInput{
		MembershipType:   f.str("membership_type"),
		PaymentFrequency: f.str("payment_frequency"),
		Amount:           f.amount("amount"),
		Description:      f.str("description"),
		IsActive:         f.checkbox("is_active"),
	}
	return in, f.err()
}

func paymentForm(r *http.Request) (services.PaymentInput, error) {
	if err := r.ParseForm(); err != nil {
		return services.PaymentInput{}, err
	}
	f := &formReader{r: r}
	in := services.PaymentInput{
		MemberID:             f.id("member"),
		MembershipFeeID:      f.id("membership_fee"),
		Amount:               f.amount("amount"),
		PaymentDate:          f.date("payment_date"),
		PaymentMode:          f.str("payment_mode"),
		TransactionReference: f.str("transaction_reference"),
		CollectedBy:          f.str("collected_by"),
		Remarks:              f.str("remarks"),
	}
	return in, f.err()
}

// formIDs reads a repeated id field (bulk actions); junk values are ignored.
func formIDs(r *http.Request, key string) []uint {
	var ids []uint
	for _, v := range r.Form[key] {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil && n > 0 {
			ids = append(ids, uint(n))
		}
	}
	return ids
}
