package services

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrFeeMismatch = errors.New("fee does not match the member's membership terms")
	ErrFeeInactive = errors.New("selected fee is not active")
	ErrFeeInUse    = errors.New("fee has recorded payments and cannot be deleted")
	ErrDuplicate   = errors.New("a record with this value already exists")
)

// FieldError is used to indicate an error with a specific form field.
// An empty Field marks a non-field (whole form) error.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Unwrap lets errors.Is see the sentinel behind a validation error.
func (err ValidationError) Unwrap() error {
	return err.Err
}

// FieldMap indexes field errors for inline form rendering; non-field errors land under "".
func (err ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		if _, seen := out[f.Field]; !seen {
			out[f.Field] = f.Error
		}
	}
	return out
}

// AsValidation returns the ValidationError inside err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isUnique reports a sqlite UNIQUE violation, optionally on a column.
func isUnique(err error, column string) bool {
	if err == nil {
		return false
	}
	le := strings.ToLower(err.Error())
	if !strings.Contains(le, "unique") {
		return false
	}
	return column == "" || strings.Contains(le, column)
}

// uniqueFieldError maps a uniqueness violation on a member column to a form error.
func uniqueFieldError(err error) error {
	switch {
	case isUnique(err, "citizenship_number"):
		return NewValidationError(ErrDuplicate, FieldError{Field: "citizenship_number", Error: "a member with this citizenship number already exists"})
	case isUnique(err, "membership_number"):
		return NewValidationError(ErrDuplicate, FieldError{Field: "membership_number", Error: "a member with this membership number already exists"})
	case isUnique(err, ""):
		return NewValidationError(ErrDuplicate, FieldError{Error: ErrDuplicate.Error()})
	}
	return err
}
