package services

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"github.com/nssnepal/membership/internal/models"
)

var (
	Validate   *validator.Validate
	translator ut.Translator

	// custom validation tags & texts
	phoneTag   = "phone"
	phoneText  = "phone number must be entered in the format: '+999999999'. Up to 15 digits allowed"
	phoneRegex = regexp.MustCompile(`^\+?1?\d{9,15}$`)

	requiredTag  = "required"
	requiredText = "this field is required"

	errInvalidInput = errors.New("please correct the errors below")
)

func init() {
	enLocale := en.New()
	translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	Validate = validator.New()
	_ = en_translations.RegisterDefaultTranslations(Validate, translator)

	// Use form tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	registerTranslation(phoneTag, phoneText)
	registerTranslation(requiredTag, requiredText, true)

	registerChoice("membership_type", models.MembershipTypes)
	registerChoice("payment_frequency", models.PaymentFrequencies)
	registerChoice("payment_mode", models.PaymentModes)
	registerChoice("gender", models.Genders)
}

// registerChoice adds a tag accepting one of choices.
func registerChoice(tag string, choices []models.Choice) {
	_ = Validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return models.Valid(choices, fl.Field().String())
	})
	registerTranslation(tag, "select a valid choice")
}

// registerTranslation registers a custom translation for the specified validation tag.
func registerTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// CheckStruct runs struct validation and converts failures to a ValidationError.
func CheckStruct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return NewValidationError(errInvalidInput, flds...)
}
