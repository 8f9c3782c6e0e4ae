// Package validation wraps go-playground/validator with the academy's custom tags and
// English messages, and converts failures into apperr field errors.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
	phoneTag    = "phone"

	requiredTag = "required"
	emailTag    = "email"
)

// Phone numbers carry 7 to 15 digits; spaces, dashes, dots, parentheses and a leading + are separators.
const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = Validate.RegisterValidation(phoneTag, phoneValidation)

	registerTranslation(notBlankTag, "{0} is required", false)
	registerTranslation(requiredTag, "{0} is required", true)
	registerTranslation(phoneTag, "{0} must contain 7 to 15 digits", false)
	registerTranslation(emailTag, "{0} must be a valid email address", true)
}

func registerTranslation(tag, text string, override bool) {
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates v and returns a KindValidation apperr listing each failed field,
// or nil when v is valid.
func Struct(op string, v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return apperr.Wrap(err, apperr.KindValidation, op, "validation failed")
	}
	fields := make([]apperr.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fe.Translate(Translator)})
	}
	return apperr.Validation(op, fields)
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return Validate.Var(s, "required,email") == nil
}

// IsPhone reports whether s is an acceptable phone number.
func IsPhone(s string) bool {
	return validPhone(s)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return true
}

func phoneValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return validPhone(str)
}

func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}
