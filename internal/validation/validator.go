// Package validation checks CRM inputs with go-playground/validator and
// converts its errors into a flat, caller-facing Error.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	validatorv10 "github.com/go-playground/validator/v10"
)

// phonePattern accepts "+1234567890"-style numbers and "123-456-7890".
var phonePattern = regexp.MustCompile(`^(\+?[0-9]{7,15}|[0-9]{3}-[0-9]{3}-[0-9]{4})$`)

// ValidPhone reports whether phone matches one of the accepted formats.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// FieldError describes a single rejected field.
type FieldError struct {
	Field   string
	Message string
}

// Error is returned when an input fails validation. Fields keeps the order
// in which the validator reported them.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Validator validates structs tagged with `validate:"..."`. Field names in
// errors come from the json tag so they match the API field names.
type Validator struct {
	v *validatorv10.Validate
}

// New returns a Validator with the custom "phone" tag registered.
func New() *Validator {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validatorv10.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

// Struct validates s and returns *Error for rule violations.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return errors.Wrap(err, "validate")
	}

	out := &Error{Fields: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "invalid phone format"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
