// Package validation checks HTTP request bodies before they reach a service.
package validation

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "pixpax/pkg/domain-errors"
)

var defaultValidator = newValidator()

func validID(s string) bool {
	if s == "" || len(s) > MaxIDLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// pixpaxid: collection, version, series and card ids are used as object keys.
	_ = v.RegisterValidation("pixpaxid", func(fl validator.FieldLevel) bool {
		return validID(fl.Field().String())
	})
	return v
}

// Validate runs the struct tags on req. The first failing field becomes the
// message of a CodeValidation error.
func Validate(req any) error {
	err := defaultValidator.Struct(req)
	if err == nil {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
}

// ValidID reports whether s is usable as a collection, version or card id.
func ValidID(s string) bool {
	return validID(s)
}

var tagMessages = map[string]string{
	"required": "%s is required",
	"url":      "%s must be a valid url",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"oneof":    "%s must be one of [%s]",
	"notblank": "%s must not be blank",
}

// ErrorMessage renders the first field error using json field names.
func ErrorMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request body"
	}
	fe := fieldErrs[0]
	field := cmp.Or(fe.Field(), fe.StructField())
	if field == "" {
		return "invalid request body"
	}

	tag := fe.ActualTag()
	if tag == "pixpaxid" {
		return fmt.Sprintf("%s must be 1-%d characters of letters, digits, '-', '_' or '.'", field, MaxIDLength)
	}
	format, ok := tagMessages[tag]
	switch {
	case !ok:
		return field + " is invalid"
	case strings.Count(format, "%s") == 2:
		return fmt.Sprintf(format, field, fe.Param())
	default:
		return fmt.Sprintf(format, field)
	}
}
