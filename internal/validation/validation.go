// Package validation holds the field rules applied when a student submits
// the edit form.
//
// The predicates are plain functions so they can be used anywhere; New
// registers them on a go-playground/validator instance under the tags used
// by types.UpdateFields.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/types"
)

const (
	mobileLen = 10
	aadharLen = 12
)

// IsMobile reports whether s is exactly 10 decimal digits.
func IsMobile(s string) bool { return isDigits(s, mobileLen) }

// IsAadhar reports whether s is exactly 12 decimal digits.
func IsAadhar(s string) bool { return isDigits(s, aadharLen) }

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// New returns a validator with the custom tags registered. Field names in
// the resulting errors are the json names ("mobile", not "Mobile").
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// RegisterValidation only fails on an empty tag or a reserved name.
	must(v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	}))
	must(v.RegisterValidation("aadhar", func(fl validator.FieldLevel) bool {
		return IsAadhar(fl.Field().String())
	}))
	must(v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := types.ParseDate(fl.Field().String())
		return err == nil
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

var std = New()

// Fields checks every rule on f. The returned error carries
// apperr.CodeValidation and a message naming each invalid field.
func Fields(f types.UpdateFields) error {
	err := std.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(err, apperr.CodeValidation, "invalid form")
	}
	return apperr.Wrap(err, apperr.CodeValidation, strings.Join(Messages(verrs), " "))
}

// Messages turns validator errors into sentences a student can act on.
func Messages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "mobile":
			msgs = append(msgs, "Invalid mobile number. It must be 10 digits.")
		case "aadhar":
			msgs = append(msgs, "Invalid Aadhar number. It must be 12 digits.")
		case "date":
			msgs = append(msgs, fmt.Sprintf("Invalid %s. Use the YYYY-MM-DD format.", e.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("Invalid %s. It must be one of: %s.", e.Field(), strings.ReplaceAll(e.Param(), " ", ", ")))
		case "required":
			msgs = append(msgs, fmt.Sprintf("Field %s is required.", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("Field %s is invalid.", e.Field()))
		}
	}
	return msgs
}
