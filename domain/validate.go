package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[0-9]{3}-[0-9]{3}-[0-9]{4}$`)

var states = map[string]struct{}{
	"AL": {}, "AK": {}, "AR": {}, "AZ": {}, "CA": {}, "CO": {}, "CT": {}, "DC": {},
	"DE": {}, "FL": {}, "GA": {}, "HI": {}, "IA": {}, "ID": {}, "IL": {}, "IN": {},
	"KS": {}, "KY": {}, "LA": {}, "MA": {}, "MD": {}, "ME": {}, "MI": {}, "MN": {},
	"MS": {}, "MO": {}, "MT": {}, "NC": {}, "ND": {}, "NE": {}, "NH": {}, "NJ": {},
	"NM": {}, "NV": {}, "NY": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {},
	"SC": {}, "SD": {}, "TN": {}, "TX": {}, "UT": {}, "VA": {}, "VT": {}, "WA": {},
	"WV": {}, "WI": {}, "WY": {},
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Dates validate as their wire form; the zero date is empty.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(Date); ok && !d.IsZero() {
				return d.String()
			}
			return ""
		}, Date{})
		_ = v.RegisterValidation("us_state", func(fl validator.FieldLevel) bool {
			_, ok := states[fl.Field().String()]
			return ok
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// validateStruct runs the validate tags of s and reports the first failing
// field as an unprocessable InvalidField error.
func validateStruct(s interface{}) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return InvalidField(fe.Field(), describe(fe))
	}
	return WrapError(ErrCodeUnprocessable, "validation failed", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "us_state":
		return "must be a two-letter state code"
	case "phone":
		return "must be in the format xxx-xxx-xxxx"
	}
	return "failed the " + fe.Tag() + " rule"
}
