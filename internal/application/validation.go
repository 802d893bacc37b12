package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/facility-checklists/internal/recurrence"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("field"); name != "" {
			return name
		}
		return field.Name
	})
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, _, ok := recurrence.ParseTimeOfDay(fl.Field().String())
		return ok
	})
	return v
}

// validateStruct runs the struct tags of input and converts failures into a
// ValidationError keyed by the field names callers send.
func validateStruct(input any) *ValidationError {
	vErr := &ValidationError{}
	err := validate.Struct(input)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", "input is invalid")
		return vErr
	}
	for _, fe := range fieldErrs {
		key := fieldKey(fe)
		vErr.add(key, validationMessage(fe))
	}
	return vErr
}

// fieldKey strips the struct name from the namespace: "items[0].description".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	if i := strings.Index(field, "["); i >= 0 {
		field = field[:i]
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is invalid"
	case "timeofday":
		return "time must use HH:MM"
	case "min":
		if field == "items" {
			return "at least one item is required"
		}
		if field == "customDays" {
			return "custom days must be between 0 and 6"
		}
		return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
	case "max":
		if field == "customDays" {
			return "custom days must be between 0 and 6"
		}
		return fmt.Sprintf("%s must have at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

