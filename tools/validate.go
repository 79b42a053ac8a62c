package tools

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var airportCode = regexp.MustCompile(`^[A-Z]{3}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	vld.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	if err := vld.RegisterValidation("iata", func(fl validator.FieldLevel) bool {
		return airportCode.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("tools: register iata validation: %w", err)
	}

	if err := vld.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && !d.IsNegative()
	}); err != nil {
		return nil, fmt.Errorf("tools: register nonnegative_decimal validation: %w", err)
	}

	return vld, nil
}

// Validator returns the shared request validator.
func Validator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// ValidateStruct checks the validate tags of v and reports the first
// failure as a *ValidationError naming the JSON field path.
func ValidateStruct(v any) error {
	vld, err := Validator()
	if err != nil {
		return err
	}
	err = vld.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fieldPath(fe.Namespace()), Reason: reason(fe)}
}

// fieldPath drops the leading struct type from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func reason(fe validator.FieldError) string {
	sized := fe.Kind() == reflect.String || fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "iata":
		return "must be a three letter IATA code"
	case "nonnegative_decimal":
		return "must not be negative"
	case "len":
		if sized {
			return "length must be " + fe.Param()
		}
	case "min", "gte":
		if sized {
			return "length must be at least " + fe.Param()
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if sized {
			return "length must be at most " + fe.Param()
		}
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
