// Package validate runs declarative struct-tag rules over bound request
// DTOs and reports every violation at once as a single 400 AppError.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
)

// v is safe for concurrent use and caches struct metadata after first use.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name so clients can map errors back.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})

	// Optional form fields may be sent blank to clear them.
	val.RegisterAlias("emailorblank", "eq=|email")
	val.RegisterAlias("dateorblank", "eq=|datetime=2006-01-02")
	return val
}

// Struct evaluates every rule on s. It returns nil when s is valid and an
// *apperror.AppError listing all violations otherwise.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewInternal(fmt.Errorf("validating request: %w", err))
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return apperror.NewValidation(fields)
}

// Bind decodes the request into dst with Echo's binder and then validates
// it. A body that cannot be decoded is a plain bad request.
func Bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.NewBadRequest("Bad request")
	}
	return Struct(dst)
}

// message renders a client-facing sentence for one failed rule.
func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email", "emailorblank":
		return "Invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", name, fe.Param())
	case "number", "numeric":
		return name + " must contain only digits"
	case "boolean":
		return name + " must be a boolean"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", name, layoutHint(fe.Param()))
	case "dateorblank":
		return name + " must be a date in YYYY-MM-DD format"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	default:
		return name + " is invalid"
	}
}

func layoutHint(layout string) string {
	if layout == "2006-01-02" {
		return "YYYY-MM-DD"
	}
	return layout
}
