package rest

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report json names so meta.field matches the request body
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("civildate", validateCivilDate)
	_ = validate.RegisterValidation("hhmm", validateClock)
}

// civildate accepts YYYY-MM-DD.
func validateCivilDate(fl validator.FieldLevel) bool {
	_, err := domain.ParseDate(fl.Field().String())
	return err == nil
}

// hhmm accepts a 24h wall clock such as 09:30.
func validateClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// Both failures come back as validation errors.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return domain.ErrValidationField("body", "invalid JSON body")
	}
	if n, ok := dst.(interface{ normalize() }); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors reports the first failing field. Fields are declared
// in the order they should be checked.
func formatValidationErrors(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return domain.ErrValidation(err.Error())
	}
	fe := ve[0]
	field := fieldPath(fe)
	return domain.ErrValidationField(field, formatFieldError(field, fe))
}

// fieldPath drops the root struct name: "createEventReq.schedule.sessions[0].date"
// becomes "schedule.sessions[0].date".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "civildate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "hhmm":
		return fmt.Sprintf("%s must be a time in HH:MM format", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
