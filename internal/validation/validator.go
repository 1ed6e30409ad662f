// Package validation validates incoming request data with the
// go-playground/validator library plus a few domain-specific rules.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var reIdent = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// init registers the custom tags. A registration failure is a programming
// error, so it panics at startup.
func init() {
	// "custom_id" covers organization names and bucket keys: letters,
	// digits, hyphens and underscores only. Empty strings pass so the
	// 'required' tag stays in charge of presence.
	err := validate.RegisterValidation("custom_id", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || reIdent.MatchString(value)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register custom_id validation: %v", err))
	}

	// "bucket_kind" accepts the two supported granularities.
	err = validate.RegisterValidation("bucket_kind", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || value == "week" || value == "month"
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register bucket_kind validation: %v", err))
	}

	// "calendar_date" requires the YYYY-MM-DD layout used by bucket ranges.
	err = validate.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}

		_, parseErr := time.Parse("2006-01-02", value)

		return parseErr == nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register calendar_date validation: %v", err))
	}
}

// ValidationError holds the messages for every field that failed.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// ValidateStruct validates a struct against its validation tags and returns
// a *ValidationError with user-friendly messages on failure.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors []string

		for _, err := range err.(validator.ValidationErrors) {
			var message string

			switch err.Tag() {
			case "custom_id":
				message = fmt.Sprintf(
					"field '%s' must contain only letters, numbers, hyphens, and underscores",
					err.Field(),
				)
			case "bucket_kind":
				message = fmt.Sprintf(
					"field '%s' must be either 'week' or 'month'",
					err.Field(),
				)
			case "calendar_date":
				message = fmt.Sprintf(
					"field '%s' must be a date in YYYY-MM-DD format",
					err.Field(),
				)
			default:
				message = fmt.Sprintf(
					"field '%s' failed on the '%s' tag",
					err.Field(),
					err.Tag(),
				)
			}
			validationErrors = append(validationErrors, message)
		}

		return &ValidationError{Errors: validationErrors}
	}

	return nil
}
