package utils

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"interiorly/internal/models"
)

var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// Validate is the shared request validator with the project-specific tags registered.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsValidMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		return IsValidTimeSlot(fl.Field().String())
	})
	return v
}

func IsValidMobile(phone string) bool {
	return mobilePattern.MatchString(phone)
}

func IsValidTimeSlot(slot string) bool {
	return slices.Contains(models.TimeSlots, slot)
}

// ValidationMessage turns validator errors into one human readable line.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "mobile":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid 10-digit mobile number", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "timeslot":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, strings.Join(models.TimeSlots, ", ")))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
