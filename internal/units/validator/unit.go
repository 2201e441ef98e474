package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"navalha/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type UnitValidator struct {
	validate *validator.Validate
}

func NewUnitValidator() *UnitValidator {
	v := validator.New()

	// business-hours entries carry "15:04" wall-clock strings
	_ = v.RegisterValidation("clock_time", validClockTime)

	return &UnitValidator{
		validate: v,
	}
}

func validClockTime(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

func (v *UnitValidator) Validate(unit *model.Unit) error {
	if err := v.validate.Struct(unit); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}

	return v.validateBusinessHours(unit)
}

func (v *UnitValidator) ValidateProfessional(professional *model.Professional) error {
	if err := v.validate.Struct(professional); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

func (v *UnitValidator) ValidateService(service *model.Service) error {
	if err := v.validate.Struct(service); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

func (v *UnitValidator) ValidateClient(client *model.Client) error {
	if err := v.validate.Struct(client); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

// validateBusinessHours rejects days that are open but have an inverted or
// missing open/close pair. Closed days may leave both fields empty.
func (v *UnitValidator) validateBusinessHours(unit *model.Unit) error {
	var validationErrors ValidationErrors

	for day, hours := range unit.BusinessHours {
		if hours.Closed {
			continue
		}

		if hours.Open == "" || hours.Close == "" {
			validationErrors = append(validationErrors, ValidationError{
				Field:   string(day),
				Message: "open days require both open and close times",
			})
			continue
		}

		open, errOpen := time.Parse("15:04", hours.Open)
		closeAt, errClose := time.Parse("15:04", hours.Close)
		if errOpen != nil || errClose != nil {
			continue
		}

		if !closeAt.After(open) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   string(day),
				Message: "close time must be after open time",
			})
		}
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be a valid E.164 phone number", err.Field())
		case "clock_time":
			message = fmt.Sprintf("%s must be a valid HH:MM time", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
