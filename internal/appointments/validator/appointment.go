package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"navalha/pkg/logger"
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

type AppointmentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAppointmentValidator(log *logger.Logger) *AppointmentValidator {
	return &AppointmentValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *AppointmentValidator) Validate(appt *model.Appointment) error {
	if err := v.validate.Struct(appt); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if !appt.End.After(appt.Start) {
		return ValidationErrors{
			ValidationError{
				Field:   "End",
				Message: "end must be after start",
			},
		}
	}

	if appt.Start.Before(time.Now()) {
		return ValidationErrors{
			ValidationError{
				Field:   "Start",
				Message: "start cannot be in the past",
			},
		}
	}

	if appt.Origin == model.OriginMarketplace && appt.OriginUnitID == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "OriginUnitID",
				Message: "origin_unit_id is required for marketplace appointments",
			},
		}
	}

	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
