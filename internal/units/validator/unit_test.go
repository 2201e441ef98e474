package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"navalha/pkg/model"
)

func validUnit() *model.Unit {
	return &model.Unit{
		Name:   "Barbearia Central",
		Active: true,
		BusinessHours: map[model.Weekday]model.DayHours{
			model.Tuesday:  {Open: "09:00", Close: "18:00"},
			model.Saturday: {Open: "08:00", Close: "14:00"},
			model.Monday:   {Closed: true},
		},
	}
}

func TestValidateAcceptsWellFormedUnit(t *testing.T) {
	v := NewUnitValidator()
	assert.NoError(t, v.Validate(validUnit()))
}

func TestValidateRejectsMalformedClockTime(t *testing.T) {
	v := NewUnitValidator()

	unit := validUnit()
	unit.BusinessHours[model.Tuesday] = model.DayHours{Open: "9am", Close: "18:00"}

	err := v.Validate(unit)
	assert.Error(t, err)

	var validationErrs ValidationErrors
	assert.ErrorAs(t, err, &validationErrs)
	assert.Contains(t, validationErrs.Error(), "valid HH:MM time")
}

func TestValidateRejectsInvertedHours(t *testing.T) {
	v := NewUnitValidator()

	unit := validUnit()
	unit.BusinessHours[model.Tuesday] = model.DayHours{Open: "18:00", Close: "09:00"}

	err := v.Validate(unit)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "close time must be after open time")
}

func TestValidateRejectsOpenDayWithoutHours(t *testing.T) {
	v := NewUnitValidator()

	unit := validUnit()
	unit.BusinessHours[model.Wednesday] = model.DayHours{}

	err := v.Validate(unit)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "open days require both open and close times")
}

func TestValidateClosedDayNeedsNoHours(t *testing.T) {
	v := NewUnitValidator()

	unit := validUnit()
	unit.BusinessHours[model.Sunday] = model.DayHours{Closed: true}

	assert.NoError(t, v.Validate(unit))
}

func TestValidateRejectsShortName(t *testing.T) {
	v := NewUnitValidator()

	unit := validUnit()
	unit.Name = "X"

	err := v.Validate(unit)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be at least 2")
}

func TestValidateProfessionalRequiresUnit(t *testing.T) {
	v := NewUnitValidator()

	err := v.ValidateProfessional(&model.Professional{Name: "Carlos Silva"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "UnitID is required")
}

func TestValidateServiceRejectsTinyDuration(t *testing.T) {
	v := NewUnitValidator()

	err := v.ValidateService(&model.Service{
		UnitID:          "507f1f77bcf86cd799439011",
		Name:            "Corte Expresso",
		DurationMinutes: 2,
		Category:        "corte",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be at least 5")
}
