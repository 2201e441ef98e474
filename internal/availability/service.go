package availability

import (
	"context"
	"time"

	"navalha/pkg/config"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/model"
	"navalha/pkg/tenant"
)

// AppointmentSource is the slice of the appointment repository the resolver
// needs: every non-cancelled appointment touching a time range.
type AppointmentSource interface {
	FindActiveByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error)
}

// CatalogSource supplies the unit and professional records that define
// working hours.
type CatalogSource interface {
	FindUnit(ctx context.Context, scope tenant.Scope) (*model.Unit, error)
	FindProfessional(ctx context.Context, scope tenant.Scope, id string) (*model.Professional, error)
}

type Resolver struct {
	appointments AppointmentSource
	catalog      CatalogSource
	cfg          *config.Config
}

func NewResolver(appointments AppointmentSource, catalog CatalogSource, cfg *config.Config) *Resolver {
	return &Resolver{
		appointments: appointments,
		catalog:      catalog,
		cfg:          cfg,
	}
}

// FreeWindows computes the ordered free windows of at least totalDuration
// for a professional on the given date. A closed day yields no windows.
func (r *Resolver) FreeWindows(ctx context.Context, scope tenant.Scope, professionalID string, date time.Time, totalDuration time.Duration) ([]Window, error) {
	if professionalID == "" {
		return nil, apperrors.InvalidInput("professional ID cannot be empty")
	}
	if totalDuration <= 0 {
		return nil, apperrors.InvalidInput("total duration must be positive")
	}

	unit, err := r.catalog.FindUnit(ctx, scope)
	if err != nil {
		return nil, err
	}
	professional, err := r.catalog.FindProfessional(ctx, scope, professionalID)
	if err != nil {
		return nil, err
	}

	hours, ok := professional.HoursFor(model.WeekdayOf(date), unit)
	if !ok || hours.Closed || hours.Open == "" || hours.Close == "" {
		return []Window{}, nil
	}

	working, err := workingInterval(date, hours)
	if err != nil {
		return nil, apperrors.Internal("malformed working hours", err)
	}

	existing, err := r.appointments.FindActiveByProfessional(ctx, scope, professionalID, working.start, working.end)
	if err != nil {
		return nil, err
	}

	busy := make([]interval, 0, len(existing))
	for _, a := range existing {
		busy = append(busy, interval{start: a.Start, end: a.End})
	}

	return subtractIntervals(working, busy, totalDuration), nil
}

// WorkingWindow returns the professional's working interval for the date,
// ignoring existing bookings. Nil means the day is closed. Callers use it to
// tell "outside business hours" apart from "taken by another appointment".
func (r *Resolver) WorkingWindow(ctx context.Context, scope tenant.Scope, professionalID string, date time.Time) (*Window, error) {
	if professionalID == "" {
		return nil, apperrors.InvalidInput("professional ID cannot be empty")
	}

	unit, err := r.catalog.FindUnit(ctx, scope)
	if err != nil {
		return nil, err
	}
	professional, err := r.catalog.FindProfessional(ctx, scope, professionalID)
	if err != nil {
		return nil, err
	}

	hours, ok := professional.HoursFor(model.WeekdayOf(date), unit)
	if !ok || hours.Closed || hours.Open == "" || hours.Close == "" {
		return nil, nil
	}

	working, err := workingInterval(date, hours)
	if err != nil {
		return nil, apperrors.Internal("malformed working hours", err)
	}
	return &Window{Start: working.start, End: working.end}, nil
}

// NextAvailable returns the earliest window at or after the given instant,
// scanning day by day up to the configured horizon. A nil window with a nil
// error means nothing is free within the horizon.
func (r *Resolver) NextAvailable(ctx context.Context, scope tenant.Scope, professionalID string, after time.Time, totalDuration time.Duration) (*Window, error) {
	horizon := r.cfg.NextAvailableHorizonDays

	for day := 0; day <= horizon; day++ {
		date := after.AddDate(0, 0, day)
		windows, err := r.FreeWindows(ctx, scope, professionalID, date, totalDuration)
		if err != nil {
			return nil, err
		}

		for _, w := range windows {
			if !w.Start.Before(after) {
				return &w, nil
			}
			// A window already in progress still counts if enough of it
			// remains past the cutoff.
			if w.End.Sub(after) >= totalDuration {
				return &Window{Start: after, End: w.End}, nil
			}
		}
	}

	return nil, nil
}

func workingInterval(date time.Time, hours model.DayHours) (interval, error) {
	open, err := combineClock(date, hours.Open)
	if err != nil {
		return interval{}, err
	}
	close, err := combineClock(date, hours.Close)
	if err != nil {
		return interval{}, err
	}
	return interval{start: open, end: close}, nil
}
