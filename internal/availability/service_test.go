package availability

import (
	"context"
	"testing"
	"time"

	"navalha/pkg/config"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"
)

type mockAppointmentSource struct {
	findFunc func(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error)
}

func (m *mockAppointmentSource) FindActiveByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, scope, professionalID, from, to)
	}
	return nil, nil
}

type mockCatalogSource struct {
	unit         *model.Unit
	professional *model.Professional
}

func (m *mockCatalogSource) FindUnit(ctx context.Context, scope tenant.Scope) (*model.Unit, error) {
	return m.unit, nil
}

func (m *mockCatalogSource) FindProfessional(ctx context.Context, scope tenant.Scope, id string) (*model.Professional, error) {
	return m.professional, nil
}

func allWeekHours(open, close string) map[model.Weekday]model.DayHours {
	hours := map[model.Weekday]model.DayHours{}
	for _, d := range []model.Weekday{model.Sunday, model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday, model.Saturday} {
		hours[d] = model.DayHours{Open: open, Close: close}
	}
	return hours
}

func testResolver(appts *mockAppointmentSource, catalog *mockCatalogSource) *Resolver {
	cfg := &config.Config{
		Log:                      logger.New(logger.Config{Level: logger.ERROR, Service: "test"}),
		NextAvailableHorizonDays: 30,
	}
	return NewResolver(appts, catalog, cfg)
}

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestFreeWindows_EmptyDay(t *testing.T) {
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(&mockAppointmentSource{}, catalog)

	windows, err := resolver.FreeWindows(context.Background(), tenant.System("u1"), "p1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if !windows[0].Start.Equal(at(9, 0)) || !windows[0].End.Equal(at(18, 0)) {
		t.Errorf("unexpected window %v-%v", windows[0].Start, windows[0].End)
	}
}

func TestFreeWindows_ClosedDay(t *testing.T) {
	hours := allWeekHours("09:00", "18:00")
	hours[model.Monday] = model.DayHours{Closed: true}
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: hours},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(&mockAppointmentSource{}, catalog)

	windows, err := resolver.FreeWindows(context.Background(), tenant.System("u1"), "p1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected no windows on a closed day, got %d", len(windows))
	}
}

func TestFreeWindows_SubtractsBookings(t *testing.T) {
	appts := &mockAppointmentSource{
		findFunc: func(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error) {
			return []*model.Appointment{
				{Start: at(10, 0), End: at(11, 0), Status: model.StatusScheduled},
				{Start: at(14, 0), End: at(15, 0), Status: model.StatusConfirmed},
			}, nil
		},
	}
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(appts, catalog)

	windows, err := resolver.FreeWindows(context.Background(), tenant.System("u1"), "p1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Window{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(11, 0), End: at(14, 0)},
		{Start: at(15, 0), End: at(18, 0)},
	}
	if len(windows) != len(want) {
		t.Fatalf("expected %d windows, got %d: %v", len(want), len(windows), windows)
	}
	for i, w := range want {
		if !windows[i].Start.Equal(w.Start) || !windows[i].End.Equal(w.End) {
			t.Errorf("window %d: got %v-%v, want %v-%v", i, windows[i].Start, windows[i].End, w.Start, w.End)
		}
	}
}

func TestFreeWindows_MergesOverlappingBookings(t *testing.T) {
	// Overlapping bookings should never exist, but the resolver unions them
	// instead of producing a negative gap.
	appts := &mockAppointmentSource{
		findFunc: func(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error) {
			return []*model.Appointment{
				{Start: at(10, 0), End: at(11, 30), Status: model.StatusScheduled},
				{Start: at(11, 0), End: at(12, 0), Status: model.StatusScheduled},
			}, nil
		},
	}
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(appts, catalog)

	windows, err := resolver.FreeWindows(context.Background(), tenant.System("u1"), "p1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d: %v", len(windows), windows)
	}
	if !windows[1].Start.Equal(at(12, 0)) {
		t.Errorf("second window should start at 12:00, got %v", windows[1].Start)
	}
}

func TestFreeWindows_DiscardsShortGaps(t *testing.T) {
	appts := &mockAppointmentSource{
		findFunc: func(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error) {
			return []*model.Appointment{
				{Start: at(9, 15), End: at(17, 45), Status: model.StatusScheduled},
			}, nil
		},
	}
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(appts, catalog)

	windows, err := resolver.FreeWindows(context.Background(), tenant.System("u1"), "p1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("15-minute edge gaps should be discarded for a 30-minute service, got %v", windows)
	}
}

func TestFreeWindows_ProfessionalOverrideWins(t *testing.T) {
	catalog := &mockCatalogSource{
		unit: &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{
			ID:     "p1",
			UnitID: "u1",
			WorkingHours: map[model.Weekday]model.DayHours{
				model.Monday: {Open: "13:00", Close: "17:00"},
			},
		},
	}
	resolver := testResolver(&mockAppointmentSource{}, catalog)

	windows, err := resolver.FreeWindows(context.Background(), tenant.System("u1"), "p1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 || !windows[0].Start.Equal(at(13, 0)) || !windows[0].End.Equal(at(17, 0)) {
		t.Fatalf("expected the professional's 13:00-17:00 override, got %v", windows)
	}
}

func TestNextAvailable_SkipsToNextDay(t *testing.T) {
	// Monday fully booked; Tuesday open.
	appts := &mockAppointmentSource{
		findFunc: func(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error) {
			if from.Day() == monday.Day() {
				return []*model.Appointment{
					{Start: at(9, 0), End: at(18, 0), Status: model.StatusScheduled},
				}, nil
			}
			return nil, nil
		},
	}
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(appts, catalog)

	next, err := resolver.NextAvailable(context.Background(), tenant.System("u1"), "p1", at(9, 0), 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next == nil {
		t.Fatal("expected a suggestion on the next day")
	}
	wantStart := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if !next.Start.Equal(wantStart) {
		t.Errorf("expected next window at %v, got %v", wantStart, next.Start)
	}
}

func TestNextAvailable_SameDayAfterCutoff(t *testing.T) {
	catalog := &mockCatalogSource{
		unit:         &model.Unit{ID: "u1", BusinessHours: allWeekHours("09:00", "18:00")},
		professional: &model.Professional{ID: "p1", UnitID: "u1"},
	}
	resolver := testResolver(&mockAppointmentSource{}, catalog)

	next, err := resolver.NextAvailable(context.Background(), tenant.System("u1"), "p1", at(15, 0), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next == nil {
		t.Fatal("expected a same-day suggestion")
	}
	if !next.Start.Equal(at(15, 0)) {
		t.Errorf("expected window starting at the cutoff, got %v", next.Start)
	}
}
