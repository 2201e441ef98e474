package service

import (
	"context"
	"testing"
	"time"

	unitserrors "navalha/internal/units/errors"
	"navalha/pkg/config"
	mongotx "navalha/pkg/db/mongo"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"
)

const (
	originUnitID   = "507f1f77bcf86cd799439011"
	destUnitID     = "507f1f77bcf86cd799439022"
	professionalID = "507f1f77bcf86cd799439012"
	clientID       = "507f1f77bcf86cd799439013"
	serviceID      = "507f1f77bcf86cd799439014"
)

type mockScheduler struct {
	scheduled []*model.Appointment
	scopes    []tenant.Scope
	err       error
}

func (m *mockScheduler) Schedule(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	if m.err != nil {
		return m.err
	}
	appt.ID = "607f1f77bcf86cd799439001"
	m.scheduled = append(m.scheduled, appt)
	m.scopes = append(m.scopes, scope)
	return nil
}

type mockUnits struct {
	units map[string]*model.Unit
}

func (m *mockUnits) FindByID(ctx context.Context, id string) (*model.Unit, error) {
	if u, ok := m.units[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, unitserrors.ErrNotFound
}

type mockServices struct {
	services map[string]*model.Service
}

func (m *mockServices) FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error) {
	var out []*model.Service
	for _, id := range ids {
		if svc, ok := m.services[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

type memCommissionRepo struct {
	records []*model.CommissionRecord
}

func (m *memCommissionRepo) Create(ctx context.Context, scope tenant.Scope, record *model.CommissionRecord) error {
	record.UnitID = scope.ActiveUnitID
	m.records = append(m.records, record)
	return nil
}

func (m *memCommissionRepo) ExistsForReservation(ctx context.Context, scope tenant.Scope, reservationID string) (bool, error) {
	for _, r := range m.records {
		if r.ReservationID == reservationID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCommissionRepo) FindByUnit(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.CommissionRecord, int64, error) {
	return m.records, int64(len(m.records)), nil
}

func (m *memCommissionRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockNotifier struct {
	notified []*model.Appointment
}

func (m *mockNotifier) CrossUnitBooked(ctx context.Context, appt *model.Appointment) {
	m.notified = append(m.notified, appt)
}

func marketplaceUnit() *model.Unit {
	return &model.Unit{
		ID:                   destUnitID,
		Name:                 "Barbearia Central",
		Active:               true,
		MarketplaceActive:    true,
		AllowCrossUnit:       true,
		CommissionPercentage: 7.5,
	}
}

type fixture struct {
	scheduler   *mockScheduler
	units       *mockUnits
	commissions *memCommissionRepo
	notifier    *mockNotifier
	orch        Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Service: "test"}),
	}
	f := &fixture{
		scheduler:   &mockScheduler{},
		units:       &mockUnits{units: map[string]*model.Unit{destUnitID: marketplaceUnit()}},
		commissions: &memCommissionRepo{},
		notifier:    &mockNotifier{},
	}
	services := &mockServices{services: map[string]*model.Service{
		serviceID: {
			ID: serviceID, UnitID: destUnitID, Name: "Corte", PriceCents: 8000,
			DurationMinutes: 60, Category: "hair", Active: true,
			Listing: &model.MarketplaceListing{PublicName: "Corte", PublicPriceCents: 10000},
		},
	}}
	f.orch = NewOrchestrator(f.scheduler, f.units, services, f.commissions, f.notifier, cfg)
	return f
}

func validRequest() *BookRequest {
	return &BookRequest{
		DestinationUnitID: destUnitID,
		ProfessionalID:    professionalID,
		ClientID:          clientID,
		ServiceIDs:        []string{serviceID},
		Start:             time.Now().Add(24 * time.Hour),
	}
}

func TestBook_SnapshotsCommissionAndScope(t *testing.T) {
	f := newFixture(t)

	appt, err := f.orch.Book(context.Background(), tenant.System(originUnitID), validRequest())
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	if appt.UnitID != destUnitID {
		t.Errorf("appointment must live at the destination unit, got %s", appt.UnitID)
	}
	if appt.OriginUnitID != originUnitID {
		t.Errorf("origin unit must be recorded, got %s", appt.OriginUnitID)
	}
	if appt.Origin != model.OriginMarketplace {
		t.Errorf("expected marketplace origin, got %s", appt.Origin)
	}
	if appt.CommissionPercentage != 7.5 {
		t.Errorf("expected commission snapshot 7.5, got %v", appt.CommissionPercentage)
	}
	if appt.PriceCents != 10000 {
		t.Errorf("expected listing price 10000, got %d", appt.PriceCents)
	}

	if len(f.scheduler.scopes) != 1 || f.scheduler.scopes[0].ActiveUnitID != destUnitID {
		t.Errorf("scheduling must run under the destination scope, got %v", f.scheduler.scopes)
	}
	if len(f.notifier.notified) != 1 {
		t.Errorf("destination must be notified, got %d notifications", len(f.notifier.notified))
	}
}

func TestBook_PolicyRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(u *model.Unit)
		policy string
	}{
		{"marketplace inactive", func(u *model.Unit) { u.MarketplaceActive = false }, "marketplace_inactive"},
		{"cross-unit disabled", func(u *model.Unit) { u.AllowCrossUnit = false }, "cross_unit_reservations_disabled"},
		{"unit inactive", func(u *model.Unit) { u.Active = false }, "unit_inactive"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.mutate(f.units.units[destUnitID])

			_, err := f.orch.Book(context.Background(), tenant.System(originUnitID), validRequest())
			if !apperrors.HasCode(err, apperrors.CodeCrossUnitNotAllowed) {
				t.Fatalf("expected CROSS_UNIT_NOT_ALLOWED, got %v", err)
			}
			appErr := apperrors.AsAppError(err)
			if appErr.Details["policy"] != tc.policy {
				t.Errorf("expected blocking policy %q, got %v", tc.policy, appErr.Details)
			}
			if len(f.scheduler.scheduled) != 0 {
				t.Error("nothing may be scheduled after a policy rejection")
			}
		})
	}
}

func TestBook_SameUnitRejected(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.DestinationUnitID = originUnitID
	_, err := f.orch.Book(context.Background(), tenant.System(originUnitID), req)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestBook_UnknownDestination(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.DestinationUnitID = "507f1f77bcf86cd799439099"
	_, err := f.orch.Book(context.Background(), tenant.System(originUnitID), req)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCompletion_CommissionRoundedHalfUp(t *testing.T) {
	f := newFixture(t)

	// R$100.00 at 7.5% owes exactly 750 centavos.
	appt := &model.Appointment{
		ID:                   "607f1f77bcf86cd799439001",
		UnitID:               destUnitID,
		ClientID:             clientID,
		Status:               model.StatusCompleted,
		Origin:               model.OriginMarketplace,
		OriginUnitID:         originUnitID,
		CommissionPercentage: 7.5,
		PriceCents:           10000,
	}

	if err := f.orch.AppointmentCompleted(context.Background(), tenant.System(destUnitID), appt); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	if len(f.commissions.records) != 1 {
		t.Fatalf("expected one commission record, got %d", len(f.commissions.records))
	}
	record := f.commissions.records[0]
	if record.ValueCents != 750 {
		t.Errorf("expected 750 centavos, got %d", record.ValueCents)
	}
	if record.ReservationID != appt.ID {
		t.Errorf("record must reference the reservation, got %s", record.ReservationID)
	}
	if record.UnitID != destUnitID {
		t.Errorf("record must name the payee unit, got %s", record.UnitID)
	}
}

func TestCompletion_SnapshotImmuneToPolicyChange(t *testing.T) {
	f := newFixture(t)

	appt, err := f.orch.Book(context.Background(), tenant.System(originUnitID), validRequest())
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	// The destination raises its commission after booking; the snapshot wins.
	f.units.units[destUnitID].CommissionPercentage = 15

	appt.Status = model.StatusCompleted
	if err := f.orch.AppointmentCompleted(context.Background(), tenant.System(destUnitID), appt); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	if f.commissions.records[0].ValueCents != 750 {
		t.Errorf("commission must use the booking-time snapshot, got %d", f.commissions.records[0].ValueCents)
	}
}

func TestCompletion_IdempotentAndDirectSkipped(t *testing.T) {
	f := newFixture(t)

	appt := &model.Appointment{
		ID:                   "607f1f77bcf86cd799439001",
		UnitID:               destUnitID,
		Status:               model.StatusCompleted,
		Origin:               model.OriginMarketplace,
		OriginUnitID:         originUnitID,
		CommissionPercentage: 7.5,
		PriceCents:           10000,
	}

	for i := 0; i < 3; i++ {
		if err := f.orch.AppointmentCompleted(context.Background(), tenant.System(destUnitID), appt); err != nil {
			t.Fatalf("completion %d failed: %v", i, err)
		}
	}
	if len(f.commissions.records) != 1 {
		t.Fatalf("repeated completion must keep one record, got %d", len(f.commissions.records))
	}

	direct := &model.Appointment{
		ID:     "607f1f77bcf86cd799439002",
		UnitID: destUnitID,
		Status: model.StatusCompleted,
		Origin: model.OriginDirect,
	}
	if err := f.orch.AppointmentCompleted(context.Background(), tenant.System(destUnitID), direct); err != nil {
		t.Fatalf("direct completion failed: %v", err)
	}
	if len(f.commissions.records) != 1 {
		t.Errorf("direct appointments must not produce commission, got %d records", len(f.commissions.records))
	}
}
