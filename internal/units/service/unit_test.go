package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	unitserrors "navalha/internal/units/errors"
	"navalha/internal/units/validator"
	"navalha/pkg/config"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"
)

const (
	unitID        = "507f1f77bcf86cd799439011"
	otherUnitID   = "507f1f77bcf86cd799439022"
	serviceID     = "507f1f77bcf86cd799439033"
	profissMissID = "507f1f77bcf86cd799439044"
)

type mockUnitRepo struct {
	units    map[string]*model.Unit
	archived []string
	updates  map[string]bson.M
}

func newMockUnitRepo(units ...*model.Unit) *mockUnitRepo {
	r := &mockUnitRepo{
		units:   make(map[string]*model.Unit),
		updates: make(map[string]bson.M),
	}
	for _, u := range units {
		r.units[u.ID] = u
	}
	return r
}

func (r *mockUnitRepo) Create(_ context.Context, unit *model.Unit) error {
	unit.ID = unitID
	unit.CreatedAt = time.Now()
	r.units[unit.ID] = unit
	return nil
}

func (r *mockUnitRepo) FindByID(_ context.Context, id string) (*model.Unit, error) {
	unit, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrNotFound, id)
	}
	return unit, nil
}

func (r *mockUnitRepo) FindByScope(ctx context.Context, scope tenant.Scope) (*model.Unit, error) {
	return r.FindByID(ctx, scope.ActiveUnitID)
}

func (r *mockUnitRepo) FindAll(_ context.Context, _ int, _ int64) ([]*model.Unit, error) {
	var all []*model.Unit
	for _, u := range r.units {
		all = append(all, u)
	}
	return all, nil
}

func (r *mockUnitRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.units)), nil
}

func (r *mockUnitRepo) Update(_ context.Context, id string, updates bson.M) error {
	if _, ok := r.units[id]; !ok {
		return fmt.Errorf("%w: %s", unitserrors.ErrNotFound, id)
	}
	r.updates[id] = updates
	return nil
}

func (r *mockUnitRepo) Archive(_ context.Context, id string, at time.Time) error {
	unit, ok := r.units[id]
	if !ok {
		return fmt.Errorf("%w: %s", unitserrors.ErrNotFound, id)
	}
	unit.Active = false
	unit.ArchivedAt = &at
	r.archived = append(r.archived, id)
	return nil
}

func (r *mockUnitRepo) SetActive(_ context.Context, id string, active bool) error {
	unit, ok := r.units[id]
	if !ok {
		return fmt.Errorf("%w: %s", unitserrors.ErrNotFound, id)
	}
	unit.Active = active
	return nil
}

type mockProfessionalRepo struct {
	professionals map[string]*model.Professional
}

func (r *mockProfessionalRepo) Create(_ context.Context, scope tenant.Scope, p *model.Professional) error {
	p.ID = profissMissID
	p.UnitID = scope.ActiveUnitID
	r.professionals[p.ID] = p
	return nil
}

func (r *mockProfessionalRepo) FindByID(_ context.Context, scope tenant.Scope, id string) (*model.Professional, error) {
	p, ok := r.professionals[id]
	if !ok || p.UnitID != scope.ActiveUnitID {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrProfessionalNotFound, id)
	}
	return p, nil
}

func (r *mockProfessionalRepo) FindByUnit(_ context.Context, scope tenant.Scope) ([]*model.Professional, error) {
	var out []*model.Professional
	for _, p := range r.professionals {
		if p.UnitID == scope.ActiveUnitID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockServiceRepo struct {
	services map[string]*model.Service
}

func (r *mockServiceRepo) Create(_ context.Context, scope tenant.Scope, s *model.Service) error {
	s.UnitID = scope.ActiveUnitID
	r.services[s.ID] = s
	return nil
}

func (r *mockServiceRepo) FindByID(_ context.Context, scope tenant.Scope, id string) (*model.Service, error) {
	s, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrServiceNotFound, id)
	}
	_ = scope
	return s, nil
}

// FindByIDs deliberately skips the unit_id filter so the guard check in the
// service layer can be exercised with a foreign row.
func (r *mockServiceRepo) FindByIDs(_ context.Context, _ tenant.Scope, ids []string) ([]*model.Service, error) {
	var out []*model.Service
	for _, id := range ids {
		s, ok := r.services[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", unitserrors.ErrServiceNotFound, id)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *mockServiceRepo) FindByUnit(_ context.Context, scope tenant.Scope) ([]*model.Service, error) {
	var out []*model.Service
	for _, s := range r.services {
		if s.UnitID == scope.ActiveUnitID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockClientRepo struct {
	clients []*model.Client
}

func (r *mockClientRepo) Create(_ context.Context, scope tenant.Scope, c *model.Client) error {
	c.UnitID = scope.ActiveUnitID
	r.clients = append(r.clients, c)
	return nil
}

func (r *mockClientRepo) FindByID(_ context.Context, _ tenant.Scope, id string) (*model.Client, error) {
	for _, c := range r.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", unitserrors.ErrClientNotFound, id)
}

func (r *mockClientRepo) FindByUnit(_ context.Context, _ tenant.Scope, _ int, _ int64) ([]*model.Client, error) {
	return r.clients, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Output: io.Discard}),
	}
}

func newTestService(unitRepo *mockUnitRepo, serviceRepo *mockServiceRepo) UnitsService {
	log := logger.New(logger.Config{Output: io.Discard})
	if serviceRepo == nil {
		serviceRepo = &mockServiceRepo{services: make(map[string]*model.Service)}
	}
	return NewUnitsService(
		unitRepo,
		&mockProfessionalRepo{professionals: make(map[string]*model.Professional)},
		serviceRepo,
		&mockClientRepo{},
		validator.NewUnitValidator(),
		tenant.NewGuard(log),
		testConfig(),
	)
}

func activeUnit() *model.Unit {
	return &model.Unit{
		ID:     unitID,
		Name:   "Barbearia Central",
		Active: true,
		BusinessHours: map[model.Weekday]model.DayHours{
			model.Tuesday: {Open: "09:00", Close: "18:00"},
		},
	}
}

func TestCreateUnitNormalizesAndActivates(t *testing.T) {
	repo := newMockUnitRepo()
	svc := newTestService(repo, nil)

	unit := &model.Unit{
		Name: "  barbearia central  ",
		BusinessHours: map[model.Weekday]model.DayHours{
			model.Tuesday: {Open: "09:00", Close: "18:00"},
		},
	}

	err := svc.CreateUnit(context.Background(), unit)

	assert.NoError(t, err)
	assert.True(t, unit.Active)
	assert.NotEqual(t, "  barbearia central  ", unit.Name)
}

func TestCreateUnitRejectsInvalidHours(t *testing.T) {
	repo := newMockUnitRepo()
	svc := newTestService(repo, nil)

	err := svc.CreateUnit(context.Background(), &model.Unit{
		Name: "Barbearia Central",
		BusinessHours: map[model.Weekday]model.DayHours{
			model.Tuesday: {Open: "18:00", Close: "09:00"},
		},
	})

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Empty(t, repo.units)
}

func TestArchiveUnitIsSoftDeleteAndIdempotent(t *testing.T) {
	repo := newMockUnitRepo(activeUnit())
	svc := newTestService(repo, nil)
	scope := tenant.System(unitID)

	assert.NoError(t, svc.ArchiveUnit(context.Background(), scope, unitID))
	assert.NoError(t, svc.ArchiveUnit(context.Background(), scope, unitID))

	assert.Len(t, repo.archived, 1)
	assert.NotNil(t, repo.units[unitID].ArchivedAt)
	assert.False(t, repo.units[unitID].Active)
	// the document survives archiving
	_, err := svc.FindByID(context.Background(), unitID)
	assert.NoError(t, err)
}

func TestUpdateUnitRejectsArchivedUnit(t *testing.T) {
	unit := activeUnit()
	archivedAt := time.Now()
	unit.ArchivedAt = &archivedAt
	repo := newMockUnitRepo(unit)
	svc := newTestService(repo, nil)

	name := "Novo Nome"
	err := svc.UpdateUnit(context.Background(), tenant.System(unitID), unitID, &model.UnitUpdate{Name: name})

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestUpdateUnitForeignScopeRejected(t *testing.T) {
	repo := newMockUnitRepo(activeUnit())
	svc := newTestService(repo, nil)

	err := svc.UpdateUnit(context.Background(), tenant.System(otherUnitID), unitID, &model.UnitUpdate{Name: "Hijack"})

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeTenantIsolation, appErr.Code)
	assert.Empty(t, repo.updates)
}

func TestSetActiveFlipsBillingStatus(t *testing.T) {
	repo := newMockUnitRepo(activeUnit())
	svc := newTestService(repo, nil)
	scope := tenant.System(unitID)

	assert.NoError(t, svc.SetActive(context.Background(), scope, unitID, false))
	assert.False(t, repo.units[unitID].Active)

	assert.NoError(t, svc.SetActive(context.Background(), scope, unitID, true))
	assert.True(t, repo.units[unitID].Active)
}

func TestFindServicesForeignRowTripsGuard(t *testing.T) {
	serviceRepo := &mockServiceRepo{services: map[string]*model.Service{
		serviceID: {
			ID:              serviceID,
			UnitID:          otherUnitID,
			Name:            "Corte Masculino",
			DurationMinutes: 30,
		},
	}}
	svc := newTestService(newMockUnitRepo(activeUnit()), serviceRepo)

	_, err := svc.FindServices(context.Background(), tenant.System(unitID), []string{serviceID})

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeTenantIsolation, appErr.Code)
}

func TestFindServicesRequiresAtLeastOne(t *testing.T) {
	svc := newTestService(newMockUnitRepo(activeUnit()), nil)

	_, err := svc.FindServices(context.Background(), tenant.System(unitID), nil)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code)
}

func TestFindProfessionalMissingIsNotFound(t *testing.T) {
	svc := newTestService(newMockUnitRepo(activeUnit()), nil)

	_, err := svc.FindProfessional(context.Background(), tenant.System(unitID), profissMissID)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestCreateProfessionalStampsUnit(t *testing.T) {
	svc := newTestService(newMockUnitRepo(activeUnit()), nil)

	professional := &model.Professional{Name: "Carlos Silva", Active: true}
	err := svc.CreateProfessional(context.Background(), tenant.System(unitID), professional)

	assert.NoError(t, err)
	assert.Equal(t, unitID, professional.UnitID)
}

func TestCreateProfessionalForeignUnitRejected(t *testing.T) {
	svc := newTestService(newMockUnitRepo(activeUnit()), nil)

	professional := &model.Professional{Name: "Carlos Silva", UnitID: otherUnitID}
	err := svc.CreateProfessional(context.Background(), tenant.System(unitID), professional)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeTenantIsolation, appErr.Code)
}
