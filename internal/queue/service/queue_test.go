package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	queueerrors "navalha/internal/queue/errors"
	"navalha/internal/queue/validator"
	"navalha/pkg/config"
	mongotx "navalha/pkg/db/mongo"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	unitID    = "507f1f77bcf86cd799439011"
	serviceID = "507f1f77bcf86cd799439014"
)

func clientID(n int) string {
	return fmt.Sprintf("507f1f77bcf86cd7994390%02d", 20+n)
}

// memQueueRepo implements QueueRepository in memory with the same position
// semantics the Mongo implementation has.
type memQueueRepo struct {
	mu      sync.Mutex
	entries []*model.QueueEntry
	nextID  int

	// Widens the window between the tail read and the insert, the
	// interleaving snapshot-isolated transactions permit.
	tailDelay time.Duration
}

func (m *memQueueRepo) partition(professionalID string) []*model.QueueEntry {
	var out []*model.QueueEntry
	for _, e := range m.entries {
		if e.ProfessionalID == professionalID && e.Status == model.QueueWaiting {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memQueueRepo) Insert(ctx context.Context, scope tenant.Scope, entry *model.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry.ID = fmt.Sprintf("607f1f77bcf86cd7994390%02d", m.nextID)
	entry.UnitID = scope.ActiveUnitID
	copied := *entry
	m.entries = append(m.entries, &copied)
	return nil
}

func (m *memQueueRepo) FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, queueerrors.ErrNotFound
}

func (m *memQueueRepo) FindWaiting(ctx context.Context, scope tenant.Scope, professionalID string) ([]*model.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.QueueEntry
	for _, e := range m.partition(professionalID) {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memQueueRepo) FindActiveByClient(ctx context.Context, scope tenant.Scope, clientID string) (*model.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ClientID == clientID && e.Active() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, queueerrors.ErrNotFound
}

func (m *memQueueRepo) MaxPosition(ctx context.Context, scope tenant.Scope, professionalID string) (int, error) {
	m.mu.Lock()
	max := 0
	for _, e := range m.partition(professionalID) {
		if e.Position > max {
			max = e.Position
		}
	}
	m.mu.Unlock()
	if m.tailDelay > 0 {
		time.Sleep(m.tailDelay)
	}
	return max, nil
}

func (m *memQueueRepo) SetStatus(ctx context.Context, scope tenant.Scope, id, status string, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = status
			e.Position = position
			return nil
		}
	}
	return queueerrors.ErrNotFound
}

func (m *memQueueRepo) ShiftPositions(ctx context.Context, scope tenant.Scope, professionalID string, abovePosition int, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.partition(professionalID) {
		if e.Position > abovePosition {
			e.Position += delta
		}
	}
	return nil
}

func (m *memQueueRepo) ShiftPositionsBelow(ctx context.Context, scope tenant.Scope, professionalID string, belowPosition int, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.partition(professionalID) {
		if e.Position < belowPosition {
			e.Position += delta
		}
	}
	return nil
}

func (m *memQueueRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type memLockRepo struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired int
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{held: map[string]bool{}}
}

func (m *memLockRepo) Create(ctx context.Context, lock *model.ReservationLock) (*model.ReservationLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[lock.ID] {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	m.held[lock.ID] = true
	m.acquired++
	return lock, nil
}

func (m *memLockRepo) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, lockID)
	return nil
}

func (m *memLockRepo) DeleteIfExpired(ctx context.Context, lockID string, now time.Time) (bool, error) {
	return false, nil
}

type memStateRepo struct {
	paused bool
}

func (m *memStateRepo) Get(ctx context.Context, scope tenant.Scope) (*model.QueueState, error) {
	return &model.QueueState{UnitID: scope.ActiveUnitID, Paused: m.paused}, nil
}

func (m *memStateRepo) SetPaused(ctx context.Context, scope tenant.Scope, paused bool) error {
	m.paused = paused
	return nil
}

type mockCatalog struct{}

func (m *mockCatalog) FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error) {
	var out []*model.Service
	for _, id := range ids {
		out = append(out, &model.Service{ID: id, UnitID: unitID, Name: "Corte", DurationMinutes: 60, Category: "hair", Active: true})
	}
	return out, nil
}

type countingBroadcaster struct {
	updates int
}

func (b *countingBroadcaster) QueueUpdated(ctx context.Context, unitID string) {
	b.updates++
}

type fixture struct {
	repo        *memQueueRepo
	states      *memStateRepo
	locks       *memLockRepo
	broadcaster *countingBroadcaster
	service     QueueService
	scope       tenant.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Log:                  logger.New(logger.Config{Level: logger.ERROR, Service: "test"}),
		ReservationLockTTL:   time.Second,
		ReservationLockWait:  time.Second,
		ReservationLockRetry: time.Millisecond,
	}
	f := &fixture{
		repo:        &memQueueRepo{},
		states:      &memStateRepo{},
		locks:       newMemLockRepo(),
		broadcaster: &countingBroadcaster{},
		scope:       tenant.System(unitID),
	}
	f.service = NewQueueService(f.repo, f.states, f.locks, &mockCatalog{}, validator.NewQueueValidator(cfg.Log), f.broadcaster, cfg)
	return f
}

func (f *fixture) enqueue(t *testing.T, n int) []*model.QueueEntry {
	t.Helper()
	entries := make([]*model.QueueEntry, 0, n)
	for i := 1; i <= n; i++ {
		e := &model.QueueEntry{
			ClientID:   clientID(i),
			ServiceIDs: []string{serviceID},
		}
		if err := f.service.Enqueue(context.Background(), f.scope, e); err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func (f *fixture) assertLine(t *testing.T, wantClients []string, wantETAs []int) {
	t.Helper()
	views, _, err := f.service.List(context.Background(), f.scope, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != len(wantClients) {
		t.Fatalf("expected %d entries, got %d", len(wantClients), len(views))
	}
	for i, v := range views {
		if v.Entry.Position != i+1 {
			t.Errorf("entry %d: position %d, want %d", i, v.Entry.Position, i+1)
		}
		if v.Entry.ClientID != wantClients[i] {
			t.Errorf("entry %d: client %s, want %s", i, v.Entry.ClientID, wantClients[i])
		}
		if v.ETAMinutes != wantETAs[i] {
			t.Errorf("entry %d: ETA %d, want %d", i, v.ETAMinutes, wantETAs[i])
		}
	}
}

func TestEnqueue_DensePositionsAndETAs(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, 3)

	// Three 60-minute clients wait 0, 60 and 120 minutes.
	f.assertLine(t,
		[]string{clientID(1), clientID(2), clientID(3)},
		[]int{0, 60, 120},
	)
}

func TestPrioritize_MovesToFront(t *testing.T) {
	f := newFixture(t)
	entries := f.enqueue(t, 3)

	if err := f.service.Prioritize(context.Background(), f.scope, entries[2].ID); err != nil {
		t.Fatalf("prioritize failed: %v", err)
	}

	f.assertLine(t,
		[]string{clientID(3), clientID(1), clientID(2)},
		[]int{0, 60, 120},
	)
}

func TestPrioritize_LastWins(t *testing.T) {
	f := newFixture(t)
	entries := f.enqueue(t, 3)

	if err := f.service.Prioritize(context.Background(), f.scope, entries[2].ID); err != nil {
		t.Fatalf("prioritize failed: %v", err)
	}
	if err := f.service.Prioritize(context.Background(), f.scope, entries[1].ID); err != nil {
		t.Fatalf("second prioritize failed: %v", err)
	}

	f.assertLine(t,
		[]string{clientID(2), clientID(3), clientID(1)},
		[]int{0, 60, 120},
	)
}

func TestCallNext_PopsHeadAndCompacts(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, 3)

	head, err := f.service.CallNext(context.Background(), f.scope, "")
	if err != nil {
		t.Fatalf("call next failed: %v", err)
	}
	if head.ClientID != clientID(1) {
		t.Errorf("expected the first client to be called, got %s", head.ClientID)
	}
	if head.Status != model.QueueCalled {
		t.Errorf("expected status called, got %s", head.Status)
	}

	f.assertLine(t,
		[]string{clientID(2), clientID(3)},
		[]int{0, 60},
	)
}

func TestCallNext_EmptyQueue(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CallNext(context.Background(), f.scope, "")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRemove_MiddleEntryCompacts(t *testing.T) {
	f := newFixture(t)
	entries := f.enqueue(t, 3)

	if err := f.service.Remove(context.Background(), f.scope, entries[1].ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	f.assertLine(t,
		[]string{clientID(1), clientID(3)},
		[]int{0, 60},
	)
}

func TestPause_RejectsEnqueueKeepsCalling(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, 2)

	if err := f.service.Pause(context.Background(), f.scope); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	err := f.service.Enqueue(context.Background(), f.scope, &model.QueueEntry{
		ClientID:   clientID(9),
		ServiceIDs: []string{serviceID},
	})
	if !apperrors.HasCode(err, apperrors.CodeQueuePaused) {
		t.Fatalf("expected QUEUE_PAUSED, got %v", err)
	}

	// The paused line drains normally.
	if _, err := f.service.CallNext(context.Background(), f.scope, ""); err != nil {
		t.Fatalf("call next on a paused queue failed: %v", err)
	}
	views, state, err := f.service.List(context.Background(), f.scope, "")
	if err != nil {
		t.Fatalf("list on a paused queue failed: %v", err)
	}
	if !state.Paused {
		t.Error("expected paused state")
	}
	if len(views) != 1 {
		t.Errorf("expected 1 remaining entry, got %d", len(views))
	}

	if err := f.service.Resume(context.Background(), f.scope); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if err := f.service.Enqueue(context.Background(), f.scope, &model.QueueEntry{
		ClientID:   clientID(9),
		ServiceIDs: []string{serviceID},
	}); err != nil {
		t.Fatalf("enqueue after resume failed: %v", err)
	}
}

func TestProfessionalPartitionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	professional := "507f1f77bcf86cd799439012"

	f.enqueue(t, 2)
	narrow := &model.QueueEntry{
		ClientID:       clientID(5),
		ProfessionalID: professional,
		ServiceIDs:     []string{serviceID},
	}
	if err := f.service.Enqueue(context.Background(), f.scope, narrow); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if narrow.Position != 1 {
		t.Errorf("professional partition starts at 1, got %d", narrow.Position)
	}
	views, _, err := f.service.List(context.Background(), f.scope, professional)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 1 || views[0].ETAMinutes != 0 {
		t.Errorf("expected a single fresh entry in the professional partition, got %v", views)
	}
}

func TestList_CorruptedOrderingIsInternalError(t *testing.T) {
	f := newFixture(t)
	entries := f.enqueue(t, 3)

	// Punch a hole in the sequence behind the service's back.
	f.repo.mu.Lock()
	for _, e := range f.repo.entries {
		if e.ID == entries[1].ID {
			e.Position = 7
		}
	}
	f.repo.mu.Unlock()

	_, _, err := f.service.List(context.Background(), f.scope, "")
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR for corrupted ordering, got %v", err)
	}
}

func TestEnqueue_ConcurrentStaysDense(t *testing.T) {
	f := newFixture(t)

	// Both enqueues would read the same tail before either insert if the
	// partition lock did not serialize them.
	f.repo.tailDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e := &model.QueueEntry{
				ClientID:   clientID(n),
				ServiceIDs: []string{serviceID},
			}
			if err := f.service.Enqueue(context.Background(), f.scope, e); err != nil {
				t.Errorf("enqueue %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	views, _, err := f.service.List(context.Background(), f.scope, "")
	if err != nil {
		t.Fatalf("list failed after concurrent enqueues: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 waiting entries, got %d", len(views))
	}
	for i, v := range views {
		if v.Entry.Position != i+1 {
			t.Errorf("entry %d: position %d, want %d", i, v.Entry.Position, i+1)
		}
	}
	if f.locks.acquired != 2 {
		t.Errorf("expected 2 lock acquisitions, got %d", f.locks.acquired)
	}
	if len(f.locks.held) != 0 {
		t.Error("expected the partition lock to be released")
	}
}

func TestAppointmentCompleted_DropsClientEntry(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, 3)

	err := f.service.AppointmentCompleted(context.Background(), f.scope, &model.Appointment{
		ClientID: clientID(2),
	})
	if err != nil {
		t.Fatalf("completion hook failed: %v", err)
	}

	f.assertLine(t,
		[]string{clientID(1), clientID(3)},
		[]int{0, 60},
	)

	// No queue entry for the client is not an error.
	if err := f.service.AppointmentCompleted(context.Background(), f.scope, &model.Appointment{
		ClientID: clientID(42),
	}); err != nil {
		t.Fatalf("completion hook without entry failed: %v", err)
	}
}

func TestBroadcastOnEveryMutation(t *testing.T) {
	f := newFixture(t)
	entries := f.enqueue(t, 2)

	before := f.broadcaster.updates
	if before != 2 {
		t.Fatalf("expected 2 broadcasts after enqueues, got %d", before)
	}

	if _, err := f.service.CallNext(context.Background(), f.scope, ""); err != nil {
		t.Fatalf("call next failed: %v", err)
	}
	if err := f.service.Remove(context.Background(), f.scope, entries[1].ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if f.broadcaster.updates != before+2 {
		t.Errorf("expected a broadcast per mutation, got %d total", f.broadcaster.updates)
	}
}
