package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/repo"
)

// --- In-memory fakes ---

type memOrders struct {
	mu             sync.Mutex
	orders         map[uuid.UUID]*domain.Order
	forceConflict  bool
	missNextLookup bool
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *memOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceConflict {
		return repo.ErrAlreadyExists
	}
	if order.ClientRequestID != "" {
		for _, existing := range m.orders {
			if existing.RunnerID == order.RunnerID &&
				existing.Type == order.Type &&
				existing.ClientRequestID == order.ClientRequestID {
				return repo.ErrAlreadyExists
			}
		}
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *memOrders) GetByRequestKey(_ context.Context, runnerID string, orderType domain.OrderType, clientRequestID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missNextLookup {
		m.missNextLookup = false
		return nil, repo.ErrNotFound
	}
	for _, order := range m.orders {
		if order.RunnerID == runnerID && order.Type == orderType && order.ClientRequestID == clientRequestID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memOrders) ListQueued(_ context.Context, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if order.Status == domain.OrderStatusQueued && len(out) < limit {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memRunners struct {
	runners map[string]*domain.Runner
}

func (m *memRunners) GetByID(_ context.Context, id string) (*domain.Runner, error) {
	runner, ok := m.runners[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return runner, nil
}

type recordingExecutor struct {
	mu       sync.Mutex
	executed []uuid.UUID
	notify   chan uuid.UUID
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{notify: make(chan uuid.UUID, 16)}
}

func (r *recordingExecutor) Execute(_ context.Context, orderID uuid.UUID) {
	r.mu.Lock()
	r.executed = append(r.executed, orderID)
	r.mu.Unlock()
	r.notify <- orderID
}

func (r *recordingExecutor) wait(t *testing.T) uuid.UUID {
	t.Helper()
	select {
	case id := <-r.notify:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for execution")
		return uuid.Nil
	}
}

func (r *recordingExecutor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.executed)
}

// --- Helpers ---

func newTestDispatcher(t *testing.T, orders *memOrders) (*Dispatcher, *recordingExecutor) {
	t.Helper()
	exec := newRecordingExecutor()
	d := New(Config{
		Orders: orders,
		Runners: &memRunners{runners: map[string]*domain.Runner{
			"r1": {ID: "r1", Name: "runner one", TTLSeconds: 60},
		}},
		Executor:     exec,
		Pool:         NewPool(PoolConfig{Workers: 2, Backlog: 8}),
		PollInterval: time.Hour, // в тестах poll только стартовый
	})
	return d, exec
}

// --- Tests ---

func TestSubmit_CreatesAndExecutes(t *testing.T) {
	orders := newMemOrders()
	d, exec := newTestDispatcher(t, orders)
	d.Start(context.Background())
	defer d.Stop()

	order, created, err := d.Submit(context.Background(), "r1", "runner.selftest", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	if order.Status != domain.OrderStatusQueued {
		t.Errorf("new order should be queued, got %s", order.Status)
	}
	if order.Summary != "queued for execution" {
		t.Errorf("unexpected summary %q", order.Summary)
	}

	if got := exec.wait(t); got != order.ID {
		t.Errorf("executed wrong order: %s", got)
	}
}

func TestSubmit_InvalidType(t *testing.T) {
	d, _ := newTestDispatcher(t, newMemOrders())

	_, _, err := d.Submit(context.Background(), "r1", "runner.explode", "")
	if !errors.Is(err, ErrInvalidOrderType) {
		t.Errorf("expected ErrInvalidOrderType, got %v", err)
	}
}

func TestSubmit_UnknownRunner(t *testing.T) {
	d, _ := newTestDispatcher(t, newMemOrders())

	_, _, err := d.Submit(context.Background(), "ghost", "runner.selftest", "")
	if !errors.Is(err, ErrRunnerNotFound) {
		t.Errorf("expected ErrRunnerNotFound, got %v", err)
	}
}

func TestSubmit_ReplayByClientRequestID(t *testing.T) {
	orders := newMemOrders()
	d, exec := newTestDispatcher(t, orders)
	d.Start(context.Background())
	defer d.Stop()

	first, created, err := d.Submit(context.Background(), "r1", "runner.selftest", "req-42")
	if err != nil || !created {
		t.Fatalf("first submit: created=%v err=%v", created, err)
	}
	exec.wait(t)

	second, created, err := d.Submit(context.Background(), "r1", "runner.selftest", "req-42")
	if err != nil {
		t.Fatalf("replay submit: %v", err)
	}
	if created {
		t.Error("replay must report created=false")
	}
	if second.ID != first.ID {
		t.Errorf("replay returned different order: %s vs %s", second.ID, first.ID)
	}

	if orders.count() != 1 {
		t.Errorf("expected 1 stored order, got %d", orders.count())
	}
	if exec.count() != 1 {
		t.Errorf("replay must not enqueue execution, got %d executions", exec.count())
	}
}

func TestSubmit_ConcurrentDuplicateLosesRace(t *testing.T) {
	orders := newMemOrders()
	d, _ := newTestDispatcher(t, orders)

	winner := &domain.Order{
		ID:              uuid.New(),
		RunnerID:        "r1",
		Type:            domain.OrderTypeSelfTest,
		Status:          domain.OrderStatusQueued,
		CreatedAt:       time.Now(),
		ClientRequestID: "req-7",
	}
	orders.orders[winner.ID] = winner

	// Проигравший INSERT: SELECT до вставки промахнулся, индекс — нет.
	orders.forceConflict = true
	orders.missNextLookup = true

	got, created, err := d.Submit(context.Background(), "r1", "runner.selftest", "req-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("duplicate loser must report created=false")
	}
	if got.ID != winner.ID {
		t.Errorf("expected winner order, got %s", got.ID)
	}
}

func TestSubmit_NoRequestIDAlwaysCreates(t *testing.T) {
	orders := newMemOrders()
	d, exec := newTestDispatcher(t, orders)
	d.Start(context.Background())
	defer d.Stop()

	first, _, err := d.Submit(context.Background(), "r1", "runner.reconcile", "")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := d.Submit(context.Background(), "r1", "runner.reconcile", "")
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Error("orders without client_request_id must be distinct")
	}
	exec.wait(t)
	exec.wait(t)
}

func TestPoll_PicksUpLeftoverQueuedOrders(t *testing.T) {
	orders := newMemOrders()
	leftover := &domain.Order{
		ID:        uuid.New(),
		RunnerID:  "r1",
		Type:      domain.OrderTypeSelfTest,
		Status:    domain.OrderStatusQueued,
		CreatedAt: time.Now(),
	}
	orders.orders[leftover.ID] = leftover

	d, exec := newTestDispatcher(t, orders)
	d.Start(context.Background())
	defer d.Stop()

	if got := exec.wait(t); got != leftover.ID {
		t.Errorf("expected leftover order picked up, got %s", got)
	}
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, Backlog: 1})
	pool.Start(context.Background())
	pool.Stop()

	err := pool.Enqueue(func(context.Context) {})
	if !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

func TestPool_BacklogFull(t *testing.T) {
	// Pool не запущен: backlog некому разгружать.
	pool := NewPool(PoolConfig{Workers: 1, Backlog: 1})

	if err := pool.Enqueue(func(context.Context) {}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	err := pool.Enqueue(func(context.Context) {})
	if !errors.Is(err, ErrBacklogFull) {
		t.Errorf("expected ErrBacklogFull, got %v", err)
	}
}
