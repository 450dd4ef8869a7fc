package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newQueuedOrder() *Order {
	return &Order{
		ID:        uuid.New(),
		RunnerID:  "r_test",
		Type:      OrderTypeSelfTest,
		Status:    OrderStatusQueued,
		CreatedAt: time.Now(),
	}
}

func TestOrderStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusQueued, OrderStatusRunning, true},
		{OrderStatusQueued, OrderStatusSucceeded, false},
		{OrderStatusQueued, OrderStatusFailed, false},
		{OrderStatusRunning, OrderStatusSucceeded, true},
		{OrderStatusRunning, OrderStatusFailed, true},
		{OrderStatusRunning, OrderStatusQueued, false},
		{OrderStatusSucceeded, OrderStatusRunning, false},
		{OrderStatusSucceeded, OrderStatusFailed, false},
		{OrderStatusFailed, OrderStatusRunning, false},
		{OrderStatusFailed, OrderStatusSucceeded, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestOrderStatus_Transition_Illegal(t *testing.T) {
	err := OrderStatusSucceeded.Transition(OrderStatusRunning)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestOrder_MarkRunning(t *testing.T) {
	order := newQueuedOrder()
	now := time.Now()

	if err := order.MarkRunning(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != OrderStatusRunning {
		t.Errorf("expected status running, got %s", order.Status)
	}
	if order.StartedAt == nil || !order.StartedAt.Equal(now) {
		t.Error("StartedAt should be stamped")
	}
}

func TestOrder_Lifecycle_Succeeded(t *testing.T) {
	order := newQueuedOrder()
	evidenceID := uuid.New()

	start := time.Now()
	if err := order.MarkRunning(start); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	finish := start.Add(2 * time.Second)
	if err := order.MarkSucceeded(finish, ExitCodeOK, evidenceID, "checks passed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !order.IsFinished() {
		t.Error("order should be finished")
	}
	if order.ExitCode == nil || *order.ExitCode != ExitCodeOK {
		t.Error("exit code should be 0")
	}
	if order.EvidenceID == nil || *order.EvidenceID != evidenceID {
		t.Error("evidence pointer should be set")
	}
	if order.Duration() != 2*time.Second {
		t.Errorf("expected duration 2s, got %s", order.Duration())
	}
}

func TestOrder_MarkFailed_WithoutEvidence(t *testing.T) {
	order := newQueuedOrder()
	_ = order.MarkRunning(time.Now())

	// Внутренняя ошибка до захвата вывода: evidence нет.
	if err := order.MarkFailed(time.Now(), ExitCodeInternal, nil, "internal executor error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != OrderStatusFailed {
		t.Errorf("expected status failed, got %s", order.Status)
	}
	if order.ExitCode == nil || *order.ExitCode != ExitCodeInternal {
		t.Error("exit code should be the infrastructure sentinel")
	}
	if order.EvidenceID != nil {
		t.Error("evidence pointer should stay nil")
	}
}

func TestOrder_NoEscapeFromTerminal(t *testing.T) {
	order := newQueuedOrder()
	_ = order.MarkRunning(time.Now())
	_ = order.MarkFailed(time.Now(), ExitCodeCheckFailed, nil, "checks failed")

	if err := order.MarkRunning(time.Now()); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
	if err := order.MarkSucceeded(time.Now(), 0, uuid.New(), "x"); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
	if order.Status != OrderStatusFailed {
		t.Error("terminal status must not change")
	}
}

func TestOrder_SkipRunningForbidden(t *testing.T) {
	order := newQueuedOrder()

	err := order.MarkSucceeded(time.Now(), 0, uuid.New(), "x")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("queued order must not jump to terminal state, got %v", err)
	}
}

func TestOrderType_IsValid(t *testing.T) {
	if !OrderTypeSelfTest.IsValid() || !OrderTypeReconcile.IsValid() {
		t.Error("known types should be valid")
	}
	if OrderType("runner.unknown").IsValid() {
		t.Error("unknown type should be invalid")
	}
}
