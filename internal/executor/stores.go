package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
)

// Интерфейсы хранилищ, которые нужны Executor'у.
// Реализуются репозиториями пакета repo; в тестах — in-memory фейками.

// OrderStore — чтение и обновление orders.
//
// MarkRunning — атомарный compare-and-swap queued→running: ровно один
// из конкурентных вызовов на один order получает true.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error)
	Update(ctx context.Context, order *domain.Order) error
}

// EvidenceStore — вставка evidences.
type EvidenceStore interface {
	Create(ctx context.Context, ev *domain.Evidence) error
}

// FactsStore — вставка facts.
type FactsStore interface {
	Create(ctx context.Context, facts *domain.Facts) error
}

// RunnerStore — обновление liveness и facts-указателя runner'а.
type RunnerStore interface {
	Touch(ctx context.Context, id string, seenAt time.Time) error
	SetFactsRef(ctx context.Context, id string, ref *domain.FactsRef) error
}
