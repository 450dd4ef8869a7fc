package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/registry"
	"github.com/shaiso/Foreman/internal/repo"
)

// Registry — операции реестра runner'ов, нужные API.
type Registry interface {
	Register(ctx context.Context, id, name string, ttlSeconds int, labels map[string]string) (*domain.Runner, error)
	Deregister(ctx context.Context, id string) error
	Heartbeat(ctx context.Context, id string) (time.Time, error)
	Get(ctx context.Context, id string) (*registry.RunnerView, error)
	List(ctx context.Context) ([]registry.RunnerView, error)
}

// Submitter принимает orders на выполнение.
// Реализуется dispatcher'ом.
type Submitter interface {
	Submit(ctx context.Context, runnerID, orderType, clientRequestID string) (*domain.Order, bool, error)
}

// OrderReader — чтение orders.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByRunner(ctx context.Context, runnerID string, limit int) ([]domain.Order, error)
}

// EvidenceReader — чтение evidence.
type EvidenceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Evidence, error)
	List(ctx context.Context, filter repo.EvidenceFilter) ([]domain.Evidence, error)
}

// FactsReader — чтение facts.
type FactsReader interface {
	LatestByRunner(ctx context.Context, runnerID string) (*domain.Facts, error)
	ListByRunner(ctx context.Context, runnerID string, limit int) ([]domain.Facts, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry  Registry
	submitter Submitter
	orders    OrderReader
	evidences EvidenceReader
	facts     FactsReader
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Registry  Registry
	Submitter Submitter
	Orders    OrderReader
	Evidences EvidenceReader
	Facts     FactsReader
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		registry:  cfg.Registry,
		submitter: cfg.Submitter,
		orders:    cfg.Orders,
		evidences: cfg.Evidences,
		facts:     cfg.Facts,
		logger:    logger,
	}
}
