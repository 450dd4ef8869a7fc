package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/repo"
	"github.com/shaiso/Foreman/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
)

// summaryQueued — начальный summary нового order.
const summaryQueued = "queued for execution"

// OrderStore — операции с orders, нужные dispatcher'у.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByRequestKey(ctx context.Context, runnerID string, orderType domain.OrderType, clientRequestID string) (*domain.Order, error)
	ListQueued(ctx context.Context, limit int) ([]domain.Order, error)
}

// RunnerGetter — проверка существования runner'а.
type RunnerGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Runner, error)
}

// OrderExecutor выполняет один order до терминального статуса.
type OrderExecutor interface {
	Execute(ctx context.Context, orderID uuid.UUID)
}

// Dispatcher принимает orders и доводит их до выполнения.
//
// Dispatcher отвечает за:
//   - Валидацию и идемпотентное создание orders (client_request_id)
//   - Постановку каждого нового order в ограниченный worker pool
//   - Polling fallback: подхват queued orders, не попавших в pool
//     (переполненный backlog, рестарт процесса)
//
// Ровно одна постановка в pool на каждый созданный order; гонку
// конкурентных дубликатов закрывает уникальный индекс в БД.
type Dispatcher struct {
	orders   OrderStore
	runners  RunnerGetter
	executor OrderExecutor
	pool     *Pool

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	now        func() time.Time
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Dispatcher.
type Config struct {
	Orders   OrderStore
	Runners  RunnerGetter
	Executor OrderExecutor

	// Pool — worker pool (default: NewPool с дефолтами).
	Pool *Pool

	// PollInterval — интервал polling fallback (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество orders за один poll (default: 50).
	BatchSize int

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := cfg.Pool
	if pool == nil {
		pool = NewPool(PoolConfig{Logger: logger})
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		orders:       cfg.Orders,
		runners:      cfg.Runners,
		executor:     cfg.Executor,
		pool:         pool,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
		now:          now,
	}
}

// Start запускает worker pool и polling fallback.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancelFunc = cancel

	d.pool.Start(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pollLoop(ctx)
	}()

	d.logger.Info("dispatcher started",
		"poll_interval", d.pollInterval,
		"batch_size", d.batchSize,
	)
}

// Stop останавливает Dispatcher.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher...")

	if d.cancelFunc != nil {
		d.cancelFunc()
	}
	d.wg.Wait()
	d.pool.Stop()

	d.logger.Info("dispatcher stopped")
}

// Submit принимает order на выполнение.
//
// Возвращает order и признак created: true — order создан и поставлен
// в очередь, false — повтор по client_request_id, возвращён существующий
// order без побочных эффектов.
func (d *Dispatcher) Submit(ctx context.Context, runnerID, orderType, clientRequestID string) (*domain.Order, bool, error) {
	typ := domain.OrderType(orderType)
	if !typ.IsValid() {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidOrderType, orderType)
	}

	if _, err := d.runners.GetByID(ctx, runnerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: %s", ErrRunnerNotFound, runnerID)
		}
		return nil, false, fmt.Errorf("load runner: %w", err)
	}

	// Быстрый путь идемпотентности: повтор до обращения к INSERT.
	if clientRequestID != "" {
		existing, err := d.orders.GetByRequestKey(ctx, runnerID, typ, clientRequestID)
		if err == nil {
			telemetry.OrdersReplayed.Inc()
			d.logger.Debug("order replayed",
				"order_id", existing.ID,
				"client_request_id", clientRequestID,
			)
			return existing, false, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, false, fmt.Errorf("lookup order by request key: %w", err)
		}
	}

	order := &domain.Order{
		ID:              uuid.New(),
		RunnerID:        runnerID,
		Type:            typ,
		Status:          domain.OrderStatusQueued,
		CreatedAt:       d.now(),
		Summary:         summaryQueued,
		ClientRequestID: clientRequestID,
	}

	if err := d.orders.Create(ctx, order); err != nil {
		// Конкурентный дубликат проиграл гонку за уникальный индекс:
		// возвращаем победителя.
		if errors.Is(err, repo.ErrAlreadyExists) && clientRequestID != "" {
			existing, lookupErr := d.orders.GetByRequestKey(ctx, runnerID, typ, clientRequestID)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("lookup order after duplicate insert: %w", lookupErr)
			}
			telemetry.OrdersReplayed.Inc()
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create order: %w", err)
	}

	telemetry.OrdersSubmitted.WithLabelValues(string(typ)).Inc()
	d.logger.Info("order submitted",
		"order_id", order.ID,
		"runner_id", runnerID,
		"type", typ,
	)

	d.enqueue(order.ID)
	return order, true, nil
}

// enqueue ставит выполнение order в pool. Переполненный backlog —
// не ошибка создания: order остаётся queued до ближайшего poll.
func (d *Dispatcher) enqueue(orderID uuid.UUID) {
	job := func(ctx context.Context) {
		d.executor.Execute(ctx, orderID)
	}
	if err := d.pool.Enqueue(job); err != nil {
		d.logger.Warn("failed to enqueue order, leaving queued",
			"order_id", orderID,
			"error", err,
		)
	}
}

// pollLoop — цикл polling fallback.
func (d *Dispatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем orders,
	// оставшиеся queued с прошлого запуска.
	d.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (d *Dispatcher) poll(ctx context.Context) {
	orders, err := d.orders.ListQueued(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("failed to list queued orders", "error", err)
		return
	}

	if len(orders) == 0 {
		return
	}

	d.logger.Debug("poll found queued orders", "count", len(orders))

	for i := range orders {
		d.enqueue(orders[i].ID)
	}
}
