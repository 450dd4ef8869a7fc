package dispatcher

import (
	"context"
	"log/slog"
	"sync"
)

// Default pool configuration values.
const (
	defaultPoolWorkers = 4
	defaultPoolBacklog = 64
)

// Job — единица работы для pool'а.
type Job func(ctx context.Context)

// Pool — ограниченный worker pool для выполнения orders.
//
// Фиксированное число worker-горутин потребляет задачи из буферизованного
// backlog-канала. Заполненный backlog — ErrBacklogFull: вызывающая сторона
// решает, что делать с отказом (order остаётся queued и будет подхвачен
// polling fallback'ом).
type Pool struct {
	workers int
	backlog chan Job

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	stopped   bool
	stoppedMu sync.RWMutex
}

// PoolConfig — конфигурация Pool.
type PoolConfig struct {
	// Workers — число worker-горутин (default: 4).
	Workers int

	// Backlog — ёмкость очереди задач (default: 64).
	Backlog int

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// NewPool создаёт новый Pool.
func NewPool(cfg PoolConfig) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultPoolWorkers
	}

	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = defaultPoolBacklog
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		workers: workers,
		backlog: make(chan Job, backlog),
		logger:  logger,
	}
}

// Start запускает worker-горутины.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.workLoop(ctx)
		}()
	}

	p.logger.Info("worker pool started",
		"workers", p.workers,
		"backlog", cap(p.backlog),
	)
}

// Stop останавливает Pool.
//
// Новые задачи не принимаются; уже начатые задачи дорабатывают
// до отмены контекста.
func (p *Pool) Stop() {
	p.stoppedMu.Lock()
	if p.stopped {
		p.stoppedMu.Unlock()
		return
	}
	p.stopped = true
	p.stoppedMu.Unlock()

	close(p.backlog)

	if p.cancelFunc != nil {
		p.cancelFunc()
	}

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Enqueue ставит задачу в backlog.
//
// Не блокирует: при заполненном backlog возвращает ErrBacklogFull,
// после Stop — ErrPoolStopped.
func (p *Pool) Enqueue(job Job) error {
	p.stoppedMu.RLock()
	defer p.stoppedMu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.backlog <- job:
		return nil
	default:
		return ErrBacklogFull
	}
}

// workLoop — цикл одной worker-горутины.
func (p *Pool) workLoop(ctx context.Context) {
	for job := range p.backlog {
		if ctx.Err() != nil {
			return
		}
		job(ctx)
	}
}
