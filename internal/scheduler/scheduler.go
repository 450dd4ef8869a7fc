package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/registry"
)

// RunnerLister — чтение runner'ов с liveness.
type RunnerLister interface {
	List(ctx context.Context) ([]registry.RunnerView, error)
}

// OrderSubmitter принимает orders на выполнение.
// Реализуется dispatcher'ом.
type OrderSubmitter interface {
	Submit(ctx context.Context, runnerID, orderType, clientRequestID string) (*domain.Order, bool, error)
}

// Scheduler периодически создаёт reconcile orders для online runner'ов.
//
// Каждое срабатывание cron-расписания порождает не больше одного
// reconcile order на runner: ключ идемпотентности —
// "{runner_id}_{due_at_unix}", так что перезапуск процесса или
// конкурентный экземпляр не создают дубликатов.
type Scheduler struct {
	runners   RunnerLister
	submitter OrderSubmitter
	schedule  cron.Schedule

	logger     *slog.Logger
	now        func() time.Time
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	Runners   RunnerLister
	Submitter OrderSubmitter

	// CronExpr — cron-выражение расписания (default: каждые 5 минут).
	CronExpr string

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	expr := cfg.CronExpr
	if expr == "" {
		expr = DefaultCronExpr
	}
	schedule, err := ParseCronExpr(expr)
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		runners:   cfg.Runners,
		submitter: cfg.Submitter,
		schedule:  schedule,
		logger:    logger,
		now:       now,
	}, nil
}

// Start запускает цикл планировщика.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	s.logger.Info("scheduler started")
}

// Stop останавливает Scheduler.
func (s *Scheduler) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// loop спит до следующего срабатывания расписания и выполняет Tick.
func (s *Scheduler) loop(ctx context.Context) {
	for {
		dueAt := NextDue(s.schedule, s.now())
		timer := time.NewTimer(dueAt.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := s.Tick(ctx, dueAt); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick создаёт reconcile orders для всех online runner'ов.
//
// Ошибка одного runner'а не блокирует остальных. dueAt участвует
// в ключе идемпотентности: повторный Tick с тем же dueAt — replay.
func (s *Scheduler) Tick(ctx context.Context, dueAt time.Time) error {
	views, err := s.runners.List(ctx)
	if err != nil {
		return fmt.Errorf("list runners: %w", err)
	}

	var submitted, replayed int
	for i := range views {
		runner := &views[i]
		if !runner.Online {
			continue
		}

		key := fmt.Sprintf("%s_%d", runner.ID, dueAt.Unix())
		order, created, err := s.submitter.Submit(ctx, runner.ID, string(domain.OrderTypeReconcile), key)
		if err != nil {
			s.logger.Error("failed to submit reconcile order",
				"runner_id", runner.ID,
				"error", err,
			)
			continue
		}

		if created {
			submitted++
			s.logger.Debug("reconcile order submitted",
				"runner_id", runner.ID,
				"order_id", order.ID,
			)
		} else {
			replayed++
		}
	}

	s.logger.Info("scheduler tick completed",
		"runners", len(views),
		"submitted", submitted,
		"replayed", replayed,
	)
	return nil
}
