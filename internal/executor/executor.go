package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/checks"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/repo"
	"github.com/shaiso/Foreman/internal/telemetry"
	"github.com/shaiso/Foreman/internal/trailer"
)

// Терминальные summary.
const (
	summaryChecksPassed  = "checks passed"
	summaryChecksFailed  = "checks failed"
	summaryInternalError = "internal executor error"
)

// Executor выполняет orders.
type Executor struct {
	orders    OrderStore
	evidences EvidenceStore
	facts     FactsStore
	runners   RunnerStore
	checks    *checks.Runner
	logger    *slog.Logger
	now       func() time.Time
}

// Config — конфигурация Executor.
type Config struct {
	Orders    OrderStore
	Evidences EvidenceStore
	Facts     FactsStore
	Runners   RunnerStore

	// Checks — прогонщик проверок (default: checks.New с дефолтами).
	Checks *checks.Runner

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	checksRunner := cfg.Checks
	if checksRunner == nil {
		checksRunner = checks.New(checks.Config{})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		orders:    cfg.Orders,
		evidences: cfg.Evidences,
		facts:     cfg.Facts,
		runners:   cfg.Runners,
		checks:    checksRunner,
		logger:    logger,
		now:       now,
	}
}

// Execute выполняет order с указанным ID.
//
// Вызывается ровно один раз на order, асинхронно относительно запроса,
// который order создал. Никогда не возвращает ошибку: наблюдать её
// уже некому, поэтому любая неожиданная ошибка конвертируется
// в терминальный failed с sentinel exit-кодом.
func (e *Executor) Execute(ctx context.Context, orderID uuid.UUID) {
	logger := telemetry.WithOrderID(e.logger, orderID.String())

	telemetry.ExecutionsInFlight.Inc()
	defer telemetry.ExecutionsInFlight.Dec()

	// Верхнеуровневая страховка: паника тоже обязана оставить order
	// в терминальном статусе.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during order execution", "panic", r)
			e.forceFail(ctx, orderID, logger)
		}
	}()

	if err := e.run(ctx, orderID, logger); err != nil {
		logger.Error("order execution failed internally", "error", err)
		e.forceFail(ctx, orderID, logger)
	}
}

// run — основной путь выполнения.
func (e *Executor) run(ctx context.Context, orderID uuid.UUID, logger *slog.Logger) error {
	// 1. Загружаем order. Отсутствие — не ошибка: ID пришёл из только
	// что завершившегося create, запись могла быть удалена.
	order, err := e.orders.GetByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Debug("order not found, skipping execution")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}

	logger = telemetry.WithRunnerID(logger, order.RunnerID)

	// 2. Забираем order атомарным переходом queued→running в хранилище.
	// Повторная доставка (polling fallback поверх прямого enqueue) —
	// штатная ситуация: проигравший CAS пропускает выполнение, и order
	// никогда не исполняется дважды.
	startedAt := e.now()
	claimed, err := e.orders.MarkRunning(ctx, order.ID, startedAt)
	if err != nil {
		return fmt.Errorf("claim order: %w", err)
	}
	if !claimed {
		logger.Debug("order already claimed or finished, skipping execution")
		return nil
	}

	// Зеркалим выигранный переход в локальной копии.
	if err := order.MarkRunning(startedAt); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	logger.Info("order started", "type", order.Type)

	// 3–5. Прогоняем проверки и синтезируем вывод.
	report := e.checks.Run(ctx, string(order.Type))

	// 6. Сохраняем evidence.
	evidence := &domain.Evidence{
		ID:        uuid.New(),
		RunnerID:  order.RunnerID,
		OrderID:   order.ID,
		CreatedAt: e.now(),
		Stdout:    report.Stdout,
		Stderr:    report.Stderr,
		ExitCode:  report.ExitCode,
	}
	if err := e.evidences.Create(ctx, evidence); err != nil {
		return fmt.Errorf("create evidence: %w", err)
	}

	// 7. Переводим order в терминальный статус.
	finishedAt := e.now()
	if report.Success {
		err = order.MarkSucceeded(finishedAt, report.ExitCode, evidence.ID, summaryChecksPassed)
	} else {
		err = order.MarkFailed(finishedAt, report.ExitCode, &evidence.ID, summaryChecksFailed)
	}
	if err != nil {
		return fmt.Errorf("mark terminal: %w", err)
	}
	if err := e.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order to terminal: %w", err)
	}

	telemetry.OrdersCompleted.WithLabelValues(string(order.Status)).Inc()
	telemetry.OrderDuration.Observe(order.Duration().Seconds())

	logger.Info("order finished",
		"status", order.Status,
		"exit_code", report.ExitCode,
		"duration", order.Duration(),
	)

	// 8. Извлекаем facts из trailer-строки. Order уже терминален:
	// ошибки здесь логируются, но исход не меняют.
	e.harvestFacts(ctx, order, evidence, report, logger)

	// 9. Активность выполнения — сама по себе признак жизни runner'а,
	// независимо от исхода проверок.
	if err := e.runners.Touch(ctx, order.RunnerID, e.now()); err != nil {
		logger.Warn("failed to touch runner liveness", "error", err)
	}

	return nil
}

// harvestFacts извлекает facts-payload из stdout и сохраняет Facts
// вместе с обновлением указателя runner'а.
func (e *Executor) harvestFacts(ctx context.Context, order *domain.Order, evidence *domain.Evidence, report *checks.Report, logger *slog.Logger) {
	payload, ok := trailer.Extract(report.Stdout, checks.MarkerPlatformFacts)
	if !ok {
		return
	}

	// Facts-trailer обязан нести JSON-объект; любое другое значение —
	// шум в выводе, не повод для failed.
	obj, ok := payload.(map[string]any)
	if !ok {
		logger.Debug("facts trailer is not a JSON object, skipping")
		return
	}

	facts := &domain.Facts{
		ID:         uuid.New(),
		Component:  domain.FactsComponentRunner,
		RunnerID:   order.RunnerID,
		OrderID:    &order.ID,
		EvidenceID: &evidence.ID,
		CheckedAt:  e.now(),
		Checks:     report.Checks,
		Raw:        obj,
	}
	if err := e.facts.Create(ctx, facts); err != nil {
		logger.Warn("failed to persist facts", "error", err)
		return
	}

	ref := &domain.FactsRef{
		FactsID:    facts.ID,
		OrderID:    facts.OrderID,
		EvidenceID: facts.EvidenceID,
		CheckedAt:  facts.CheckedAt,
	}
	if err := e.runners.SetFactsRef(ctx, order.RunnerID, ref); err != nil {
		logger.Warn("failed to update runner facts ref", "error", err)
		return
	}

	logger.Debug("facts harvested", "facts_id", facts.ID)
}

// forceFail — терминальная страховка: переводит order в failed
// с инфраструктурным sentinel exit-кодом. Best-effort: если и эта
// запись не удаётся, остаётся только залогировать.
func (e *Executor) forceFail(ctx context.Context, orderID uuid.UUID, logger *slog.Logger) {
	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		logger.Error("terminal safety net: failed to load order", "error", err)
		return
	}
	if order.IsFinished() {
		return
	}

	now := e.now()

	// Order обязан пройти через running по пути к терминалу.
	if order.Status == domain.OrderStatusQueued {
		if err := order.MarkRunning(now); err != nil {
			logger.Error("terminal safety net: mark running", "error", err)
			return
		}
	}
	if err := order.MarkFailed(now, domain.ExitCodeInternal, order.EvidenceID, summaryInternalError); err != nil {
		logger.Error("terminal safety net: mark failed", "error", err)
		return
	}

	if err := e.orders.Update(ctx, order); err != nil {
		logger.Error("terminal safety net: failed to persist failed state", "error", err)
		return
	}

	telemetry.OrdersCompleted.WithLabelValues(string(domain.OrderStatusFailed)).Inc()
	logger.Warn("order force-failed by terminal safety net", "exit_code", domain.ExitCodeInternal)
}
