package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/repo"
)

// Seed-runner по умолчанию: единственный локальный агент,
// создаваемый при первом запуске на пустой БД.
const (
	seedRunnerID   = "r_local"
	seedRunnerName = "local-runner"
)

// RunnerStore — операции с runners, нужные реестру.
type RunnerStore interface {
	Create(ctx context.Context, runner *domain.Runner) error
	GetByID(ctx context.Context, id string) (*domain.Runner, error)
	List(ctx context.Context) ([]domain.Runner, error)
	Count(ctx context.Context) (int, error)
	Touch(ctx context.Context, id string, seenAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// RunnerView — runner вместе с вычисленным на момент чтения
// статусом liveness. Online нигде не хранится.
type RunnerView struct {
	domain.Runner
	Online bool
}

// Registry — реестр runner'ов.
//
// Отвечает за регистрацию, heartbeat'ы и чтение runner'ов с liveness,
// вычисляемым заново при каждом обращении: runner online, если
// now − lastSeenAt < 2×ttl.
type Registry struct {
	runners RunnerStore
	logger  *slog.Logger
	now     func() time.Time
}

// Config — конфигурация Registry.
type Config struct {
	Runners RunnerStore

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Registry.
func New(cfg Config) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		runners: cfg.Runners,
		logger:  logger,
		now:     now,
	}
}

// Register регистрирует нового runner'а.
//
// ttlSeconds <= 0 заменяется дефолтом. Регистрация — это и первый
// признак жизни: lastSeenAt ставится в момент регистрации.
func (r *Registry) Register(ctx context.Context, id, name string, ttlSeconds int, labels map[string]string) (*domain.Runner, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidRunner)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidRunner)
	}
	if ttlSeconds <= 0 {
		ttlSeconds = domain.DefaultTTLSeconds
	}

	now := r.now()
	runner := &domain.Runner{
		ID:         id,
		Name:       name,
		CreatedAt:  now,
		LastSeenAt: now,
		TTLSeconds: ttlSeconds,
		Labels:     labels,
	}

	if err := r.runners.Create(ctx, runner); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrRunnerExists, id)
		}
		return nil, fmt.Errorf("create runner: %w", err)
	}

	r.logger.Info("runner registered",
		"runner_id", id,
		"name", name,
		"ttl_seconds", ttlSeconds,
	)
	return runner, nil
}

// Deregister удаляет runner'а из реестра.
//
// Orders и evidence runner'а остаются в истории.
func (r *Registry) Deregister(ctx context.Context, id string) error {
	if err := r.runners.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunnerNotFound, id)
		}
		return fmt.Errorf("delete runner: %w", err)
	}

	r.logger.Info("runner deregistered", "runner_id", id)
	return nil
}

// Heartbeat фиксирует признак жизни runner'а.
//
// Возвращает момент, записанный как lastSeenAt. Отметка монотонна:
// запаздывший heartbeat не откатывает lastSeenAt назад.
func (r *Registry) Heartbeat(ctx context.Context, id string) (time.Time, error) {
	seenAt := r.now()
	if err := r.runners.Touch(ctx, id, seenAt); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrRunnerNotFound, id)
		}
		return time.Time{}, fmt.Errorf("touch runner: %w", err)
	}
	return seenAt, nil
}

// Get возвращает runner'а со свежевычисленным liveness.
func (r *Registry) Get(ctx context.Context, id string) (*RunnerView, error) {
	runner, err := r.runners.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunnerNotFound, id)
		}
		return nil, fmt.Errorf("load runner: %w", err)
	}

	return &RunnerView{Runner: *runner, Online: runner.OnlineAt(r.now())}, nil
}

// List возвращает всех runner'ов со свежевычисленным liveness.
func (r *Registry) List(ctx context.Context) ([]RunnerView, error) {
	runners, err := r.runners.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runners: %w", err)
	}

	now := r.now()
	views := make([]RunnerView, 0, len(runners))
	for i := range runners {
		views = append(views, RunnerView{
			Runner: runners[i],
			Online: runners[i].OnlineAt(now),
		})
	}
	return views, nil
}

// Bootstrap — идемпотентный посев реестра при старте процесса.
//
// На пустом реестре создаёт локального runner'а по умолчанию;
// на непустом не делает ничего. Вызывается ровно один раз из main,
// до открытия HTTP-слушателя.
func (r *Registry) Bootstrap(ctx context.Context) error {
	count, err := r.runners.Count(ctx)
	if err != nil {
		return fmt.Errorf("count runners: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := r.now()
	seed := &domain.Runner{
		ID:         seedRunnerID,
		Name:       seedRunnerName,
		CreatedAt:  now,
		LastSeenAt: now,
		TTLSeconds: domain.DefaultTTLSeconds,
	}
	if err := r.runners.Create(ctx, seed); err != nil {
		// Конкурентный старт второго экземпляра уже посеял.
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("seed runner: %w", err)
	}

	r.logger.Info("registry seeded with default runner", "runner_id", seedRunnerID)
	return nil
}
