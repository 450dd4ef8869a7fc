package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Foreman/internal/domain"
)

// defaultOrderLimit — лимит выборки orders по умолчанию.
const defaultOrderLimit = 50

// OrderRepo — репозиторий для работы с orders.
type OrderRepo struct {
	pool *pgxpool.Pool
}

// NewOrderRepo создаёт новый OrderRepo.
func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create создаёт новый order.
//
// Возвращает ErrAlreadyExists, если order с той же тройкой
// (runner_id, type, client_request_id) уже существует — уникальный
// индекс закрывает гонку конкурентных дубликатов.
func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, runner_id, type, status, created_at, summary, client_request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.RunnerID,
		order.Type,
		order.Status,
		order.CreatedAt,
		order.Summary,
		nullString(order.ClientRequestID),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID возвращает order по ID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := orderSelect + ` WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, id))
}

// GetByRequestKey возвращает order по ключу идемпотентности.
func (r *OrderRepo) GetByRequestKey(ctx context.Context, runnerID string, orderType domain.OrderType, clientRequestID string) (*domain.Order, error) {
	query := orderSelect + `
		WHERE runner_id = $1 AND type = $2 AND client_request_id = $3
	`
	return scanOrder(r.pool.QueryRow(ctx, query, runnerID, orderType, clientRequestID))
}

// ListByRunner возвращает orders runner'а, новые первыми.
func (r *OrderRepo) ListByRunner(ctx context.Context, runnerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultOrderLimit
	}

	query := orderSelect + `
		WHERE runner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, runnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// ListQueued возвращает orders в статусе queued, старые первыми.
// Используется polling fallback'ом dispatcher'а для подхвата orders,
// оставшихся в очереди после рестарта.
func (r *OrderRepo) ListQueued(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultOrderLimit
	}

	query := orderSelect + `
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.OrderStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// MarkRunning атомарно переводит order из queued в running и ставит
// отметку старта. Compare-and-swap на уровне БД: ровно один из
// конкурентных вызовов получает true, остальные — false (order уже
// взят другим worker'ом или завершён).
func (r *OrderRepo) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := r.pool.Exec(ctx, query,
		id,
		domain.OrderStatusRunning,
		startedAt,
		domain.OrderStatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("mark order running: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Update сохраняет изменённое состояние жизненного цикла order.
// Атомарно для записи: частичные обновления не видны читателям.
func (r *OrderRepo) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, started_at = $3, finished_at = $4,
		    exit_code = $5, summary = $6, evidence_id = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		order.ID,
		order.Status,
		order.StartedAt,
		order.FinishedAt,
		order.ExitCode,
		order.Summary,
		order.EvidenceID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const orderSelect = `
	SELECT id, runner_id, type, status, created_at, started_at, finished_at,
	       exit_code, summary, evidence_id, client_request_id
	FROM orders`

// scanOrder сканирует одну строку в Order.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var summary, clientRequestID *string

	err := row.Scan(
		&order.ID,
		&order.RunnerID,
		&order.Type,
		&order.Status,
		&order.CreatedAt,
		&order.StartedAt,
		&order.FinishedAt,
		&order.ExitCode,
		&summary,
		&order.EvidenceID,
		&clientRequestID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if summary != nil {
		order.Summary = *summary
	}
	if clientRequestID != nil {
		order.ClientRequestID = *clientRequestID
	}

	return &order, nil
}
