package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Foreman/internal/domain"
)

// RunnerRepo — репозиторий для работы с runners.
type RunnerRepo struct {
	pool *pgxpool.Pool
}

// NewRunnerRepo создаёт новый RunnerRepo.
func NewRunnerRepo(pool *pgxpool.Pool) *RunnerRepo {
	return &RunnerRepo{pool: pool}
}

// Create создаёт нового runner'а.
func (r *RunnerRepo) Create(ctx context.Context, runner *domain.Runner) error {
	labelsJSON, err := json.Marshal(runner.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO runners (id, name, created_at, last_seen_at, ttl_seconds, labels)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		runner.ID,
		runner.Name,
		runner.CreatedAt,
		runner.LastSeenAt,
		runner.TTLSeconds,
		labelsJSON,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert runner: %w", err)
	}
	return nil
}

// GetByID возвращает runner по ID.
func (r *RunnerRepo) GetByID(ctx context.Context, id string) (*domain.Runner, error) {
	query := `
		SELECT id, name, created_at, last_seen_at, ttl_seconds, labels, facts_ref
		FROM runners
		WHERE id = $1
	`
	return scanRunner(r.pool.QueryRow(ctx, query, id))
}

// List возвращает всех runners, самые недавно видевшиеся первыми.
func (r *RunnerRepo) List(ctx context.Context) ([]domain.Runner, error) {
	query := `
		SELECT id, name, created_at, last_seen_at, ttl_seconds, labels, facts_ref
		FROM runners
		ORDER BY last_seen_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runners: %w", err)
	}
	defer rows.Close()

	var runners []domain.Runner
	for rows.Next() {
		runner, err := scanRunner(rows)
		if err != nil {
			return nil, err
		}
		runners = append(runners, *runner)
	}
	return runners, rows.Err()
}

// Count возвращает количество зарегистрированных runners.
func (r *RunnerRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM runners`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runners: %w", err)
	}
	return n, nil
}

// Touch продвигает last_seen_at до seenAt.
// GREATEST сохраняет монотонность при гонке конкурентных обновлений.
func (r *RunnerRepo) Touch(ctx context.Context, id string, seenAt time.Time) error {
	query := `
		UPDATE runners
		SET last_seen_at = GREATEST(last_seen_at, $2)
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, seenAt)
	if err != nil {
		return fmt.Errorf("touch runner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFactsRef обновляет указатель runner'а на последние Facts.
func (r *RunnerRepo) SetFactsRef(ctx context.Context, id string, ref *domain.FactsRef) error {
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal facts ref: %w", err)
	}

	result, err := r.pool.Exec(ctx,
		`UPDATE runners SET facts_ref = $2 WHERE id = $1`, id, refJSON)
	if err != nil {
		return fmt.Errorf("set facts ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет runner'а. Его Orders/Evidence/Facts не каскадируются —
// они остаются как история.
func (r *RunnerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM runners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete runner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanRunner сканирует одну строку в Runner.
func scanRunner(row pgx.Row) (*domain.Runner, error) {
	var runner domain.Runner
	var labelsJSON, refJSON []byte

	err := row.Scan(
		&runner.ID,
		&runner.Name,
		&runner.CreatedAt,
		&runner.LastSeenAt,
		&runner.TTLSeconds,
		&labelsJSON,
		&refJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan runner: %w", err)
	}

	if labelsJSON != nil {
		if err := json.Unmarshal(labelsJSON, &runner.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	if refJSON != nil {
		if err := json.Unmarshal(refJSON, &runner.FactsRef); err != nil {
			return nil, fmt.Errorf("unmarshal facts ref: %w", err)
		}
	}

	return &runner, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
