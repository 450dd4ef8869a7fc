package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Foreman/internal/domain"
)

// EvidenceRepo — репозиторий для работы с evidences.
// Evidence неизменяем: есть только вставка и чтение.
type EvidenceRepo struct {
	pool *pgxpool.Pool
}

// NewEvidenceRepo создаёт новый EvidenceRepo.
func NewEvidenceRepo(pool *pgxpool.Pool) *EvidenceRepo {
	return &EvidenceRepo{pool: pool}
}

// Create создаёт запись evidence.
func (r *EvidenceRepo) Create(ctx context.Context, ev *domain.Evidence) error {
	query := `
		INSERT INTO evidences (id, runner_id, order_id, created_at, stdout, stderr, exit_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		ev.ID,
		ev.RunnerID,
		ev.OrderID,
		ev.CreatedAt,
		ev.Stdout,
		ev.Stderr,
		ev.ExitCode,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// GetByID возвращает evidence по ID.
func (r *EvidenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	query := evidenceSelect + ` WHERE id = $1`
	return scanEvidence(r.pool.QueryRow(ctx, query, id))
}

// EvidenceFilter — параметры выборки evidences.
// Фильтр по order имеет приоритет над фильтром по runner.
type EvidenceFilter struct {
	RunnerID string
	OrderID  *uuid.UUID
	Limit    int
}

// List возвращает evidences по фильтру, новые первыми.
func (r *EvidenceRepo) List(ctx context.Context, filter EvidenceFilter) ([]domain.Evidence, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderLimit
	}

	query := evidenceSelect + `
		WHERE ($1::uuid IS NULL OR order_id = $1)
		  AND ($2::text IS NULL OR runner_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, filter.OrderID, nullString(filter.RunnerID), limit)
	if err != nil {
		return nil, fmt.Errorf("list evidences: %w", err)
	}
	defer rows.Close()

	var evidences []domain.Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		evidences = append(evidences, *ev)
	}
	return evidences, rows.Err()
}

const evidenceSelect = `
	SELECT id, runner_id, order_id, created_at, stdout, stderr, exit_code
	FROM evidences`

// scanEvidence сканирует одну строку в Evidence.
func scanEvidence(row pgx.Row) (*domain.Evidence, error) {
	var ev domain.Evidence

	err := row.Scan(
		&ev.ID,
		&ev.RunnerID,
		&ev.OrderID,
		&ev.CreatedAt,
		&ev.Stdout,
		&ev.Stderr,
		&ev.ExitCode,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan evidence: %w", err)
	}

	return &ev, nil
}
