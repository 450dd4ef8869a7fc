package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Foreman/internal/domain"
)

// FactsRepo — репозиторий для работы с facts.
// Facts — append-only история: записи не обновляются и не удаляются.
type FactsRepo struct {
	pool *pgxpool.Pool
}

// NewFactsRepo создаёт новый FactsRepo.
func NewFactsRepo(pool *pgxpool.Pool) *FactsRepo {
	return &FactsRepo{pool: pool}
}

// Create создаёт запись facts.
func (r *FactsRepo) Create(ctx context.Context, facts *domain.Facts) error {
	checksJSON, err := json.Marshal(facts.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}
	rawJSON, err := json.Marshal(facts.Raw)
	if err != nil {
		return fmt.Errorf("marshal raw payload: %w", err)
	}

	query := `
		INSERT INTO facts (id, component, runner_id, order_id, evidence_id, checked_at, checks, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		facts.ID,
		facts.Component,
		facts.RunnerID,
		facts.OrderID,
		facts.EvidenceID,
		facts.CheckedAt,
		checksJSON,
		rawJSON,
	)
	if err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}
	return nil
}

// LatestByRunner возвращает самую свежую запись facts runner'а.
func (r *FactsRepo) LatestByRunner(ctx context.Context, runnerID string) (*domain.Facts, error) {
	query := factsSelect + `
		WHERE runner_id = $1
		ORDER BY checked_at DESC
		LIMIT 1
	`
	return scanFacts(r.pool.QueryRow(ctx, query, runnerID))
}

// ListByRunner возвращает историю facts runner'а, новые первыми.
func (r *FactsRepo) ListByRunner(ctx context.Context, runnerID string, limit int) ([]domain.Facts, error) {
	if limit <= 0 {
		limit = defaultOrderLimit
	}

	query := factsSelect + `
		WHERE runner_id = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, runnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var list []domain.Facts
	for rows.Next() {
		facts, err := scanFacts(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *facts)
	}
	return list, rows.Err()
}

const factsSelect = `
	SELECT id, component, runner_id, order_id, evidence_id, checked_at, checks, raw
	FROM facts`

// scanFacts сканирует одну строку в Facts.
func scanFacts(row pgx.Row) (*domain.Facts, error) {
	var facts domain.Facts
	var checksJSON, rawJSON []byte

	err := row.Scan(
		&facts.ID,
		&facts.Component,
		&facts.RunnerID,
		&facts.OrderID,
		&facts.EvidenceID,
		&facts.CheckedAt,
		&checksJSON,
		&rawJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan facts: %w", err)
	}

	if checksJSON != nil {
		if err := json.Unmarshal(checksJSON, &facts.Checks); err != nil {
			return nil, fmt.Errorf("unmarshal checks: %w", err)
		}
	}
	if rawJSON != nil {
		if err := json.Unmarshal(rawJSON, &facts.Raw); err != nil {
			return nil, fmt.Errorf("unmarshal raw payload: %w", err)
		}
	}

	return &facts, nil
}
