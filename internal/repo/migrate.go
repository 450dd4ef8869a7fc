package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations — схема БД. Все утверждения идемпотентны, поэтому
// Migrate безопасно вызывать при каждом старте процесса.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runners (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		ttl_seconds  INT NOT NULL DEFAULT 60,
		labels       JSONB NOT NULL DEFAULT '{}',
		facts_ref    JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id                UUID PRIMARY KEY,
		runner_id         TEXT NOT NULL,
		type              TEXT NOT NULL,
		status            TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		started_at        TIMESTAMPTZ,
		finished_at       TIMESTAMPTZ,
		exit_code         INT,
		summary           TEXT,
		evidence_id       UUID,
		client_request_id TEXT
	)`,

	// Контракт идемпотентности: не более одного order на тройку
	// (runner_id, type, client_request_id). Частичный индекс —
	// orders без ключа идемпотентности не дедуплицируются.
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_client_request_key
		ON orders (runner_id, type, client_request_id)
		WHERE client_request_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS orders_runner_created
		ON orders (runner_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS evidences (
		id         UUID PRIMARY KEY,
		runner_id  TEXT NOT NULL,
		order_id   UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		stdout     TEXT NOT NULL DEFAULT '',
		stderr     TEXT NOT NULL DEFAULT '',
		exit_code  INT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS evidences_order ON evidences (order_id)`,
	`CREATE INDEX IF NOT EXISTS evidences_runner_created
		ON evidences (runner_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS facts (
		id          UUID PRIMARY KEY,
		component   TEXT NOT NULL DEFAULT 'runner',
		runner_id   TEXT NOT NULL,
		order_id    UUID,
		evidence_id UUID,
		checked_at  TIMESTAMPTZ NOT NULL,
		checks      JSONB NOT NULL DEFAULT '{}',
		raw         JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS facts_runner_checked
		ON facts (runner_id, checked_at DESC)`,
}

// Migrate применяет схему БД.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
