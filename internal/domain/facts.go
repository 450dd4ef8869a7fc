package domain

import (
	"time"

	"github.com/google/uuid"
)

// FactsComponentRunner — тег компонента для facts, собранных runner'ом.
const FactsComponentRunner = "runner"

// Facts — структурированные наблюдения, извлечённые из вывода order.
//
// Facts — append-only история: FactsRef runner'а указывает на самую
// свежую запись, но старые записи остаются доступными для запросов.
type Facts struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Component — тег компонента-источника (сегодня всегда "runner").
	Component string `json:"component"`

	// RunnerID — runner, к которому относятся наблюдения.
	RunnerID string `json:"runner_id"`

	// OrderID — order-источник. Nil, если facts пришли вне order.
	OrderID *uuid.UUID `json:"order_id,omitempty"`

	// EvidenceID — evidence-источник. Nil, если facts пришли вне order.
	EvidenceID *uuid.UUID `json:"evidence_id,omitempty"`

	// CheckedAt — время сбора наблюдений.
	CheckedAt time.Time `json:"checked_at"`

	// Checks — результаты проверок (имя → прошла/не прошла),
	// например {"filesystem_ok": true, "docker_ok": false}.
	Checks map[string]bool `json:"checks"`

	// Raw — сырой извлечённый JSON payload.
	Raw map[string]any `json:"raw,omitempty"`
}
