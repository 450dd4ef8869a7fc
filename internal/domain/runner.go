package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTLSeconds — TTL heartbeat'а по умолчанию для нового runner'а.
const DefaultTTLSeconds = 60

// Runner — зарегистрированный агент выполнения.
//
// Runner создаётся при первой регистрации (или сидится bootstrap'ом),
// мутируется при каждом завершении order и при явных heartbeat'ах.
// Удаление runner'а не каскадирует: его Orders/Evidence/Facts
// остаются как история.
type Runner struct {
	// ID — идентификатор. Может быть задан клиентом при регистрации
	// или сгенерирован системой.
	ID string `json:"id"`

	// Name — отображаемое имя.
	Name string `json:"name"`

	// CreatedAt — время регистрации.
	CreatedAt time.Time `json:"created_at"`

	// LastSeenAt — последний признак жизни. Монотонно не убывает
	// (кроме редкого clock skew) и является единственным источником
	// истины для liveness.
	LastSeenAt time.Time `json:"last_seen_at"`

	// TTLSeconds — интервал heartbeat'а, на котором строится
	// эвристика liveness.
	TTLSeconds int `json:"ttl_seconds"`

	// Labels — произвольные метки (порядок не имеет значения).
	Labels map[string]string `json:"labels,omitempty"`

	// FactsRef — слабая ссылка на последнюю запись Facts.
	// Nil, пока для runner'а не извлечены facts.
	FactsRef *FactsRef `json:"facts_ref,omitempty"`
}

// FactsRef — указатель на последние Facts runner'а.
type FactsRef struct {
	FactsID    uuid.UUID  `json:"facts_id"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	EvidenceID *uuid.UUID `json:"evidence_id,omitempty"`
	CheckedAt  time.Time  `json:"checked_at"`
}

// OnlineAt сообщает, считается ли runner живым в момент now.
//
// Эвристика: окно в два TTL прощает один пропущенный heartbeat,
// прежде чем объявить runner offline. Свойство вычисляется заново
// при каждом чтении — оно зависит от wall-clock и никогда
// не кэшируется и не сохраняется.
func (r *Runner) OnlineAt(now time.Time) bool {
	ttl := r.TTLSeconds
	if ttl <= 0 {
		ttl = DefaultTTLSeconds
	}
	return now.Sub(r.LastSeenAt) < 2*time.Duration(ttl)*time.Second
}

// Seen обновляет LastSeenAt. Отметки из прошлого игнорируются,
// чтобы сохранить монотонность при гонке конкурентных обновлений.
func (r *Runner) Seen(now time.Time) {
	if now.After(r.LastSeenAt) {
		r.LastSeenAt = now
	}
}
