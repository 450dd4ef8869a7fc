package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order — одна единица запрошенной работы.
//
// Order создаётся Dispatcher'ом в статусе queued и дальше мутируется
// только Executor'ом. Orders никогда не удаляются — они остаются
// как история аудита.
//
// Контракт идемпотентности: для тройки (RunnerID, Type, ClientRequestID)
// может существовать не более одного order. Контракт закрывается
// уникальным индексом на уровне хранилища.
type Order struct {
	// ID — уникальный идентификатор order.
	ID uuid.UUID `json:"id"`

	// RunnerID — runner, которому адресован order.
	RunnerID string `json:"runner_id"`

	// Type — тип order (runner.selftest | runner.reconcile).
	Type OrderType `json:"type"`

	// Status — текущий статус жизненного цикла.
	Status OrderStatus `json:"status"`

	// CreatedAt — время создания order.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время начала выполнения (когда статус стал running).
	// Nil, пока выполнение не началось.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// ExitCode — exit-код выполнения. Nil до терминального статуса.
	ExitCode *int `json:"exit_code,omitempty"`

	// Summary — короткое человекочитаемое описание исхода.
	Summary string `json:"summary,omitempty"`

	// EvidenceID — ссылка на Evidence с захваченным выводом.
	// Nil, если выполнение не дошло до захвата вывода.
	EvidenceID *uuid.UUID `json:"evidence_id,omitempty"`

	// ClientRequestID — ключ идемпотентности от клиента.
	// Пустая строка, если клиент его не передал.
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// IsFinished возвращает true, если order в терминальном статусе.
func (o *Order) IsFinished() bool {
	return o.Status.IsTerminal()
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если order ещё не завершён.
func (o *Order) Duration() time.Duration {
	if o.StartedAt == nil || o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(*o.StartedAt)
}

// MarkRunning переводит order в статус running и ставит StartedAt.
func (o *Order) MarkRunning(now time.Time) error {
	if err := o.Status.Transition(OrderStatusRunning); err != nil {
		return err
	}
	o.Status = OrderStatusRunning
	o.StartedAt = &now
	return nil
}

// MarkSucceeded переводит order в терминальный статус succeeded.
func (o *Order) MarkSucceeded(now time.Time, exitCode int, evidenceID uuid.UUID, summary string) error {
	if err := o.Status.Transition(OrderStatusSucceeded); err != nil {
		return err
	}
	o.Status = OrderStatusSucceeded
	o.FinishedAt = &now
	o.ExitCode = &exitCode
	o.EvidenceID = &evidenceID
	o.Summary = summary
	return nil
}

// MarkFailed переводит order в терминальный статус failed.
// evidenceID может быть nil: внутренняя ошибка до захвата вывода
// оставляет order терминальным без Evidence.
func (o *Order) MarkFailed(now time.Time, exitCode int, evidenceID *uuid.UUID, summary string) error {
	if err := o.Status.Transition(OrderStatusFailed); err != nil {
		return err
	}
	o.Status = OrderStatusFailed
	o.FinishedAt = &now
	o.ExitCode = &exitCode
	o.EvidenceID = evidenceID
	o.Summary = summary
	return nil
}
