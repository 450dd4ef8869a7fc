package domain

import (
	"time"

	"github.com/google/uuid"
)

// Evidence — сырой захваченный вывод одного выполнения order.
//
// На order приходится ноль или одна запись Evidence: запись создаётся
// только если выполнение дошло до захвата вывода. Evidence неизменяем
// после создания.
type Evidence struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// RunnerID — runner, на котором выполнялся order.
	RunnerID string `json:"runner_id"`

	// OrderID — order, чей вывод захвачен.
	OrderID uuid.UUID `json:"order_id"`

	// CreatedAt — время захвата.
	CreatedAt time.Time `json:"created_at"`

	// Stdout — захваченный стандартный вывод.
	Stdout string `json:"stdout"`

	// Stderr — захваченный поток ошибок.
	Stderr string `json:"stderr"`

	// ExitCode — exit-код процесса проверок.
	ExitCode int `json:"exit_code"`
}
