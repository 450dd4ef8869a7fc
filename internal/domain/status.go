package domain

import "fmt"

// OrderStatus — статус жизненного цикла order.
//
// Жизненный цикл:
//
//	queued → running → succeeded
//	                 ↘ failed
//
// Переходы строго монотонны: order никогда не возвращается назад
// и не выходит из терминального статуса.
type OrderStatus string

const (
	// OrderStatusQueued — order создан Dispatcher'ом, ждёт выполнения.
	OrderStatusQueued OrderStatus = "queued"

	// OrderStatusRunning — order выполняется Executor'ом.
	OrderStatusRunning OrderStatus = "running"

	// OrderStatusSucceeded — все обязательные проверки прошли.
	OrderStatusSucceeded OrderStatus = "succeeded"

	// OrderStatusFailed — проверки упали или произошла внутренняя ошибка.
	OrderStatusFailed OrderStatus = "failed"
)

// IsTerminal возвращает true, если статус финальный.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusSucceeded, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition проверяет, разрешён ли переход в статус next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderStatusQueued:
		return next == OrderStatusRunning
	case OrderStatusRunning:
		return next == OrderStatusSucceeded || next == OrderStatusFailed
	default:
		// Терминальные статусы: выхода нет.
		return false
	}
}

// Transition валидирует переход s → next.
// Недопустимый переход — нарушение контракта, а не рабочая ситуация,
// поэтому возвращается ошибка, обёрнутая в ErrIllegalTransition.
func (s OrderStatus) Transition(next OrderStatus) error {
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s, next)
	}
	return nil
}

// OrderType — тип order (закрытое множество).
type OrderType string

const (
	// OrderTypeSelfTest — самодиагностика runner'а.
	OrderTypeSelfTest OrderType = "runner.selftest"

	// OrderTypeReconcile — сверка состояния runner'а.
	// Набор проверок сегодня совпадает с selftest; отдельный тип —
	// точка расширения для будущей дифференциации.
	OrderTypeReconcile OrderType = "runner.reconcile"
)

// IsValid проверяет, что тип входит в известное множество.
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeSelfTest, OrderTypeReconcile:
		return true
	default:
		return false
	}
}

// Exit-коды выполнения order.
const (
	// ExitCodeOK — все обязательные проверки прошли.
	ExitCodeOK = 0

	// ExitCodeCheckFailed — обязательная проверка упала.
	ExitCodeCheckFailed = 1

	// ExitCodeInternal — инфраструктурная ошибка во время оркестрации.
	// Отличает "проверки упали" от "исполнитель сломался".
	ExitCodeInternal = 999
)
