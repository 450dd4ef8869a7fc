package dispatcher

import "errors"

// Ошибки dispatcher'а.
var (
	// ErrRunnerNotFound — runner, на который адресован order, не зарегистрирован.
	ErrRunnerNotFound = errors.New("runner not found")

	// ErrInvalidOrderType — неизвестный тип order.
	ErrInvalidOrderType = errors.New("invalid order type")

	// ErrPoolStopped — worker pool остановлен, задачи больше не принимаются.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrBacklogFull — очередь pool'а заполнена.
	ErrBacklogFull = errors.New("worker pool backlog full")
)
