package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrIllegalTransition — попытка недопустимого перехода статуса.
	// Order никогда не выходит из терминального статуса и не регрессирует.
	ErrIllegalTransition = errors.New("illegal order status transition")
)
