package registry

import "errors"

// Ошибки реестра runner'ов.
var (
	// ErrRunnerExists — runner с таким ID уже зарегистрирован.
	ErrRunnerExists = errors.New("runner already registered")

	// ErrRunnerNotFound — runner не найден.
	ErrRunnerNotFound = errors.New("runner not found")

	// ErrInvalidRunner — параметры регистрации не прошли валидацию.
	ErrInvalidRunner = errors.New("invalid runner parameters")
)
