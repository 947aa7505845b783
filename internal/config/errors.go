package config

import "errors"

// Ошибки конфигурации.
var (
	// ErrInvalidValue — переменная окружения не разбирается.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrMediatorFile — файл mediator'а не читается или не разбирается.
	ErrMediatorFile = errors.New("invalid mediator config file")

	// ErrURNRequired — в файле mediator'а нет urn.
	ErrURNRequired = errors.New("mediator urn is required")
)
