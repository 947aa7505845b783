package reconciler

import "errors"

// Ошибки применения конфигурации.
var (
	// ErrEndpointsMissing — в конфигурации нет элемента "endpoints".
	ErrEndpointsMissing = errors.New("configuration has no endpoints element")

	// ErrPathRequired — у endpoint'а не задан path для ingestion.
	ErrPathRequired = errors.New("endpoint path is required")

	// ErrEndpointSetup — endpoint из принятой конфигурации не удалось
	// настроить; остальные endpoint'ы применены.
	ErrEndpointSetup = errors.New("endpoint setup failed")

	// ErrDuplicatePath — два endpoint'а претендуют на один path.
	ErrDuplicatePath = errors.New("endpoint path already taken")
)
