package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNilConfig — Reconfigure вызван без конфигурации.
	ErrNilConfig = errors.New("endpoint config is required")

	// ErrNameMismatch — конфигурация относится к другому endpoint'у.
	ErrNameMismatch = errors.New("endpoint name mismatch")

	// ErrStoreRequired — Dispatcher создаётся без хранилища.
	ErrStoreRequired = errors.New("item store is required")

	// ErrDispatcherStopped — Dispatcher остановлен и не принимает элементы.
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrDelivery — upstream недоступен или ответил не 2xx.
	ErrDelivery = errors.New("delivery failed")

	// ErrWorkerNotFound — в реестре нет Dispatcher'а с таким именем.
	ErrWorkerNotFound = errors.New("worker not found")
)
