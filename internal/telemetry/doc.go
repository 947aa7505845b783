// Package telemetry — логирование и метрики mediator'а.
//
//   - logging.go — slog-логгер из LOG_LEVEL/LOG_FORMAT, дочерние логгеры
//     с полями endpoint и file
//   - metrics.go — Prometheus: HTTP-запросы, элементы по исходу,
//     глубина очереди и активные доставки по endpoint'ам, ошибки по виду
//
// Metrics безопасен при nil: компоненты в тестах создаются без метрик.
package telemetry
