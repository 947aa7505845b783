// Package api содержит HTTP-поверхность mediator'а.
//
// Структура:
//   - handler.go    — Handler с DI (реестр воркеров, хранилище, метрики)
//   - routes.go     — служебные маршруты + динамический Router
//   - router.go     — Router: регистрация/удаление маршрутов ingestion на лету
//   - ingest.go     — приём элемента: метаданные, тело, 202 в формате mediator'а
//   - workers.go    — /workers, /heartbeat, /healthz
//   - middleware.go — logging, recovery, метрики запросов
//   - response.go   — унифицированные ответы
//
// Маршруты ingestion (ANY {endpoint.path}) регистрирует reconciler
// при каждом применении конфигурации; управляющие маршруты
// /workers/{name} статичны и ищут воркер в реестре по имени.
package api
