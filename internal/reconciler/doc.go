// Package reconciler применяет конфигурацию endpoint'ов к работающему процессу.
//
// Reconciler — единственная точка, через которую конфигурация попадает
// в систему: из файла mediator'а при старте и из ответов heartbeat.
// Для каждого endpoint'а по порядку:
//   - при необходимости создаёт или обновляет канал в OpenHIM
//   - создаёт Dispatcher или перенастраивает существующий (worker.Registry)
//   - регистрирует маршрут ingestion на endpoint.path
//
// Повторное применение той же конфигурации идемпотентно: дубликатов
// Dispatcher'ов и маршрутов не появляется.
//
// Endpoint'ы, исчезнувшие из конфигурации, по умолчанию продолжают
// работать (в лог пишется предупреждение). С PruneStale они
// останавливаются, а их маршруты снимаются.
package reconciler
