// Package openhim — клиент API OpenHIM core.
//
// Покрывает то, что нужно mediator'у:
//
//   - аутентификация (salt/ts → auth-* заголовки) перед каждым вызовом
//   - Notifier: обновление транзакции после доставки элемента
//   - каналы: поиск по имени, создание, обновление (auto channel management)
//   - регистрация mediator'а и heartbeat с получением конфигурации
//
// Клиент не хранит сессию: каждый вызов заново получает salt,
// как это делает openhim-mediator-utils.
package openhim
