// Package cli реализует инструмент командной строки filequeue.
//
// # Обзор
//
// CLI — клиентская утилита для управления работающим mediator'ом.
// Работает через HTTP и не импортирует api/worker: типы ответов
// продублированы в client.go.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для управляющих маршрутов mediator'а. Ответы
// /workers приходят в обёртке data/total, подтверждения
// pause/resume/repopulate и ошибки валидации — простым текстом.
//
//	client := cli.NewClient("http://localhost:4002")
//	workers, err := client.ListWorkers()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
//
// ## Commands
//
//   - workers: list, get, pause, resume, repopulate
//   - heartbeat
//   - events watch — поток событий элементов из RabbitMQ
//
// Каждая группа создаётся фабричной функцией (NewWorkersCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
