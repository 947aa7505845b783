// Package worker обрабатывает очереди endpoint'ов.
//
// # Обзор
//
// Для каждого endpoint'а создаётся Dispatcher, который забирает файлы
// из стадии queue, доставляет их upstream'у и завершает элемент:
//
//   - 2xx — файл (и метаданные) удаляются из working
//   - ошибка транспорта или не 2xx — файл переносится в error
//
// Автоматических повторов нет: элемент в error требует вмешательства оператора.
//
// # Dispatcher
//
//	d, err := worker.New(worker.Config{
//	    Endpoint: domain.Endpoint{Name: "echo", URL: "http://localhost:8000"},
//	    Store:    store.New("/var/lib/filequeue"),
//	    Notifier: notifier,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer d.Stop(ctx)
//
//	d.Enqueue("5a5b6c7d8e9f0a1b2c3d4e5f.json")
//
// Одновременно обрабатывается не больше Parallel элементов (default: 2).
// Pause/Resume — шлюз запуска: запущенные элементы не прерываются.
// Reconfigure меняет url, parallel, флаги и паузу на лету.
//
// # Обработка элемента
//
//  1. queue → working (вместе с метаданными при forwardMetadata)
//  2. Построение запроса: метаданные (метод, путь, заголовки) или POST
//     с Content-Type по расширению
//  3. X-OpenHIM-TransactionID — только для 24-символьного hex id
//  4. Потоковая отправка тела файла
//  5. Уведомление transaction API (updateTx) и событие в RabbitMQ
//  6. Удаление из working или перенос в error
//
// # Восстановление
//
// При создании Dispatcher'а всё, что осталось в working после падения,
// возвращается в queue, после чего Repopulate ставит в очередь
// содержимое queue. Доставка — at-least-once.
//
// # Registry
//
// Registry хранит Dispatcher'ы по имени endpoint'а в порядке добавления.
// Upsert с известным именем перенастраивает существующий Dispatcher.
package worker
