// Package mq публикует события об исходе обработки элементов в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и сериализацией публикаций
//   - topology.go   — exchange filequeue.items и очереди
//   - publisher.go  — публикация item.delivered / item.failed
//   - consumer.go   — чтение событий (filequeue-cli events watch)
//
// Публикация необязательна: без RABBITMQ_URL mediator работает без неё,
// а ошибки публикации только логируются.
package mq
