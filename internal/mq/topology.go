package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeItems — topic exchange событий об исходе обработки элементов.
const ExchangeItems Exchange = "filequeue.items"

// QueueItemsFailed — durable очередь неудачных доставок для разбора оператором.
const QueueItemsFailed Queue = "filequeue.items.failed"

// Routing keys.
const (
	RoutingKeyDelivered RoutingKey = "delivered"
	RoutingKeyFailed    RoutingKey = "failed"
	RoutingKeyAll       RoutingKey = "#"
)

// SetupTopology объявляет exchange и очередь неудачных доставок.
// Операция идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeItems), // name
			amqp.ExchangeTopic,    // type
			true,                  // durable
			false,                 // auto-deleted
			false,                 // internal
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeItems, err)
		}

		if _, err := ch.QueueDeclare(string(QueueItemsFailed), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueItemsFailed, err)
		}

		if err := ch.QueueBind(string(QueueItemsFailed), string(RoutingKeyFailed), string(ExchangeItems), false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueItemsFailed, err)
		}
		return nil
	})
}

// DeclareWatchQueue создаёт временную эксклюзивную очередь,
// получающую все события exchange'а. Возвращает имя, выданное брокером.
func DeclareWatchQueue(ch *amqp.Channel) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // имя выдаёт брокер
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare watch queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, string(RoutingKeyAll), string(ExchangeItems), false, nil); err != nil {
		return "", fmt.Errorf("bind watch queue: %w", err)
	}
	return q.Name, nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  filequeue RabbitMQ topology:

    filequeue.items (topic)
    ├── filequeue.items.failed [routing: failed]
    │       Manual processing
    └── <exclusive watch queue> [routing: #]
            Consumer: filequeue-cli events watch
  `
}
