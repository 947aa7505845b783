package mq

import "errors"

// Ошибки RabbitMQ инфраструктуры.
var (
	// ErrNoChannel — соединение разорвано, канала сейчас нет.
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrDeliveriesClosed — брокер закрыл канал доставки.
	ErrDeliveriesClosed = errors.New("deliveries channel closed")
)
