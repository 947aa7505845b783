package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeItemDelivered MessageType = "item.delivered"
	MessageTypeItemFailed    MessageType = "item.failed"
)

// Message — конверт публикуемого события.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ItemEventPayload — исход обработки одного элемента очереди.
type ItemEventPayload struct {
	Endpoint      string `json:"endpoint"`
	File          string `json:"file"`
	TransactionID string `json:"transaction_id,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Delivered сообщает, успешна ли доставка (нет ошибки и код 2xx).
func (p ItemEventPayload) Delivered() bool {
	return p.Error == "" && p.StatusCode >= 200 && p.StatusCode < 300
}

// Publisher публикует события об элементах в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger, now: time.Now}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishItemEvent публикует исход обработки элемента:
// routing key "delivered" или "failed".
func (p *Publisher) PublishItemEvent(ctx context.Context, payload ItemEventPayload) error {
	msgType, key := MessageTypeItemFailed, RoutingKeyFailed
	if payload.Delivered() {
		msgType, key = MessageTypeItemDelivered, RoutingKeyDelivered
	}

	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: p.now().UTC(),
	}
	return p.Publish(ctx, ExchangeItems, key, msg)
}
