package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueSender publishes messages to a durable RabbitMQ queue instead of
// delivering them. A worker running Consume performs the delivery.
type QueueSender struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	mu    sync.Mutex
}

func DialQueue(url, queue string) (*QueueSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &QueueSender{conn: conn, ch: ch, queue: queue}, nil
}

func (q *QueueSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal mail message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (q *QueueSender) Close() error {
	if err := q.ch.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}

// Consume delivers queued messages through sender until ctx is canceled.
// A failed delivery is retried once through redelivery, then dropped.
func (q *QueueSender) Consume(ctx context.Context, sender Sender, log *zap.Logger) error {
	msgs, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	log.Info("mail worker waiting for messages", zap.String("queue", q.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("mail queue channel closed")
			}
			handleDelivery(ctx, d, sender, log)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp.Delivery, sender Sender, log *zap.Logger) {
	process(ctx, d, d.Body, d.Redelivered, sender, log)
}

func process(ctx context.Context, ack acknowledger, body []byte, redelivered bool, sender Sender, log *zap.Logger) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to decode mail message", zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}

	if err := sender.Send(ctx, msg); err != nil {
		log.Error("failed to deliver queued email",
			zap.String("to", msg.To),
			zap.Bool("redelivered", redelivered),
			zap.Error(err),
		)
		_ = ack.Nack(false, !redelivered)
		return
	}

	log.Info("queued email delivered", zap.String("to", msg.To))
	_ = ack.Ack(false)
}
