package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitClient publishes to and consumes from one durable queue on the
// default exchange.
type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewRabbit(url, queue string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	logrus.WithField("queue", queue).Info("RabbitMQ initialized")
	return &RabbitClient{conn: conn, channel: ch, queue: queue}, nil
}

func (c *RabbitClient) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	logrus.Info("RabbitMQ connection closed")
}

func (c *RabbitClient) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = c.channel.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         msg.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

// Consume delivers queue messages to handler until ctx is done. Handler
// errors nack without requeue so a poison message cannot loop forever.
func (c *RabbitClient) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				if err := handler(d.Body); err != nil {
					logrus.WithError(err).Warn("failed to process notification")
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	logrus.WithField("queue", c.queue).Info("started consuming notifications")
	return nil
}
