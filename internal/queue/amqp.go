package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/unclebandit/cadence-backend/internal/logging"
)

// AMQPQueue publishes JSON payloads to durable RabbitMQ queues named after the topic.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger logging.Logger

	mu       sync.Mutex
	declared map[string]bool
}

func DialAMQP(url string, logger logging.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, logger: logger, declared: make(map[string]bool)}, nil
}

func (q *AMQPQueue) declareLocked(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", topic, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.declareLocked(topic); err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Subscribe consumes topic with manual acks. The handler receives the raw JSON body.
// A failed delivery is requeued once, then dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	if err := q.declareLocked(topic); err != nil {
		q.mu.Unlock()
		return err
	}
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				q.logger.WithError(err).WithField("topic", topic).Warn("delivery failed")
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
