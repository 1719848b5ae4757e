// Package eventrelay forwards committed domain events to RabbitMQ so that
// out-of-process consumers can subscribe to them.
package eventrelay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/go-corebank/corebank/internal/domain"
)

// EventQueue is the durable queue domain events are forwarded to.
const EventQueue = "bank.events"

// AMQPRelay is an event listener that republishes every event onto a
// durable RabbitMQ queue. Delivery faults are returned to the dispatcher,
// which logs and counts them; they never reach the business operation.
type AMQPRelay struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// NewAMQPRelay connects to RabbitMQ and declares the event queue.
func NewAMQPRelay(uri string) (*AMQPRelay, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		EventQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &AMQPRelay{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

// Close releases the channel and connection.
func (r *AMQPRelay) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}

	return r.conn.Close()
}

type envelope struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   domain.Event `json:"payload"`
}

// Handle republishes event as a persistent JSON message. The event ID and
// type ride alongside the payload for downstream deduplication.
func (r *AMQPRelay) Handle(_ context.Context, event domain.Event) error {
	body, err := json.Marshal(envelope{
		EventID:   event.EventID(),
		EventType: event.EventType(),
		Payload:   event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.EventID(),
			Timestamp:    event.OccurredAt(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
