package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ticketsIngestedQueue is the durable queue ingestion events are published to.
const ticketsIngestedQueue = "tickets.ingested"

// Publisher sends ingestion events. Handlers hold this interface so tests
// can substitute a stub and so a missing broker configuration can disable
// publishing cleanly.
type Publisher interface {
	PublishTicketsIngested(ctx context.Context, event TicketsIngestedEvent) error
}

// RabbitPublisher publishes events to RabbitMQ. Each publish dials a fresh
// connection: ingestion batches are infrequent relative to connection cost
// and a broken long-lived channel would need its own reconnect machinery.
// Errors are logged and returned so callers can ignore failures without
// interrupting the main request flow.
type RabbitPublisher struct {
	url string
	log *slog.Logger
}

// NewRabbitPublisher constructs a publisher for the given AMQP URL.
func NewRabbitPublisher(url string, log *slog.Logger) *RabbitPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &RabbitPublisher{url: url, log: log}
}

// PublishTicketsIngested publishes a TicketsIngestedEvent to the
// tickets.ingested queue. The queue is declared durable and messages are
// marked persistent so they survive broker restarts.
func (p *RabbitPublisher) PublishTicketsIngested(ctx context.Context, event TicketsIngestedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		ticketsIngestedQueue, // name
		true,                 // durable
		false,                // autoDelete
		false,                // exclusive
		false,                // noWait
		nil,                  // args
	); err != nil {
		p.log.Warn("rabbitmq queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("rabbitmq marshal event failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		ticketsIngestedQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		pub,
	); err != nil {
		p.log.Warn("rabbitmq publish failed", "error", err)
		return err
	}
	return nil
}
