package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Catalog event types.
const (
	EventProductSaved     = "product.saved"
	EventCatalogReindexed = "catalog.reindexed"
)

// DefaultExchange is the fanout exchange catalog events go through when none
// is configured.
const DefaultExchange = "catalog_events"

// CatalogEvent announces a change to the product catalog.
type CatalogEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"product_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecodeCatalogEvent parses a message body. Events without a type are rejected.
func DecodeCatalogEvent(body []byte) (CatalogEvent, error) {
	var event CatalogEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return CatalogEvent{}, fmt.Errorf("failed to decode catalog event: %w", err)
	}
	if event.Type == "" {
		return CatalogEvent{}, errors.New("catalog event has no type")
	}
	return event, nil
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	mu       sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

// topology is the part of amqp.Channel used to declare exchanges and queues.
type topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// declareTopology declares the fanout exchange and binds a private queue to
// it, so every instance receives every event. It returns the queue name.
func declareTopology(ch topology, exchange string) (string, error) {
	err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	q, err := ch.QueueDeclare(
		"",    // name: server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare instance queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind %s to %s: %w", q.Name, exchange, err)
	}
	return q.Name, nil
}

// NewClient connects to RabbitMQ, opens a channel and declares the event
// exchange together with this instance's queue.
func NewClient(cfg Config) (*Client, error) {
	const op = "rabbitmq.NewClient"

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue, err := declareTopology(ch, exchange)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	slog.Info("RabbitMQ client connected", "op", op, "exchange", exchange, "queue", queue)

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishCatalogEvent publishes event to the catalog exchange as JSON.
func (c *Client) PublishCatalogEvent(ctx context.Context, event CatalogEvent) error {
	const op = "rabbitmq.PublishCatalogEvent"

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		c.exchange, // exchange
		"",         // routing key: ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	slog.Debug("catalog event sent", "op", op, "type", event.Type, "product_id", event.ProductID)
	return nil
}

// ConsumeCatalogEvents starts a goroutine that passes every catalog event to
// handler. Undecodable messages are dropped; handler failures are requeued.
func (c *Client) ConsumeCatalogEvents(handler func(context.Context, CatalogEvent) error) error {
	const op = "rabbitmq.ConsumeCatalogEvents"
	log := slog.With("op", op)

	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Info("waiting for catalog events", "queue", c.queue)

	go func() {
		for msg := range msgs {
			handleDelivery(msg, handler, log)
		}
	}()

	return nil
}

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type delivery struct {
	acknowledger
	body []byte
	tag  uint64
}

func handleDelivery(msg amqp.Delivery, handler func(context.Context, CatalogEvent) error, log *slog.Logger) {
	process(delivery{acknowledger: msg, body: msg.Body, tag: msg.DeliveryTag}, handler, log)
}

func process(d delivery, handler func(context.Context, CatalogEvent) error, log *slog.Logger) {
	event, err := DecodeCatalogEvent(d.body)
	if err != nil {
		log.Warn("dropping malformed message", "tag", d.tag, "err", err)
		if err := d.Nack(false, false); err != nil {
			log.Error("failed to nack message", "tag", d.tag, "err", err)
		}
		return
	}

	if err := handler(context.Background(), event); err != nil {
		log.Error("failed to handle catalog event", "tag", d.tag, "type", event.Type, "err", err)
		if err := d.Nack(false, true); err != nil {
			log.Error("failed to nack message", "tag", d.tag, "err", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("failed to ack message", "tag", d.tag, "err", err)
	}
}
