package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"

	"bookreview/internal/logger"
)

// QueueName is the durable queue carrying activity events.
const QueueName = "bookreview_events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // serializes publishes on the shared channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// Event is the JSON envelope of every published message.
type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// NewClient connects to RabbitMQ, opens a channel and declares the event queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Log.WithField("queue", QueueName).Info("RabbitMQ client connected and queue declared")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", QueueName, err)
	}
	return q, nil
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
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// EncodeEvent builds the JSON body for an event.
func EncodeEvent(routingKey string, payload map[string]interface{}, at time.Time) ([]byte, error) {
	if routingKey == "" {
		return nil, fmt.Errorf("event type is required")
	}
	body, err := json.Marshal(Event{Type: routingKey, OccurredAt: at.UTC(), Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", routingKey, err)
	}
	return body, nil
}

// DecodeEvent parses a message body produced by EncodeEvent.
func DecodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Type == "" {
		return ev, fmt.Errorf("event without type")
	}
	return ev, nil
}

// PublishEvent publishes a persistent JSON event to the event queue.
func (c *Client) PublishEvent(routingKey string, payload map[string]interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	now := time.Now()
	body, err := EncodeEvent(routingKey, payload, now)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",        // default exchange
		QueueName, // routing key: the queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         routingKey,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Log.WithField("event", routingKey).Debug("Published event")
	return nil
}

// ConsumeEvents delivers events from the queue to handler in a background
// goroutine. Successful deliveries are acked; failures are requeued once
// and then dropped. Undecodable messages are dropped.
func (c *Client) ConsumeEvents(handler func(Event) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Log.WithField("queue", queue.Name).Info("Waiting for activity events")

	go func() {
		for msg := range msgs {
			handleDelivery(msg, handler)
		}
		logger.Log.Info("Event consumer stopped")
	}()

	return nil
}

func handleDelivery(msg amqp.Delivery, handler func(Event) error) {
	log := logger.Log.WithField("delivery_tag", msg.DeliveryTag)

	ev, err := DecodeEvent(msg.Body)
	if err != nil {
		log.WithError(err).Warn("Dropping malformed event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.WithError(nackErr).Error("Error nacking message")
		}
		return
	}

	if err := handler(ev); err != nil {
		log.WithError(err).WithField("event", ev.Type).Warn("Error processing event")
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			log.WithError(nackErr).Error("Error nacking message")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.WithError(ackErr).Error("Error acking message")
	}
}

// LogEvent is a consumer handler that records activity in the application log.
func LogEvent(ev Event) error {
	logger.Log.WithFields(logrus.Fields{
		"event":       ev.Type,
		"occurred_at": ev.OccurredAt,
		"data":        ev.Data,
	}).Info("Activity event")
	return nil
}
