package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/weatherlogger/apiserver/config"
)

// RabbitMQClient fans change events out through a topic exchange. The
// channel name passed to Publish and Subscribe names the exchange and the
// event type is the routing key, so watchers can bind to a subset such as
// "measurement.*".
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   queueSpec
	binding string
}

// queueSpec describes the queue a subscriber binds to the exchange.
type queueSpec struct {
	name       string
	durable    bool
	autoDelete bool
	exclusive  bool
}

const (
	defaultRoutingKey = "event"
	bindAllEvents     = "#"
)

// NewRabbitMQClient dials the broker and opens a single AMQP channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("set rabbitmq qos: %w", err)
		}
	}

	client := newRabbitMQClient(cfg)
	client.conn = conn
	client.channel = ch
	return client, nil
}

// newRabbitMQClient resolves the subscriber queue and binding from cfg.
// Without a queue name every watcher gets its own exclusive queue and sees
// every event; a named queue is shared, so watchers split the stream and
// events published while nobody listens are kept.
func newRabbitMQClient(cfg config.RabbitMQConfig) *RabbitMQClient {
	queue := queueSpec{exclusive: true, autoDelete: true}
	if name := strings.TrimSpace(cfg.Queue); name != "" {
		queue = queueSpec{name: name, durable: cfg.QueueDurable, autoDelete: cfg.QueueAutoDelete}
	}

	binding := strings.TrimSpace(cfg.BindingKey)
	if binding == "" {
		binding = bindAllEvents
	}
	return &RabbitMQClient{queue: queue, binding: binding}
}

// Publish sends a persistent JSON message to the exchange named channel,
// routed by the "type" attribute, and returns its message id.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}
	if err := r.declareExchange(channel); err != nil {
		return "", err
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	key := routingKey(attrs)
	messageID := uuid.NewString()
	err := r.channel.PublishWithContext(ctx, channel, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Type:         key,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", fmt.Errorf("publish %s to %s: %w", key, channel, err)
	}
	return messageID, nil
}

// Subscribe binds the configured queue to the exchange named channel and
// consumes it until ctx is done. A message whose handler fails is requeued
// once and dropped when it fails again.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.declareExchange(channel); err != nil {
		return err
	}

	q, err := r.channel.QueueDeclare(r.queue.name, r.queue.durable, r.queue.autoDelete, r.queue.exclusive, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, r.binding, channel, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", q.Name, channel, err)
	}

	consumerTag := "weatherlogger-" + uuid.NewString()
	deliveries, err := r.channel.Consume(q.Name, consumerTag, false, r.queue.exclusive, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(delivery)); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and the connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) declareExchange(name string) error {
	if err := r.channel.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

func routingKey(attrs map[string]string) string {
	if key := strings.TrimSpace(attrs["type"]); key != "" {
		return key
	}
	return defaultRoutingKey
}

// deliveryMessage converts an AMQP delivery. Messages published without a
// "type" header get it back from the AMQP type or the routing key.
func deliveryMessage(d amqp.Delivery) Message {
	attrs := make(map[string]string, len(d.Headers)+1)
	for key, value := range d.Headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	if attrs["type"] == "" {
		switch {
		case d.Type != "":
			attrs["type"] = d.Type
		case d.RoutingKey != "":
			attrs["type"] = d.RoutingKey
		default:
			delete(attrs, "type")
		}
	}
	return Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}
}
