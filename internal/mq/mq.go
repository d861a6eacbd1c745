package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/weatherlogger/apiserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// ErrDisabled is returned by Discard when a caller tries to consume events
// without a configured broker.
var ErrDisabled = errors.New("message broker is not configured")

const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

// Open connects to the broker named by cfg.Backend. An empty name yields
// Discard so that callers never have to nil-check the backend.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "none":
		return Discard{}, nil
	case BackendRabbitMQ:
		return NewRabbitMQClient(cfg.RabbitMQ)
	case BackendPubSub:
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Discard drops every published message.
type Discard struct{}

func (Discard) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

func (Discard) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return ErrDisabled
}

func (Discard) Close() error {
	return nil
}
