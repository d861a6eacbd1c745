package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherlogger/apiserver/config"
	"github.com/weatherlogger/apiserver/types"
)

type recordingBackend struct {
	channel string
	data    []byte
	attrs   map[string]string
	err     error
}

func (b *recordingBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.channel = channel
	b.data = data
	b.attrs = attrs
	return "msg-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return handler(ctx, Message{ID: "msg-1", Data: b.data})
}

func (b *recordingBackend) Close() error { return nil }

func TestOpenWithoutBackendDiscards(t *testing.T) {
	backend, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.IsType(t, Discard{}, backend)

	id, err := backend.Publish(context.Background(), "events", []byte("{}"), nil)
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.ErrorIs(t, backend.Subscribe(context.Background(), "events", nil), ErrDisabled)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "kafka")
}

func TestOpenRabbitMQRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: BackendRabbitMQ})
	assert.ErrorContains(t, err, "url is required")
}

func TestOpenPubSubRequiresProject(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: BackendPubSub})
	assert.ErrorContains(t, err, "project id is required")
}

func TestEventPublisherRoundTrip(t *testing.T) {
	backend := &recordingBackend{}
	logger, _ := test.NewNullLogger()
	pub := NewEventPublisher(backend, "weather.events", logger)

	series := types.Series{ID: 3, Name: "Lublin", Color: "#000000", MinValue: -30, MaxValue: 50}
	pub.Publish(context.Background(), types.Event{
		Type:     types.EventSeriesCreated,
		SeriesID: 3,
		Series:   &series,
	})

	assert.Equal(t, "weather.events", backend.channel)
	assert.Equal(t, map[string]string{"type": "series.created"}, backend.attrs)

	err := backend.Subscribe(context.Background(), "weather.events", func(ctx context.Context, msg Message) error {
		ev, err := DecodeEvent(msg)
		require.NoError(t, err)
		assert.Equal(t, types.EventSeriesCreated, ev.Type)
		assert.Equal(t, series, *ev.Series)
		assert.WithinDuration(t, time.Now(), ev.OccurredAt, time.Minute)
		return nil
	})
	require.NoError(t, err)
}

func TestEventPublisherLogsFailures(t *testing.T) {
	backend := &recordingBackend{err: errors.New("connection refused")}
	logger, hook := test.NewNullLogger()
	pub := NewEventPublisher(backend, "weather.events", logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Publish(ctx, types.Event{Type: types.EventMeasurementDeleted, MeasurementID: 7})

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, types.EventMeasurementDeleted, entry.Data["event"])
}

func TestRabbitMQSubscriberQueue(t *testing.T) {
	watcher := newRabbitMQClient(config.RabbitMQConfig{QueueDurable: true})
	assert.Equal(t, queueSpec{exclusive: true, autoDelete: true}, watcher.queue)
	assert.Equal(t, "#", watcher.binding)

	shared := newRabbitMQClient(config.RabbitMQConfig{
		Queue:        " weather-audit ",
		BindingKey:   "measurement.*",
		QueueDurable: true,
	})
	assert.Equal(t, queueSpec{name: "weather-audit", durable: true}, shared.queue)
	assert.Equal(t, "measurement.*", shared.binding)
}

func TestRabbitMQRoutingKey(t *testing.T) {
	assert.Equal(t, "measurement.created", routingKey(map[string]string{"type": string(types.EventMeasurementCreated)}))
	assert.Equal(t, "event", routingKey(nil))
	assert.Equal(t, "event", routingKey(map[string]string{"type": " "}))
}

func TestRabbitMQDeliveryMessage(t *testing.T) {
	msg := deliveryMessage(amqp.Delivery{
		MessageId: "m-1",
		Body:      []byte(`{}`),
		Headers:   amqp.Table{"type": "series.deleted", "attempt": int32(2), "raw": []byte("x")},
	})
	assert.Equal(t, "m-1", msg.ID)
	assert.Equal(t, map[string]string{"type": "series.deleted", "attempt": "2", "raw": "x"}, msg.Attributes)

	msg = deliveryMessage(amqp.Delivery{Type: "measurement.updated", RoutingKey: "other"})
	assert.Equal(t, map[string]string{"type": "measurement.updated"}, msg.Attributes)

	msg = deliveryMessage(amqp.Delivery{RoutingKey: "series.created"})
	assert.Equal(t, map[string]string{"type": "series.created"}, msg.Attributes)

	msg = deliveryMessage(amqp.Delivery{})
	assert.Empty(t, msg.Attributes)
}
