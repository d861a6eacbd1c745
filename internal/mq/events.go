package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/types"
)

// EventPublisher serialises domain events as JSON and publishes them on a
// single channel. Failures are logged and swallowed: a committed write is
// never reported as failed because the broker was unavailable.
type EventPublisher struct {
	backend Backend
	channel string
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewEventPublisher returns a publisher writing to channel on backend.
func NewEventPublisher(backend Backend, channel string, log logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{
		backend: backend,
		channel: channel,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Publish sends ev. OccurredAt is stamped when unset.
func (p *EventPublisher) Publish(ctx context.Context, ev types.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	entry := p.log.WithFields(logrus.Fields{
		"event":   ev.Type,
		"channel": p.channel,
	})

	data, err := json.Marshal(ev)
	if err != nil {
		entry.WithError(err).Error("encode event")
		return
	}

	// The request context may be cancelled right after the response is
	// written, so the publish gets its own deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	id, err := p.backend.Publish(pubCtx, p.channel, data, map[string]string{"type": string(ev.Type)})
	if err != nil {
		entry.WithError(err).Warn("publish event")
		return
	}
	entry.WithField("message_id", id).Debug("event published")
}

// DecodeEvent parses a message produced by EventPublisher.
func DecodeEvent(msg Message) (types.Event, error) {
	var ev types.Event
	err := json.Unmarshal(msg.Data, &ev)
	return ev, err
}
