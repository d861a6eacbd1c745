package services

import (
	"context"

	"github.com/weatherlogger/apiserver/types"
)

// Transactor runs fn inside a database transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher is notified after every committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev types.Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, types.Event) {}
