package broker

import (
	"context"

	"cablesync/pkg/models"
)

// Producer publishes import events. Publish blocks until the broker acknowledges.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer delivers messages from one topic to a handler until ctx is done.
// A handler error is retried; a fatal one goes straight to the dead-letter topic.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
