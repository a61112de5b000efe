package broker

import (
	"context"
	"time"
)

// Message is one queued push event. Headers holds string-valued transport
// metadata, including the trace context.
type Message struct {
	ID      string
	Body    []byte
	Headers map[string]string
}

// Producer re-enqueues an encoded event, visible to consumers after delay.
type Producer interface {
	Publish(ctx context.Context, body []byte, delay time.Duration) error
	Close() error
}

// Consumer delivers batches to handler until ctx is done. Messages of a batch
// are acknowledged once handler returns nil.
type Consumer interface {
	Consume(ctx context.Context, handler BatchHandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type BatchHandlerFunc func(ctx context.Context, msgs []Message) error
