// Package event provides event publishing infrastructure.
package event

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/logging"
)

// Publisher publishes agent events to an event store.
type Publisher struct {
	store   event.Store
	buffer  []event.Event
	bufSize int
	closed  bool
	mu      sync.Mutex
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithBufferSize sets the event buffer size. Zero disables buffering.
func WithBufferSize(size int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = size
	}
}

// NewPublisher creates a new event publisher.
func NewPublisher(store event.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize > 0 {
		p.buffer = make([]event.Event, 0, p.bufSize)
	}
	return p
}

// Publish sends events to the event store.
func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return event.ErrStoreClosed
	}

	if p.bufSize == 0 {
		return p.store.Append(ctx, events...)
	}

	p.buffer = append(p.buffer, events...)
	if len(p.buffer) >= p.bufSize {
		return p.flush(ctx)
	}
	return nil
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Flush writes all buffered events to the store.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(ctx)
}

// flush must be called with p.mu held.
func (p *Publisher) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}
	if err := p.store.Append(ctx, p.buffer...); err != nil {
		return err
	}
	p.buffer = p.buffer[:0]
	return nil
}

// Close flushes remaining events and rejects further publishing.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	pending := len(p.buffer)
	if err := p.flush(context.Background()); err != nil {
		logging.Warn().
			Add(logging.Component("publisher")).
			Add(logging.Int("pending", pending)).
			Add(logging.ErrorField(err)).
			Msg("dropping buffered events on close")
		p.buffer = nil
		return err
	}
	return nil
}

var _ event.Publisher = (*Publisher)(nil)
