package event

import "context"

// Publisher is the egress sink for agent events, including the termination
// notice.
type Publisher interface {
	// Publish sends events to the underlying store.
	Publish(ctx context.Context, events ...Event) error

	// Close releases any resources held by the publisher.
	Close() error
}
