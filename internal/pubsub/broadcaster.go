package pubsub

import "context"

// Broadcaster fans entity updates out to subscribers; subject is relative to the broadcast prefix
type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Health(ctx context.Context) error
}
