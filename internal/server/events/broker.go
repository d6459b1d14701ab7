package events

import "context"

// Broker abstracts the message transport so services and the worker can be
// tested against an in-memory implementation.
type Broker interface {
	Publish(ctx context.Context, key, value []byte) error
	Read(ctx context.Context) (key, value []byte, err error)
	Close() error
}
