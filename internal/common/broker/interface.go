package broker

import (
	"context"
	"time"
)

// Broker is the queue/channel surface the judge worker needs from Redis.
type Broker interface {
	ListOps
	PubSubOps
	KVOps

	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes the connection. Blocked pops return with an error.
	Close() error
}

// ListOps are FIFO list operations.
type ListOps interface {
	LPush(ctx context.Context, key string, values ...interface{}) error
	RPush(ctx context.Context, key string, values ...interface{}) error

	// BRPop blocks until an element is available at the tail of key.
	// A zero timeout blocks forever. On timeout it returns "" and ErrEmpty.
	BRPop(ctx context.Context, timeout time.Duration, key string) (string, error)

	// RPop removes the tail element without blocking. ErrEmpty when key is empty.
	RPop(ctx context.Context, key string) (string, error)

	LLen(ctx context.Context, key string) (int64, error)
}

// PubSubOps are fan-out channel operations.
type PubSubOps interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// KVOps are plain key operations, used for the live status cache.
type KVOps interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Subscription delivers payloads published on a channel.
type Subscription interface {
	Messages() <-chan string
	Close() error
}
