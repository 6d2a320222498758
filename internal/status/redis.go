package status

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each label's text in a hash and optionally publishes
// "label: text" updates on a channel.
type Redis struct {
	rdb     redis.UniversalClient
	key     string
	channel string
}

type RedisOption func(*Redis)

// WithChannel publishes every update on channel.
func WithChannel(channel string) RedisOption {
	return func(r *Redis) { r.channel = channel }
}

// NewRedis wraps rdb and checks that the server is reachable.
func NewRedis(ctx context.Context, rdb redis.UniversalClient, key string, opts ...RedisOption) (*Redis, error) {
	r := &Redis{rdb: rdb, key: key}
	for _, opt := range opts {
		opt(r)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %w", ErrUnavailable, err)
	}
	return r, nil
}

func (r *Redis) SetText(ctx context.Context, label, text string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, label, text)
		if r.channel != "" {
			pipe.Publish(ctx, r.channel, label+": "+text)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis status update: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
