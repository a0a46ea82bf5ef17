package workqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue backed by a Redis list. Enqueue is LPUSH, Dequeue is
// BRPOP, giving FIFO order across any number of producers and consumers.
type RedisQueue struct {
	client     *redis.Client
	name       string
	popTimeout time.Duration
}

// NewRedis connects to the Redis deployment at url (redis:// form) and uses
// the named list as the queue.
func NewRedis(ctx context.Context, url, name string, popTimeout time.Duration) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &RedisQueue{client: client, name: name, popTimeout: popTimeout}, nil
}

// Enqueue pushes a message onto the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, m Message) error {
	payload, err := encodeMessage(m)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue to %s: %w", q.name, err)
	}
	return nil
}

// Dequeue blocks up to the pop timeout waiting for the next message.
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, bool, error) {
	values, err := q.client.BRPop(ctx, q.popTimeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("dequeue from %s: %w", q.name, err)
	}
	// BRPOP returns [key, value].
	if len(values) != 2 {
		return Message{}, false, fmt.Errorf("dequeue from %s: unexpected reply length %d", q.name, len(values))
	}
	m, err := decodeMessage([]byte(values[1]))
	if err != nil {
		return Message{}, false, err
	}
	return m, true, nil
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
