package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher is the part of a redis client the notifier needs. *redis.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Envelope is the JSON message published for an event
type Envelope struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	EntityType string      `json:"entityType"`
	OccurredAt time.Time   `json:"occurredAt"`
	Entity     interface{} `json:"entity"`
}

// RedisNotifier publishes the events it supports to redis channels named prefix + event name
type RedisNotifier struct {
	client   Publisher
	prefix   string
	supports []string
}

// NewRedisNotifier creates a notifier for the given event names
func NewRedisNotifier(client Publisher, prefix string, names ...string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix, supports: names}
}

// NewRedisClient opens the redis client the notifier publishes through
func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

func (n *RedisNotifier) Name() string       { return "redis-notifier" }
func (n *RedisNotifier) Supports() []string { return n.supports }

// Channel returns the channel an event named name is published to
func (n *RedisNotifier) Channel(name string) string {
	return n.prefix + name
}

// Handle publishes the event envelope
func (n *RedisNotifier) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(Envelope{
		ID:         event.ID().String(),
		Name:       event.Name(),
		EntityType: event.EntityType(),
		OccurredAt: event.OccurredAt(),
		Entity:     event.Entity(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event.Name(), err)
	}
	if err := n.client.Publish(ctx, n.Channel(event.Name()), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Name(), err)
	}
	return nil
}
