package events

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const channelPrefix = "pickmate:"

// RedisBus publishes events over Redis pub/sub so every API instance sees
// them
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates a bus on top of an existing client
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// Channel derives the Redis channel name for a topic
func Channel(topic string) string {
	return channelPrefix + topic
}

// Publish sends event to the topic's channel
func (b *RedisBus) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel(topic), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the topic's channel until ctx is done. It returns once
// Redis has confirmed the subscription.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	sub := b.rdb.Subscribe(ctx, Channel(topic))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	msgs := sub.Channel()
	out := make(chan Event, subscriberBuffer)

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Str("topic", topic).
					Msg("Panic in event subscriber")
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to decode event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
