package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 32

// LocalBus delivers events inside the process. It is used when no Redis
// address is configured.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewLocalBus creates an empty in-process bus
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[chan Event]struct{})}
}

// Publish delivers event to every current subscriber of topic. A subscriber
// whose buffer is full misses the event.
func (b *LocalBus) Publish(_ context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			log.Warn().
				Str("topic", topic).
				Str("type", string(event.Type)).
				Msg("Dropping event for slow subscriber")
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *LocalBus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], ch)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// subscribers reports how many subscribers topic has
func (b *LocalBus) subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
