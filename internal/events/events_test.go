package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "decision:d1", DecisionTopic("d1"))
	assert.Equal(t, "user:u1", UserTopic("u1"))
	assert.Equal(t, "pickmate:decision:d1", Channel(DecisionTopic("d1")))
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLocalBus_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d1, err := bus.Subscribe(ctx, DecisionTopic("d1"))
	require.NoError(t, err)
	d2, err := bus.Subscribe(ctx, DecisionTopic("d2"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, DecisionTopic("d1"), Event{Type: RatingUpdated, DecisionID: "d1"}))

	ev := receive(t, d1)
	assert.Equal(t, RatingUpdated, ev.Type)
	assert.Equal(t, "d1", ev.DecisionID)

	select {
	case ev := <-d2:
		t.Fatalf("unexpected event on other topic: %+v", ev)
	default:
	}
}

func TestLocalBus_CancelUnsubscribes(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, UserTopic("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, bus.subscribers(UserTopic("u1")))

	cancel()
	assertClosed(t, ch)
	assert.Equal(t, 0, bus.subscribers(UserTopic("u1")))

	// publishing after everyone left is a no-op
	require.NoError(t, bus.Publish(context.Background(), UserTopic("u1"), Event{Type: CoupleLeft}))
}

func TestLocalBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := bus.Subscribe(ctx, DecisionTopic("d1"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = bus.Publish(ctx, DecisionTopic("d1"), Event{Type: RatingUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func newRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBus(rdb)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	bus := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, DecisionTopic("d1"))
	require.NoError(t, err)

	at := time.Date(2026, 2, 14, 19, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(ctx, DecisionTopic("d1"), Event{
		Type:       VoterCompleted,
		DecisionID: "d1",
		VoterID:    "v1",
		At:         at,
	}))

	ev := receive(t, ch)
	assert.Equal(t, VoterCompleted, ev.Type)
	assert.Equal(t, "v1", ev.VoterID)
	assert.True(t, at.Equal(ev.At))
}

func TestRedisBus_ClosesOnCancel(t *testing.T) {
	bus := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, UserTopic("u1"))
	require.NoError(t, err)

	cancel()
	assertClosed(t, ch)
}

func TestBusImplementations(t *testing.T) {
	var _ Bus = (*LocalBus)(nil)
	var _ Bus = (*RedisBus)(nil)
}
