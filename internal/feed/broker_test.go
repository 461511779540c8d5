package feed

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
		return Event{}
	}
}

func TestBrokerBroadcastsToLocalSubscribers(t *testing.T) {
	broker := NewBroker(nil, "", nil, zerolog.Nop())

	events, cleanup := broker.Subscribe()
	defer cleanup()

	event, err := NewEvent(TablePickups, TypeInsert, "r1", 1, map[string]string{"id": "r1"})
	require.NoError(t, err)
	broker.Publish(context.Background(), event)

	got := waitForEvent(t, events)
	require.Equal(t, TablePickups, got.Table)
	require.Equal(t, "r1", got.ID)
	require.NotEmpty(t, got.Source)
	require.False(t, got.SentAt.IsZero())
}

func TestBrokerSubscribeCleanupIsIdempotent(t *testing.T) {
	broker := NewBroker(nil, "", nil, zerolog.Nop())

	_, cleanup := broker.Subscribe()
	cleanup()
	cleanup()
}

func TestBrokerFansOutAcrossRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewBroker(clientA, "pickup", nil, zerolog.Nop())
	nodeB := NewBroker(clientB, "pickup", nil, zerolog.Nop())

	applied := make(chan Event, 1)
	nodeB.SetApplier(func(event Event) bool {
		applied <- event
		return true
	})

	nodeA.Start(ctx)
	nodeB.Start(ctx)

	// Let the pub/sub subscriptions settle before publishing.
	time.Sleep(50 * time.Millisecond)

	remote, cleanup := nodeB.Subscribe()
	defer cleanup()

	event, err := NewEvent(TablePickups, TypeUpdate, "r1", 3, map[string]string{"id": "r1"})
	require.NoError(t, err)
	nodeA.Publish(ctx, event)

	got := waitForEvent(t, applied)
	require.Equal(t, uint64(3), got.Version)

	broadcastEvent := waitForEvent(t, remote)
	require.Equal(t, "r1", broadcastEvent.ID)
}

func TestBrokerIgnoresOwnRedisEcho(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewBroker(client, "pickup", nil, zerolog.Nop())
	broker.SetApplier(func(Event) bool {
		t.Fatal("applier must not run for the publishing node's own echo")
		return false
	})
	broker.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	event, err := NewEvent(TablePickups, TypeInsert, "r1", 1, map[string]string{"id": "r1"})
	require.NoError(t, err)
	broker.Publish(ctx, event)

	events, cleanup := broker.Subscribe()
	defer cleanup()

	// The local broadcast already happened before Subscribe, and the redis
	// echo is filtered by source, so nothing should arrive.
	select {
	case got := <-events:
		t.Fatalf("unexpected event %s/%s", got.Table, got.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBrokerRejectedApplyIsNotRebroadcast(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewBroker(clientA, "pickup", nil, zerolog.Nop())
	nodeB := NewBroker(clientB, "pickup", nil, zerolog.Nop())

	rejected := make(chan struct{}, 1)
	nodeB.SetApplier(func(Event) bool {
		rejected <- struct{}{}
		return false
	})

	nodeA.Start(ctx)
	nodeB.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	events, cleanup := nodeB.Subscribe()
	defer cleanup()

	event, err := NewEvent(TablePickups, TypeUpdate, "r1", 1, map[string]string{"id": "r1"})
	require.NoError(t, err)
	nodeA.Publish(ctx, event)

	select {
	case <-rejected:
	case <-time.After(2 * time.Second):
		t.Fatal("applier was never invoked")
	}

	select {
	case got := <-events:
		t.Fatalf("stale event should not be rebroadcast, got %s/%s", got.Table, got.ID)
	case <-time.After(200 * time.Millisecond):
	}
}
