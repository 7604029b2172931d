package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubForTest(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	hub := newHubForTest(t)

	subscriber := NewClient(nil, uuid.New())
	bystander := NewClient(nil, uuid.New())
	hub.Register(subscriber)
	hub.Register(bystander)
	hub.Subscribe(subscriber, "channel:thread:x")
	waitFor(t, func() bool { return hub.SubscriberCount("channel:thread:x") == 1 })

	hub.Broadcast("channel:thread:x", []byte("payload"))

	select {
	case msg := <-subscriber.Send:
		assert.Equal(t, "payload", string(msg))
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the broadcast")
	}

	select {
	case <-bystander.Send:
		t.Fatal("bystander must not receive the broadcast")
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := newHubForTest(t)

	client := NewClient(nil, uuid.New())
	hub.Register(client)
	hub.Subscribe(client, "channel:thread:x")
	waitFor(t, func() bool { return hub.SubscriberCount("channel:thread:x") == 1 })

	hub.Unsubscribe(client, "channel:thread:x")
	waitFor(t, func() bool { return hub.SubscriberCount("channel:thread:x") == 0 })

	hub.Broadcast("channel:thread:x", []byte("payload"))
	select {
	case <-client.Send:
		t.Fatal("unsubscribed client must not receive the broadcast")
	default:
	}
}

func TestUnregisterDropsAllSubscriptions(t *testing.T) {
	hub := newHubForTest(t)

	client := NewClient(nil, uuid.New())
	hub.Register(client)
	hub.Subscribe(client, "channel:thread:x")
	hub.Subscribe(client, "channel:presence:x")
	waitFor(t, func() bool { return hub.SubscriberCount("channel:presence:x") == 1 })

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	assert.Zero(t, hub.SubscriberCount("channel:thread:x"))
	assert.Zero(t, hub.SubscriberCount("channel:presence:x"))

	// The send channel is closed on unregister.
	_, open := <-client.Send
	assert.False(t, open)
}

func TestFullSendBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := newHubForTest(t)

	client := NewClient(nil, uuid.New())
	hub.Register(client)
	hub.Subscribe(client, "channel:thread:x")
	waitFor(t, func() bool { return hub.SubscriberCount("channel:thread:x") == 1 })

	for i := 0; i < cap(client.Send)+10; i++ {
		hub.Broadcast("channel:thread:x", []byte("burst"))
	}

	assert.Len(t, client.Send, cap(client.Send))
}
