package websocket

import (
	"context"

	"harbor-chat/internal/events"
)

// RedisBridge relays every bus envelope to the hub, which fans it out to
// the websocket clients following the source channel.
type RedisBridge struct {
	bus *events.RedisBus
	hub *Hub
}

func NewRedisBridge(bus *events.RedisBus, hub *Hub) *RedisBridge {
	return &RedisBridge{bus: bus, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) (func(), error) {
	return b.bus.SubscribeRaw(ctx, []string{"channel:*"}, func(channel string, payload []byte) {
		b.hub.Broadcast(channel, payload)
	})
}
