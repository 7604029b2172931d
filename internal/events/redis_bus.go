package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"harbor-chat/pkg/logger"
)

// RedisBus carries events over Redis Pub/Sub. The server publishes into
// it after every confirmed write; clients subscribe per-channel and feed
// the decoded events into their routers.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisBus{client: client, log: log}
}

// Publish resolves the event's channels and fans the envelope out to each.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	channels := ResolveChannels(ev)
	if len(channels) == 0 {
		return nil
	}

	data, err := Wrap(ev)
	if err != nil {
		return fmt.Errorf("wrap %s: %w", ev.Type(), err)
	}

	for _, channel := range channels {
		if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", channel, err)
		}
	}
	return nil
}

// Subscribe listens on the given channels and invokes handler for every
// decoded event, until the returned teardown runs or ctx is cancelled.
// Payloads that fail to decode are logged and dropped.
func (b *RedisBus) Subscribe(ctx context.Context, channels []string, handler func(Event)) (func(), error) {
	if len(channels) == 0 {
		return func() {}, nil
	}

	sub := b.client.Subscribe(ctx, channels...)
	// Force the SUBSCRIBE round-trip so failures surface here, not on the
	// receive loop.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := Unwrap([]byte(msg.Payload))
				if err != nil {
					b.log.Warnf("drop payload on %s: %v", msg.Channel, err)
					continue
				}
				handler(ev)
			}
		}
	}()

	return func() { _ = sub.Close() }, nil
}

// SubscribeRaw pattern-subscribes and hands the raw payload plus source
// channel to handler without decoding. The push fan-out uses this to relay
// envelopes to websocket clients verbatim.
func (b *RedisBus) SubscribeRaw(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) (func(), error) {
	if len(patterns) == 0 {
		return func() {}, nil
	}

	sub := b.client.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("psubscribe %v: %w", patterns, err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(msg.Channel, []byte(msg.Payload))
			}
		}
	}()

	return func() { _ = sub.Close() }, nil
}
