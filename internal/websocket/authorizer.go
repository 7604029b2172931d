package websocket

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"harbor-chat/internal/events"
	"harbor-chat/internal/repository"
)

// ChannelAuthorizer decides which push channels a user may follow.
type ChannelAuthorizer struct {
	threads repository.ThreadRepository
}

func NewChannelAuthorizer(threads repository.ThreadRepository) *ChannelAuthorizer {
	return &ChannelAuthorizer{threads: threads}
}

// CanSubscribe reports whether userID may subscribe to channel. Thread
// and presence channels require thread membership; the global
// thread-updates channel is open to any authenticated user because its
// payloads are filtered per-viewer server side before persistence.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, channel string) (bool, error) {
	if channel == events.ChannelThreadUpdates {
		return true, nil
	}

	if strings.HasPrefix(channel, events.ChannelPrefixThread) {
		return a.isThreadMember(ctx, strings.TrimPrefix(channel, events.ChannelPrefixThread), userID)
	}
	if strings.HasPrefix(channel, events.ChannelPrefixPresence) {
		return a.isThreadMember(ctx, strings.TrimPrefix(channel, events.ChannelPrefixPresence), userID)
	}

	return false, nil
}

func (a *ChannelAuthorizer) isThreadMember(ctx context.Context, rawThreadID string, userID uuid.UUID) (bool, error) {
	threadID, err := uuid.Parse(rawThreadID)
	if err != nil {
		return false, nil
	}
	return a.threads.IsParticipant(ctx, threadID, userID)
}
