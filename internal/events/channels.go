package events

import (
	"fmt"

	"github.com/google/uuid"
)

// Channel name prefixes. Per-thread traffic (messages, receipts, typing)
// rides the thread channel; presence has its own per-thread channel so a
// client can drop presence without losing messages; thread row patches go
// out on one global channel every client keeps open.
const (
	ChannelPrefixThread   = "channel:thread:"
	ChannelPrefixPresence = "channel:presence:"
	ChannelThreadUpdates  = "channel:thread-updates"
)

func ThreadChannel(threadID uuid.UUID) string {
	return fmt.Sprintf("%s%s", ChannelPrefixThread, threadID)
}

func PresenceChannel(threadID uuid.UUID) string {
	return fmt.Sprintf("%s%s", ChannelPrefixPresence, threadID)
}

// ResolveChannels determines which channels an event is published to.
func ResolveChannels(ev Event) []string {
	switch e := ev.(type) {
	case *MessageInsertedEvent:
		return []string{ThreadChannel(e.ThreadID())}
	case *MessageDeletedEvent:
		return []string{ThreadChannel(e.ThreadID())}
	case *ReceiptInsertedEvent:
		return []string{ThreadChannel(e.ThreadID())}
	case *TypingEvent:
		return []string{ThreadChannel(e.ThreadID())}
	case *PresenceSyncEvent:
		return []string{PresenceChannel(e.ThreadIDVal)}
	case *ThreadUpdatedEvent:
		return []string{ChannelThreadUpdates}
	}
	return nil
}
