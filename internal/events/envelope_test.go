package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapMessageInserted(t *testing.T) {
	original := &MessageInsertedEvent{
		Message: MessagePayload{
			ID:        uuid.New(),
			ThreadID:  uuid.New(),
			SenderID:  uuid.New(),
			Content:   "hey",
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	data, err := Wrap(original)
	require.NoError(t, err)

	decoded, err := Unwrap(data)
	require.NoError(t, err)

	got, ok := decoded.(*MessageInsertedEvent)
	require.True(t, ok)
	assert.Equal(t, original.Message, got.Message)
}

func TestWrapUnwrapTypingKeepsDirection(t *testing.T) {
	threadID := uuid.New()
	userID := uuid.New()

	for _, eventType := range []EventType{EventTypingStarted, EventTypingStopped} {
		data, err := Wrap(&TypingEvent{EventTypeVal: eventType, ThreadIDVal: threadID, UserID: userID})
		require.NoError(t, err)

		decoded, err := Unwrap(data)
		require.NoError(t, err)

		got, ok := decoded.(*TypingEvent)
		require.True(t, ok)
		assert.Equal(t, eventType, got.Type())
		assert.Equal(t, threadID, got.ThreadID())
		assert.Equal(t, userID, got.UserID)
	}
}

func TestUnwrapUnknownType(t *testing.T) {
	_, err := Unwrap([]byte(`{"event_type":"call.started","payload":{}}`))
	assert.Error(t, err)
}

func TestUnwrapGarbage(t *testing.T) {
	_, err := Unwrap([]byte(`not json`))
	assert.Error(t, err)
}

func TestResolveChannels(t *testing.T) {
	threadID := uuid.New()

	assert.Equal(t,
		[]string{ThreadChannel(threadID)},
		ResolveChannels(&MessageDeletedEvent{ThreadIDVal: threadID, MessageID: uuid.New()}))
	assert.Equal(t,
		[]string{PresenceChannel(threadID)},
		ResolveChannels(&PresenceSyncEvent{ThreadIDVal: threadID}))
	assert.Equal(t,
		[]string{ChannelThreadUpdates},
		ResolveChannels(&ThreadUpdatedEvent{ThreadIDVal: threadID}))
}
