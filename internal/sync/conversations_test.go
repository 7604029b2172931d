package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
)

func summary(threadID uuid.UUID, lastAt time.Time, sender uuid.UUID) domain.ConversationSummary {
	return domain.ConversationSummary{
		ThreadID:          threadID,
		Other:             domain.Profile{ID: uuid.New(), Username: "peer"},
		LastMessageAt:     lastAt,
		LastMessageSender: sender,
		ParticipantStatus: domain.ParticipantActive,
		UpdatedAt:         lastAt,
	}
}

func TestListSortsByActivityDescending(t *testing.T) {
	viewer := uuid.New()
	list := NewConversationList(viewer)

	older := summary(uuid.New(), baseTime, viewer)
	newer := summary(uuid.New(), baseTime.Add(time.Hour), viewer)
	list.Replace([]domain.ConversationSummary{older, newer})

	got := list.Summaries()
	require.Len(t, got, 2)
	assert.Equal(t, newer.ThreadID, got[0].ThreadID)

	latest, ok := list.Latest()
	require.True(t, ok)
	assert.Equal(t, newer.ThreadID, latest.ThreadID)
}

func TestRowUpdateWithoutMessageStillBubblesUp(t *testing.T) {
	viewer := uuid.New()
	list := NewConversationList(viewer)

	quiet := summary(uuid.New(), baseTime, viewer)
	busy := summary(uuid.New(), baseTime.Add(time.Hour), viewer)
	list.Replace([]domain.ConversationSummary{quiet, busy})

	// A row-only update (no new message) newer than the top entry moves
	// the quiet thread to the front.
	rowUpdate := baseTime.Add(2 * time.Hour)
	require.True(t, list.ApplyThreadUpdate(&events.ThreadUpdatedEvent{
		ThreadIDVal: quiet.ThreadID,
		UpdatedAt:   rowUpdate,
	}))

	got := list.Summaries()
	assert.Equal(t, quiet.ThreadID, got[0].ThreadID)
	assert.Equal(t, baseTime, got[0].LastMessageAt, "last message time is untouched by a row update")
}

func TestApplyMessageUpdatesPreviewAndResorts(t *testing.T) {
	viewer, peer := uuid.New(), uuid.New()
	list := NewConversationList(viewer)

	a := summary(uuid.New(), baseTime, viewer)
	b := summary(uuid.New(), baseTime.Add(time.Hour), viewer)
	list.Replace([]domain.ConversationSummary{a, b})

	msg := domain.Message{
		ID:        domain.ConfirmedID(uuid.New()),
		ThreadID:  a.ThreadID,
		SenderID:  peer,
		Content:   "ping",
		CreatedAt: baseTime.Add(2 * time.Hour),
	}
	require.True(t, list.ApplyMessage(msg))

	got := list.Summaries()
	assert.Equal(t, a.ThreadID, got[0].ThreadID)
	assert.Equal(t, "ping", got[0].LastMessagePreview)
	assert.Equal(t, peer, got[0].LastMessageSender)

	assert.False(t, list.ApplyMessage(domain.Message{ThreadID: uuid.New()}), "unknown thread is the caller's cue to refresh")
}

func TestUnreadIsDerived(t *testing.T) {
	viewer, peer := uuid.New(), uuid.New()
	list := NewConversationList(viewer)

	threadID := uuid.New()
	s := summary(threadID, baseTime, peer)
	list.Replace([]domain.ConversationSummary{s})

	// Last message from the peer, never read: unread.
	assert.True(t, list.Unread(threadID))

	// Read mark at or after the message clears it with no counter to sync.
	list.MarkRead(threadID, baseTime.Add(time.Second))
	assert.False(t, list.Unread(threadID))

	// A newer inbound message flips it back.
	list.ApplyMessage(domain.Message{
		ID:        domain.ConfirmedID(uuid.New()),
		ThreadID:  threadID,
		SenderID:  peer,
		Content:   "again",
		CreatedAt: baseTime.Add(time.Minute),
	})
	assert.True(t, list.Unread(threadID))
}

func TestOwnMessageNeverUnread(t *testing.T) {
	viewer := uuid.New()
	list := NewConversationList(viewer)

	threadID := uuid.New()
	list.Replace([]domain.ConversationSummary{summary(threadID, baseTime, viewer)})

	assert.False(t, list.Unread(threadID), "the viewer's own message cannot make a thread unread")
}

func TestThreadUpdatePatchesOnlyPresentFields(t *testing.T) {
	viewer := uuid.New()
	list := NewConversationList(viewer)

	threadID := uuid.New()
	s := summary(threadID, baseTime, viewer)
	s.LastMessagePreview = "original"
	list.Replace([]domain.ConversationSummary{s})

	require.True(t, list.ApplyThreadUpdate(&events.ThreadUpdatedEvent{
		ThreadIDVal:       threadID,
		ParticipantStatus: string(domain.ParticipantBlocked),
	}))

	got, ok := list.Get(threadID)
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantBlocked, got.ParticipantStatus)
	assert.Equal(t, "original", got.LastMessagePreview)

	assert.False(t, list.ApplyThreadUpdate(&events.ThreadUpdatedEvent{ThreadIDVal: uuid.New()}))
}

func TestSetPreviewRestore(t *testing.T) {
	viewer := uuid.New()
	list := NewConversationList(viewer)

	threadID := uuid.New()
	list.Replace([]domain.ConversationSummary{summary(threadID, baseTime, viewer)})

	require.True(t, list.SetPreview(threadID, "restored", baseTime.Add(time.Minute), viewer))
	got, _ := list.Get(threadID)
	assert.Equal(t, "restored", got.LastMessagePreview)

	// A zero timestamp clears the preview entirely.
	require.True(t, list.SetPreview(threadID, "", time.Time{}, uuid.Nil))
	got, _ = list.Get(threadID)
	assert.Empty(t, got.LastMessagePreview)
	assert.True(t, got.LastMessageAt.IsZero())
}
