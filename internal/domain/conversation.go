package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus is the viewer's relationship with the other
// participant of a thread.
type ParticipantStatus string

const (
	ParticipantActive  ParticipantStatus = "active"
	ParticipantBlocked ParticipantStatus = "blocked"
)

// Profile is the subset of a user row the inbox needs to render a
// conversation partner.
type Profile struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
	AvatarPath  string
}

// ConversationSummary is one row of the inbox list. The remote backend is
// the source of truth; summaries are mutated locally by sends, inbound
// messages, read marks and thread-update push events, and re-derived on
// refresh.
type ConversationSummary struct {
	ThreadID          uuid.UUID
	Other             Profile
	LastMessagePreview string
	LastMessageAt     time.Time
	LastMessageSender uuid.UUID
	LastReadAt        time.Time
	ParticipantStatus ParticipantStatus
	UpdatedAt         time.Time
}

// ActivityAt is the sort key for the inbox list: the later of the last
// message time and the thread row's update time.
func (c ConversationSummary) ActivityAt() time.Time {
	if c.UpdatedAt.After(c.LastMessageAt) {
		return c.UpdatedAt
	}
	return c.LastMessageAt
}

// UnreadBy reports whether the thread is unread for viewer. Unread is
// derived, never stored: the last message came from someone else and
// postdates the viewer's last read mark.
func (c ConversationSummary) UnreadBy(viewer uuid.UUID) bool {
	if c.LastMessageAt.IsZero() {
		return false
	}
	if c.LastMessageSender == viewer {
		return false
	}
	return c.LastReadAt.IsZero() || c.LastMessageAt.After(c.LastReadAt)
}
