package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageID identifies a message either as a pending optimistic entry
// (client-generated id awaiting the server echo) or as a confirmed entry
// (server-assigned id). The two never collide: equality includes the tag,
// so a pending id can only ever match another pending id.
type MessageID struct {
	id      uuid.UUID
	pending bool
}

// NewPendingID mints an id for an optimistic message.
func NewPendingID() MessageID {
	return MessageID{id: uuid.New(), pending: true}
}

// PendingID wraps an existing client-generated id.
func PendingID(clientID uuid.UUID) MessageID {
	return MessageID{id: clientID, pending: true}
}

// ConfirmedID wraps a server-assigned id.
func ConfirmedID(serverID uuid.UUID) MessageID {
	return MessageID{id: serverID}
}

func (m MessageID) Pending() bool   { return m.pending }
func (m MessageID) UUID() uuid.UUID { return m.id }
func (m MessageID) IsZero() bool    { return m.id == uuid.Nil }

func (m MessageID) String() string {
	if m.pending {
		return "pending:" + m.id.String()
	}
	return m.id.String()
}

// Message is one entry in a thread's message list.
type Message struct {
	ID          MessageID
	ThreadID    uuid.UUID
	SenderID    uuid.UUID
	Content     string
	Attachments []Attachment
	ReplyToID   uuid.NullUUID
	Receipts    []ReadReceipt
	CreatedAt   time.Time
	Deleted     bool
}

// Preview is the truncated text shown in the conversation list.
func (m Message) Preview() string {
	if m.Content != "" {
		return truncate(m.Content, 120)
	}
	if len(m.Attachments) > 0 {
		return m.Attachments[0].PreviewLabel()
	}
	return ""
}

// HasReceiptFrom reports whether user already has a read receipt on this
// message.
func (m Message) HasReceiptFrom(userID uuid.UUID) bool {
	for _, r := range m.Receipts {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// ReadReceipt records that a user has read a message.
type ReadReceipt struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	ReadAt    time.Time
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
