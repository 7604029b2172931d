package events

import (
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
)

// Event type constants, format: domain.action
type EventType string

const (
	EventMessageInserted EventType = "message.inserted"
	EventMessageDeleted  EventType = "message.deleted"
	EventReceiptInserted EventType = "receipt.inserted"
	EventThreadUpdated   EventType = "thread.updated"
	EventPresenceSync    EventType = "presence.sync"
	EventTypingStarted   EventType = "typing.started"
	EventTypingStopped   EventType = "typing.stopped"
)

// Aggregate type constants
const (
	AggregateTypeMessage  = "message"
	AggregateTypeReceipt  = "receipt"
	AggregateTypeThread   = "thread"
	AggregateTypePresence = "presence"
	AggregateTypeTyping   = "typing"
)

// Event is one inbound or outbound realtime event. All push traffic is a
// stream of these tagged variants; transport code never interprets them.
type Event interface {
	Type() EventType
	AggregateID() uuid.UUID
}

// MessagePayload is the wire shape of a message carried inside events and
// API responses.
type MessagePayload struct {
	ID          uuid.UUID           `json:"id"`
	ThreadID    uuid.UUID           `json:"thread_id"`
	SenderID    uuid.UUID           `json:"sender_id"`
	Content     string              `json:"content,omitempty"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	ReplyToID   *uuid.UUID          `json:"reply_to_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

type AttachmentPayload struct {
	ID              uuid.UUID `json:"id"`
	MediaType       string    `json:"media_type"`
	StoragePath     string    `json:"storage_path"`
	MimeType        string    `json:"mime_type,omitempty"`
	FileSize        int64     `json:"file_size,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	FileName        string    `json:"file_name,omitempty"`
}

func (p MessagePayload) ToDomain() domain.Message {
	msg := domain.Message{
		ID:        domain.ConfirmedID(p.ID),
		ThreadID:  p.ThreadID,
		SenderID:  p.SenderID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
	}
	if p.ReplyToID != nil {
		msg.ReplyToID = uuid.NullUUID{UUID: *p.ReplyToID, Valid: true}
	}
	for _, a := range p.Attachments {
		msg.Attachments = append(msg.Attachments, a.ToDomain())
	}
	return msg
}

func (a AttachmentPayload) ToDomain() domain.Attachment {
	return domain.Attachment{
		ID:              a.ID,
		MediaType:       domain.MediaType(a.MediaType),
		StoragePath:     a.StoragePath,
		MimeType:        a.MimeType,
		FileSize:        a.FileSize,
		DurationSeconds: a.DurationSeconds,
		FileName:        a.FileName,
		Status:          domain.AttachmentReady,
	}
}

// MessageInsertedEvent announces a newly persisted message on a thread.
type MessageInsertedEvent struct {
	Message MessagePayload `json:"message"`
}

func (e *MessageInsertedEvent) Type() EventType       { return EventMessageInserted }
func (e *MessageInsertedEvent) AggregateID() uuid.UUID { return e.Message.ID }
func (e *MessageInsertedEvent) ThreadID() uuid.UUID    { return e.Message.ThreadID }

// MessageDeletedEvent announces a confirmed remote delete.
type MessageDeletedEvent struct {
	ThreadIDVal uuid.UUID `json:"thread_id"`
	MessageID   uuid.UUID `json:"message_id"`
}

func (e *MessageDeletedEvent) Type() EventType       { return EventMessageDeleted }
func (e *MessageDeletedEvent) AggregateID() uuid.UUID { return e.MessageID }
func (e *MessageDeletedEvent) ThreadID() uuid.UUID    { return e.ThreadIDVal }

// ReceiptInsertedEvent announces a new read receipt on a message.
type ReceiptInsertedEvent struct {
	ThreadIDVal uuid.UUID `json:"thread_id"`
	MessageID   uuid.UUID `json:"message_id"`
	UserID      uuid.UUID `json:"user_id"`
	ReadAt      time.Time `json:"read_at"`
}

func (e *ReceiptInsertedEvent) Type() EventType       { return EventReceiptInserted }
func (e *ReceiptInsertedEvent) AggregateID() uuid.UUID { return e.MessageID }
func (e *ReceiptInsertedEvent) ThreadID() uuid.UUID    { return e.ThreadIDVal }

// ThreadUpdatedEvent is a patch against a thread row, delivered on the
// global thread-updates channel. Zero-valued fields were not touched.
type ThreadUpdatedEvent struct {
	ThreadIDVal       uuid.UUID  `json:"thread_id"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	LastMessageSender *uuid.UUID `json:"last_message_sender,omitempty"`
	ParticipantStatus string     `json:"participant_status,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (e *ThreadUpdatedEvent) Type() EventType       { return EventThreadUpdated }
func (e *ThreadUpdatedEvent) AggregateID() uuid.UUID { return e.ThreadIDVal }

// PresenceSyncEvent is a snapshot of every peer currently tracked on a
// presence channel.
type PresenceSyncEvent struct {
	ThreadIDVal uuid.UUID   `json:"thread_id"`
	OnlineUsers []uuid.UUID `json:"online_users"`
}

func (e *PresenceSyncEvent) Type() EventType       { return EventPresenceSync }
func (e *PresenceSyncEvent) AggregateID() uuid.UUID { return e.ThreadIDVal }

// Online reports whether userID appears in the snapshot.
func (e *PresenceSyncEvent) Online(userID uuid.UUID) bool {
	for _, id := range e.OnlineUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// TypingEvent is an ephemeral typing broadcast. Stopped events carry the
// EventTypingStopped type; the payload is identical.
type TypingEvent struct {
	EventTypeVal EventType `json:"event_type"`
	ThreadIDVal  uuid.UUID `json:"thread_id"`
	UserID       uuid.UUID `json:"user_id"`
}

func (e *TypingEvent) Type() EventType       { return e.EventTypeVal }
func (e *TypingEvent) AggregateID() uuid.UUID { return e.ThreadIDVal }
func (e *TypingEvent) ThreadID() uuid.UUID    { return e.ThreadIDVal }
