package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
)

// Gateway is the thin remote-data-access boundary the session talks to.
// The backend is the source of truth; everything the session holds is a
// best-effort cache over these calls.
type Gateway interface {
	ListThreads(ctx context.Context) ([]domain.ConversationSummary, error)
	SearchThreads(ctx context.Context, query string) ([]domain.ConversationSummary, error)
	// ListMessages returns up to limit messages with CreatedAt < before,
	// newest page first request-side but ascending in the result, plus
	// whether older messages remain. A zero before means "latest page".
	ListMessages(ctx context.Context, threadID uuid.UUID, before time.Time, limit int) ([]domain.Message, bool, error)
	SendMessage(ctx context.Context, threadID uuid.UUID, draft Draft) (domain.Message, error)
	DeleteMessage(ctx context.Context, threadID, messageID uuid.UUID) error
	MarkRead(ctx context.Context, threadID uuid.UUID, at time.Time) error
	SignedURL(ctx context.Context, att domain.Attachment) (domain.SignedURL, error)
}

// Realtime is the push transport: subscribe to named channels, publish
// typed events. The Redis bus implements it; tests use an in-memory fake.
type Realtime interface {
	Subscribe(ctx context.Context, channels []string, handler func(events.Event)) (func(), error)
	Publish(ctx context.Context, ev events.Event) error
}

// Notifier surfaces user-facing outcomes (toasts in the original UI).
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Error(string) {}

// Draft is a composed message ready for the send pipeline.
type Draft struct {
	Content     string
	Attachments []domain.Attachment
	ReplyToID   uuid.NullUUID
	ClientID    uuid.UUID
}
