package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

type ThreadRepository interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
	SearchForUser(ctx context.Context, userID uuid.UUID, query string) ([]domain.ConversationSummary, error)
	Get(ctx context.Context, threadID, viewerID uuid.UUID) (domain.ConversationSummary, error)
	Create(ctx context.Context, viewerID, otherID uuid.UUID) (domain.ConversationSummary, error)
	Participants(ctx context.Context, threadID uuid.UUID) ([]uuid.UUID, error)
	IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error
	Touch(ctx context.Context, threadID uuid.UUID, at time.Time) error
	ThreadsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type MessageRepository interface {
	ListBefore(ctx context.Context, threadID uuid.UUID, before time.Time, limit int) ([]domain.Message, bool, error)
	Insert(ctx context.Context, msg InsertMessageParams) (domain.Message, error)
	SoftDelete(ctx context.Context, threadID, messageID, senderID uuid.UUID) error
	InsertReceipts(ctx context.Context, threadID, userID uuid.UUID, upTo time.Time) ([]domain.ReadReceipt, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, att domain.Attachment, ownerID uuid.UUID) (domain.Attachment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Attachment, error)
	// CanView reports whether user may resolve a signed URL for the
	// attachment: its owner, or a participant of the thread its message
	// belongs to.
	CanView(ctx context.Context, id, userID uuid.UUID) (bool, error)
	LinkToMessage(ctx context.Context, ids []uuid.UUID, messageID, ownerID uuid.UUID) ([]domain.Attachment, error)
}

// InsertMessageParams carries a new message into the repository. The
// client message id makes retried sends idempotent.
type InsertMessageParams struct {
	ThreadID        uuid.UUID
	SenderID        uuid.UUID
	ClientMessageID uuid.UUID
	Content         string
	ReplyToID       uuid.NullUUID
}
