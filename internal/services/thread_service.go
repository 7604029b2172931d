package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
	"harbor-chat/internal/repository"
	harbor_errors "harbor-chat/pkg/errors"
	"harbor-chat/pkg/logger"
)

// EventPublisher is the outbound side of the realtime bus.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type ThreadService struct {
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	bus      EventPublisher
	log      *logger.Logger
}

func NewThreadService(threads repository.ThreadRepository, messages repository.MessageRepository, bus EventPublisher, log *logger.Logger) *ThreadService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ThreadService{threads: threads, messages: messages, bus: bus, log: log}
}

func (s *ThreadService) List(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	return s.threads.ListForUser(ctx, userID)
}

func (s *ThreadService) Search(ctx context.Context, userID uuid.UUID, query string) ([]domain.ConversationSummary, error) {
	if query == "" {
		return s.threads.ListForUser(ctx, userID)
	}
	return s.threads.SearchForUser(ctx, userID, query)
}

func (s *ThreadService) Create(ctx context.Context, viewerID, otherID uuid.UUID) (domain.ConversationSummary, error) {
	if otherID == uuid.Nil || otherID == viewerID {
		return domain.ConversationSummary{}, harbor_errors.ErrInvalidInput
	}
	return s.threads.Create(ctx, viewerID, otherID)
}

// MarkRead sets the caller's read mark, backfills read receipts for
// everything unread up to that point, and pushes the receipts to the
// thread channel so senders see them live.
func (s *ThreadService) MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error {
	ok, err := s.threads.IsParticipant(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return harbor_errors.ErrForbidden
	}
	if at.IsZero() {
		at = time.Now()
	}

	if err := s.threads.MarkRead(ctx, threadID, userID, at); err != nil {
		return err
	}

	receipts, err := s.messages.InsertReceipts(ctx, threadID, userID, at)
	if err != nil {
		return err
	}
	for _, rec := range receipts {
		ev := &events.ReceiptInsertedEvent{
			ThreadIDVal: threadID,
			MessageID:   rec.MessageID,
			UserID:      rec.UserID,
			ReadAt:      rec.ReadAt,
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.log.Warnf("publish receipt for %s: %v", rec.MessageID, err)
		}
	}
	return nil
}
