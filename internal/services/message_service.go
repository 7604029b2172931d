package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
	"harbor-chat/internal/repository"
	harbor_errors "harbor-chat/pkg/errors"
	"harbor-chat/pkg/logger"
)

type MessageService struct {
	threads     repository.ThreadRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	bus         EventPublisher
	log         *logger.Logger
}

func NewMessageService(threads repository.ThreadRepository, messages repository.MessageRepository, attachments repository.AttachmentRepository, bus EventPublisher, log *logger.Logger) *MessageService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MessageService{
		threads:     threads,
		messages:    messages,
		attachments: attachments,
		bus:         bus,
		log:         log,
	}
}

type SendParams struct {
	ThreadID        uuid.UUID
	SenderID        uuid.UUID
	ClientMessageID uuid.UUID
	Content         string
	AttachmentIDs   []uuid.UUID
	ReplyToID       uuid.NullUUID
}

// Send persists a message, links its attachments, bumps the thread row,
// and publishes the insert plus the thread patch to the bus.
func (s *MessageService) Send(ctx context.Context, params SendParams) (domain.Message, error) {
	params.Content = strings.TrimSpace(params.Content)
	if params.Content == "" && len(params.AttachmentIDs) == 0 {
		return domain.Message{}, harbor_errors.ErrEmptyMessage
	}

	ok, err := s.threads.IsParticipant(ctx, params.ThreadID, params.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	if !ok {
		return domain.Message{}, harbor_errors.ErrForbidden
	}

	msg, err := s.messages.Insert(ctx, repository.InsertMessageParams{
		ThreadID:        params.ThreadID,
		SenderID:        params.SenderID,
		ClientMessageID: params.ClientMessageID,
		Content:         params.Content,
		ReplyToID:       params.ReplyToID,
	})
	if err != nil {
		return domain.Message{}, err
	}

	if len(params.AttachmentIDs) > 0 {
		linked, err := s.attachments.LinkToMessage(ctx, params.AttachmentIDs, msg.ID.UUID(), params.SenderID)
		if err != nil {
			return domain.Message{}, err
		}
		msg.Attachments = linked
	}

	if err := s.threads.Touch(ctx, params.ThreadID, msg.CreatedAt); err != nil {
		s.log.Warnf("touch thread %s: %v", params.ThreadID, err)
	}

	s.publishInsert(ctx, msg)
	return msg, nil
}

func (s *MessageService) List(ctx context.Context, threadID, userID uuid.UUID, before time.Time, limit int) ([]domain.Message, bool, error) {
	ok, err := s.threads.IsParticipant(ctx, threadID, userID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, harbor_errors.ErrForbidden
	}
	return s.messages.ListBefore(ctx, threadID, before, limit)
}

// Delete soft-deletes the caller's own message and announces it.
func (s *MessageService) Delete(ctx context.Context, threadID, messageID, userID uuid.UUID) error {
	if err := s.messages.SoftDelete(ctx, threadID, messageID, userID); err != nil {
		return err
	}

	ev := &events.MessageDeletedEvent{ThreadIDVal: threadID, MessageID: messageID}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warnf("publish delete for %s: %v", messageID, err)
	}
	return nil
}

func (s *MessageService) publishInsert(ctx context.Context, msg domain.Message) {
	payload := MessageToPayload(msg)

	if err := s.bus.Publish(ctx, &events.MessageInsertedEvent{Message: payload}); err != nil {
		s.log.Warnf("publish message %s: %v", msg.ID, err)
	}

	at := msg.CreatedAt
	sender := msg.SenderID
	update := &events.ThreadUpdatedEvent{
		ThreadIDVal:        msg.ThreadID,
		LastMessagePreview: msg.Preview(),
		LastMessageAt:      &at,
		LastMessageSender:  &sender,
		UpdatedAt:          msg.CreatedAt,
	}
	if err := s.bus.Publish(ctx, update); err != nil {
		s.log.Warnf("publish thread update %s: %v", msg.ThreadID, err)
	}
}

// MessageToPayload converts a domain message to its wire shape.
func MessageToPayload(msg domain.Message) events.MessagePayload {
	payload := events.MessagePayload{
		ID:        msg.ID.UUID(),
		ThreadID:  msg.ThreadID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if msg.ReplyToID.Valid {
		id := msg.ReplyToID.UUID
		payload.ReplyToID = &id
	}
	for _, att := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, events.AttachmentPayload{
			ID:              att.ID,
			MediaType:       string(att.MediaType),
			StoragePath:     att.StoragePath,
			MimeType:        att.MimeType,
			FileSize:        att.FileSize,
			DurationSeconds: att.DurationSeconds,
			FileName:        att.FileName,
		})
	}
	return payload
}
