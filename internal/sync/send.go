package sync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	harbor_errors "harbor-chat/pkg/errors"
)

// Send runs the optimistic send pipeline for a composed draft:
//
//	composing -> optimistic-pending -> confirmed | failed-rolled-back
//
// Validation happens before any remote call. On entry to pending the
// message is appended and the conversation preview patched; on
// confirmation the pending entry is swapped in place for the server echo;
// on failure the pending entry is removed, the preview restored, and the
// error surfaced. The draft itself is returned untouched to the caller on
// failure so the composer can be restored.
func (s *Session) Send(ctx context.Context, threadID uuid.UUID, draft Draft) error {
	draft.Content = strings.TrimSpace(draft.Content)
	if err := validateDraft(draft); err != nil {
		s.notify.Info("nothing to send")
		return err
	}

	threadID, err := s.resolveThread(ctx, threadID)
	if err != nil {
		s.notify.Error("no conversation selected")
		return err
	}

	if draft.ClientID == uuid.Nil {
		draft.ClientID = uuid.New()
	}

	pending := domain.Message{
		ID:          domain.PendingID(draft.ClientID),
		ThreadID:    threadID,
		SenderID:    s.viewerID,
		Content:     draft.Content,
		Attachments: draft.Attachments,
		ReplyToID:   draft.ReplyToID,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	store := s.storeLocked(threadID)
	store.Apply(OptimisticAppend{Message: pending})
	s.conversations.ApplyMessage(pending)
	s.mu.Unlock()

	s.typing.StopComposing(ctx, threadID)
	s.changed(threadID)

	confirmed, err := s.gateway.SendMessage(ctx, threadID, draft)
	if err != nil {
		s.rollback(threadID, pending.ID)
		s.notify.Error("message could not be sent")
		return err
	}

	s.mu.Lock()
	store.Apply(Reconcile{TempID: pending.ID, Message: confirmed})
	s.conversations.ApplyMessage(confirmed)
	s.mu.Unlock()

	s.changed(threadID)
	return nil
}

// resolveThread picks the destination for a send. A zero thread id falls
// back to refreshing the list and taking the most recent conversation.
func (s *Session) resolveThread(ctx context.Context, threadID uuid.UUID) (uuid.UUID, error) {
	if threadID != uuid.Nil {
		return threadID, nil
	}

	s.mu.Lock()
	latest, ok := s.conversations.Latest()
	s.mu.Unlock()
	if ok {
		return latest.ThreadID, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	latest, ok = s.conversations.Latest()
	s.mu.Unlock()
	if !ok {
		return uuid.Nil, harbor_errors.ErrNoThread
	}
	return latest.ThreadID, nil
}

// rollback removes the pending entry and restores the conversation
// preview to the last confirmed message, or clears it if none remain.
func (s *Session) rollback(threadID uuid.UUID, tempID domain.MessageID) {
	s.mu.Lock()
	store := s.storeLocked(threadID)
	store.Apply(Rollback{TempID: tempID})
	if last, ok := store.LastConfirmed(); ok {
		s.conversations.SetPreview(threadID, last.Preview(), last.CreatedAt, last.SenderID)
	} else {
		s.conversations.SetPreview(threadID, "", time.Time{}, uuid.Nil)
	}
	s.mu.Unlock()

	s.changed(threadID)
}

func validateDraft(draft Draft) error {
	if draft.Content != "" {
		return nil
	}
	for _, att := range draft.Attachments {
		if att.Status == domain.AttachmentReady {
			return nil
		}
	}
	return harbor_errors.ErrEmptyMessage
}
