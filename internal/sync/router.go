package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
)

// HandleEvent is the single entry point for inbound push traffic. The
// transport (Redis subscription, WebSocket feed, test fixture) delivers
// tagged events here; this dispatch owns every merge rule, so duplicate
// or out-of-order delivery is absorbed by the stores, not the transport.
func (s *Session) HandleEvent(ev events.Event) {
	switch ev := ev.(type) {
	case *events.MessageInsertedEvent:
		s.handleMessageInserted(ev)
	case *events.MessageDeletedEvent:
		s.handleMessageDeleted(ev)
	case *events.ReceiptInsertedEvent:
		s.handleReceiptInserted(ev)
	case *events.ThreadUpdatedEvent:
		s.handleThreadUpdated(ev)
	case *events.PresenceSyncEvent:
		s.handlePresenceSync(ev)
	case *events.TypingEvent:
		s.handleTyping(ev)
	}
}

func (s *Session) handleMessageInserted(ev *events.MessageInsertedEvent) {
	msg := ev.Message.ToDomain()

	s.mu.Lock()
	inserted := false
	// Only a loaded store takes the insert; seeding an unloaded thread
	// with one pushed message would masquerade as a full page.
	if store, ok := s.threads[msg.ThreadID]; ok && store.Loaded() {
		inserted = store.Apply(InboundInsert{Message: msg})
	}
	known := s.conversations.ApplyMessage(msg)
	isActive := s.active == msg.ThreadID
	s.mu.Unlock()

	s.typing.MessageArrived(msg.ThreadID, msg.SenderID)

	if !known {
		// A message on a thread the list has never seen; refetch rather
		// than invent a summary from a partial row.
		go s.refreshBackground()
	}
	if inserted {
		s.primeAttachments([]domain.Message{msg})
		if isActive {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				s.MarkRead(ctx, msg.ThreadID)
			}()
		}
	}
	s.changed(msg.ThreadID)
}

func (s *Session) handleMessageDeleted(ev *events.MessageDeletedEvent) {
	s.mu.Lock()
	changed := false
	if store, ok := s.threads[ev.ThreadID()]; ok {
		changed = store.Apply(Remove{MessageID: ev.MessageID})
	}
	s.mu.Unlock()

	if changed {
		s.changed(ev.ThreadID())
	}
}

func (s *Session) handleReceiptInserted(ev *events.ReceiptInsertedEvent) {
	receipt := domain.ReadReceipt{
		MessageID: ev.MessageID,
		UserID:    ev.UserID,
		ReadAt:    ev.ReadAt,
	}

	s.mu.Lock()
	changed := false
	if store, ok := s.threads[ev.ThreadID()]; ok {
		changed = store.Apply(ReceiptInsert{Receipt: receipt})
	}
	s.mu.Unlock()

	if changed {
		s.changed(ev.ThreadID())
	}
}

func (s *Session) handleThreadUpdated(ev *events.ThreadUpdatedEvent) {
	s.mu.Lock()
	known := s.conversations.ApplyThreadUpdate(ev)
	s.mu.Unlock()

	if !known {
		go s.refreshBackground()
		return
	}
	s.changed(uuid.Nil)
}

func (s *Session) handlePresenceSync(ev *events.PresenceSyncEvent) {
	s.mu.Lock()
	summary, ok := s.conversations.Get(ev.ThreadIDVal)
	if ok {
		s.online[ev.ThreadIDVal] = ev.Online(summary.Other.ID)
	}
	s.mu.Unlock()

	if ok {
		s.changed(ev.ThreadIDVal)
	}
}

func (s *Session) handleTyping(ev *events.TypingEvent) {
	if ev.UserID == s.viewerID {
		return
	}
	switch ev.Type() {
	case events.EventTypingStarted:
		s.typing.PeerStarted(ev.ThreadID(), ev.UserID)
	case events.EventTypingStopped:
		s.typing.PeerStopped(ev.ThreadID(), ev.UserID)
	}
}

func (s *Session) refreshBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Refresh(ctx); err != nil {
		s.log.Warnf("background refresh: %v", err)
	}
}
