package sync

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
)

// ConversationList is the inbox: conversation summaries kept sorted
// descending by activity. It is merged from full refreshes, search
// results, sends, inbound messages and thread-update push events. Not
// self-locking; the owning Session serializes access.
type ConversationList struct {
	viewerID  uuid.UUID
	summaries []domain.ConversationSummary
}

func NewConversationList(viewerID uuid.UUID) *ConversationList {
	return &ConversationList{viewerID: viewerID}
}

// Replace swaps in a fresh server-provided list (full refresh or search
// results).
func (l *ConversationList) Replace(summaries []domain.ConversationSummary) {
	l.summaries = make([]domain.ConversationSummary, len(summaries))
	copy(l.summaries, summaries)
	l.resort()
}

// Summaries returns a copy of the current list in display order.
func (l *ConversationList) Summaries() []domain.ConversationSummary {
	out := make([]domain.ConversationSummary, len(l.summaries))
	copy(out, l.summaries)
	return out
}

// Get returns the summary for a thread, if it is in the list.
func (l *ConversationList) Get(threadID uuid.UUID) (domain.ConversationSummary, bool) {
	if i := l.indexOf(threadID); i >= 0 {
		return l.summaries[i], true
	}
	return domain.ConversationSummary{}, false
}

// Latest returns the most recently active conversation, if any.
func (l *ConversationList) Latest() (domain.ConversationSummary, bool) {
	if len(l.summaries) == 0 {
		return domain.ConversationSummary{}, false
	}
	return l.summaries[0], true
}

// Unread reports whether a thread is unread for the viewer.
func (l *ConversationList) Unread(threadID uuid.UUID) bool {
	summary, ok := l.Get(threadID)
	return ok && summary.UnreadBy(l.viewerID)
}

// ApplyMessage folds one message (sent or received) into the matching
// summary's preview and re-sorts. Returns false if the thread is unknown.
func (l *ConversationList) ApplyMessage(msg domain.Message) bool {
	i := l.indexOf(msg.ThreadID)
	if i < 0 {
		return false
	}
	l.summaries[i].LastMessagePreview = msg.Preview()
	l.summaries[i].LastMessageAt = msg.CreatedAt
	l.summaries[i].LastMessageSender = msg.SenderID
	l.resort()
	return true
}

// SetPreview overwrites a summary's last-message fields directly. The
// send pipeline uses it for rollback restoration; a zero at clears the
// preview entirely.
func (l *ConversationList) SetPreview(threadID uuid.UUID, preview string, at time.Time, sender uuid.UUID) bool {
	i := l.indexOf(threadID)
	if i < 0 {
		return false
	}
	l.summaries[i].LastMessagePreview = preview
	l.summaries[i].LastMessageAt = at
	l.summaries[i].LastMessageSender = sender
	l.resort()
	return true
}

// ApplyThreadUpdate patches a summary from a thread-row push event.
// Returns false if the thread is not in the list, in which case the
// caller refreshes the whole list: a partial row is not enough context to
// construct a summary.
func (l *ConversationList) ApplyThreadUpdate(ev *events.ThreadUpdatedEvent) bool {
	i := l.indexOf(ev.ThreadIDVal)
	if i < 0 {
		return false
	}
	if ev.LastMessagePreview != "" {
		l.summaries[i].LastMessagePreview = ev.LastMessagePreview
	}
	if ev.LastMessageAt != nil {
		l.summaries[i].LastMessageAt = *ev.LastMessageAt
	}
	if ev.LastMessageSender != nil {
		l.summaries[i].LastMessageSender = *ev.LastMessageSender
	}
	if ev.ParticipantStatus != "" {
		l.summaries[i].ParticipantStatus = domain.ParticipantStatus(ev.ParticipantStatus)
	}
	if !ev.UpdatedAt.IsZero() {
		l.summaries[i].UpdatedAt = ev.UpdatedAt
	}
	l.resort()
	return true
}

// MarkRead sets the viewer's read mark on a thread.
func (l *ConversationList) MarkRead(threadID uuid.UUID, at time.Time) bool {
	i := l.indexOf(threadID)
	if i < 0 {
		return false
	}
	l.summaries[i].LastReadAt = at
	return true
}

func (l *ConversationList) indexOf(threadID uuid.UUID) int {
	for i, s := range l.summaries {
		if s.ThreadID == threadID {
			return i
		}
	}
	return -1
}

func (l *ConversationList) resort() {
	sort.SliceStable(l.summaries, func(i, j int) bool {
		return l.summaries[i].ActivityAt().After(l.summaries[j].ActivityAt())
	})
}
