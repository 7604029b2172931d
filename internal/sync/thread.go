package sync

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
)

// ThreadUpdate is one tagged mutation against a thread's message list.
// Every path that touches the list, from initial load and pagination to
// optimistic send, reconciliation, rollback, and inbound push, is one of
// these variants, applied sequentially, so the merge rules live in one place
// and are testable without any transport.
type ThreadUpdate interface {
	isThreadUpdate()
}

// Load replaces the list with the latest page.
type Load struct {
	Messages []domain.Message
	HasMore  bool
}

// Paginate prepends a page of strictly older messages.
type Paginate struct {
	Older   []domain.Message
	HasMore bool
}

// OptimisticAppend adds a pending message at the tail.
type OptimisticAppend struct {
	Message domain.Message
}

// Reconcile swaps a pending entry for its server-confirmed echo, in
// place. If the pending entry is already gone (raced with a delete), the
// confirmed message is appended instead.
type Reconcile struct {
	TempID  domain.MessageID
	Message domain.Message
}

// Rollback removes a pending entry after a failed send.
type Rollback struct {
	TempID domain.MessageID
}

// InboundInsert appends a pushed message from the other participant.
type InboundInsert struct {
	Message domain.Message
}

// ReceiptInsert records a read receipt on one of the viewer's messages.
type ReceiptInsert struct {
	Receipt domain.ReadReceipt
}

// Remove drops a message after a confirmed remote delete.
type Remove struct {
	MessageID uuid.UUID
}

func (Load) isThreadUpdate()             {}
func (Paginate) isThreadUpdate()         {}
func (OptimisticAppend) isThreadUpdate() {}
func (Reconcile) isThreadUpdate()        {}
func (Rollback) isThreadUpdate()         {}
func (InboundInsert) isThreadUpdate()    {}
func (ReceiptInsert) isThreadUpdate()    {}
func (Remove) isThreadUpdate()           {}

// ThreadStore is one thread's message list plus its pagination state.
// Messages are kept in ascending CreatedAt order with unique ids. The
// store is not self-locking; the owning Session serializes access.
type ThreadStore struct {
	threadID uuid.UUID
	viewerID uuid.UUID

	messages []domain.Message

	loaded     bool
	hasMore    bool
	nextCursor time.Time
	paging     bool
}

func NewThreadStore(threadID, viewerID uuid.UUID) *ThreadStore {
	return &ThreadStore{threadID: threadID, viewerID: viewerID}
}

func (s *ThreadStore) ThreadID() uuid.UUID { return s.threadID }

// Loaded reports whether the initial page has been committed, which lets
// thread switches short-circuit without a network call.
func (s *ThreadStore) Loaded() bool { return s.loaded }

// HasMore reports whether older messages remain beyond the cursor.
func (s *ThreadStore) HasMore() bool { return s.hasMore }

// NextCursor is the CreatedAt of the oldest loaded message.
func (s *ThreadStore) NextCursor() time.Time { return s.nextCursor }

// Paging reports whether a backward-pagination fetch is in flight.
func (s *ThreadStore) Paging() bool { return s.paging }

// BeginPaging marks a pagination fetch in flight. Returns false if one
// already is, or if there is nothing more to fetch.
func (s *ThreadStore) BeginPaging() bool {
	if s.paging || !s.hasMore || !s.loaded {
		return false
	}
	s.paging = true
	return true
}

// EndPaging clears the in-flight flag.
func (s *ThreadStore) EndPaging() { s.paging = false }

// Messages returns a copy of the list.
func (s *ThreadStore) Messages() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ThreadStore) Len() int { return len(s.messages) }

// Last returns the newest message, if any.
func (s *ThreadStore) Last() (domain.Message, bool) {
	if len(s.messages) == 0 {
		return domain.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LastConfirmed returns the newest non-pending message, if any. Used to
// restore the conversation preview after a rollback.
func (s *ThreadStore) LastConfirmed() (domain.Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if !s.messages[i].ID.Pending() {
			return s.messages[i], true
		}
	}
	return domain.Message{}, false
}

// Contains reports whether any entry carries the given confirmed server
// id.
func (s *ThreadStore) Contains(serverID uuid.UUID) bool {
	return s.indexOf(domain.ConfirmedID(serverID)) >= 0
}

// Apply executes one tagged update. It returns true when the list
// changed; idempotence-guard rejections (duplicate inserts, repeated
// receipts, own-message pushes) return false and mutate nothing.
func (s *ThreadStore) Apply(u ThreadUpdate) bool {
	switch u := u.(type) {
	case Load:
		return s.applyLoad(u)
	case Paginate:
		return s.applyPaginate(u)
	case OptimisticAppend:
		s.messages = append(s.messages, u.Message)
		return true
	case Reconcile:
		return s.applyReconcile(u)
	case Rollback:
		return s.removeAt(s.indexOf(u.TempID))
	case InboundInsert:
		return s.applyInboundInsert(u)
	case ReceiptInsert:
		return s.applyReceiptInsert(u)
	case Remove:
		return s.removeAt(s.indexOf(domain.ConfirmedID(u.MessageID)))
	}
	return false
}

func (s *ThreadStore) applyLoad(u Load) bool {
	msgs := make([]domain.Message, len(u.Messages))
	copy(msgs, u.Messages)
	sortAscending(msgs)

	s.messages = msgs
	s.loaded = true
	s.hasMore = u.HasMore
	s.paging = false
	if len(msgs) > 0 {
		s.nextCursor = msgs[0].CreatedAt
	} else {
		s.nextCursor = time.Time{}
		s.hasMore = false
	}
	return true
}

func (s *ThreadStore) applyPaginate(u Paginate) bool {
	s.paging = false
	s.hasMore = u.HasMore
	if len(u.Older) == 0 {
		return false
	}

	older := make([]domain.Message, len(u.Older))
	copy(older, u.Older)
	sortAscending(older)

	// Pagination prepends strictly older entries; anything at or past the
	// cursor is a duplicate of what we already hold.
	kept := older[:0]
	for _, m := range older {
		if s.nextCursor.IsZero() || m.CreatedAt.Before(s.nextCursor) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return false
	}

	s.nextCursor = kept[0].CreatedAt
	s.messages = append(kept, s.messages...)
	return true
}

func (s *ThreadStore) applyReconcile(u Reconcile) bool {
	if i := s.indexOf(u.TempID); i >= 0 {
		s.messages[i] = u.Message
		return true
	}
	// The pending entry raced with a delete; the authoritative message
	// still happened, so it joins at the end.
	s.messages = append(s.messages, u.Message)
	return true
}

func (s *ThreadStore) applyInboundInsert(u InboundInsert) bool {
	// Own messages arrive via the optimistic path, never the push path.
	if u.Message.SenderID == s.viewerID {
		return false
	}
	// Duplicate delivery is expected; id-based merge keeps it idempotent.
	if s.indexOf(u.Message.ID) >= 0 {
		return false
	}
	s.messages = append(s.messages, u.Message)
	return true
}

func (s *ThreadStore) applyReceiptInsert(u ReceiptInsert) bool {
	i := s.indexOf(domain.ConfirmedID(u.Receipt.MessageID))
	if i < 0 {
		return false
	}
	// A sender only cares about receipts on their own messages.
	if s.messages[i].SenderID != s.viewerID {
		return false
	}
	if s.messages[i].HasReceiptFrom(u.Receipt.UserID) {
		return false
	}
	s.messages[i].Receipts = append(s.messages[i].Receipts, u.Receipt)
	return true
}

func (s *ThreadStore) indexOf(id domain.MessageID) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *ThreadStore) removeAt(i int) bool {
	if i < 0 {
		return false
	}
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	return true
}

func sortAscending(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
