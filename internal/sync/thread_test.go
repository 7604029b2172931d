package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbor-chat/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func confirmedMsg(threadID, senderID uuid.UUID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        domain.ConfirmedID(uuid.New()),
		ThreadID:  threadID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: at,
	}
}

func TestLoadSortsAscendingAndSetsCursor(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)

	m1 := confirmedMsg(threadID, viewer, "first", baseTime)
	m2 := confirmedMsg(threadID, viewer, "second", baseTime.Add(time.Minute))
	m3 := confirmedMsg(threadID, viewer, "third", baseTime.Add(2*time.Minute))

	// Arrives newest-first; the store normalizes to ascending.
	store.Apply(Load{Messages: []domain.Message{m3, m1, m2}, HasMore: true})

	msgs := store.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "third", msgs[2].Content)
	assert.True(t, store.Loaded())
	assert.True(t, store.HasMore())
	assert.Equal(t, baseTime, store.NextCursor())
}

func TestEmptyLoadClearsHasMore(t *testing.T) {
	store := NewThreadStore(uuid.New(), uuid.New())
	store.Apply(Load{Messages: nil, HasMore: true})

	assert.True(t, store.Loaded())
	assert.False(t, store.HasMore())
	assert.Zero(t, store.Len())
}

func TestPaginatePrependsOlderOnly(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)

	current := confirmedMsg(threadID, viewer, "current", baseTime)
	store.Apply(Load{Messages: []domain.Message{current}, HasMore: true})

	older := confirmedMsg(threadID, viewer, "older", baseTime.Add(-time.Hour))
	duplicate := current
	changed := store.Apply(Paginate{Older: []domain.Message{older, duplicate}, HasMore: false})

	require.True(t, changed)
	msgs := store.Messages()
	require.Len(t, msgs, 2, "the duplicate at the cursor must be filtered")
	assert.Equal(t, "older", msgs[0].Content)
	assert.Equal(t, older.CreatedAt, store.NextCursor())
	assert.False(t, store.HasMore())
}

func TestBeginPagingGuards(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)

	assert.False(t, store.BeginPaging(), "nothing to page before the initial load")

	store.Apply(Load{Messages: []domain.Message{confirmedMsg(threadID, viewer, "m", baseTime)}, HasMore: true})
	require.True(t, store.BeginPaging())
	assert.False(t, store.BeginPaging(), "a second fetch must not start while one is in flight")

	store.EndPaging()
	assert.True(t, store.BeginPaging())
	store.EndPaging()
}

func TestOptimisticSendReconciles(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)
	store.Apply(Load{Messages: nil})

	tempID := domain.NewPendingID()
	pending := domain.Message{ID: tempID, ThreadID: threadID, SenderID: viewer, Content: "hi", CreatedAt: baseTime}
	store.Apply(OptimisticAppend{Message: pending})

	last, ok := store.Last()
	require.True(t, ok)
	assert.True(t, last.ID.Pending())

	confirmed := confirmedMsg(threadID, viewer, "hi", baseTime.Add(time.Second))
	store.Apply(Reconcile{TempID: tempID, Message: confirmed})

	require.Equal(t, 1, store.Len(), "reconcile swaps in place, never duplicates")
	last, _ = store.Last()
	assert.False(t, last.ID.Pending())
	assert.Equal(t, confirmed.ID, last.ID)
}

func TestReconcileAppendsWhenPendingEntryGone(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)
	store.Apply(Load{Messages: nil})

	confirmed := confirmedMsg(threadID, viewer, "hi", baseTime)
	changed := store.Apply(Reconcile{TempID: domain.NewPendingID(), Message: confirmed})

	assert.True(t, changed)
	assert.Equal(t, 1, store.Len())
}

func TestRollbackRemovesPendingEntry(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)

	kept := confirmedMsg(threadID, viewer, "kept", baseTime)
	store.Apply(Load{Messages: []domain.Message{kept}})

	tempID := domain.NewPendingID()
	store.Apply(OptimisticAppend{Message: domain.Message{ID: tempID, ThreadID: threadID, SenderID: viewer, CreatedAt: baseTime.Add(time.Second)}})
	require.Equal(t, 2, store.Len())

	assert.True(t, store.Apply(Rollback{TempID: tempID}))
	require.Equal(t, 1, store.Len())
	last, _ := store.LastConfirmed()
	assert.Equal(t, "kept", last.Content)

	assert.False(t, store.Apply(Rollback{TempID: tempID}), "a repeated rollback is a no-op")
}

func TestInboundInsertIsIdempotent(t *testing.T) {
	threadID, viewer, peer := uuid.New(), uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)
	store.Apply(Load{Messages: nil})

	msg := confirmedMsg(threadID, peer, "hello", baseTime)
	assert.True(t, store.Apply(InboundInsert{Message: msg}))
	assert.False(t, store.Apply(InboundInsert{Message: msg}), "duplicate delivery must not duplicate the entry")
	assert.Equal(t, 1, store.Len())
}

func TestInboundInsertRejectsOwnMessages(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)
	store.Apply(Load{Messages: nil})

	own := confirmedMsg(threadID, viewer, "mine", baseTime)
	assert.False(t, store.Apply(InboundInsert{Message: own}))
	assert.Zero(t, store.Len())
}

func TestReceiptInsertRules(t *testing.T) {
	threadID, viewer, peer := uuid.New(), uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)

	mine := confirmedMsg(threadID, viewer, "mine", baseTime)
	theirs := confirmedMsg(threadID, peer, "theirs", baseTime.Add(time.Second))
	store.Apply(Load{Messages: []domain.Message{mine, theirs}})

	receipt := domain.ReadReceipt{MessageID: mine.ID.UUID(), UserID: peer, ReadAt: baseTime.Add(time.Minute)}
	assert.True(t, store.Apply(ReceiptInsert{Receipt: receipt}))
	assert.False(t, store.Apply(ReceiptInsert{Receipt: receipt}), "one receipt per reader per message")

	// Receipts only land on the viewer's own messages.
	onTheirs := domain.ReadReceipt{MessageID: theirs.ID.UUID(), UserID: viewer, ReadAt: baseTime.Add(time.Minute)}
	assert.False(t, store.Apply(ReceiptInsert{Receipt: onTheirs}))

	// Unknown message id.
	assert.False(t, store.Apply(ReceiptInsert{Receipt: domain.ReadReceipt{MessageID: uuid.New(), UserID: peer}}))

	msgs := store.Messages()
	require.Len(t, msgs[0].Receipts, 1)
	assert.Equal(t, peer, msgs[0].Receipts[0].UserID)
}

func TestRemove(t *testing.T) {
	threadID, viewer := uuid.New(), uuid.New()
	store := NewThreadStore(threadID, viewer)

	msg := confirmedMsg(threadID, viewer, "gone", baseTime)
	store.Apply(Load{Messages: []domain.Message{msg}})

	assert.True(t, store.Apply(Remove{MessageID: msg.ID.UUID()}))
	assert.False(t, store.Apply(Remove{MessageID: msg.ID.UUID()}))
	assert.Zero(t, store.Len())
}

func TestPendingAndConfirmedIDsNeverCollide(t *testing.T) {
	id := uuid.New()
	store := NewThreadStore(uuid.New(), uuid.New())
	store.Apply(Load{Messages: nil})
	store.Apply(OptimisticAppend{Message: domain.Message{ID: domain.PendingID(id), CreatedAt: baseTime}})

	assert.False(t, store.Contains(id), "a pending id must not satisfy a confirmed lookup")
}
