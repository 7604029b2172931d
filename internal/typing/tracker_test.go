package typing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broadcastRecorder struct {
	mu    sync.Mutex
	calls []bool
}

func (r *broadcastRecorder) record(_ context.Context, _ uuid.UUID, typing bool) {
	r.mu.Lock()
	r.calls = append(r.calls, typing)
	r.mu.Unlock()
}

func (r *broadcastRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTestTracker(t *testing.T, rec *broadcastRecorder) (*Tracker, *time.Time) {
	t.Helper()
	var broadcast Broadcast
	if rec != nil {
		broadcast = rec.record
	}
	tr := New(broadcast, nil, nil)
	t.Cleanup(tr.Stop)

	now := time.Now()
	tr.SetNow(func() time.Time { return now })
	return tr, &now
}

func TestComposeBroadcastsOnlyOnFirstKeystroke(t *testing.T) {
	rec := &broadcastRecorder{}
	tr, _ := newTestTracker(t, rec)
	threadID := uuid.New()

	ctx := context.Background()
	tr.Compose(ctx, threadID)
	tr.Compose(ctx, threadID)
	tr.Compose(ctx, threadID)

	assert.Equal(t, []bool{true}, rec.snapshot())
}

func TestStopComposingBroadcastsStop(t *testing.T) {
	rec := &broadcastRecorder{}
	tr, _ := newTestTracker(t, rec)
	threadID := uuid.New()

	ctx := context.Background()
	tr.Compose(ctx, threadID)
	tr.StopComposing(ctx, threadID)

	assert.Equal(t, []bool{true, false}, rec.snapshot())

	// A stop without a live composer broadcasts nothing.
	tr.StopComposing(ctx, threadID)
	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestPeerVisibleWhileActive(t *testing.T) {
	tr, _ := newTestTracker(t, nil)
	threadID := uuid.New()
	peer := uuid.New()

	tr.PeerStarted(threadID, peer)

	got, ok := tr.Peer(threadID)
	require.True(t, ok)
	assert.Equal(t, peer, got)
}

func TestPeerExpiresAfterInactivity(t *testing.T) {
	tr, now := newTestTracker(t, nil)
	threadID := uuid.New()

	tr.PeerStarted(threadID, uuid.New())

	*now = now.Add(InactivityWindow + time.Second)
	_, ok := tr.Peer(threadID)
	assert.False(t, ok, "indicator must be gone after the inactivity window")
}

func TestPeerStoppedLingersForGrace(t *testing.T) {
	tr, now := newTestTracker(t, nil)
	threadID := uuid.New()
	peer := uuid.New()

	tr.PeerStarted(threadID, peer)
	tr.PeerStopped(threadID, peer)

	// Still visible inside the grace window.
	*now = now.Add(StopGrace / 2)
	_, ok := tr.Peer(threadID)
	assert.True(t, ok)

	// Gone once the grace elapses.
	*now = now.Add(StopGrace)
	_, ok = tr.Peer(threadID)
	assert.False(t, ok)
}

func TestPeerStoppedIgnoresOtherUser(t *testing.T) {
	tr, now := newTestTracker(t, nil)
	threadID := uuid.New()
	peer := uuid.New()

	tr.PeerStarted(threadID, peer)
	tr.PeerStopped(threadID, uuid.New())

	// The stranger's stop must not shorten the real peer's window.
	*now = now.Add(StopGrace + time.Second)
	_, ok := tr.Peer(threadID)
	assert.True(t, ok)
}

func TestMessageArrivedClearsImmediately(t *testing.T) {
	tr, _ := newTestTracker(t, nil)
	threadID := uuid.New()
	peer := uuid.New()

	tr.PeerStarted(threadID, peer)
	tr.MessageArrived(threadID, peer)

	_, ok := tr.Peer(threadID)
	assert.False(t, ok)
}

func TestMessageArrivedIgnoresOtherSender(t *testing.T) {
	tr, _ := newTestTracker(t, nil)
	threadID := uuid.New()
	peer := uuid.New()

	tr.PeerStarted(threadID, peer)
	tr.MessageArrived(threadID, uuid.New())

	_, ok := tr.Peer(threadID)
	assert.True(t, ok)
}

func TestRestartedPeerSurvivesOldGrace(t *testing.T) {
	tr, now := newTestTracker(t, nil)
	threadID := uuid.New()
	peer := uuid.New()

	tr.PeerStarted(threadID, peer)
	tr.PeerStopped(threadID, peer)
	tr.PeerStarted(threadID, peer)

	// The fresh start resets the window past the stale grace deadline.
	*now = now.Add(StopGrace + time.Second)
	_, ok := tr.Peer(threadID)
	assert.True(t, ok)
}
