// Package typing tracks per-thread typing indicators: the local side
// debounces keystrokes into started/stopped broadcasts, the inbound side
// turns the peer's broadcasts into an ephemeral visible state with expiry.
// Nothing here is persisted; restart loses it all by design of the data,
// not of the code.
package typing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"harbor-chat/pkg/logger"
	"harbor-chat/pkg/timers"
)

const (
	// InactivityWindow is how long after the last keystroke a typing
	// indicator stays alive without a fresh broadcast.
	InactivityWindow = 4 * time.Second
	// StopGrace keeps the indicator visible briefly after an explicit
	// stop, absorbing short pauses between the peer's keystrokes.
	StopGrace = 2 * time.Second
)

// Broadcast publishes the local user's typing state for a thread.
type Broadcast func(ctx context.Context, threadID uuid.UUID, typing bool)

type peerState struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// Tracker holds typing state for every thread in the session.
type Tracker struct {
	mu        sync.Mutex
	peers     map[uuid.UUID]peerState
	localLive map[uuid.UUID]bool

	timers    *timers.Set
	broadcast Broadcast
	onChange  func(threadID uuid.UUID)
	now       func() time.Time
	log       *logger.Logger
}

// New creates a tracker. broadcast may be nil for a receive-only tracker;
// onChange is invoked (without the lock held) whenever a thread's visible
// indicator may have changed.
func New(broadcast Broadcast, onChange func(uuid.UUID), log *logger.Logger) *Tracker {
	if onChange == nil {
		onChange = func(uuid.UUID) {}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{
		peers:     make(map[uuid.UUID]peerState),
		localLive: make(map[uuid.UUID]bool),
		timers:    timers.NewSet(),
		broadcast: broadcast,
		onChange:  onChange,
		now:       time.Now,
		log:       log,
	}
}

// Compose records a local keystroke in a thread. The first keystroke
// broadcasts typing-started; repeats only push back the auto-stop timer.
func (t *Tracker) Compose(ctx context.Context, threadID uuid.UUID) {
	t.mu.Lock()
	first := !t.localLive[threadID]
	t.localLive[threadID] = true
	t.mu.Unlock()

	if first && t.broadcast != nil {
		t.broadcast(ctx, threadID, true)
	}
	t.timers.Schedule("local:"+threadID.String(), InactivityWindow, func() {
		t.StopComposing(context.Background(), threadID)
	})
}

// StopComposing ends the local typing state immediately (message sent,
// composer cleared, thread switched away).
func (t *Tracker) StopComposing(ctx context.Context, threadID uuid.UUID) {
	t.timers.Cancel("local:" + threadID.String())

	t.mu.Lock()
	live := t.localLive[threadID]
	delete(t.localLive, threadID)
	t.mu.Unlock()

	if live && t.broadcast != nil {
		t.broadcast(ctx, threadID, false)
	}
}

// PeerStarted handles an inbound typing-started broadcast.
func (t *Tracker) PeerStarted(threadID, userID uuid.UUID) {
	t.mu.Lock()
	t.peers[threadID] = peerState{userID: userID, expiresAt: t.now().Add(InactivityWindow)}
	t.mu.Unlock()

	// No broadcast for InactivityWindow means the peer went away; clear
	// without waiting for an explicit stop.
	t.timers.Schedule("peer:"+threadID.String(), InactivityWindow, func() {
		t.expirePeer(threadID)
	})
	t.onChange(threadID)
}

// PeerStopped handles an inbound typing-stopped broadcast. The indicator
// lingers for StopGrace so a short pause between keystrokes does not
// flicker; a new started broadcast within the grace keeps it alive.
func (t *Tracker) PeerStopped(threadID, userID uuid.UUID) {
	t.mu.Lock()
	state, ok := t.peers[threadID]
	if ok && state.userID == userID {
		state.expiresAt = t.now().Add(StopGrace)
		t.peers[threadID] = state
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	t.timers.Schedule("peer:"+threadID.String(), StopGrace, func() {
		t.expirePeer(threadID)
	})
}

// MessageArrived clears the peer indicator immediately: the message the
// peer was typing is here.
func (t *Tracker) MessageArrived(threadID, senderID uuid.UUID) {
	t.mu.Lock()
	state, ok := t.peers[threadID]
	if ok && state.userID == senderID {
		delete(t.peers, threadID)
	} else {
		ok = false
	}
	t.mu.Unlock()

	if ok {
		t.timers.Cancel("peer:" + threadID.String())
		t.onChange(threadID)
	}
}

// Peer returns the user currently shown as typing in a thread, if any.
func (t *Tracker) Peer(threadID uuid.UUID) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.peers[threadID]
	if !ok || !state.expiresAt.After(t.now()) {
		return uuid.Nil, false
	}
	return state.userID, true
}

// Stop cancels all pending timers.
func (t *Tracker) Stop() {
	t.timers.Stop()
}

// SetNow overrides the tracker's clock. Test hook.
func (t *Tracker) SetNow(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *Tracker) expirePeer(threadID uuid.UUID) {
	t.mu.Lock()
	state, ok := t.peers[threadID]
	if ok && !state.expiresAt.After(t.now()) {
		delete(t.peers, threadID)
	} else {
		ok = false
	}
	t.mu.Unlock()

	if ok {
		t.onChange(threadID)
	}
}
