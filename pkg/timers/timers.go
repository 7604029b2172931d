// Package timers provides keyed, cancellable one-shot timers with a
// cancel-on-repeat discipline: scheduling under a key that already has a
// pending timer replaces the pending timer. Typing broadcasts, search
// debouncing and prefetch-on-hover all share this instead of carrying
// their own ad-hoc timer state.
package timers

import (
	"sync"
	"time"
)

// Set is a collection of keyed one-shot timers. The zero value is not
// usable; construct with NewSet.
type Set struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewSet() *Set {
	return &Set{pending: make(map[string]*time.Timer)}
}

// Schedule arms a one-shot timer for key, replacing any pending timer for
// the same key. fn runs on the timer goroutine after d elapses, unless the
// timer is replaced or cancelled first.
func (s *Set) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[key]; ok {
		t.Stop()
	}
	s.pending[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops any pending timer for key. Returns true if a timer was
// pending and had not fired.
func (s *Set) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	return t.Stop()
}

// Pending reports whether a timer is armed for key.
func (s *Set) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Stop cancels every pending timer. The set remains usable afterwards.
func (s *Set) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.pending {
		t.Stop()
		delete(s.pending, key)
	}
}
