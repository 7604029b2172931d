package timers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFires(t *testing.T) {
	s := NewSet()
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("k", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	assert.False(t, s.Pending("k"))
}

func TestScheduleReplacesPending(t *testing.T) {
	s := NewSet()
	defer s.Stop()

	var fired int32
	done := make(chan struct{})

	// The first schedule must never fire; the second replaces it.
	s.Schedule("k", 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.Schedule("k", 10*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
		close(done)
	})

	<-done
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCancel(t *testing.T) {
	s := NewSet()
	defer s.Stop()

	s.Schedule("k", 50*time.Millisecond, func() { t.Error("cancelled timer fired") })
	require.True(t, s.Pending("k"))
	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Pending("k"))
	assert.False(t, s.Cancel("k"))

	time.Sleep(80 * time.Millisecond)
}

func TestStopCancelsAll(t *testing.T) {
	s := NewSet()

	s.Schedule("a", 50*time.Millisecond, func() { t.Error("timer a fired after Stop") })
	s.Schedule("b", 50*time.Millisecond, func() { t.Error("timer b fired after Stop") })
	s.Stop()

	assert.False(t, s.Pending("a"))
	assert.False(t, s.Pending("b"))
	time.Sleep(80 * time.Millisecond)

	// The set stays usable after Stop.
	done := make(chan struct{})
	s.Schedule("c", 10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer after Stop never fired")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	s := NewSet()
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("a", 10*time.Millisecond, func() { close(done) })
	s.Schedule("b", time.Hour, func() {})

	<-done
	assert.True(t, s.Pending("b"))
}
