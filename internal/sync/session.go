// Package sync is the messaging view's synchronization core: in-memory
// session state reconciled against the remote backend and its push
// events. The backend stays the source of truth; everything here is an
// optimistic cache that converges on it.
package sync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	gosync "sync"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
	"harbor-chat/internal/typing"
	"harbor-chat/internal/urlcache"
	"harbor-chat/pkg/logger"
	"harbor-chat/pkg/timers"
)

const (
	// DefaultPageSize is the message page size for loads and pagination.
	DefaultPageSize = 50

	searchDebounce   = 300 * time.Millisecond
	prefetchDebounce = 150 * time.Millisecond
)

// Session is one user's messaging state: the conversation list, the
// per-thread message stores, typing indicators, presence, and the
// attachment URL cache. All mutations (API calls, timer callbacks, push
// callbacks) serialize behind one mutex, mirroring the event-loop
// discipline the state machines assume.
type Session struct {
	mu       gosync.Mutex
	viewerID uuid.UUID

	gateway  Gateway
	realtime Realtime
	notify   Notifier
	log      *logger.Logger

	conversations *ConversationList
	threads       map[uuid.UUID]*ThreadStore
	online        map[uuid.UUID]bool

	urls   *urlcache.Cache
	typing *typing.Tracker
	timers *timers.Set

	active         uuid.UUID
	cancelLoad     context.CancelFunc
	teardownThread func()
	teardownGlobal func()

	pageSize int

	// OnChange, when set, is invoked after any state change a UI would
	// re-render for, with the thread it concerns (uuid.Nil for the list).
	OnChange func(threadID uuid.UUID)
}

type Options struct {
	PageSize int
	Notifier Notifier
	Logger   *logger.Logger
}

func NewSession(viewerID uuid.UUID, gateway Gateway, realtime Realtime, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	s := &Session{
		viewerID:      viewerID,
		gateway:       gateway,
		realtime:      realtime,
		notify:        opts.Notifier,
		log:           opts.Logger,
		conversations: NewConversationList(viewerID),
		threads:       make(map[uuid.UUID]*ThreadStore),
		online:        make(map[uuid.UUID]bool),
		timers:        timers.NewSet(),
		pageSize:      opts.PageSize,
	}
	s.urls = urlcache.New(urlcache.ProviderFunc(gateway.SignedURL), urlcache.DefaultRefreshMargin, opts.Logger)
	s.typing = typing.New(s.broadcastTyping, s.changed, opts.Logger)
	return s
}

// Start loads the conversation list and opens the global thread-updates
// subscription.
func (s *Session) Start(ctx context.Context) error {
	teardown, err := s.realtime.Subscribe(ctx, []string{events.ChannelThreadUpdates}, s.HandleEvent)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.teardownGlobal = teardown
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Stop tears down subscriptions and timers.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	teardownThread := s.teardownThread
	teardownGlobal := s.teardownGlobal
	s.teardownThread = nil
	s.teardownGlobal = nil
	s.mu.Unlock()

	if teardownThread != nil {
		teardownThread()
	}
	if teardownGlobal != nil {
		teardownGlobal()
	}
	s.timers.Stop()
	s.typing.Stop()
}

// ViewerID returns the session owner.
func (s *Session) ViewerID() uuid.UUID { return s.viewerID }

// Refresh refetches the full conversation list, replacing it.
func (s *Session) Refresh(ctx context.Context) error {
	summaries, err := s.gateway.ListThreads(ctx)
	if err != nil {
		s.notify.Error("could not load conversations")
		return err
	}

	s.mu.Lock()
	s.conversations.Replace(summaries)
	s.mu.Unlock()

	s.changed(uuid.Nil)
	return nil
}

// Search schedules a debounced thread search; a repeat call within the
// debounce window replaces the pending one. Results replace the list the
// same way a refresh does.
func (s *Session) Search(query string) {
	query = strings.TrimSpace(query)
	s.timers.Schedule("search", searchDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var (
			summaries []domain.ConversationSummary
			err       error
		)
		if query == "" {
			summaries, err = s.gateway.ListThreads(ctx)
		} else {
			summaries, err = s.gateway.SearchThreads(ctx, query)
		}
		if err != nil {
			s.log.Warnf("thread search %q: %v", query, err)
			return
		}

		s.mu.Lock()
		s.conversations.Replace(summaries)
		s.mu.Unlock()
		s.changed(uuid.Nil)
	})
}

// Conversations returns the inbox in display order.
func (s *Session) Conversations() []domain.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations.Summaries()
}

// Unread reports whether a thread is unread for the viewer.
func (s *Session) Unread(threadID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations.Unread(threadID)
}

// Messages returns the cached message list for a thread.
func (s *Session) Messages(threadID uuid.UUID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.threads[threadID]; ok {
		return store.Messages()
	}
	return nil
}

// ActiveThread returns the currently selected thread, if any.
func (s *Session) ActiveThread() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// PeerOnline reports the other participant's presence for a thread.
func (s *Session) PeerOnline(threadID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[threadID]
}

// PeerTyping returns the user shown as typing in a thread, if any.
func (s *Session) PeerTyping(threadID uuid.UUID) (uuid.UUID, bool) {
	return s.typing.Peer(threadID)
}

// AttachmentURL returns the cached signed URL for an attachment, if a
// fresh one exists. Absence means the UI shows a placeholder.
func (s *Session) AttachmentURL(attachmentID uuid.UUID) (domain.SignedURL, bool) {
	return s.urls.URL(attachmentID)
}

// SelectThread makes a thread the active one: the previous thread's
// subscriptions and any in-flight load are torn down first, then the new
// thread's channels are opened and its messages loaded. An already cached
// thread short-circuits the fetch for an instant switch.
func (s *Session) SelectThread(ctx context.Context, threadID uuid.UUID) error {
	s.mu.Lock()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	prevTeardown := s.teardownThread
	s.teardownThread = nil
	s.active = threadID
	store := s.storeLocked(threadID)
	cached := store.Loaded()
	unread := s.conversations.Unread(threadID)
	s.mu.Unlock()

	// Old subscriptions go before new ones are established; overlapping
	// subscriptions would deliver duplicates.
	if prevTeardown != nil {
		prevTeardown()
	}

	teardown, err := s.realtime.Subscribe(ctx, []string{
		events.ThreadChannel(threadID),
		events.PresenceChannel(threadID),
	}, s.HandleEvent)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.teardownThread = teardown
	s.mu.Unlock()

	if unread {
		s.MarkRead(ctx, threadID)
	}
	if cached {
		s.changed(threadID)
		return nil
	}
	return s.loadThread(ctx, threadID)
}

// Prefetch warms a thread's message cache ahead of selection (hover),
// debounced per thread.
func (s *Session) Prefetch(threadID uuid.UUID) {
	s.timers.Schedule("prefetch:"+threadID.String(), prefetchDebounce, func() {
		s.mu.Lock()
		loaded := s.storeLocked(threadID).Loaded()
		s.mu.Unlock()
		if loaded {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.loadThread(ctx, threadID); err != nil {
			s.log.Warnf("prefetch thread %s: %v", threadID, err)
		}
	})
}

// LoadOlder fetches the page before the thread's current cursor and
// prepends it. A call while a fetch is in flight, or when nothing older
// remains, is a no-op.
func (s *Session) LoadOlder(ctx context.Context, threadID uuid.UUID) error {
	s.mu.Lock()
	store := s.storeLocked(threadID)
	if !store.BeginPaging() {
		s.mu.Unlock()
		return nil
	}
	cursor := store.NextCursor()
	s.mu.Unlock()

	older, hasMore, err := s.gateway.ListMessages(ctx, threadID, cursor, s.pageSize)
	if err != nil {
		s.mu.Lock()
		store.EndPaging()
		s.mu.Unlock()
		s.notify.Error("could not load older messages")
		return err
	}

	s.mu.Lock()
	changed := store.Apply(Paginate{Older: older, HasMore: hasMore})
	s.mu.Unlock()

	if changed {
		s.primeAttachments(older)
		s.changed(threadID)
	}
	return nil
}

// MarkRead optimistically sets the viewer's read mark and confirms it
// remotely. A remote failure leaves the optimistic mark; the next refresh
// restores ground truth.
func (s *Session) MarkRead(ctx context.Context, threadID uuid.UUID) {
	now := time.Now()

	s.mu.Lock()
	s.conversations.MarkRead(threadID, now)
	s.mu.Unlock()
	s.changed(uuid.Nil)

	if err := s.gateway.MarkRead(ctx, threadID, now); err != nil {
		s.log.Warnf("mark read %s: %v", threadID, err)
	}
}

// DeleteMessage removes a message remotely, then locally. No local
// soft-delete speculation: the entry stays until the server confirms.
func (s *Session) DeleteMessage(ctx context.Context, threadID, messageID uuid.UUID) error {
	if err := s.gateway.DeleteMessage(ctx, threadID, messageID); err != nil {
		s.notify.Error("could not delete message")
		return err
	}

	s.mu.Lock()
	store := s.storeLocked(threadID)
	changed := store.Apply(Remove{MessageID: messageID})
	s.mu.Unlock()

	if changed {
		s.changed(threadID)
	}
	return nil
}

// Keystroke records composer activity for the active thread, driving the
// outbound typing broadcast.
func (s *Session) Keystroke(ctx context.Context, threadID uuid.UUID) {
	s.typing.Compose(ctx, threadID)
}

// loadThread fetches the latest page and commits it, unless the fetch was
// cancelled by a newer thread switch in the meantime.
func (s *Session) loadThread(ctx context.Context, threadID uuid.UUID) error {
	loadCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.active == threadID {
		s.cancelLoad = cancel
	}
	s.mu.Unlock()
	defer cancel()

	msgs, hasMore, err := s.gateway.ListMessages(loadCtx, threadID, time.Time{}, s.pageSize)
	if err != nil {
		if loadCtx.Err() != nil {
			// Abandoned switch; the response is stale, not an error.
			return nil
		}
		s.notify.Error("could not load messages")
		return err
	}
	// A stale response for an abandoned switch must not clobber state.
	if loadCtx.Err() != nil {
		return nil
	}

	s.mu.Lock()
	store := s.storeLocked(threadID)
	store.Apply(Load{Messages: msgs, HasMore: hasMore})
	if s.cancelLoad != nil && s.active == threadID {
		s.cancelLoad = nil
	}
	s.mu.Unlock()

	s.primeAttachments(msgs)
	s.changed(threadID)
	return nil
}

// primeAttachments warms signed URLs in the background; it is a
// best-effort side channel, never awaited.
func (s *Session) primeAttachments(msgs []domain.Message) {
	var atts []domain.Attachment
	for _, m := range msgs {
		atts = append(atts, m.Attachments...)
	}
	if len(atts) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.urls.EnsureURLs(ctx, atts, false)
		s.changed(uuid.Nil)
	}()
}

func (s *Session) broadcastTyping(ctx context.Context, threadID uuid.UUID, isTyping bool) {
	eventType := events.EventTypingStopped
	if isTyping {
		eventType = events.EventTypingStarted
	}
	ev := &events.TypingEvent{
		EventTypeVal: eventType,
		ThreadIDVal:  threadID,
		UserID:       s.viewerID,
	}
	if err := s.realtime.Publish(ctx, ev); err != nil {
		s.log.Warnf("typing broadcast %s: %v", threadID, err)
	}
}

// storeLocked returns the thread's store, creating it if needed. Caller
// holds s.mu.
func (s *Session) storeLocked(threadID uuid.UUID) *ThreadStore {
	store, ok := s.threads[threadID]
	if !ok {
		store = NewThreadStore(threadID, s.viewerID)
		s.threads[threadID] = store
	}
	return store
}

func (s *Session) changed(threadID uuid.UUID) {
	if s.OnChange != nil {
		s.OnChange(threadID)
	}
}
