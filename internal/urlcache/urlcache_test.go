package urlcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbor-chat/internal/domain"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	ttl   time.Duration
	err   error
	now   func() time.Time
}

func (p *countingProvider) SignedURL(_ context.Context, att domain.Attachment) (domain.SignedURL, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return domain.SignedURL{}, p.err
	}
	return domain.SignedURL{
		URL:       fmt.Sprintf("https://signed.example/%s?n=%d", att.ID, p.calls),
		ExpiresAt: p.now().Add(p.ttl),
	}, nil
}

func (p *countingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testAttachment() domain.Attachment {
	return domain.Attachment{
		ID:          uuid.New(),
		MediaType:   domain.MediaImage,
		StoragePath: "attachments/u/pic.jpg",
	}
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *countingProvider, *time.Time) {
	t.Helper()
	now := time.Now()
	provider := &countingProvider{ttl: ttl, now: func() time.Time { return now }}
	cache := New(provider, DefaultRefreshMargin, nil)
	cache.SetNow(func() time.Time { return now })
	return cache, provider, &now
}

func TestEnsureURLsCachesPerAttachment(t *testing.T) {
	cache, provider, _ := newTestCache(t, 15*time.Minute)
	att := testAttachment()

	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)
	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)

	assert.Equal(t, 1, provider.count(), "a fresh URL must not be re-requested")

	signed, ok := cache.URL(att.ID)
	require.True(t, ok)
	assert.Contains(t, signed.URL, att.ID.String())
}

func TestEnsureURLsRefreshesNearExpiry(t *testing.T) {
	cache, provider, now := newTestCache(t, 15*time.Minute)
	att := testAttachment()

	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)
	require.Equal(t, 1, provider.count())

	// Inside the refresh margin the URL still works but gets re-requested.
	*now = now.Add(6 * time.Minute)
	provider.now = func() time.Time { return *now }
	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)
	assert.Equal(t, 2, provider.count())
}

func TestForceRefetches(t *testing.T) {
	cache, provider, _ := newTestCache(t, 15*time.Minute)
	att := testAttachment()

	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)
	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, true)

	assert.Equal(t, 2, provider.count())
}

func TestExpiredURLIsAMiss(t *testing.T) {
	cache, _, now := newTestCache(t, 15*time.Minute)
	att := testAttachment()

	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)

	*now = now.Add(16 * time.Minute)
	_, ok := cache.URL(att.ID)
	assert.False(t, ok, "an expired URL must never be handed out")
}

func TestProviderFailureIsSwallowed(t *testing.T) {
	cache, provider, _ := newTestCache(t, 15*time.Minute)
	provider.err = errors.New("s3 down")
	att := testAttachment()

	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)

	_, ok := cache.URL(att.ID)
	assert.False(t, ok)

	// The failure leaves no poisoned entry; the next pass retries.
	provider.err = nil
	cache.EnsureURLs(context.Background(), []domain.Attachment{att}, false)
	_, ok = cache.URL(att.ID)
	assert.True(t, ok)
}

func TestAttachmentWithoutStoragePathIsSkipped(t *testing.T) {
	cache, provider, _ := newTestCache(t, 15*time.Minute)

	cache.EnsureURLs(context.Background(), []domain.Attachment{{ID: uuid.New()}}, false)
	assert.Equal(t, 0, provider.count())
}
