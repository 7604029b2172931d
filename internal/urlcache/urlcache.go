// Package urlcache caches the time-limited signed URLs that make
// attachment storage paths viewable. URLs are a derived projection of the
// attachment record: cached per attachment id for the session, refreshed
// proactively before expiry, never persisted.
package urlcache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/pkg/logger"
)

// Provider resolves one attachment to a fresh signed URL.
type Provider interface {
	SignedURL(ctx context.Context, att domain.Attachment) (domain.SignedURL, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, att domain.Attachment) (domain.SignedURL, error)

func (f ProviderFunc) SignedURL(ctx context.Context, att domain.Attachment) (domain.SignedURL, error) {
	return f(ctx, att)
}

const (
	// DefaultRefreshMargin re-requests a URL once less than 10 minutes of
	// its 15-minute lifetime remain.
	DefaultRefreshMargin = 10 * time.Minute
)

// Cache holds signed URLs keyed by attachment id.
type Cache struct {
	mu       sync.Mutex
	provider Provider
	margin   time.Duration
	urls     map[uuid.UUID]domain.SignedURL
	now      func() time.Time
	log      *logger.Logger
}

func New(provider Provider, margin time.Duration, log *logger.Logger) *Cache {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{
		provider: provider,
		margin:   margin,
		urls:     make(map[uuid.UUID]domain.SignedURL),
		now:      time.Now,
		log:      log,
	}
}

// EnsureURLs makes sure every attachment has a usable cached URL.
// Attachments whose cached URL still has more than the refresh margin of
// lifetime left are skipped unless force is set. Per-attachment provider
// failures are swallowed: a missing URL renders as a placeholder until the
// next render triggers another pass, which is the only retry there is.
func (c *Cache) EnsureURLs(ctx context.Context, attachments []domain.Attachment, force bool) {
	for _, att := range attachments {
		if att.StoragePath == "" {
			continue
		}

		c.mu.Lock()
		cached, ok := c.urls[att.ID]
		now := c.now()
		c.mu.Unlock()

		if ok && !force && cached.Fresh(now, c.margin) {
			continue
		}

		signed, err := c.provider.SignedURL(ctx, att)
		if err != nil {
			c.log.Warnf("signed url for attachment %s: %v", att.ID, err)
			continue
		}

		c.mu.Lock()
		c.urls[att.ID] = signed
		c.mu.Unlock()
	}
}

// URL returns the cached URL for an attachment, if one exists and has not
// expired.
func (c *Cache) URL(attachmentID uuid.UUID) (domain.SignedURL, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	signed, ok := c.urls[attachmentID]
	if !ok || !signed.ExpiresAt.After(c.now()) {
		return domain.SignedURL{}, false
	}
	return signed, true
}

// SetNow overrides the cache's clock. Test hook.
func (c *Cache) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
