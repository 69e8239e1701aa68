package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a Store that holds no key set.
var ErrCacheMiss = errors.New("auth: key set not cached")

// Store persists the raw key set document outside the process, either to
// share it between replicas or to survive restarts.
type Store interface {
	Load(ctx context.Context) (raw []byte, fetchedAt time.Time, err error)
	Save(ctx context.Context, raw []byte, fetchedAt time.Time) error
}

// DefaultMinRefreshInterval bounds how often the remote key set is fetched.
const DefaultMinRefreshInterval = 30 * time.Second

// CachedSource serves the key set from memory, then from the optional
// store, and only then from the remote fetcher. Entries older than ttl are
// refetched; a stale entry, in memory or in the store, is still served when
// the refetch fails. Remote fetches are at least minInterval apart.
type CachedSource struct {
	fetcher     Fetcher
	store       Store
	ttl         time.Duration
	minInterval time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu        sync.RWMutex
	set       *KeySet
	fetchedAt time.Time

	refreshMu   sync.Mutex
	lastAttempt time.Time
	lastErr     error
}

// NewCachedSource wraps fetcher. store may be nil.
func NewCachedSource(fetcher Fetcher, store Store, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		fetcher:     fetcher,
		store:       store,
		ttl:         ttl,
		minInterval: DefaultMinRefreshInterval,
		now:         time.Now,
		logger:      logger,
	}
}

// WithMinRefreshInterval overrides the spacing between remote fetches.
// Zero disables the limit.
func (c *CachedSource) WithMinRefreshInterval(d time.Duration) *CachedSource {
	if d >= 0 {
		c.minInterval = d
	}
	return c
}

// KeySet returns a fresh-enough key set, fetching it when needed.
func (c *CachedSource) KeySet(ctx context.Context) (*KeySet, error) {
	if set, ok := c.fresh(); ok {
		return set, nil
	}
	if set, ok := c.loadStore(ctx); ok {
		return set, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the key set from the remote regardless of age. Within
// minInterval of the previous attempt the cached copy, or the previous
// error, is returned without contacting the remote.
func (c *CachedSource) Refresh(ctx context.Context) (*KeySet, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	now := c.now()
	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.minInterval {
		if set := c.current(); set != nil {
			return set, nil
		}
		return nil, c.lastErr
	}
	c.lastAttempt = now

	raw, err := c.fetcher.Fetch(ctx)
	var set *KeySet
	if err == nil {
		set, err = ParseKeySet(raw)
	}
	c.lastErr = err
	if err != nil {
		if stale := c.current(); stale != nil {
			c.logger.Warn("key set refresh failed, serving cached copy", zap.Error(err))
			return stale, nil
		}
		return nil, err
	}

	fetchedAt := c.now()
	c.remember(set, fetchedAt)

	if c.store != nil {
		if err := c.store.Save(ctx, raw, fetchedAt); err != nil {
			c.logger.Warn("failed to persist key set", zap.Error(err))
		}
	}
	c.logger.Debug("key set refreshed", zap.Int("keys", set.Len()))
	return set, nil
}

func (c *CachedSource) fresh() (*KeySet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.set == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.set, true
}

func (c *CachedSource) current() *KeySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set
}

func (c *CachedSource) remember(set *KeySet, fetchedAt time.Time) {
	c.mu.Lock()
	c.set = set
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
}

// loadStore reports whether the store holds a fresh key set. A stale one is
// still kept in memory as the fallback for a failing refresh.
func (c *CachedSource) loadStore(ctx context.Context) (*KeySet, bool) {
	if c.store == nil {
		return nil, false
	}
	raw, fetchedAt, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("key set store unavailable", zap.Error(err))
		}
		return nil, false
	}

	c.mu.RLock()
	newer := c.set == nil || fetchedAt.After(c.fetchedAt)
	c.mu.RUnlock()
	if !newer {
		return nil, false
	}

	set, err := ParseKeySet(raw)
	if err != nil {
		c.logger.Warn("discarding unreadable cached key set", zap.Error(err))
		return nil, false
	}
	c.remember(set, fetchedAt)
	return set, c.now().Sub(fetchedAt) < c.ttl
}
