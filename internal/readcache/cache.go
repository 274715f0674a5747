// Package readcache serves client-facing profile reads from a local,
// version-checked cache. The server's profile store stays authoritative;
// the cache only decides how much of it to re-read and what to serve
// when the server is unreachable.
package readcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	"identity-dna/internal/readcache/metrics"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
)

// Fetcher is the server side of the cache. The profile service
// satisfies this.
type Fetcher interface {
	CurrentVersion(ctx context.Context, userID id.UserID) (int64, error)
	GetByID(ctx context.Context, userID id.UserID) (domain.Profile, error)
}

// CachedProfile is the read-side view handed to callers. IsDefault
// marks the synthetic profile served when neither the server nor a
// local entry could answer.
type CachedProfile struct {
	Profile     domain.Profile `json:"profile"`
	CachedAt    time.Time      `json:"cachedAt"`
	PendingSync bool           `json:"pendingSync"`
	IsDefault   bool           `json:"isDefault"`
}

// Listener observes every mutation of one user's entry: replacements,
// optimistic patches, and rollbacks. Listeners run in subscription
// order; a panicking listener is isolated and logged.
type Listener func(CachedProfile)

// Stats is a point-in-time counter snapshot, mainly for tests and
// debug endpoints.
type Stats struct {
	Hits      int64
	Probes    int64
	Fetches   int64
	Fallbacks int64
	Discards  int64
}

type entry struct {
	cached   CachedProfile
	rollback *CachedProfile // pre-optimistic snapshot while PendingSync
}

type subscription struct {
	seq int
	fn  Listener
}

// Cache is the version-controlled read cache.
type Cache struct {
	fetcher Fetcher
	cfg     config.Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	entries     map[id.UserID]*entry
	subscribers map[id.UserID][]subscription
	nextSub     int
	stats       Stats
}

// Option configures a Cache.
type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New constructs a read cache over the profile fetcher.
func New(fetcher Fetcher, cfg config.Cache, opts ...Option) (*Cache, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("profile fetcher is required")
	}
	c := &Cache{
		fetcher:     fetcher,
		cfg:         cfg,
		logger:      slog.Default(),
		now:         time.Now,
		entries:     make(map[id.UserID]*entry),
		subscribers: make(map[id.UserID][]subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sync returns the user's profile, preferring the local cache.
// Concurrent syncs for the same user collapse into one call and share
// its result.
func (c *Cache) Sync(ctx context.Context, userID id.UserID) (CachedProfile, error) {
	v, err, shared := c.group.Do(userID.String(), func() (any, error) {
		return c.sync(ctx, userID), nil
	})
	if err != nil {
		return CachedProfile{}, err
	}
	if shared && c.metrics != nil {
		c.metrics.Collapsed.Inc()
	}
	return v.(CachedProfile), nil
}

func (c *Cache) sync(ctx context.Context, userID id.UserID) CachedProfile {
	now := c.now()

	c.mu.Lock()
	e, cached := c.entries[userID]
	if cached && now.Sub(e.cached.CachedAt) > c.cfg.MaxOffline {
		// Past the offline horizon the entry is too old to trust.
		delete(c.entries, userID)
		cached = false
		c.stats.Discards++
		if c.metrics != nil {
			c.metrics.Discards.Inc()
		}
	}
	if cached && now.Sub(e.cached.CachedAt) < c.cfg.StaleThreshold {
		out := e.cached
		c.stats.Hits++
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.Hits.Inc()
		}
		return out
	}
	var local *CachedProfile
	if cached {
		cp := e.cached
		local = &cp
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Probes.Inc()
	}
	c.mu.Lock()
	c.stats.Probes++
	c.mu.Unlock()

	serverVersion, err := c.fetcher.CurrentVersion(ctx, userID)
	if err != nil {
		return c.fallback(userID, local, err)
	}

	if local != nil && serverVersion <= local.Profile.Version {
		// Still current, so this probe counts as a hit; only the
		// freshness clock moves.
		c.mu.Lock()
		c.stats.Hits++
		if e, ok := c.entries[userID]; ok {
			e.cached.CachedAt = now
			local = &e.cached
		}
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.Hits.Inc()
		}
		return *local
	}

	if c.metrics != nil {
		c.metrics.FullFetches.Inc()
	}
	c.mu.Lock()
	c.stats.Fetches++
	c.mu.Unlock()

	p, err := c.fetcher.GetByID(ctx, userID)
	if err != nil {
		return c.fallback(userID, local, err)
	}

	out := CachedProfile{Profile: p, CachedAt: now}
	c.replace(userID, out)
	return out
}

// fallback serves the local entry when present, otherwise the default
// profile. A deleted profile invalidates the local entry first.
func (c *Cache) fallback(userID id.UserID, local *CachedProfile, cause error) CachedProfile {
	if dErrors.HasCode(cause, dErrors.CodeNotFound) {
		c.Invalidate(userID)
		local = nil
	}

	c.mu.Lock()
	c.stats.Fallbacks++
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.Fallbacks.Inc()
	}

	if local != nil {
		c.logger.Warn("sync failed, serving local cache",
			"user_id", userID,
			"cached_version", local.Profile.Version,
			"error", cause,
		)
		return *local
	}

	c.logger.Warn("sync failed with no local cache, serving defaults",
		"user_id", userID,
		"error", cause,
	)
	return CachedProfile{
		Profile:   domain.NewProfile(userID, ""),
		CachedAt:  c.now(),
		IsDefault: true,
	}
}

// replace commits a new cache entry and notifies the user's listeners.
func (c *Cache) replace(userID id.UserID, cp CachedProfile) {
	c.mu.Lock()
	c.entries[userID] = &entry{cached: cp}
	subs := c.listenersLocked(userID)
	c.mu.Unlock()

	for _, sub := range subs {
		c.notify(sub, cp)
	}
}

// listenersLocked snapshots one user's subscriptions. Callers hold mu
// and invoke the listeners after releasing it.
func (c *Cache) listenersLocked(userID id.UserID) []subscription {
	subs := c.subscribers[userID]
	if len(subs) == 0 {
		return nil
	}
	out := make([]subscription, len(subs))
	copy(out, subs)
	return out
}

func (c *Cache) notify(sub subscription, cp CachedProfile) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cache listener panicked", "subscription", sub.seq, "panic", r)
		}
	}()
	sub.fn(cp)
}

// Subscribe registers a listener for one user's cache mutations and
// returns its cancel function.
func (c *Cache) Subscribe(userID id.UserID, fn Listener) func() {
	c.mu.Lock()
	seq := c.nextSub
	c.nextSub++
	c.subscribers[userID] = append(c.subscribers[userID], subscription{seq: seq, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.subscribers[userID]
		for i, sub := range subs {
			if sub.seq == seq {
				c.subscribers[userID] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// ApplyOptimistic mutates the local entry ahead of server confirmation
// and marks it pending. The pre-mutation snapshot is retained for
// Rollback. A user with no entry cannot be patched optimistically.
func (c *Cache) ApplyOptimistic(userID id.UserID, mutate func(*domain.Profile)) (CachedProfile, error) {
	c.mu.Lock()

	e, ok := c.entries[userID]
	if !ok {
		c.mu.Unlock()
		return CachedProfile{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("no cached profile for %s", userID))
	}
	if e.rollback == nil {
		snapshot := e.cached
		snapshot.Profile = e.cached.Profile.Clone()
		e.rollback = &snapshot
	}

	p := e.cached.Profile.Clone()
	mutate(&p)
	e.cached.Profile = p
	e.cached.PendingSync = true
	out := e.cached
	subs := c.listenersLocked(userID)
	c.mu.Unlock()

	for _, sub := range subs {
		c.notify(sub, out)
	}
	return out, nil
}

// Confirm replaces the pending entry with the server's authoritative
// profile and drops the rollback snapshot.
func (c *Cache) Confirm(userID id.UserID, p domain.Profile) CachedProfile {
	now := c.now()
	c.mu.Lock()
	e, ok := c.entries[userID]
	if !ok {
		e = &entry{}
		c.entries[userID] = e
	}
	e.cached = CachedProfile{Profile: p, CachedAt: now}
	e.rollback = nil
	out := e.cached
	subs := c.listenersLocked(userID)
	c.mu.Unlock()

	for _, sub := range subs {
		c.notify(sub, out)
	}
	return out
}

// Rollback restores the pre-optimistic snapshot and notifies the user's
// listeners. Without a pending update it is a no-op.
func (c *Cache) Rollback(userID id.UserID) {
	c.mu.Lock()

	e, ok := c.entries[userID]
	if !ok || e.rollback == nil {
		c.mu.Unlock()
		return
	}
	e.cached = *e.rollback
	e.rollback = nil
	out := e.cached
	subs := c.listenersLocked(userID)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Rollbacks.Inc()
	}
	for _, sub := range subs {
		c.notify(sub, out)
	}
}

// Invalidate drops the local entry, forcing the next sync to the server.
func (c *Cache) Invalidate(userID id.UserID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
