// Package gateway provides typed, cached, fallback-tolerant reads from
// the upstream sources. Degraded reads are a normal mode: the gateway
// never raises transport failures to callers.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// CallerHeader identifies this service to upstream sources.
const CallerHeader = "IDENTITY_DNA_ENGINE"

type cacheKey struct {
	source id.SourceID
	user   id.UserID
	path   string
}

type cacheEntry struct {
	body      []byte
	fetchedAt time.Time
}

// Gateway reads stat bundles from the source catalog with a hard
// per-read timeout and a per-(source,user) TTL cache.
type Gateway struct {
	catalog *Catalog
	client  *http.Client
	ttl     time.Duration
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry

	now func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) { g.client = client }
}

// WithClock overrides the time source for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New constructs a gateway over the given catalog.
func New(catalog *Catalog, fetchTimeout, cacheTTL time.Duration, opts ...Option) (*Gateway, error) {
	if catalog == nil {
		return nil, fmt.Errorf("source catalog is required")
	}

	g := &Gateway{
		catalog: catalog,
		client:  &http.Client{Timeout: fetchTimeout},
		ttl:     cacheTTL,
		logger:  slog.Default(),
		cache:   make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Catalog exposes the source catalog for multiplier-eligibility lookups.
func (g *Gateway) Catalog() *Catalog {
	return g.catalog
}

// fetch returns the raw body for (source, user, path), consulting the
// TTL cache first. Any transport failure or non-2xx status reports
// ok=false; the caller substitutes the neutral fallback.
func (g *Gateway) fetch(ctx context.Context, source id.SourceID, userID id.UserID, path string) ([]byte, bool) {
	key := cacheKey{source: source, user: userID, path: path}

	g.mu.RLock()
	entry, cached := g.cache[key]
	g.mu.RUnlock()
	if cached && g.now().Sub(entry.fetchedAt) < g.ttl {
		return entry.body, true
	}

	spec, ok := g.catalog.Spec(source)
	if !ok {
		g.logger.Warn("read for source outside catalog", "source", source)
		return nil, false
	}

	url := fmt.Sprintf("%s%s?userId=%s", spec.BaseURL, path, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		g.logger.Warn("build source request failed", "source", source, "error", err)
		return nil, false
	}
	req.Header.Set("X-Source", CallerHeader)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("source read degraded", "source", source, "user_id", userID, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn("source read degraded", "source", source, "user_id", userID, "status", resp.StatusCode)
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		g.logger.Warn("source body read failed", "source", source, "user_id", userID, "error", err)
		return nil, false
	}

	g.mu.Lock()
	g.cache[key] = cacheEntry{body: body, fetchedAt: g.now()}
	g.mu.Unlock()

	return body, true
}

// readInto unmarshals a bundle into v. A live fetch with a malformed
// body also degrades; stale cache is never substituted.
func (g *Gateway) readInto(ctx context.Context, source id.SourceID, userID id.UserID, v any) bool {
	spec, ok := g.catalog.Spec(source)
	if !ok {
		g.logger.Warn("read for source outside catalog", "source", source)
		return false
	}
	body, ok := g.fetch(ctx, source, userID, spec.Endpoint)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		g.logger.Warn("source bundle unmarshal failed", "source", source, "error", err)
		return false
	}
	return true
}

// ReadTraining returns the TRAINING bundle, degraded=true on fallback.
func (g *Gateway) ReadTraining(ctx context.Context, userID id.UserID) (domain.TrainingStats, bool) {
	var s domain.TrainingStats
	if !g.readInto(ctx, id.SourceTraining, userID, &s) {
		return domain.TrainingStats{}, true
	}
	return s, false
}

// ReadArcade returns the ARCADE bundle, degraded=true on fallback.
func (g *Gateway) ReadArcade(ctx context.Context, userID id.UserID) (domain.ArcadeStats, bool) {
	var s domain.ArcadeStats
	if !g.readInto(ctx, id.SourceArcade, userID, &s) {
		return domain.ArcadeStats{}, true
	}
	return s, false
}

// ReadBankroll returns the BANKROLL bundle, degraded=true on fallback.
func (g *Gateway) ReadBankroll(ctx context.Context, userID id.UserID) (domain.BankrollStats, bool) {
	var s domain.BankrollStats
	if !g.readInto(ctx, id.SourceBankroll, userID, &s) {
		return domain.BankrollStats{}, true
	}
	return s, false
}

// ReadSocial returns the SOCIAL bundle, degraded=true on fallback.
func (g *Gateway) ReadSocial(ctx context.Context, userID id.UserID) (domain.SocialStats, bool) {
	var s domain.SocialStats
	if !g.readInto(ctx, id.SourceSocial, userID, &s) {
		return domain.SocialStats{}, true
	}
	return s, false
}

// ReadBadges returns the badges a source currently attributes to the
// user. Sources without a badge endpoint, and degraded reads, both
// yield degraded=true with an empty set.
func (g *Gateway) ReadBadges(ctx context.Context, source id.SourceID, userID id.UserID) ([]domain.Badge, bool) {
	spec, ok := g.catalog.Spec(source)
	if !ok || spec.BadgeEndpoint == "" {
		return nil, true
	}
	body, ok := g.fetch(ctx, source, userID, spec.BadgeEndpoint)
	if !ok {
		return nil, true
	}
	var badges []domain.Badge
	if err := json.Unmarshal(body, &badges); err != nil {
		g.logger.Warn("source badge set unmarshal failed", "source", source, "error", err)
		return nil, true
	}
	for i := range badges {
		badges[i].Source = source
	}
	return badges, false
}

// ReadAll fans out one read per source. Each source degrades
// independently; the returned error is always nil and exists only to
// satisfy errgroup's signature.
func (g *Gateway) ReadAll(ctx context.Context, userID id.UserID) domain.BundleSet {
	var set domain.BundleSet
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		set.Training, set.TrainingDegraded = g.ReadTraining(ctx, userID)
		return nil
	})
	eg.Go(func() error {
		set.Arcade, set.ArcadeDegraded = g.ReadArcade(ctx, userID)
		return nil
	})
	eg.Go(func() error {
		set.Bankroll, set.BankrollDegraded = g.ReadBankroll(ctx, userID)
		return nil
	})
	eg.Go(func() error {
		set.Social, set.SocialDegraded = g.ReadSocial(ctx, userID)
		return nil
	})

	_ = eg.Wait()
	return set
}

// Ping reports reachability: true if any source answers within the
// fetch timeout.
func (g *Gateway) Ping(ctx context.Context) bool {
	for _, source := range g.catalog.Sources() {
		spec, _ := g.catalog.Spec(source)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.BaseURL+spec.Endpoint, nil)
		if err != nil {
			continue
		}
		req.Header.Set("X-Source", CallerHeader)
		resp, err := g.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		return true
	}
	return false
}

// InvalidateUser drops cached bundles for a user, forcing the next read
// to hit the sources. Used after erasure.
func (g *Gateway) InvalidateUser(userID id.UserID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.cache {
		if key.user == userID {
			delete(g.cache, key)
		}
	}
}
