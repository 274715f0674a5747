package readcache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
)

type fetcherStub struct {
	mu       sync.Mutex
	version  int64
	profile  domain.Profile
	probeErr error
	fetchErr error
	probes   atomic.Int64
	fetches  atomic.Int64
	block    chan struct{} // when set, probes wait until closed
}

func (f *fetcherStub) CurrentVersion(_ context.Context, _ id.UserID) (int64, error) {
	f.probes.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.version, nil
}

func (f *fetcherStub) GetByID(_ context.Context, _ id.UserID) (domain.Profile, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return domain.Profile{}, f.fetchErr
	}
	return f.profile.Clone(), nil
}

func (f *fetcherStub) set(p domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
	f.version = p.Version
}

func (f *fetcherStub) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErr = err
	f.fetchErr = err
}

// =============================================================================
// Read Cache Test Suite
// =============================================================================
// Justification for unit tests: the five-step sync ladder is pure decision
// logic over clocks and versions; every branch has an observable outcome
// worth pinning down.

type ReadCacheSuite struct {
	suite.Suite
	ctx     context.Context
	fetcher *fetcherStub
	cache   *Cache
	clock   time.Time
	user    id.UserID
}

func TestReadCacheSuite(t *testing.T) {
	suite.Run(t, new(ReadCacheSuite))
}

func (s *ReadCacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.user = id.UserID("user-1")
	s.fetcher = &fetcherStub{}
	s.fetcher.set(domain.Profile{UserID: s.user, Username: "hero42", XPTotal: 100, TrustScore: 60, SkillTier: 2, Version: 3})

	var err error
	s.cache, err = New(s.fetcher,
		config.Cache{StaleThreshold: time.Minute, MaxOffline: 24 * time.Hour},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)
}

func (s *ReadCacheSuite) mustSync() CachedProfile {
	cp, err := s.cache.Sync(s.ctx, s.user)
	s.Require().NoError(err)
	return cp
}

func (s *ReadCacheSuite) TestColdMissFetchesAndCaches() {
	cp := s.mustSync()
	s.Equal(int64(100), cp.Profile.XPTotal)
	s.False(cp.IsDefault)
	s.Equal(int64(1), s.fetcher.probes.Load())
	s.Equal(int64(1), s.fetcher.fetches.Load())

	// Within the stale threshold the server is not consulted.
	s.clock = s.clock.Add(30 * time.Second)
	s.mustSync()
	s.Equal(int64(1), s.fetcher.probes.Load())
	s.Equal(int64(1), s.fetcher.fetches.Load())
	s.Equal(int64(1), s.cache.Stats().Hits)
}

func (s *ReadCacheSuite) TestStaleEqualVersionRefreshesTimestampOnly() {
	s.mustSync()

	s.clock = s.clock.Add(2 * time.Minute)
	cp := s.mustSync()
	s.Equal(int64(2), s.fetcher.probes.Load())
	s.Equal(int64(1), s.fetcher.fetches.Load(), "equal versions must not trigger a full fetch")
	s.Equal(s.clock, cp.CachedAt)
	s.Equal(int64(1), s.cache.Stats().Hits, "a confirming probe counts as a hit")

	// The refreshed timestamp makes the next read a hit again.
	s.clock = s.clock.Add(30 * time.Second)
	s.mustSync()
	s.Equal(int64(2), s.fetcher.probes.Load())
}

func (s *ReadCacheSuite) TestStaleNewerVersionReplaces() {
	s.mustSync()
	s.fetcher.set(domain.Profile{UserID: s.user, Username: "hero42", XPTotal: 250, TrustScore: 62, SkillTier: 3, Version: 5})

	s.clock = s.clock.Add(2 * time.Minute)
	cp := s.mustSync()
	s.Equal(int64(250), cp.Profile.XPTotal)
	s.Equal(int64(5), cp.Profile.Version)
	s.Equal(int64(2), s.fetcher.fetches.Load())
}

func (s *ReadCacheSuite) TestFailureServesLocalCache() {
	s.mustSync()
	s.fetcher.fail(dErrors.New(dErrors.CodeUnavailable, "server down"))

	s.clock = s.clock.Add(2 * time.Minute)
	cp := s.mustSync()
	s.Equal(int64(100), cp.Profile.XPTotal)
	s.False(cp.IsDefault)
	s.Equal(int64(1), s.cache.Stats().Fallbacks)
}

func (s *ReadCacheSuite) TestFailureWithoutCacheServesDefaults() {
	s.fetcher.fail(dErrors.New(dErrors.CodeUnavailable, "server down"))

	cp := s.mustSync()
	s.True(cp.IsDefault)
	s.Equal(int64(0), cp.Profile.XPTotal)
	s.Equal(50.0, cp.Profile.TrustScore)
	s.Equal(1, cp.Profile.SkillTier)
}

func (s *ReadCacheSuite) TestOfflineHorizonDiscardsEntry() {
	s.mustSync()
	s.fetcher.fail(dErrors.New(dErrors.CodeUnavailable, "server down"))

	s.clock = s.clock.Add(25 * time.Hour)
	cp := s.mustSync()
	s.True(cp.IsDefault, "an entry past the offline horizon must not be served")
	s.Equal(int64(1), s.cache.Stats().Discards)
}

func (s *ReadCacheSuite) TestDeletedProfileInvalidates() {
	s.mustSync()
	s.fetcher.fail(dErrors.New(dErrors.CodeNotFound, "profile erased"))

	s.clock = s.clock.Add(2 * time.Minute)
	cp := s.mustSync()
	s.True(cp.IsDefault, "a deleted profile must not serve the stale local copy")
}

func (s *ReadCacheSuite) TestInFlightSyncsCollapse() {
	s.fetcher.block = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]CachedProfile, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cp, err := s.cache.Sync(s.ctx, s.user)
			s.NoError(err)
			results[i] = cp
		}(i)
	}

	// Let the goroutines pile up on the blocked probe, then release.
	time.Sleep(50 * time.Millisecond)
	close(s.fetcher.block)
	wg.Wait()

	s.Equal(int64(1), s.fetcher.probes.Load(), "concurrent syncs must share one call")
	for _, cp := range results {
		s.Equal(int64(100), cp.Profile.XPTotal)
	}
}

func (s *ReadCacheSuite) TestOptimisticLifecycle() {
	s.mustSync()

	s.Run("apply marks pending and keeps a rollback point", func() {
		cp, err := s.cache.ApplyOptimistic(s.user, func(p *domain.Profile) {
			p.XPTotal += 50
		})
		s.Require().NoError(err)
		s.True(cp.PendingSync)
		s.Equal(int64(150), cp.Profile.XPTotal)
	})

	s.Run("rollback restores the snapshot", func() {
		s.cache.Rollback(s.user)
		cp := s.mustSync()
		s.False(cp.PendingSync)
		s.Equal(int64(100), cp.Profile.XPTotal)
	})

	s.Run("confirm replaces with the authoritative profile", func() {
		_, err := s.cache.ApplyOptimistic(s.user, func(p *domain.Profile) {
			p.XPTotal += 50
		})
		s.Require().NoError(err)

		confirmed := s.cache.Confirm(s.user, domain.Profile{UserID: s.user, XPTotal: 160, TrustScore: 60, SkillTier: 2, Version: 4})
		s.False(confirmed.PendingSync)
		s.Equal(int64(160), confirmed.Profile.XPTotal)

		// Rollback after confirm is a no-op.
		s.cache.Rollback(s.user)
		cp := s.mustSync()
		s.Equal(int64(160), cp.Profile.XPTotal)
	})

	s.Run("optimistic patch without an entry is refused", func() {
		_, err := s.cache.ApplyOptimistic("ghost", func(*domain.Profile) {})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ReadCacheSuite) TestSubscribers() {
	var order []string
	s.cache.Subscribe(s.user, func(CachedProfile) { order = append(order, "first") })
	s.cache.Subscribe(s.user, func(CachedProfile) { panic("listener bug") })
	cancel := s.cache.Subscribe(s.user, func(CachedProfile) { order = append(order, "third") })

	s.mustSync()
	s.Equal([]string{"first", "third"}, order, "panic must not stop later listeners")

	cancel()
	order = nil
	s.cache.Confirm(s.user, domain.Profile{UserID: s.user, Version: 9})
	s.Equal([]string{"first"}, order)
}

func (s *ReadCacheSuite) TestSubscribersScopedPerUser() {
	var mine, theirs int
	s.cache.Subscribe(s.user, func(CachedProfile) { mine++ })
	s.cache.Subscribe("user-2", func(CachedProfile) { theirs++ })

	s.mustSync()
	s.cache.Confirm("user-2", domain.Profile{UserID: "user-2", Version: 1})

	s.Equal(1, mine)
	s.Equal(1, theirs, "a listener only sees its own user's mutations")
}

func (s *ReadCacheSuite) TestSubscribersSeeOptimisticLifecycle() {
	s.mustSync()

	var seen []CachedProfile
	s.cache.Subscribe(s.user, func(cp CachedProfile) { seen = append(seen, cp) })

	_, err := s.cache.ApplyOptimistic(s.user, func(p *domain.Profile) { p.XPTotal += 50 })
	s.Require().NoError(err)
	s.Require().Len(seen, 1, "an optimistic patch must notify listeners")
	s.True(seen[0].PendingSync)
	s.Equal(int64(150), seen[0].Profile.XPTotal)

	s.cache.Rollback(s.user)
	s.Require().Len(seen, 2, "a rollback must notify listeners")
	s.False(seen[1].PendingSync)
	s.Equal(int64(100), seen[1].Profile.XPTotal)

	// A second rollback has nothing pending and stays silent.
	s.cache.Rollback(s.user)
	s.Len(seen, 2)
}
