// Package orchestrator consumes inbound events, batches them per user,
// and drives the commit path: ledger deposits, trust and badge deltas,
// and full source re-syncs, all funneled into the profile store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"identity-dna/internal/domain"
	"identity-dna/internal/ledger"
	"identity-dna/internal/orchestrator/metrics"
	"identity-dna/internal/platform/config"
	"identity-dna/internal/trust"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
	"identity-dna/pkg/platform/sentinel"
)

// syncCaller identifies the orchestrator in change records.
const syncCaller = "SYNC_ORCHESTRATOR"

// Orchestrator owns the event queue and the per-user commit path.
type Orchestrator struct {
	cfg      config.Orchestrator
	queue    *queue
	ledger   LedgerPort
	profiles ProfilePort
	sources  SourcePort
	badges   BadgePort
	skill    SkillPort
	notifier Notifier
	catalog  []id.SourceID

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	sleep   func(time.Duration)

	mu        sync.Mutex
	userLocks map[id.UserID]*sync.Mutex
	seen      map[string]time.Time

	stop chan struct{}
	done chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleeper overrides the retry backoff sleep, for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// New constructs an orchestrator. catalog lists the sources consulted
// during full syncs and badge collection.
func New(cfg config.Orchestrator, lg LedgerPort, profiles ProfilePort, sources SourcePort, badges BadgePort, sk SkillPort, catalog []id.SourceID, opts ...Option) (*Orchestrator, error) {
	if lg == nil || profiles == nil || sources == nil || badges == nil || sk == nil {
		return nil, fmt.Errorf("orchestrator requires ledger, profile, source, badge, and skill ports")
	}
	if cfg.MaxQueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", cfg.MaxQueueSize)
	}

	o := &Orchestrator{
		cfg:       cfg,
		queue:     newQueue(cfg.MaxQueueSize),
		ledger:    lg,
		profiles:  profiles,
		sources:   sources,
		badges:    badges,
		skill:     sk,
		notifier:  NopNotifier{},
		catalog:   catalog,
		logger:    slog.Default(),
		tracer:    otel.Tracer("orchestrator"),
		now:       time.Now,
		sleep:     time.Sleep,
		userLocks: make(map[id.UserID]*sync.Mutex),
		seen:      make(map[string]time.Time),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// HandleEvent validates and enqueues without blocking. Unknown types
// and empty user ids are rejected; a duplicate id inside the dedup
// window is silently discarded.
func (o *Orchestrator) HandleEvent(e domain.Event) error {
	if !e.Type.Known() {
		if o.metrics != nil {
			o.metrics.EventsRejected.Inc()
		}
		o.logger.Warn("unknown event type rejected", "type", e.Type, "user_id", e.UserID)
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown event type %q", e.Type))
	}
	if e.UserID.IsNil() {
		if o.metrics != nil {
			o.metrics.EventsRejected.Inc()
		}
		return dErrors.New(dErrors.CodeBadRequest, "event user id is required")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = o.now()
	}

	if o.cfg.DedupWindow > 0 && e.ID != "" && o.isDuplicate(e.ID) {
		if o.metrics != nil {
			o.metrics.EventsDeduped.Inc()
		}
		o.logger.Debug("duplicate event discarded", "event_id", e.ID, "user_id", e.UserID)
		return nil
	}

	evicted := o.queue.push(e)
	if o.metrics != nil {
		o.metrics.EventsEnqueued.Inc()
		o.metrics.EventsDropped.Add(float64(len(evicted)))
		o.metrics.QueueDepth.Set(float64(o.queue.depth()))
	}
	for _, dropped := range evicted {
		o.logger.Warn("queue overflow, oldest event dropped",
			"type", dropped.Type,
			"user_id", dropped.UserID,
			"queue_cap", o.cfg.MaxQueueSize,
		)
	}
	return nil
}

// isDuplicate records the id and reports whether it was already seen
// inside the window. Expired ids are swept on the way through.
func (o *Orchestrator) isDuplicate(eventID string) bool {
	now := o.now()
	o.mu.Lock()
	defer o.mu.Unlock()
	for eid, at := range o.seen {
		if now.Sub(at) > o.cfg.DedupWindow {
			delete(o.seen, eid)
		}
	}
	if _, dup := o.seen[eventID]; dup {
		return true
	}
	o.seen[eventID] = now
	return false
}

// Start launches the drain loop.
func (o *Orchestrator) Start() {
	go func() {
		defer close(o.done)
		ticker := time.NewTicker(o.cfg.BatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-o.stop:
				// Final drain so accepted events are not lost on shutdown.
				o.processBatch(context.Background())
				return
			case <-ticker.C:
				o.processBatch(context.Background())
			}
		}
	}()
}

// Stop drains once more and waits for the loop to exit.
func (o *Orchestrator) Stop(ctx context.Context) error {
	close(o.stop)
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush synchronously drains the queue. Intended for tests and
// shutdown paths.
func (o *Orchestrator) Flush(ctx context.Context) {
	o.processBatch(ctx)
}

// processBatch drains the queue, groups by user preserving enqueue
// order, and syncs each user with retries. Ordering across users is
// unspecified beyond first-seen order.
func (o *Orchestrator) processBatch(ctx context.Context) {
	events := o.queue.drain()
	if o.metrics != nil {
		o.metrics.QueueDepth.Set(0)
	}
	if len(events) == 0 {
		return
	}

	groups := make(map[id.UserID][]domain.Event)
	var order []id.UserID
	for _, e := range events {
		if _, seen := groups[e.UserID]; !seen {
			order = append(order, e.UserID)
		}
		groups[e.UserID] = append(groups[e.UserID], e)
	}

	for _, user := range order {
		o.syncUserWithRetry(ctx, user, groups[user])
	}
}

// transient reports whether the failure is worth a retry.
func transient(err error) bool {
	return errors.Is(err, sentinel.ErrUnavailable) || dErrors.HasCode(err, dErrors.CodeUnavailable)
}

func (o *Orchestrator) syncUserWithRetry(ctx context.Context, userID id.UserID, events []domain.Event) {
	prog := newSyncProgress()
	var err error
	for attempt := 0; attempt <= o.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			if o.metrics != nil {
				o.metrics.SyncRetries.Inc()
			}
			o.sleep(o.cfg.RetryDelay * time.Duration(1<<(attempt-1)))
		}
		err = o.syncUser(ctx, userID, events, prog)
		if err == nil {
			return
		}
		if !transient(err) {
			break
		}
	}

	// Exhausted or fatal: report and drop, never requeue.
	if o.metrics != nil {
		o.metrics.SyncFailures.Inc()
	}
	o.logger.Error("user sync dropped",
		"user_id", userID,
		"events", len(events),
		"error", err,
	)
}

// syncProgress records commit state across retry attempts so a re-run
// never re-applies work that already reached a store.
type syncProgress struct {
	xp map[id.SourceID]*xpCommit
}

// xpCommit marks how far one source's deposit got: amount is what the
// ledger awarded, mirrored is set once the profile reflects it. A
// settled rejection is stored as a mirrored zero.
type xpCommit struct {
	amount   int64
	mirrored bool
}

func newSyncProgress() *syncProgress {
	return &syncProgress{xp: make(map[id.SourceID]*xpCommit)}
}

// syncUser applies one user's event group under the per-user lock.
func (o *Orchestrator) syncUser(ctx context.Context, userID id.UserID, events []domain.Event, prog *syncProgress) error {
	full := false
	for _, e := range events {
		if e.Type.RequiresFullSync() {
			full = true
			break
		}
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.sync_user",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.Int("event_count", len(events)),
			attribute.Bool("full_sync", full),
		))
	defer span.End()

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	started := o.now()
	defer func() {
		elapsed := o.now().Sub(started)
		if o.metrics != nil {
			o.metrics.SyncDuration.Observe(elapsed.Seconds())
		}
		if elapsed > o.cfg.MaxSyncTime {
			if o.metrics != nil {
				o.metrics.FreshnessViolations.Inc()
			}
			o.logger.Warn("freshness budget exceeded",
				"user_id", userID,
				"elapsed_ms", elapsed.Milliseconds(),
				"budget_ms", o.cfg.MaxSyncTime.Milliseconds(),
			)
		}
	}()

	p, err := o.profiles.GetByID(ctx, userID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		p, err = o.profiles.Create(ctx, userID, "")
	}
	if err != nil {
		return err
	}

	agg := aggregate(events)

	if err := o.applyXP(ctx, &p, agg, prog); err != nil {
		return err
	}

	if full {
		if o.metrics != nil {
			o.metrics.FullSyncs.Inc()
		}
		err = o.fullSync(ctx, &p, agg)
	} else {
		if o.metrics != nil {
			o.metrics.PartialSyncs.Inc()
		}
		err = o.partialSync(ctx, &p, agg)
	}
	if err != nil {
		return err
	}

	o.notifier.ProfileUpdated(ctx, p)
	return nil
}

// deltas is the event group reduced to what the commit path applies.
type deltas struct {
	xpBySource map[id.SourceID]int64
	xpOrder    []id.SourceID
	trustDelta float64
	checkIns   int
	badges     []domain.Badge
}

func aggregate(events []domain.Event) deltas {
	d := deltas{xpBySource: make(map[id.SourceID]int64)}
	for _, e := range events {
		switch {
		case e.Type.XPBearing():
			if _, seen := d.xpBySource[e.Source]; !seen {
				d.xpOrder = append(d.xpOrder, e.Source)
			}
			d.xpBySource[e.Source] += e.Payload.Amount
		case e.Type == domain.EventVerifiedCheckIn:
			d.checkIns++
		case e.Type.TrustAffecting():
			d.trustDelta += e.Payload.TrustDelta
		}
		if e.Type.BadgeGranting() && e.Payload.Badge != nil {
			d.badges = append(d.badges, *e.Payload.Badge)
		}
	}
	return d
}

// applyXP deposits the per-source XP deltas and mirrors the committed
// amounts onto the profile. The pre-commit validator runs before the
// profile write so a decrement never reaches the store. Sources already
// settled in prog are skipped, so a retried attempt deposits each
// source at most once.
func (o *Orchestrator) applyXP(ctx context.Context, p *domain.Profile, agg deltas, prog *syncProgress) error {
	for _, source := range agg.xpOrder {
		commit := prog.xp[source]
		if commit != nil && commit.mirrored {
			continue
		}
		if commit == nil {
			amount := agg.xpBySource[source]
			result, err := o.ledger.Deposit(ctx, ledger.DepositRequest{
				UserID: p.UserID,
				Source: source,
				Amount: amount,
			})
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeQuarantined) || dErrors.HasCode(err, dErrors.CodeBadRequest) {
					o.logger.Warn("xp deposit rejected",
						"user_id", p.UserID,
						"source", source,
						"amount", amount,
						"error", err,
					)
					prog.xp[source] = &xpCommit{mirrored: true}
					continue
				}
				return err
			}
			if !result.Awarded {
				o.logger.Info("xp deposit not awarded",
					"user_id", p.UserID,
					"source", source,
					"reason", result.Reason,
				)
				prog.xp[source] = &xpCommit{mirrored: true}
				continue
			}
			commit = &xpCommit{amount: result.Amount}
			prog.xp[source] = commit
		}

		if err := o.validateXPTransition(ctx, source, p.XPTotal, p.XPTotal+commit.amount); err != nil {
			return err
		}
		updated, err := o.profiles.IncrementXP(ctx, p.UserID, commit.amount, source.String())
		if err != nil {
			return err
		}
		commit.mirrored = true
		*p = updated
	}
	return nil
}

// validateXPTransition is the orchestrator-level layer of the decrement
// defence. The ledger quarantines the source on a violation.
func (o *Orchestrator) validateXPTransition(ctx context.Context, source id.SourceID, oldTotal, newTotal int64) error {
	return o.ledger.GuardTotal(ctx, source, oldTotal, newTotal)
}

// partialSync applies the trust and badge deltas directly.
func (o *Orchestrator) partialSync(ctx context.Context, p *domain.Profile, agg deltas) error {
	patch := domain.ProfilePatch{}
	changed := false

	score := p.TrustScore
	score = trust.ApplyDelta(score, agg.trustDelta)
	for i := 0; i < agg.checkIns; i++ {
		score = trust.ApplyCheckIn(score)
	}
	if score != p.TrustScore {
		patch.TrustScore = &score
		changed = true
	}

	if len(agg.badges) > 0 {
		set := p.Badges
		for _, b := range agg.badges {
			set, _ = o.badges.Award(set, b)
		}
		patch.Badges = set
		changed = true
	}

	syncedAt := o.now()
	patch.LastSync = &syncedAt

	if !changed && p.LastSync.Equal(syncedAt) {
		return nil
	}

	updated, err := o.profiles.Update(ctx, p.UserID, patch, syncCaller)
	if err != nil {
		return err
	}

	oldTrust := p.TrustScore
	*p = updated
	if patch.TrustScore != nil && *patch.TrustScore != oldTrust {
		o.notifier.TrustUpdated(ctx, p.UserID, *patch.TrustScore)
	}
	return nil
}

// fullSync re-reads every source bundle and recomputes tier, trust,
// badges, and XP from scratch. Deltas from the triggering events are
// folded in on top of the recomputed base.
func (o *Orchestrator) fullSync(ctx context.Context, p *domain.Profile, agg deltas) error {
	set := o.sources.ReadAll(ctx, p.UserID)

	skillResult := o.skill.Evaluate(p.UserID, p.SkillTier, set)

	// Trust recomputes from the social bundle unless it is degraded, in
	// which case the current score carries forward. Event deltas apply
	// either way.
	score := p.TrustScore
	if !set.SocialDegraded {
		score = trust.Compute(set.Social)
	}
	score = trust.ApplyDelta(score, agg.trustDelta)
	for i := 0; i < agg.checkIns; i++ {
		score = trust.ApplyCheckIn(score)
	}

	badges, degraded := o.badges.Collect(ctx, p.UserID, p.Badges, o.catalog)
	for _, b := range agg.badges {
		badges, _ = o.badges.Award(badges, b)
	}
	if len(degraded) > 0 {
		o.logger.Warn("badge collection incomplete",
			"user_id", p.UserID,
			"degraded_sources", len(degraded),
		)
	}

	// The ledger is authoritative for XP; a profile that fell behind
	// catches up here. The ledger total can never be lower.
	if ledgerView, err := o.ledger.Read(ctx, p.UserID); err == nil {
		if gap := ledgerView.XPTotal - p.XPTotal; gap > 0 {
			updated, err := o.profiles.IncrementXP(ctx, p.UserID, gap, syncCaller)
			if err != nil {
				return err
			}
			*p = updated
		}
	}

	syncedAt := o.now()
	tier := skillResult.CommittedTier
	patch := domain.ProfilePatch{
		TrustScore: &score,
		SkillTier:  &tier,
		Badges:     badges,
		LastSync:   &syncedAt,
	}

	oldTier := p.SkillTier
	oldTrust := p.TrustScore
	updated, err := o.profiles.Update(ctx, p.UserID, patch, syncCaller)
	if err != nil {
		return err
	}
	*p = updated

	if tier != oldTier {
		o.notifier.TierChanged(ctx, p.UserID, oldTier, tier)
	}
	if score != oldTrust {
		o.notifier.TrustUpdated(ctx, p.UserID, score)
	}
	return nil
}

func (o *Orchestrator) userLock(userID id.UserID) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		o.userLocks[userID] = lock
	}
	return lock
}

// ForgetUser clears per-user orchestrator state after erasure.
func (o *Orchestrator) ForgetUser(userID id.UserID) {
	o.skill.Forget(userID)
	o.mu.Lock()
	delete(o.userLocks, userID)
	o.mu.Unlock()
}
