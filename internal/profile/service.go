package profile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	"identity-dna/internal/profile/metrics"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
	"identity-dna/pkg/platform/sentinel"
)

// casAttempts bounds the compare-and-swap retry loop on concurrent
// writers. The orchestrator serializes per user, so conflicts come only
// from out-of-band callers.
const casAttempts = 3

type pendingErasure struct {
	tokenHash []byte
	expiresAt time.Time
}

// Service is the single write path for profiles. Every committed
// mutation bumps the version by exactly one and leaves one change
// record per changed field, last_sync excepted.
type Service struct {
	store   Store
	history HistoryStore
	archive ArchiveStore
	cfg     config.Profile
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	pending map[id.UserID]pendingErasure
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a profile service.
func New(store Store, history HistoryStore, archive ArchiveStore, cfg config.Profile, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if archive == nil {
		return nil, fmt.Errorf("archive store is required")
	}

	s := &Service{
		store:   store,
		history: history,
		archive: archive,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		pending: make(map[id.UserID]pendingErasure),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a profile with first-signal defaults. An existing
// user_id is a conflict, never an upsert.
func (s *Service) Create(ctx context.Context, userID id.UserID, username string) (domain.Profile, error) {
	if userID.IsNil() {
		return domain.Profile{}, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	p := domain.NewProfile(userID, username)
	if err := s.store.Insert(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return domain.Profile{}, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("profile %s already exists", userID))
		}
		return domain.Profile{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "create profile")
	}

	if s.metrics != nil {
		s.metrics.Creates.Inc()
	}
	s.logger.Info("profile created", "user_id", userID, "username", username)
	return p, nil
}

// GetByID returns the live profile.
func (s *Service) GetByID(ctx context.Context, userID id.UserID) (domain.Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.Profile{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("profile %s not found", userID))
	}
	if err != nil {
		return domain.Profile{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "read profile")
	}
	return p, nil
}

// CurrentVersion is the cheap probe the read cache uses before deciding
// on a full fetch.
func (s *Service) CurrentVersion(ctx context.Context, userID id.UserID) (int64, error) {
	v, err := s.store.CurrentVersion(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("profile %s not found", userID))
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "read profile version")
	}
	return v, nil
}

// Update applies a partial patch. Only fields that actually change
// produce change records; a patch that changes nothing commits nothing
// and keeps the version. last_sync is applied silently.
func (s *Service) Update(ctx context.Context, userID id.UserID, patch domain.ProfilePatch, callerSource string) (domain.Profile, error) {
	if patch.SkillTier != nil && (*patch.SkillTier < 1 || *patch.SkillTier > 10) {
		return domain.Profile{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("skill tier %d outside [1,10]", *patch.SkillTier))
	}
	if patch.TrustScore != nil && (*patch.TrustScore < 0 || *patch.TrustScore > 100) {
		return domain.Profile{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("trust score %.2f outside [0,100]", *patch.TrustScore))
	}

	return s.commit(ctx, userID, callerSource, func(p *domain.Profile) []domain.ChangeRecord {
		return applyPatch(p, patch, callerSource, s.now())
	})
}

// IncrementXP raises xp_total by delta. A non-positive delta is the
// service-level layer of the decrement defence.
func (s *Service) IncrementXP(ctx context.Context, userID id.UserID, delta int64, callerSource string) (domain.Profile, error) {
	if delta <= 0 {
		if s.metrics != nil {
			s.metrics.StoreGuardTrips.Inc()
		}
		return domain.Profile{}, dErrors.New(dErrors.CodeMonotonicityViolation,
			fmt.Sprintf("xp increment must be positive, got %d", delta))
	}

	return s.commit(ctx, userID, callerSource, func(p *domain.Profile) []domain.ChangeRecord {
		old := p.XPTotal
		p.XPTotal += delta
		return []domain.ChangeRecord{{
			UserID:    userID,
			Field:     domain.FieldXPTotal,
			OldValue:  strconv.FormatInt(old, 10),
			NewValue:  strconv.FormatInt(p.XPTotal, 10),
			Source:    callerSource,
			ChangedAt: s.now(),
		}}
	})
}

// commit runs the read-mutate-write cycle under compare-and-swap. The
// mutate callback returns the change records for the fields it touched;
// an empty return means nothing changed and the write is skipped.
func (s *Service) commit(ctx context.Context, userID id.UserID, callerSource string, mutate func(*domain.Profile) []domain.ChangeRecord) (domain.Profile, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		current, err := s.GetByID(ctx, userID)
		if err != nil {
			return domain.Profile{}, err
		}

		next := current.Clone()
		records := mutate(&next)
		if len(records) == 0 && next.LastSync.Equal(current.LastSync) {
			return current, nil
		}

		expected := next.Version
		next.Version++

		err = s.store.Update(ctx, next, expected)
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.VersionConflicts.Inc()
			}
			continue
		}
		if errors.Is(err, sentinel.ErrInvalidState) {
			if s.metrics != nil {
				s.metrics.StoreGuardTrips.Inc()
			}
			return domain.Profile{}, dErrors.New(dErrors.CodeMonotonicityViolation,
				fmt.Sprintf("write would lower xp_total for %s", userID))
		}
		if err != nil {
			return domain.Profile{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "update profile")
		}

		if err := s.history.Append(ctx, records); err != nil {
			// The profile write already committed; losing the audit rows
			// is worse than reporting success, so surface the failure.
			// Kept non-retryable: a retried caller would re-run the
			// committed mutation.
			return domain.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "append change records")
		}

		if s.metrics != nil {
			s.metrics.Updates.Inc()
			for _, r := range records {
				s.metrics.ChangeRecords.WithLabelValues(r.Field).Inc()
			}
		}
		s.logger.Debug("profile committed",
			"user_id", userID,
			"version", next.Version,
			"fields", len(records),
			"caller", callerSource,
		)
		return next, nil
	}

	return domain.Profile{}, dErrors.New(dErrors.CodeConflict,
		fmt.Sprintf("profile %s contended beyond %d attempts", userID, casAttempts))
}

// applyPatch mutates p in place and returns the audit rows. LastSync is
// applied but never audited.
func applyPatch(p *domain.Profile, patch domain.ProfilePatch, callerSource string, at time.Time) []domain.ChangeRecord {
	var records []domain.ChangeRecord
	record := func(field, oldValue, newValue string) {
		records = append(records, domain.ChangeRecord{
			UserID:    p.UserID,
			Field:     field,
			OldValue:  oldValue,
			NewValue:  newValue,
			Source:    callerSource,
			ChangedAt: at,
		})
	}

	if patch.Username != nil && *patch.Username != p.Username {
		record(domain.FieldUsername, p.Username, *patch.Username)
		p.Username = *patch.Username
	}
	if patch.TrustScore != nil && *patch.TrustScore != p.TrustScore {
		record(domain.FieldTrustScore,
			strconv.FormatFloat(p.TrustScore, 'f', -1, 64),
			strconv.FormatFloat(*patch.TrustScore, 'f', -1, 64))
		p.TrustScore = *patch.TrustScore
	}
	if patch.SkillTier != nil && *patch.SkillTier != p.SkillTier {
		record(domain.FieldSkillTier, strconv.Itoa(p.SkillTier), strconv.Itoa(*patch.SkillTier))
		p.SkillTier = *patch.SkillTier
	}
	if patch.Badges != nil && !sameBadgeSet(p.Badges, patch.Badges) {
		record(domain.FieldBadges, badgeCodes(p.Badges), badgeCodes(patch.Badges))
		p.Badges = patch.Badges
	}
	if patch.LastSync != nil {
		p.LastSync = *patch.LastSync
	}
	return records
}

func sameBadgeSet(a, b []domain.Badge) bool {
	if len(a) != len(b) {
		return false
	}
	type key struct {
		source id.SourceID
		code   id.BadgeCode
	}
	seen := make(map[key]int, len(a))
	for _, x := range a {
		seen[key{x.Source, x.Code}] = x.Progress
	}
	for _, x := range b {
		progress, ok := seen[key{x.Source, x.Code}]
		if !ok || progress != x.Progress {
			return false
		}
	}
	return true
}

// badgeCodes renders a badge set as an audit-friendly JSON list of
// source/code pairs.
func badgeCodes(badges []domain.Badge) string {
	codes := make([]string, 0, len(badges))
	for _, b := range badges {
		codes = append(codes, fmt.Sprintf("%s/%s", b.Source, b.Code))
	}
	out, _ := json.Marshal(codes)
	return string(out)
}

// History returns the newest change records first.
func (s *Service) History(ctx context.Context, userID id.UserID, limit int) ([]domain.ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.history.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list change records")
	}
	return records, nil
}

// RequestErasure issues a single-use confirmation token the caller must
// echo back to Delete. Only the bcrypt hash is retained.
func (s *Service) RequestErasure(ctx context.Context, userID id.UserID) (string, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return "", err
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate confirmation token")
	}
	token := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash confirmation token")
	}

	s.mu.Lock()
	s.pending[userID] = pendingErasure{tokenHash: hash, expiresAt: s.now().Add(s.cfg.ConfirmTokenTTL)}
	s.mu.Unlock()

	s.logger.Info("erasure requested", "user_id", userID)
	return token, nil
}

// Delete erases the profile after verifying the confirmation token. The
// snapshot is archived for the retention window first, then a final
// audit record is written, then the live record is removed.
func (s *Service) Delete(ctx context.Context, userID id.UserID, confirmation string) error {
	s.mu.Lock()
	pending, ok := s.pending[userID]
	s.mu.Unlock()

	if !ok || s.now().After(pending.expiresAt) {
		return dErrors.New(dErrors.CodeBadRequest, "no valid erasure confirmation pending")
	}
	if bcrypt.CompareHashAndPassword(pending.tokenHash, []byte(confirmation)) != nil {
		return dErrors.New(dErrors.CodeBadRequest, "confirmation token mismatch")
	}

	p, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	snapshot := domain.ArchivedProfile{
		ArchiveID:      uuid.NewString(),
		UserID:         userID,
		Data:           p,
		ArchivedAt:     now,
		RetentionUntil: now.Add(s.cfg.ArchiveRetention),
	}
	if err := s.archive.Archive(ctx, snapshot); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "archive profile snapshot")
	}

	final := domain.ChangeRecord{
		UserID:    userID,
		Field:     domain.FieldDeleted,
		OldValue:  p.Username,
		NewValue:  "",
		Source:    "user_request",
		Metadata:  map[string]string{"archive_id": snapshot.ArchiveID},
		ChangedAt: now,
	}
	if err := s.history.Append(ctx, []domain.ChangeRecord{final}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append erasure record")
	}

	if err := s.store.Delete(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete profile")
	}

	s.mu.Lock()
	delete(s.pending, userID)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Deletes.Inc()
	}
	s.logger.Info("profile erased", "user_id", userID, "archive_id", snapshot.ArchiveID)
	return nil
}

// Archived returns the retained snapshot, if any.
func (s *Service) Archived(ctx context.Context, userID id.UserID) (domain.ArchivedProfile, error) {
	snap, err := s.archive.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.ArchivedProfile{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("no archived snapshot for %s", userID))
	}
	if err != nil {
		return domain.ArchivedProfile{}, dErrors.Wrap(err, dErrors.CodeInternal, "read profile archive")
	}
	return snap, nil
}

// PurgeExpiredArchives drops snapshots past their retention deadline.
// Intended for a periodic maintenance caller.
func (s *Service) PurgeExpiredArchives(ctx context.Context) (int, error) {
	purged, err := s.archive.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "purge profile archive")
	}
	if purged > 0 {
		s.logger.Info("expired archives purged", "count", purged)
	}
	return purged, nil
}
