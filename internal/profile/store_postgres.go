package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
)

// Schema for the postgres profile stores. The CHECK constraints mirror
// the profile invariants; xp_total >= 0 is the floor, the monotonic
// guard lives in the UPDATE predicate.
const (
	ProfileSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	xp_total BIGINT NOT NULL CHECK (xp_total >= 0),
	trust_score DOUBLE PRECISION NOT NULL CHECK (trust_score >= 0 AND trust_score <= 100),
	skill_tier INT NOT NULL CHECK (skill_tier >= 1 AND skill_tier <= 10),
	badges JSONB NOT NULL DEFAULT '[]',
	last_sync TIMESTAMPTZ,
	version BIGINT NOT NULL
);`

	HistorySchema = `
CREATE TABLE IF NOT EXISTS profile_changes (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	field_changed TEXT NOT NULL,
	old_value TEXT NOT NULL,
	new_value TEXT NOT NULL,
	source TEXT NOT NULL,
	metadata JSONB,
	changed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS profile_changes_user ON profile_changes (user_id, id DESC);`

	ArchiveSchema = `
CREATE TABLE IF NOT EXISTS profile_archive (
	archive_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	data JSONB NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL,
	retention_until TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS profile_archive_user ON profile_archive (user_id);`
)

// PostgresStore is the durable profile store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (domain.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, username, xp_total, trust_score, skill_tier, badges, last_sync, version
		 FROM profiles WHERE user_id = $1`,
		userID.String(),
	)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p         domain.Profile
		user      string
		rawBadges []byte
		lastSync  *time.Time
	)
	err := row.Scan(&user, &p.Username, &p.XPTotal, &p.TrustScore, &p.SkillTier, &rawBadges, &lastSync, &p.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.UserID = id.UserID(user)
	if lastSync != nil {
		p.LastSync = *lastSync
	}
	if err := json.Unmarshal(rawBadges, &p.Badges); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile badges: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p domain.Profile) error {
	badges, err := json.Marshal(badgesOrEmpty(p.Badges))
	if err != nil {
		return fmt.Errorf("encode profile badges: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, username, xp_total, trust_score, skill_tier, badges, last_sync, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO NOTHING`,
		p.UserID.String(), p.Username, p.XPTotal, p.TrustScore, p.SkillTier, badges, nullableTime(p.LastSync), p.Version,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// Update compares the stored version and refuses any write that would
// lower xp_total; a zero-row result is disambiguated with a follow-up
// read.
func (s *PostgresStore) Update(ctx context.Context, p domain.Profile, expectedVersion int64) error {
	badges, err := json.Marshal(badgesOrEmpty(p.Badges))
	if err != nil {
		return fmt.Errorf("encode profile badges: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles
		 SET username = $2, xp_total = $3, trust_score = $4, skill_tier = $5,
		     badges = $6, last_sync = $7, version = $8
		 WHERE user_id = $1 AND version = $9 AND xp_total <= $3`,
		p.UserID.String(), p.Username, p.XPTotal, p.TrustScore, p.SkillTier,
		badges, nullableTime(p.LastSync), p.Version, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, getErr := s.Get(ctx, p.UserID)
	if getErr != nil {
		return getErr
	}
	if p.XPTotal < current.XPTotal {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CurrentVersion(ctx context.Context, userID id.UserID) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM profiles WHERE user_id = $1`, userID.String(),
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read profile version: %w", err)
	}
	return version, nil
}

func badgesOrEmpty(badges []domain.Badge) []domain.Badge {
	if badges == nil {
		return []domain.Badge{}
	}
	return badges
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// PostgresHistoryStore is the durable change log.
type PostgresHistoryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresHistoryStore(pool *pgxpool.Pool) *PostgresHistoryStore {
	return &PostgresHistoryStore{pool: pool}
}

// Append writes the batch in one transaction so a partial audit trail
// is never visible.
func (s *PostgresHistoryStore) Append(ctx context.Context, records []domain.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode change metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO profile_changes (user_id, field_changed, old_value, new_value, source, metadata, changed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.UserID.String(), r.Field, r.OldValue, r.NewValue, r.Source, meta, r.ChangedAt,
		)
		if err != nil {
			return fmt.Errorf("append change record: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresHistoryStore) ListForUser(ctx context.Context, userID id.UserID, limit int) ([]domain.ChangeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, field_changed, old_value, new_value, source, metadata, changed_at
		 FROM profile_changes WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list change records: %w", err)
	}
	defer rows.Close()

	var out []domain.ChangeRecord
	for rows.Next() {
		var (
			r       domain.ChangeRecord
			user    string
			rawMeta []byte
		)
		if err := rows.Scan(&user, &r.Field, &r.OldValue, &r.NewValue, &r.Source, &rawMeta, &r.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan change record: %w", err)
		}
		r.UserID = id.UserID(user)
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("decode change metadata: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PostgresArchiveStore keeps erasure snapshots.
type PostgresArchiveStore struct {
	pool *pgxpool.Pool
}

func NewPostgresArchiveStore(pool *pgxpool.Pool) *PostgresArchiveStore {
	return &PostgresArchiveStore{pool: pool}
}

func (s *PostgresArchiveStore) Archive(ctx context.Context, snapshot domain.ArchivedProfile) error {
	data, err := json.Marshal(snapshot.Data)
	if err != nil {
		return fmt.Errorf("encode archived profile: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO profile_archive (archive_id, user_id, data, archived_at, retention_until)
		 VALUES ($1, $2, $3, $4, $5)`,
		snapshot.ArchiveID, snapshot.UserID.String(), data, snapshot.ArchivedAt, snapshot.RetentionUntil,
	)
	if err != nil {
		return fmt.Errorf("archive profile: %w", err)
	}
	return nil
}

// Get returns the newest snapshot for the user.
func (s *PostgresArchiveStore) Get(ctx context.Context, userID id.UserID) (domain.ArchivedProfile, error) {
	var (
		snap    domain.ArchivedProfile
		user    string
		rawData []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT archive_id, user_id, data, archived_at, retention_until
		 FROM profile_archive WHERE user_id = $1 ORDER BY archived_at DESC LIMIT 1`,
		userID.String(),
	).Scan(&snap.ArchiveID, &user, &rawData, &snap.ArchivedAt, &snap.RetentionUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ArchivedProfile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.ArchivedProfile{}, fmt.Errorf("read profile archive: %w", err)
	}
	snap.UserID = id.UserID(user)
	if err := json.Unmarshal(rawData, &snap.Data); err != nil {
		return domain.ArchivedProfile{}, fmt.Errorf("decode archived profile: %w", err)
	}
	return snap, nil
}

func (s *PostgresArchiveStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profile_archive WHERE retention_until < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge profile archive: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
