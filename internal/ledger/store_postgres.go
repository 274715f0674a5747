package ledger

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

// Schema for the postgres ledger stores. The CHECK constraint is the
// store-level layer of the decrement defence.
const (
	LedgerSchema = `
CREATE TABLE IF NOT EXISTS xp_ledger (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	source TEXT NOT NULL,
	base_amount BIGINT NOT NULL,
	multiplier DOUBLE PRECISION NOT NULL,
	amount BIGINT NOT NULL CHECK (amount >= 1),
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (id)
);
CREATE INDEX IF NOT EXISTS xp_ledger_user_day ON xp_ledger (user_id, created_at);`

	StreakSchema = `
CREATE TABLE IF NOT EXISTS user_streaks (
	user_id TEXT PRIMARY KEY,
	current_streak INT NOT NULL,
	longest_streak INT NOT NULL,
	last_active DATE NOT NULL,
	started_at TIMESTAMPTZ NOT NULL
);`
)

// PostgresStore is the durable ledger store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, entry domain.LedgerEntry) error {
	if entry.Amount < 1 {
		return fmt.Errorf("ledger amount must be >= 1, got %d", entry.Amount)
	}
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode ledger metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO xp_ledger (user_id, source, base_amount, multiplier, amount, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.UserID.String(), entry.Source.String(), entry.BaseAmount, entry.Multiplier,
		entry.Amount, meta, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) TotalForUser(ctx context.Context, userID id.UserID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = $1`,
		userID.String(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger for user: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) SumForDay(ctx context.Context, userID id.UserID, day time.Time) (int64, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_ledger
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		userID.String(), dayStart, dayStart.Add(24*time.Hour),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger for day: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID id.UserID, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, source, base_amount, multiplier, amount, metadata, created_at
		 FROM xp_ledger WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			entry   domain.LedgerEntry
			user    string
			source  string
			rawMeta []byte
		)
		if err := rows.Scan(&user, &source, &entry.BaseAmount, &entry.Multiplier, &entry.Amount, &rawMeta, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.UserID = id.UserID(user)
		entry.Source = id.SourceID(source)
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode ledger metadata: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// PostgresStreakStore is the durable streak store.
type PostgresStreakStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStreakStore(pool *pgxpool.Pool) *PostgresStreakStore {
	return &PostgresStreakStore{pool: pool}
}

func (s *PostgresStreakStore) Get(ctx context.Context, userID id.UserID) (domain.StreakRecord, error) {
	var (
		rec  domain.StreakRecord
		user string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, current_streak, longest_streak, last_active, started_at
		 FROM user_streaks WHERE user_id = $1`,
		userID.String(),
	).Scan(&user, &rec.CurrentStreak, &rec.LongestStreak, &rec.LastActive, &rec.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StreakRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.StreakRecord{}, fmt.Errorf("get streak: %w", err)
	}
	rec.UserID = id.UserID(user)
	return rec, nil
}

func (s *PostgresStreakStore) Put(ctx context.Context, record domain.StreakRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_active, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_active = EXCLUDED.last_active,
			started_at = EXCLUDED.started_at`,
		record.UserID.String(), record.CurrentStreak, record.LongestStreak,
		record.LastActive, record.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("put streak: %w", err)
	}
	return nil
}
