package quarantine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
)

const quarantineKeyPrefix = "dna:quarantine:"

// RedisStore is a Redis-backed quarantine store for distributed
// deployments where multiple instances must agree on blocked sources.
// Entries are stored without TTL: violation counts must survive the
// auto-unblock window, so expiry is evaluated on read instead.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisEntry struct {
	Source         string    `json:"source"`
	SourceType     string    `json:"source_type"`
	Reason         string    `json:"reason"`
	ViolationCount int       `json:"violation_count"`
	Permanent      bool      `json:"permanent"`
	AutoUnblockAt  time.Time `json:"auto_unblock_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *RedisStore) Get(ctx context.Context, source id.SourceID) (domain.QuarantineEntry, error) {
	raw, err := s.client.Get(ctx, quarantineKeyPrefix+source.String()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.QuarantineEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.QuarantineEntry{}, fmt.Errorf("get quarantine entry: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return domain.QuarantineEntry{}, fmt.Errorf("decode quarantine entry: %w", err)
	}
	return domain.QuarantineEntry{
		Source:         id.SourceID(e.Source),
		SourceType:     e.SourceType,
		Reason:         e.Reason,
		ViolationCount: e.ViolationCount,
		Permanent:      e.Permanent,
		AutoUnblockAt:  e.AutoUnblockAt,
		CreatedAt:      e.CreatedAt,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, entry domain.QuarantineEntry) error {
	raw, err := json.Marshal(redisEntry{
		Source:         entry.Source.String(),
		SourceType:     entry.SourceType,
		Reason:         entry.Reason,
		ViolationCount: entry.ViolationCount,
		Permanent:      entry.Permanent,
		AutoUnblockAt:  entry.AutoUnblockAt,
		CreatedAt:      entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode quarantine entry: %w", err)
	}
	if err := s.client.Set(ctx, quarantineKeyPrefix+entry.Source.String(), raw, 0).Err(); err != nil {
		return fmt.Errorf("put quarantine entry: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.QuarantineEntry, error) {
	var out []domain.QuarantineEntry
	iter := s.client.Scan(ctx, 0, quarantineKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		entry, err := s.Get(ctx, id.SourceID(key[len(quarantineKeyPrefix):]))
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan quarantine entries: %w", err)
	}
	return out, nil
}
