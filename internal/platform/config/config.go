// Package config builds runtime configuration from environment
// variables so main stays lean. Every tunable has a production default;
// unset variables never fail startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration, grouped per concern.
type Config struct {
	Server       Server
	Redis        Redis
	Postgres     Postgres
	Bus          Bus
	Orchestrator Orchestrator
	Ledger       Ledger
	Profile      Profile
	Cache        Cache
	Gateway      Gateway
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string
}

// Redis configures the optional Redis client. An empty URL means Redis
// is not configured and redis-backed stores fall back to memory.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the optional pgx pool. Empty DSN means in-memory
// stores.
type Postgres struct {
	DSN string
}

// BusMode selects the outbound publish transport.
type BusMode string

const (
	BusModeStream BusMode = "stream"
	BusModeKafka  BusMode = "kafka"
	BusModeOff    BusMode = "off"
)

// Bus configures the event bus adapter.
type Bus struct {
	Mode              BusMode
	StreamAddr        string
	KafkaBrokers      []string
	KafkaTopic        string
	HeartbeatInterval time.Duration
	AckTimeout        time.Duration
	ReconnectDelay    time.Duration
	MaxReconnects     int
}

// Orchestrator configures the sync orchestrator.
type Orchestrator struct {
	BatchInterval time.Duration
	MaxQueueSize  int
	MaxSyncTime   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	DedupWindow   time.Duration
}

// Ledger configures deposit bounds and the streak multiplier.
type Ledger struct {
	DailyCap            int64
	MinDeposit          int64
	MaxDeposit          int64
	MaxStreakMultiplier float64
	StreakIncrement     float64
}

// Profile configures erasure semantics: how long archived snapshots are
// retained and how long an issued deletion confirmation stays valid.
type Profile struct {
	ArchiveRetention time.Duration
	ConfirmTokenTTL  time.Duration
}

// Cache configures the version-controlled read cache.
type Cache struct {
	StaleThreshold time.Duration
	MaxOffline     time.Duration
}

// Gateway configures upstream source reads.
type Gateway struct {
	SourceBaseURL string
	FetchTimeout  time.Duration
	CacheTTL      time.Duration
}

// FromEnv builds a Config from DNA_* environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:     envString("DNA_ADDR", ":8080"),
			LogLevel: envString("DNA_LOG_LEVEL", "info"),
		},
		Redis: Redis{
			URL:          os.Getenv("DNA_REDIS_URL"),
			PoolSize:     envInt("DNA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DNA_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("DNA_REDIS_DIAL_TIMEOUT_MS", 5000),
			ReadTimeout:  envDuration("DNA_REDIS_READ_TIMEOUT_MS", 3000),
			WriteTimeout: envDuration("DNA_REDIS_WRITE_TIMEOUT_MS", 3000),
		},
		Postgres: Postgres{
			DSN: os.Getenv("DNA_POSTGRES_DSN"),
		},
		Bus: Bus{
			Mode:              BusMode(envString("DNA_BUS_MODE", string(BusModeOff))),
			StreamAddr:        envString("DNA_BUS_STREAM_ADDR", "127.0.0.1:9900"),
			KafkaBrokers:      splitCSV(envString("DNA_BUS_KAFKA_BROKERS", "127.0.0.1:9092")),
			KafkaTopic:        envString("DNA_BUS_KAFKA_TOPIC", "dna.profile.updates"),
			HeartbeatInterval: envDuration("DNA_BUS_HEARTBEAT_MS", 30000),
			AckTimeout:        envDuration("DNA_BUS_ACK_TIMEOUT_MS", 5000),
			ReconnectDelay:    envDuration("DNA_BUS_RECONNECT_DELAY_MS", 2000),
			MaxReconnects:     envInt("DNA_BUS_MAX_RECONNECTS", 10),
		},
		Orchestrator: Orchestrator{
			BatchInterval: envDuration("DNA_BATCH_INTERVAL_MS", 1000),
			MaxQueueSize:  envInt("DNA_MAX_QUEUE_SIZE", 1000),
			MaxSyncTime:   envDuration("DNA_MAX_SYNC_TIME_MS", 5000),
			RetryAttempts: envInt("DNA_RETRY_ATTEMPTS", 3),
			RetryDelay:    envDuration("DNA_RETRY_DELAY_MS", 500),
			DedupWindow:   envDuration("DNA_DEDUP_WINDOW_MS", 600000),
		},
		Ledger: Ledger{
			DailyCap:            envInt64("DNA_DAILY_CAP", 10000),
			MinDeposit:          envInt64("DNA_MIN_DEPOSIT", 1),
			MaxDeposit:          envInt64("DNA_MAX_DEPOSIT", 100000),
			MaxStreakMultiplier: envFloat("DNA_MAX_STREAK_MULTIPLIER", 1.5),
			StreakIncrement:     envFloat("DNA_STREAK_INCREMENT", 0.1),
		},
		Profile: Profile{
			ArchiveRetention: envDuration("DNA_ARCHIVE_RETENTION_MS", 180*24*60*60*1000),
			ConfirmTokenTTL:  envDuration("DNA_CONFIRM_TOKEN_TTL_MS", 900000),
		},
		Cache: Cache{
			StaleThreshold: envDuration("DNA_STALE_THRESHOLD_MS", 60000),
			MaxOffline:     envDuration("DNA_MAX_OFFLINE_MS", 86400000),
		},
		Gateway: Gateway{
			SourceBaseURL: envString("DNA_SOURCE_BASE_URL", "http://127.0.0.1:9800"),
			FetchTimeout:  envDuration("DNA_GATEWAY_TIMEOUT_MS", 5000),
			CacheTTL:      envDuration("DNA_GATEWAY_CACHE_TTL_MS", 60000),
		},
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// envDuration reads a millisecond count; the *_MS suffix on every key
// keeps units explicit in deployment manifests.
func envDuration(key string, defMillis int64) time.Duration {
	return time.Duration(envInt64(key, defMillis)) * time.Millisecond
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
