package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	id "identity-dna/pkg/domain"
)

// KafkaPublisher fans profile change notifications out to a Kafka
// topic, keyed by user so per-user ordering survives partitioning.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) { p.logger = logger }
}

func WithKafkaClock(now func() time.Time) KafkaOption {
	return func(p *KafkaPublisher) { p.now = now }
}

// NewKafkaPublisher connects to the brokers and ensures the topic
// exists before the first publish.
func NewKafkaPublisher(ctx context.Context, cfg config.Bus, opts ...KafkaOption) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.DefaultProduceTopic(cfg.KafkaTopic),
		kgo.ProducerBatchMaxBytes(maxFrameSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg.KafkaTopic); err != nil {
		client.Close()
		return nil, err
	}

	p := &KafkaPublisher{
		client: client,
		topic:  cfg.KafkaTopic,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	topics, err := admin.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %q: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) publish(ctx context.Context, msgType, userID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("kafka payload encode failed", "type", msgType, "error", err)
		return
	}
	m := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Source:    SourceName,
		Timestamp: p.now(),
		UserID:    userID,
		Broadcast: true,
		Payload:   data,
	}
	value, err := json.Marshal(m)
	if err != nil {
		p.logger.Error("kafka message encode failed", "type", msgType, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(userID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("kafka publish failed",
				"type", msgType,
				"user_id", userID,
				"error", err,
			)
		}
	})
}

// ProfileUpdated publishes the committed profile.
func (p *KafkaPublisher) ProfileUpdated(ctx context.Context, profile domain.Profile) {
	p.publish(ctx, TypeProfileUpdate, profile.UserID.String(), profile)
}

// TierChanged publishes a committed tier transition.
func (p *KafkaPublisher) TierChanged(ctx context.Context, userID id.UserID, oldTier, newTier int) {
	p.publish(ctx, TypeTierChanged, userID.String(), map[string]int{
		"oldTier": oldTier,
		"newTier": newTier,
	})
}

// TrustUpdated publishes a committed trust score.
func (p *KafkaPublisher) TrustUpdated(ctx context.Context, userID id.UserID, score float64) {
	p.publish(ctx, TypeTrustUpdate, userID.String(), map[string]float64{
		"trustScore": score,
	})
}

// Flush drains buffered records; call before Close on shutdown.
func (p *KafkaPublisher) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
