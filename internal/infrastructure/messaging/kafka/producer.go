package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/openlands/caselens/internal/config"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// writer abstracts kafka.Writer for testing.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes.  Publishing is best-effort from the
// caller's perspective: a ranking response is never failed because the alert
// could not be sent.
type Producer struct {
	writer writer
	source string
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer creates a producer for the configured brokers.
func NewProducer(cfg config.KafkaConfig, source string, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "kafka brokers are required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	retries := cfg.ProducerRetries
	if retries == 0 {
		retries = 3
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  retries + 1,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: w,
		source: source,
		logger: logger.Named("kafka.producer"),
	}, nil
}

// Publish sends one envelope to a topic, keyed so events for the same case
// land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic string, key string, env *EventEnvelope) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeInternal, "producer is closed")
	}
	if topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic is required")
	}

	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "source_service", Value: []byte(env.Source)},
			{Key: "schema_version", Value: []byte(env.SchemaVersion)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to publish event")
	}

	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", env.EventType),
		logging.String("event_id", env.EventID))
	return nil
}

// PublishDuplicateFlagged emits one alert for a flagged query.
func (p *Producer) PublishDuplicateFlagged(ctx context.Context, payload DuplicateFlaggedPayload) error {
	env, err := NewEventEnvelope(EventTypeDuplicateFlagged, p.source, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicDuplicatesFlagged, payload.MatchedCaseID, env)
}

// PublishCorpusRefresh asks the worker to rebuild the snapshot.
func (p *Producer) PublishCorpusRefresh(ctx context.Context, payload CorpusRefreshRequestedPayload) error {
	env, err := NewEventEnvelope(EventTypeCorpusRefreshRequested, p.source, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicCorpusRefresh, payload.RequestedBy, env)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	if err != nil {
		p.logger.Error("failed to close kafka producer", logging.Err(err))
		return err
	}
	p.logger.Info("kafka producer closed")
	return nil
}
