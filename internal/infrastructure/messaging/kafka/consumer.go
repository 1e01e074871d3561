package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/openlands/caselens/internal/config"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// EnvelopeHandler processes one decoded event.  Returning an error leaves
// the message uncommitted so it is redelivered.
type EnvelopeHandler func(ctx context.Context, env *EventEnvelope) error

// reader abstracts kafka.Reader for testing.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads refresh-trigger events and dispatches them to a handler.
type Consumer struct {
	reader  reader
	handler EnvelopeHandler
	logger  logging.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a consumer group member on the given topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler EnvelopeHandler, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "kafka group id is required")
	}
	if handler == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "handler is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10 * 1024 * 1024,
		MaxWait:     time.Second,
	})

	return &Consumer{
		reader:  r,
		handler: handler,
		logger:  logger.Named("kafka.consumer"),
	}, nil
}

// Start launches the consume loop.  It returns immediately; the loop runs
// until Stop or context cancellation.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeConflict, "consumer already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(loopCtx)
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to fetch message", logging.Err(err))
			continue
		}

		env, err := ParseEnvelope(msg.Value)
		if err != nil {
			// A malformed message can never succeed; commit it so the
			// partition does not wedge.
			c.logger.Warn("discarding undecodable message",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			c.commit(ctx, msg)
			continue
		}

		if err := c.handler(ctx, env); err != nil {
			c.logger.Error("event handler failed, message will be redelivered",
				logging.String("event_type", env.EventType),
				logging.String("event_id", env.EventID),
				logging.Err(err))
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Error("failed to commit offset",
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
	}
}

// Stop cancels the loop and closes the reader.
func (c *Consumer) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	if err != nil {
		c.logger.Error("failed to close kafka reader", logging.Err(err))
		return err
	}
	c.logger.Info("kafka consumer stopped")
	return nil
}
