package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerDrive/internal/app/model"
	apprepository "github.com/sifan077/PowerDrive/internal/app/repository"
	"go.uber.org/zap"
)

const (
	consumerBatchSize  = 10
	consumerMaxWait    = 5 * time.Second
	consumerRetryDelay = time.Second
)

// eventAcker is the acknowledgement side of a JetStream message.
type eventAcker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// ShareEventConsumer drains share events from JetStream into the event repository.
type ShareEventConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.ShareEventRepository
}

// NewShareEventConsumer creates a new share event consumer.
func NewShareEventConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ShareEventRepository) *ShareEventConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareEventConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist, then consumes until ctx is done.
func (c *ShareEventConsumer) Start(ctx context.Context) error {
	if _, err := c.js.StreamInfo(model.ShareStreamName); err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ShareStreamName,
			Subjects: []string{model.ShareStreamSubject},
			MaxBytes: model.ShareStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := c.js.ConsumerInfo(model.ShareStreamName, model.ShareConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.ShareStreamName, &nats.ConsumerConfig{
			Durable:   model.ShareConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ShareStreamSubject, model.ShareConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *ShareEventConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warn("failed to unsubscribe share consumer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("share event consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(consumerBatchSize, nats.MaxWait(consumerMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				c.logger.Warn("share event subscription closed", zap.Error(err))
				return
			}
			c.logger.Error("failed to fetch share events", zap.Error(err))
			if !sleepCtx(ctx, consumerRetryDelay) {
				c.logger.Info("share event consumer stopped")
				return
			}
			continue
		}

		for _, msg := range msgs {
			c.handle(ctx, msg.Data, msg)
		}
	}
}

// handle stores one event. Undecodable payloads are terminated, storage
// failures are redelivered.
func (c *ShareEventConsumer) handle(ctx context.Context, data []byte, msg eventAcker) {
	var event model.ShareEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal share event", zap.Error(err))
		// a malformed payload will never decode; drop it
		_ = msg.Term()
		return
	}

	if err := c.repo.Create(ctx, &event); err != nil {
		c.logger.Error("failed to store share event",
			zap.String("id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Uint64("link_id", event.LinkID),
			zap.Error(err))
		_ = msg.Nak()
		return
	}

	c.logger.Debug("share event stored",
		zap.String("id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Uint64("link_id", event.LinkID),
		zap.Time("timestamp", event.Timestamp),
	)
	_ = msg.Ack()
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
