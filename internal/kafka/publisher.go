// Package kafka delivers staged lifecycle events to the holds.lifecycle
// topic. Events are partitioned by item so consumers see each item's state
// changes in order.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"holds-service/internal/repository"
)

// Publisher writes lifecycle events to Kafka
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the lifecycle topic
func NewPublisher(brokers []string, topic string) *Publisher {
	// Hash balancer routes messages with the same key (item ID) to the same
	// partition so per-item ordering is preserved.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,

		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    1,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}

	return &Publisher{writer: writer}
}

// Close closes the Kafka writer
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close lifecycle writer: %w", err)
	}
	return nil
}

// PublisherOptions configures the outbox drain loop
type PublisherOptions struct {
	LockKey      int64
	BatchSize    int
	PollInterval time.Duration
}

// RunOutboxPublisher polls the outbox and delivers staged events until ctx is
// cancelled. An advisory lock keeps multiple instances from draining
// concurrently.
func (p *Publisher) RunOutboxPublisher(ctx context.Context, outboxRepo *repository.OutboxRepository, opts PublisherOptions) {
	log.Info().
		Int64("lock_key", opts.LockKey).
		Int("batch_size", opts.BatchSize).
		Dur("poll_interval", opts.PollInterval).
		Msg("Starting outbox publisher")

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping outbox publisher")
			return
		case <-ticker.C:
			if err := p.processOutboxBatch(ctx, outboxRepo, opts.LockKey, opts.BatchSize); err != nil {
				log.Error().Err(err).Msg("Failed to process outbox batch")
			}
		}
	}
}

func (p *Publisher) processOutboxBatch(ctx context.Context, outboxRepo *repository.OutboxRepository, lockKey int64, batchSize int) error {
	acquired, err := outboxRepo.TryAcquireOutboxLock(ctx, lockKey)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		log.Debug().Msg("Lock held by another worker, skipping batch")
		return nil
	}
	defer func() {
		if err := outboxRepo.ReleaseOutboxLock(ctx, lockKey); err != nil {
			log.Error().Err(err).Msg("Failed to release outbox lock")
		}
	}()

	events, err := outboxRepo.FetchUnpublishedOrdered(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox batch: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	var publishedIDs []int64
	for i := range events {
		event := &events[i]

		message := kafka.Message{
			Key:   []byte(event.Key),
			Value: []byte(event.Payload),
			Time:  event.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(event.EventType)},
			},
		}

		if err := p.writer.WriteMessages(ctx, message); err != nil {
			log.Error().Err(err).
				Int("outbox_id", event.ID).
				Str("event_type", event.EventType).
				Str("key", event.Key).
				Msg("Failed to publish outbox event")

			if incErr := outboxRepo.IncrementPublishAttempts(ctx, int64(event.ID), err.Error()); incErr != nil {
				log.Error().Err(incErr).Int("outbox_id", event.ID).Msg("Failed to increment publish attempts")
			}
			continue
		}

		publishedIDs = append(publishedIDs, int64(event.ID))
	}

	if len(publishedIDs) > 0 {
		if err := outboxRepo.MarkPublished(ctx, publishedIDs); err != nil {
			return fmt.Errorf("failed to mark events as published: %w", err)
		}
		log.Info().
			Int("published", len(publishedIDs)).
			Int("fetched", len(events)).
			Msg("Outbox batch delivered")
	}

	return nil
}
