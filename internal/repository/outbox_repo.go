package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
)

// OutboxRepository stages lifecycle events next to record mutations so the
// publisher worker can deliver them to Kafka after commit
type OutboxRepository struct {
	db *sqlx.DB
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// InsertLifecycleEvent stages an event. When tx is non-nil the insert joins
// the surrounding record mutation.
func (r *OutboxRepository) InsertLifecycleEvent(ctx context.Context, tx *sqlx.Tx, event *models.LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO outbox (event_type, key, payload, created_at)
			  VALUES ($1, $2, $3, NOW())`

	var executor interface {
		ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	}
	if tx != nil {
		executor = tx
	} else {
		executor = r.db
	}

	_, err = executor.ExecContext(ctx, query, event.EventType, event.ItemID, string(payload))
	if err != nil {
		log.Error().Err(err).
			Str("event_type", event.EventType).
			Str("item_id", event.ItemID).
			Msg("Failed to insert outbox event")
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	log.Debug().
		Str("event_type", event.EventType).
		Str("item_id", event.ItemID).
		Msg("Staged lifecycle event")

	return nil
}

// TryAcquireOutboxLock attempts to acquire a PostgreSQL advisory lock so only
// one publisher worker drains the outbox at a time
func (r *OutboxRepository) TryAcquireOutboxLock(ctx context.Context, lockKey int64) (bool, error) {
	var acquired bool
	err := r.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockKey).Scan(&acquired)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Int64("lock_key", lockKey).Msg("Failed to acquire advisory lock")
		return false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return acquired, nil
}

// ReleaseOutboxLock releases the advisory lock
func (r *OutboxRepository) ReleaseOutboxLock(ctx context.Context, lockKey int64) error {
	var released bool
	if err := r.db.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, lockKey).Scan(&released); err != nil {
		log.Error().Err(err).Int64("lock_key", lockKey).Msg("Failed to release advisory lock")
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	if !released {
		log.Warn().Int64("lock_key", lockKey).Msg("Advisory lock was not held when trying to release")
	}
	return nil
}

// FetchUnpublishedOrdered fetches unpublished events in insertion order
func (r *OutboxRepository) FetchUnpublishedOrdered(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	query := `SELECT id, event_type, key, payload, created_at, published, publish_attempts, last_error
			  FROM outbox
			  WHERE published = FALSE
			  ORDER BY id ASC
			  LIMIT $1`

	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		log.Error().Err(err).Msg("Failed to fetch unpublished outbox events")
		return nil, fmt.Errorf("failed to fetch unpublished outbox events: %w", err)
	}

	return events, nil
}

// MarkPublished marks events as successfully published
func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE outbox SET published = TRUE, published_at = NOW() WHERE id = ANY($1)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		log.Error().Err(err).Interface("ids", ids).Msg("Failed to mark outbox events as published")
		return fmt.Errorf("failed to mark outbox events as published: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	log.Debug().Int64("rows_affected", rowsAffected).Msg("Marked outbox events as published")
	return nil
}

// IncrementPublishAttempts records a failed delivery attempt
func (r *OutboxRepository) IncrementPublishAttempts(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE outbox
			  SET publish_attempts = publish_attempts + 1, last_error = $2
			  WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, lastError); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to increment publish attempts")
		return fmt.Errorf("failed to increment publish attempts: %w", err)
	}

	return nil
}
