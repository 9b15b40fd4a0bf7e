package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
)

// HoldRepository handles database operations for hold records
type HoldRepository struct {
	db *sqlx.DB
}

// NewHoldRepository creates a new hold repository
func NewHoldRepository(db *sqlx.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

// BeginTx starts a new database transaction
func (r *HoldRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// LockItemQueue takes a transaction-scoped advisory lock on the item's queue.
// Two concurrent placements for the same item serialize here, so the
// read-position/insert sequence can never assign duplicate positions.
func (r *HoldRepository) LockItemQueue(ctx context.Context, tx *sqlx.Tx, itemID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, itemID); err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("Failed to lock item queue")
		return fmt.Errorf("failed to lock item queue: %w", err)
	}
	return nil
}

// CreateHold inserts a new hold record
func (r *HoldRepository) CreateHold(ctx context.Context, tx *sqlx.Tx, hold *models.Hold) error {
	query := `INSERT INTO holds (hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	_, err := r.exec(tx).ExecContext(ctx, query, hold.HoldID, hold.UserID, hold.ItemID,
		hold.Status, hold.Position, hold.Notified, hold.CreatedAt)
	if err != nil {
		log.Error().Err(err).Str("hold_id", hold.HoldID.String()).Msg("Failed to create hold")
		return fmt.Errorf("failed to create hold: %w", err)
	}

	hold.UpdatedAt = hold.CreatedAt
	return nil
}

// GetHold retrieves a hold by ID
func (r *HoldRepository) GetHold(ctx context.Context, holdID uuid.UUID) (*models.Hold, error) {
	var hold models.Hold
	query := `SELECT hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at
			  FROM holds WHERE hold_id = $1`

	err := r.db.GetContext(ctx, &hold, query, holdID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("hold_id", holdID.String()).Msg("Failed to get hold")
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}

	return &hold, nil
}

// DeleteHold removes a hold row and reports whether it still existed.
// Callers run this inside a transaction so a hold that vanished between read
// and delete fails the whole cancellation cleanly.
func (r *HoldRepository) DeleteHold(ctx context.Context, tx *sqlx.Tx, holdID uuid.UUID) (bool, error) {
	result, err := r.exec(tx).ExecContext(ctx, `DELETE FROM holds WHERE hold_id = $1`, holdID)
	if err != nil {
		log.Error().Err(err).Str("hold_id", holdID.String()).Msg("Failed to delete hold")
		return false, fmt.Errorf("failed to delete hold: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected > 0, nil
}

// FindOpenHold retrieves the non-cancelled hold for a (user, item) pair
func (r *HoldRepository) FindOpenHold(ctx context.Context, userID, itemID string) (*models.Hold, error) {
	var hold models.Hold
	query := `SELECT hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at
			  FROM holds
			  WHERE user_id = $1 AND item_id = $2 AND status <> $3
			  LIMIT 1`

	err := r.db.GetContext(ctx, &hold, query, userID, itemID, models.HoldStatusCancelled)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("user_id", userID).Str("item_id", itemID).Msg("Failed to find open hold")
		return nil, fmt.Errorf("failed to find open hold: %w", err)
	}

	return &hold, nil
}

// GetItemQueue retrieves an item's non-cancelled holds ordered by position
func (r *HoldRepository) GetItemQueue(ctx context.Context, itemID string) ([]models.Hold, error) {
	var holds []models.Hold
	query := `SELECT hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at
			  FROM holds
			  WHERE item_id = $1 AND status <> $2
			  ORDER BY queue_position ASC`

	err := r.db.SelectContext(ctx, &holds, query, itemID, models.HoldStatusCancelled)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("Failed to get item queue")
		return nil, fmt.Errorf("failed to get item queue: %w", err)
	}

	return holds, nil
}

// GetItemQueueByCreation retrieves an item's non-cancelled holds in creation
// order, the ordering queue repair renumbers against. Hold id breaks ties.
func (r *HoldRepository) GetItemQueueByCreation(ctx context.Context, itemID string) ([]models.Hold, error) {
	var holds []models.Hold
	query := `SELECT hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at
			  FROM holds
			  WHERE item_id = $1 AND status <> $2
			  ORDER BY created_at ASC, hold_id ASC`

	err := r.db.SelectContext(ctx, &holds, query, itemID, models.HoldStatusCancelled)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("Failed to get item queue by creation")
		return nil, fmt.Errorf("failed to get item queue by creation: %w", err)
	}

	return holds, nil
}

// GetUserHolds retrieves all holds for a user
func (r *HoldRepository) GetUserHolds(ctx context.Context, userID string) ([]models.Hold, error) {
	var holds []models.Hold
	query := `SELECT hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at
			  FROM holds WHERE user_id = $1 ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &holds, query, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user holds")
		return nil, fmt.Errorf("failed to get user holds: %w", err)
	}

	return holds, nil
}

// GetAllHolds retrieves every hold record
func (r *HoldRepository) GetAllHolds(ctx context.Context) ([]models.Hold, error) {
	var holds []models.Hold
	query := `SELECT hold_id, user_id, item_id, status, queue_position, notified, created_at, updated_at
			  FROM holds ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &holds, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get all holds")
		return nil, fmt.Errorf("failed to get all holds: %w", err)
	}

	return holds, nil
}

// ItemIDsWithHolds lists distinct items that currently have non-cancelled holds
func (r *HoldRepository) ItemIDsWithHolds(ctx context.Context) ([]string, error) {
	var itemIDs []string
	query := `SELECT DISTINCT item_id FROM holds WHERE status <> $1`

	err := r.db.SelectContext(ctx, &itemIDs, query, models.HoldStatusCancelled)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list items with holds")
		return nil, fmt.Errorf("failed to list items with holds: %w", err)
	}

	return itemIDs, nil
}

// UpdateHoldPosition rewrites one hold's queue position during repair
func (r *HoldRepository) UpdateHoldPosition(ctx context.Context, holdID uuid.UUID, position int) error {
	query := `UPDATE holds SET queue_position = $2, updated_at = NOW() WHERE hold_id = $1`

	_, err := r.db.ExecContext(ctx, query, holdID, position)
	if err != nil {
		log.Error().Err(err).Str("hold_id", holdID.String()).Int("position", position).Msg("Failed to update hold position")
		return fmt.Errorf("failed to update hold position: %w", err)
	}

	return nil
}

// UpdateHoldStatus performs the administrative status transition and reports
// whether the hold existed
func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID uuid.UUID, status models.HoldStatus, notified bool) (bool, error) {
	query := `UPDATE holds SET status = $2, notified = $3, updated_at = NOW() WHERE hold_id = $1`

	result, err := r.db.ExecContext(ctx, query, holdID, status, notified)
	if err != nil {
		log.Error().Err(err).Str("hold_id", holdID.String()).Msg("Failed to update hold status")
		return false, fmt.Errorf("failed to update hold status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected > 0, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *HoldRepository) exec(tx *sqlx.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.db
}
