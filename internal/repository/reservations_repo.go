package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
)

// ReservationRepository handles database operations for reservation records
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// CreateReservation inserts a new reservation record. CreatedAt and ExpiresAt
// come from the caller so the retention window is anchored to one instant.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation *models.Reservation) error {
	query := `INSERT INTO reservations (reservation_id, user_id, item_id, status, expires_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $6)`

	_, err := r.db.ExecContext(ctx, query, reservation.ReservationID, reservation.UserID,
		reservation.ItemID, reservation.Status, reservation.ExpiresAt, reservation.CreatedAt)
	if err != nil {
		log.Error().Err(err).Str("reservation_id", reservation.ReservationID.String()).Msg("Failed to create reservation")
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	reservation.UpdatedAt = reservation.CreatedAt
	return nil
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	query := `SELECT reservation_id, user_id, item_id, status, expires_at, created_at, updated_at
			  FROM reservations WHERE reservation_id = $1`

	err := r.db.GetContext(ctx, &reservation, query, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("reservation_id", reservationID.String()).Msg("Failed to get reservation")
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &reservation, nil
}

// FindActiveReservation retrieves the active reservation for a (user, item) pair
func (r *ReservationRepository) FindActiveReservation(ctx context.Context, userID, itemID string) (*models.Reservation, error) {
	var reservation models.Reservation
	query := `SELECT reservation_id, user_id, item_id, status, expires_at, created_at, updated_at
			  FROM reservations
			  WHERE user_id = $1 AND item_id = $2 AND status = $3
			  LIMIT 1`

	err := r.db.GetContext(ctx, &reservation, query, userID, itemID, models.ReservationStatusActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("user_id", userID).Str("item_id", itemID).Msg("Failed to find active reservation")
		return nil, fmt.Errorf("failed to find active reservation: %w", err)
	}

	return &reservation, nil
}

// GetUserReservations retrieves all reservations for a user
func (r *ReservationRepository) GetUserReservations(ctx context.Context, userID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	query := `SELECT reservation_id, user_id, item_id, status, expires_at, created_at, updated_at
			  FROM reservations WHERE user_id = $1 ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &reservations, query, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user reservations")
		return nil, fmt.Errorf("failed to get user reservations: %w", err)
	}

	return reservations, nil
}

// GetAllReservations retrieves every reservation record
func (r *ReservationRepository) GetAllReservations(ctx context.Context) ([]models.Reservation, error) {
	var reservations []models.Reservation
	query := `SELECT reservation_id, user_id, item_id, status, expires_at, created_at, updated_at
			  FROM reservations ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &reservations, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get all reservations")
		return nil, fmt.Errorf("failed to get all reservations: %w", err)
	}

	return reservations, nil
}

// CancelReservation transitions active -> cancelled. The status guard keeps
// the transition one-way: cancelled or expired reservations are never touched.
func (r *ReservationRepository) CancelReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	return r.transition(ctx, reservationID, models.ReservationStatusActive, models.ReservationStatusCancelled)
}

// ExpireReservation transitions active -> expired, re-verifying the status at
// write time so a concurrent cancellation is never clobbered.
func (r *ReservationRepository) ExpireReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	return r.transition(ctx, reservationID, models.ReservationStatusActive, models.ReservationStatusExpired)
}

func (r *ReservationRepository) transition(ctx context.Context, reservationID uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	query := `UPDATE reservations SET status = $3, updated_at = NOW()
			  WHERE reservation_id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, reservationID, from, to)
	if err != nil {
		log.Error().Err(err).
			Str("reservation_id", reservationID.String()).
			Str("to_status", string(to)).
			Msg("Failed to transition reservation")
		return false, fmt.Errorf("failed to transition reservation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetExpiredActive retrieves active reservations whose expiry is strictly
// before now, capped at limit for bounded batches
func (r *ReservationRepository) GetExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	query := `SELECT reservation_id, user_id, item_id, status, expires_at, created_at, updated_at
			  FROM reservations
			  WHERE status = $1 AND expires_at < $2
			  ORDER BY expires_at ASC
			  LIMIT $3`

	err := r.db.SelectContext(ctx, &reservations, query, models.ReservationStatusActive, now, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get expired reservations")
		return nil, fmt.Errorf("failed to get expired reservations: %w", err)
	}

	return reservations, nil
}
