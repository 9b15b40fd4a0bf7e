package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"holds-service/internal/models"
)

// HoldRepository defines the contract for hold record operations.
// Reads return (nil, nil) when no record matches.
type HoldRepository interface {
	// Transaction management
	BeginTx(ctx context.Context) (*sqlx.Tx, error)

	// LockItemQueue serializes position assignment for one item within the
	// surrounding transaction.
	LockItemQueue(ctx context.Context, tx *sqlx.Tx, itemID string) error

	CreateHold(ctx context.Context, tx *sqlx.Tx, hold *models.Hold) error
	GetHold(ctx context.Context, holdID uuid.UUID) (*models.Hold, error)
	// DeleteHold reports whether a row was actually deleted.
	DeleteHold(ctx context.Context, tx *sqlx.Tx, holdID uuid.UUID) (bool, error)

	// FindOpenHold returns the non-cancelled hold for a (user, item) pair, if any.
	FindOpenHold(ctx context.Context, userID, itemID string) (*models.Hold, error)
	// GetItemQueue returns non-cancelled holds for an item ordered by position.
	GetItemQueue(ctx context.Context, itemID string) ([]models.Hold, error)
	// GetItemQueueByCreation returns non-cancelled holds ordered by creation time,
	// the ordering queue repair renumbers against.
	GetItemQueueByCreation(ctx context.Context, itemID string) ([]models.Hold, error)
	GetUserHolds(ctx context.Context, userID string) ([]models.Hold, error)
	GetAllHolds(ctx context.Context) ([]models.Hold, error)
	// ItemIDsWithHolds lists distinct items that currently have non-cancelled holds.
	ItemIDsWithHolds(ctx context.Context) ([]string, error)

	UpdateHoldPosition(ctx context.Context, holdID uuid.UUID, position int) error
	// UpdateHoldStatus reports whether the hold existed.
	UpdateHoldStatus(ctx context.Context, holdID uuid.UUID, status models.HoldStatus, notified bool) (bool, error)
}

// ReservationRepository defines the contract for reservation record operations
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
	// FindActiveReservation returns the active reservation for a (user, item) pair, if any.
	FindActiveReservation(ctx context.Context, userID, itemID string) (*models.Reservation, error)
	GetUserReservations(ctx context.Context, userID string) ([]models.Reservation, error)
	GetAllReservations(ctx context.Context) ([]models.Reservation, error)

	// CancelReservation transitions active -> cancelled and reports whether the
	// transition happened. Already-terminal reservations are left untouched.
	CancelReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	// ExpireReservation transitions active -> expired, re-verifying the status
	// at write time so a concurrent cancellation is never clobbered.
	ExpireReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	// GetExpiredActive returns active reservations with expiresAt strictly
	// before now, capped at limit.
	GetExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
}

// EventOutbox defines the contract for staging lifecycle events alongside
// record mutations.
type EventOutbox interface {
	InsertLifecycleEvent(ctx context.Context, tx *sqlx.Tx, event *models.LifecycleEvent) error
}
