// Package eligibility decides whether a hold or reservation request is
// permitted. It only reads: availability via the sync layer, existing records
// via the repositories. Remote-source failures degrade permissively (the
// request is allowed with a logged warning) rather than blocking the patron.
package eligibility

import (
	"context"

	"github.com/rs/zerolog/log"

	"holds-service/internal/interfaces"
	"holds-service/internal/models"
)

// HoldFinder looks up an existing non-cancelled hold for a (user, item) pair
type HoldFinder interface {
	FindOpenHold(ctx context.Context, userID, itemID string) (*models.Hold, error)
}

// ReservationFinder looks up an existing active reservation for a (user, item) pair
type ReservationFinder interface {
	FindActiveReservation(ctx context.Context, userID, itemID string) (*models.Reservation, error)
}

// Checker combines availability, duplicate and loan checks
type Checker struct {
	syncer       interfaces.Syncer
	holds        HoldFinder
	reservations ReservationFinder
}

// NewChecker creates an eligibility checker
func NewChecker(syncer interfaces.Syncer, holds HoldFinder, reservations ReservationFinder) *Checker {
	return &Checker{
		syncer:       syncer,
		holds:        holds,
		reservations: reservations,
	}
}

// CheckHold decides whether userID may queue a hold on itemID. A hold is for
// checked-out items; patrons are pointed at reservations for available ones.
func (c *Checker) CheckHold(ctx context.Context, userID, itemID string) models.Decision {
	availability, err := c.syncer.GetAvailability(ctx, itemID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("Could not determine availability, allowing hold")
	} else if availability.Available {
		return models.Deny(models.ErrorCodeItemAvailable, "Item is available - use reservation instead")
	}

	existing, err := c.holds.FindOpenHold(ctx, userID, itemID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("item_id", itemID).Msg("Failed to check existing holds")
		return models.Deny(models.ErrorCodeInternalError, "Could not verify existing holds, please retry")
	}
	if existing != nil {
		return models.Deny(models.ErrorCodeDuplicateHold, "You already have a hold on this item")
	}

	loans, err := c.syncer.SyncUserLoans(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Could not sync loans, skipping loan check")
		return models.Allow()
	}
	for _, loan := range loans {
		if loan.ItemID == itemID && loan.Status == models.LoanStatusBorrowed {
			return models.Deny(models.ErrorCodeActiveLoan, "You currently have this item checked out")
		}
	}

	return models.Allow()
}

// CheckReservation decides whether userID may claim itemID for pickup.
// Reservations are for available items; patrons are pointed at holds for
// checked-out ones.
func (c *Checker) CheckReservation(ctx context.Context, userID, itemID string) models.Decision {
	availability, err := c.syncer.GetAvailability(ctx, itemID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("Could not determine availability, allowing reservation")
	} else if !availability.Available {
		return models.Deny(models.ErrorCodeItemCheckedOut, "Item is checked out - use hold instead")
	}

	existing, err := c.reservations.FindActiveReservation(ctx, userID, itemID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("item_id", itemID).Msg("Failed to check existing reservations")
		return models.Deny(models.ErrorCodeInternalError, "Could not verify existing reservations, please retry")
	}
	if existing != nil {
		return models.Deny(models.ErrorCodeDuplicateRes, "You already have a reservation for this item")
	}

	return models.Allow()
}
