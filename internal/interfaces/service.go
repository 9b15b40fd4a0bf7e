package interfaces

import (
	"context"

	"holds-service/internal/models"
)

// Syncer defines the read-through view over the remote catalog and user
// sources. Lookups may refresh the local snapshot as a side effect but never
// touch hold/reservation records.
type Syncer interface {
	GetAvailability(ctx context.Context, itemID string) (*models.AvailabilityResult, error)
	GetUserProfile(ctx context.Context, userID string) (*models.ProfileResult, error)
	SyncUserLoans(ctx context.Context, userID string) ([]models.Loan, error)
}

// EligibilityChecker decides whether a hold or reservation request is permitted
type EligibilityChecker interface {
	CheckHold(ctx context.Context, userID, itemID string) models.Decision
	CheckReservation(ctx context.Context, userID, itemID string) models.Decision
}
