package interfaces

import (
	"context"

	"holds-service/internal/models"
)

// SnapshotCache defines the contract for the locally cached remote snapshots.
// Getters return (nil, nil) on a cache miss.
type SnapshotCache interface {
	GetCatalogSnapshot(ctx context.Context, itemID string) (*models.CatalogSnapshot, error)
	SetCatalogSnapshot(ctx context.Context, itemID string, snapshot *models.CatalogSnapshot) error

	GetProfileSnapshot(ctx context.Context, userID string) (*models.ProfileSnapshot, error)
	SetProfileSnapshot(ctx context.Context, userID string, snapshot *models.ProfileSnapshot) error

	GetLoanSnapshot(ctx context.Context, userID string) (*models.LoanSnapshot, error)
	SetLoanSnapshot(ctx context.Context, userID string, snapshot *models.LoanSnapshot) error

	Close() error
}
