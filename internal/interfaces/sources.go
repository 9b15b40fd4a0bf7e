package interfaces

import (
	"context"
	"errors"

	"holds-service/internal/models"
)

// Sentinel errors for remote source lookups. "Not configured" and
// "unreachable" must stay distinguishable from "item is not available" so
// eligibility can decide how to degrade.
var (
	ErrSourceNotConfigured = errors.New("remote source not configured")
	ErrRemoteNotFound      = errors.New("record not found in remote source")
)

// CatalogSource is the read-only catalog collaborator
type CatalogSource interface {
	GetItemStatus(ctx context.Context, itemID string) (*models.CatalogItem, error)
	ListItems(ctx context.Context) ([]models.CatalogItem, error)
}

// UserSource is the read-only user/loan collaborator
type UserSource interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetLoans(ctx context.Context, userID string) ([]models.Loan, error)
}
