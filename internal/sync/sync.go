// Package sync implements the time-boxed read-through cache over the remote
// catalog and user sources. It owns the cached snapshots: eligibility and the
// HTTP layer only ever consume its results.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"holds-service/internal/clock"
	"holds-service/internal/interfaces"
	"holds-service/internal/models"
)

const (
	sourceCatalog = "catalog"
	sourceUsers   = "users"
)

// ItemLister lists items that currently have holds, for the bulk refresh.
type ItemLister interface {
	ItemIDsWithHolds(ctx context.Context) ([]string, error)
}

// Service decides cache-hit vs refresh per source and performs remote syncs
type Service struct {
	catalog interfaces.CatalogSource
	users   interfaces.UserSource
	cache   interfaces.SnapshotCache
	holds   ItemLister
	clock   clock.Clock

	catalogFreshness time.Duration
	profileFreshness time.Duration
}

// NewService creates a sync service with per-source freshness windows
func NewService(
	catalog interfaces.CatalogSource,
	users interfaces.UserSource,
	cache interfaces.SnapshotCache,
	holds ItemLister,
	clk clock.Clock,
	catalogFreshness, profileFreshness time.Duration,
) *Service {
	return &Service{
		catalog:          catalog,
		users:            users,
		cache:            cache,
		holds:            holds,
		clock:            clk,
		catalogFreshness: catalogFreshness,
		profileFreshness: profileFreshness,
	}
}

// GetAvailability returns an item's availability, serving the local snapshot
// while it is younger than the catalog freshness window. A failed remote
// fetch is reported as an error, never as "not available".
func (s *Service) GetAvailability(ctx context.Context, itemID string) (*models.AvailabilityResult, error) {
	snapshot, err := s.cache.GetCatalogSnapshot(ctx, itemID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("Snapshot cache read failed, falling through to source")
	}

	now := s.clock.Now()
	if snapshot != nil && now.Sub(snapshot.LastSynced) < s.catalogFreshness {
		return &models.AvailabilityResult{
			ItemID:    itemID,
			Available: snapshot.Item.Status == models.ItemStatusAvailable,
			Status:    snapshot.Item.Status,
			FromCache: true,
		}, nil
	}

	item, err := s.syncCatalogItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return &models.AvailabilityResult{
		ItemID:    itemID,
		Available: item.Status == models.ItemStatusAvailable,
		Status:    item.Status,
		FromCache: false,
	}, nil
}

// GetUserProfile returns a patron profile, serving the local snapshot while
// it is younger than the profile freshness window.
func (s *Service) GetUserProfile(ctx context.Context, userID string) (*models.ProfileResult, error) {
	snapshot, err := s.cache.GetProfileSnapshot(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Snapshot cache read failed, falling through to source")
	}

	now := s.clock.Now()
	if snapshot != nil && now.Sub(snapshot.LastSynced) < s.profileFreshness {
		return &models.ProfileResult{Profile: snapshot.Profile, FromCache: true}, nil
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user profile: %w", err)
	}

	if err := s.cache.SetProfileSnapshot(ctx, userID, &models.ProfileSnapshot{
		Profile:    *profile,
		LastSynced: now,
		Source:     sourceUsers,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to write profile snapshot")
	}

	return &models.ProfileResult{Profile: *profile, FromCache: false}, nil
}

// SyncUserLoans fetches the patron's loans from the loan source and refreshes
// the local snapshot. Loans are always fetched fresh; the snapshot exists for
// inspection, not for freshness decisions.
func (s *Service) SyncUserLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	loans, err := s.users.GetLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user loans: %w", err)
	}

	if err := s.cache.SetLoanSnapshot(ctx, userID, &models.LoanSnapshot{
		Loans:      loans,
		LastSynced: s.clock.Now(),
		Source:     sourceUsers,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to write loan snapshot")
	}

	log.Debug().Str("user_id", userID).Int("count", len(loans)).Msg("Synced user loans")
	return loans, nil
}

// SyncActiveHolds refreshes the catalog snapshot for every item that
// currently has holds. Per-item failures are logged and skipped.
func (s *Service) SyncActiveHolds(ctx context.Context) (*models.SyncSummary, error) {
	itemIDs, err := s.holds.ItemIDsWithHolds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items with holds: %w", err)
	}

	synced := 0
	for _, itemID := range itemIDs {
		if _, err := s.syncCatalogItem(ctx, itemID); err != nil {
			log.Error().Err(err).Str("item_id", itemID).Msg("Failed to refresh catalog snapshot")
			continue
		}
		synced++
	}

	log.Info().Int("items", synced).Msg("Refreshed catalog snapshots for held items")
	return &models.SyncSummary{ItemCount: synced}, nil
}

// SyncCatalog refreshes the snapshot for the entire catalog
func (s *Service) SyncCatalog(ctx context.Context) (*models.SyncSummary, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}

	now := s.clock.Now()
	synced := 0
	for i := range items {
		item := items[i]
		if err := s.cache.SetCatalogSnapshot(ctx, item.ItemID, &models.CatalogSnapshot{
			Item:       item,
			LastSynced: now,
			Source:     sourceCatalog,
		}); err != nil {
			log.Error().Err(err).Str("item_id", item.ItemID).Msg("Failed to write catalog snapshot")
			continue
		}
		synced++
	}

	log.Info().Int("items", synced).Msg("Synced entire catalog")
	return &models.SyncSummary{ItemCount: synced}, nil
}

func (s *Service) syncCatalogItem(ctx context.Context, itemID string) (*models.CatalogItem, error) {
	item, err := s.catalog.GetItemStatus(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to sync catalog item: %w", err)
	}

	if err := s.cache.SetCatalogSnapshot(ctx, itemID, &models.CatalogSnapshot{
		Item:       *item,
		LastSynced: s.clock.Now(),
		Source:     sourceCatalog,
	}); err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("Failed to write catalog snapshot")
	}

	log.Debug().Str("item_id", itemID).Str("status", item.Status).Msg("Synced catalog item")
	return item, nil
}
