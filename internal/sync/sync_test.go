package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"holds-service/internal/clock"
	"holds-service/internal/models"
)

type MockCatalogSource struct {
	mock.Mock
}

func (m *MockCatalogSource) GetItemStatus(ctx context.Context, itemID string) (*models.CatalogItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CatalogItem), args.Error(1)
}

func (m *MockCatalogSource) ListItems(ctx context.Context) ([]models.CatalogItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogItem), args.Error(1)
}

type MockUserSource struct {
	mock.Mock
}

func (m *MockUserSource) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserSource) GetLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Loan), args.Error(1)
}

type MockSnapshotCache struct {
	mock.Mock
}

func (m *MockSnapshotCache) GetCatalogSnapshot(ctx context.Context, itemID string) (*models.CatalogSnapshot, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CatalogSnapshot), args.Error(1)
}

func (m *MockSnapshotCache) SetCatalogSnapshot(ctx context.Context, itemID string, snapshot *models.CatalogSnapshot) error {
	args := m.Called(ctx, itemID, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotCache) GetProfileSnapshot(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProfileSnapshot), args.Error(1)
}

func (m *MockSnapshotCache) SetProfileSnapshot(ctx context.Context, userID string, snapshot *models.ProfileSnapshot) error {
	args := m.Called(ctx, userID, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotCache) GetLoanSnapshot(ctx context.Context, userID string) (*models.LoanSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoanSnapshot), args.Error(1)
}

func (m *MockSnapshotCache) SetLoanSnapshot(ctx context.Context, userID string, snapshot *models.LoanSnapshot) error {
	args := m.Called(ctx, userID, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockItemLister struct {
	mock.Mock
}

func (m *MockItemLister) ItemIDsWithHolds(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

var syncNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type syncFixture struct {
	service *Service
	catalog *MockCatalogSource
	users   *MockUserSource
	cache   *MockSnapshotCache
	holds   *MockItemLister
}

func newSyncFixture() *syncFixture {
	catalog := new(MockCatalogSource)
	users := new(MockUserSource)
	cache := new(MockSnapshotCache)
	holds := new(MockItemLister)

	return &syncFixture{
		service: NewService(catalog, users, cache, holds, clock.NewFixed(syncNow),
			5*time.Minute, time.Hour),
		catalog: catalog,
		users:   users,
		cache:   cache,
		holds:   holds,
	}
}

func TestGetAvailability_ServesFreshSnapshot(t *testing.T) {
	f := newSyncFixture()

	f.cache.On("GetCatalogSnapshot", mock.Anything, "BK-1").Return(&models.CatalogSnapshot{
		Item:       models.CatalogItem{ItemID: "BK-1", Status: models.ItemStatusCheckedOut},
		LastSynced: syncNow.Add(-4 * time.Minute),
	}, nil)

	result, err := f.service.GetAvailability(context.Background(), "BK-1")

	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.False(t, result.Available)
	f.catalog.AssertNotCalled(t, "GetItemStatus", mock.Anything, mock.Anything)
}

func TestGetAvailability_RefreshesStaleSnapshot(t *testing.T) {
	f := newSyncFixture()

	// Aged exactly to the freshness window. The comparison is strict, so a
	// snapshot this old is already stale.
	f.cache.On("GetCatalogSnapshot", mock.Anything, "BK-1").Return(&models.CatalogSnapshot{
		Item:       models.CatalogItem{ItemID: "BK-1", Status: models.ItemStatusCheckedOut},
		LastSynced: syncNow.Add(-5 * time.Minute),
	}, nil)
	f.catalog.On("GetItemStatus", mock.Anything, "BK-1").
		Return(&models.CatalogItem{ItemID: "BK-1", Status: models.ItemStatusAvailable}, nil)
	f.cache.On("SetCatalogSnapshot", mock.Anything, "BK-1", mock.MatchedBy(func(s *models.CatalogSnapshot) bool {
		return s.LastSynced.Equal(syncNow) && s.Item.Status == models.ItemStatusAvailable
	})).Return(nil)

	result, err := f.service.GetAvailability(context.Background(), "BK-1")

	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.True(t, result.Available)
	f.cache.AssertExpectations(t)
}

func TestGetAvailability_RemoteFailureIsError(t *testing.T) {
	f := newSyncFixture()

	f.cache.On("GetCatalogSnapshot", mock.Anything, "BK-1").Return(nil, nil)
	f.catalog.On("GetItemStatus", mock.Anything, "BK-1").Return(nil, errors.New("catalog unreachable"))

	result, err := f.service.GetAvailability(context.Background(), "BK-1")

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestGetUserProfile_ServesFreshSnapshot(t *testing.T) {
	f := newSyncFixture()

	f.cache.On("GetProfileSnapshot", mock.Anything, "user-1").Return(&models.ProfileSnapshot{
		Profile:    models.UserProfile{UserID: "user-1", Name: "Ada"},
		LastSynced: syncNow.Add(-30 * time.Minute),
	}, nil)

	result, err := f.service.GetUserProfile(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, "Ada", result.Profile.Name)
	f.users.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestGetUserProfile_RefreshesStaleSnapshot(t *testing.T) {
	f := newSyncFixture()

	f.cache.On("GetProfileSnapshot", mock.Anything, "user-1").Return(&models.ProfileSnapshot{
		Profile:    models.UserProfile{UserID: "user-1", Name: "Ada"},
		LastSynced: syncNow.Add(-2 * time.Hour),
	}, nil)
	f.users.On("GetProfile", mock.Anything, "user-1").
		Return(&models.UserProfile{UserID: "user-1", Name: "Ada L."}, nil)
	f.cache.On("SetProfileSnapshot", mock.Anything, "user-1", mock.Anything).Return(nil)

	result, err := f.service.GetUserProfile(context.Background(), "user-1")

	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "Ada L.", result.Profile.Name)
}

func TestSyncUserLoans_AlwaysFetchesFresh(t *testing.T) {
	f := newSyncFixture()

	loans := []models.Loan{{ItemID: "BK-1", Status: models.LoanStatusBorrowed}}
	f.users.On("GetLoans", mock.Anything, "user-1").Return(loans, nil)
	f.cache.On("SetLoanSnapshot", mock.Anything, "user-1", mock.MatchedBy(func(s *models.LoanSnapshot) bool {
		return len(s.Loans) == 1 && s.LastSynced.Equal(syncNow)
	})).Return(nil)

	got, err := f.service.SyncUserLoans(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, loans, got)
	f.cache.AssertNotCalled(t, "GetLoanSnapshot", mock.Anything, mock.Anything)
}

func TestSyncActiveHolds_SkipsFailedItems(t *testing.T) {
	f := newSyncFixture()

	f.holds.On("ItemIDsWithHolds", mock.Anything).Return([]string{"BK-1", "BK-2", "BK-3"}, nil)
	f.catalog.On("GetItemStatus", mock.Anything, "BK-1").
		Return(&models.CatalogItem{ItemID: "BK-1", Status: models.ItemStatusCheckedOut}, nil)
	f.catalog.On("GetItemStatus", mock.Anything, "BK-2").Return(nil, errors.New("catalog unreachable"))
	f.catalog.On("GetItemStatus", mock.Anything, "BK-3").
		Return(&models.CatalogItem{ItemID: "BK-3", Status: models.ItemStatusAvailable}, nil)
	f.cache.On("SetCatalogSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	summary, err := f.service.SyncActiveHolds(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemCount)
}

func TestSyncCatalog_WritesSnapshotPerItem(t *testing.T) {
	f := newSyncFixture()

	f.catalog.On("ListItems", mock.Anything).Return([]models.CatalogItem{
		{ItemID: "BK-1", Status: models.ItemStatusAvailable},
		{ItemID: "BK-2", Status: models.ItemStatusCheckedOut},
	}, nil)
	f.cache.On("SetCatalogSnapshot", mock.Anything, "BK-1", mock.Anything).Return(nil)
	f.cache.On("SetCatalogSnapshot", mock.Anything, "BK-2", mock.Anything).Return(nil)

	summary, err := f.service.SyncCatalog(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemCount)
	f.cache.AssertExpectations(t)
}
