package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
)

// SnapshotStore wraps Redis for the catalog/profile/loan snapshot cache.
// The Redis TTL is only an upper bound on entry lifetime; freshness decisions
// are made by the sync layer against LastSynced.
type SnapshotStore struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
}

// Options configures the snapshot store
type Options struct {
	Addrs       []string
	Password    string
	ClusterMode bool
	PoolSize    int
	TTL         time.Duration
	KeyPrefix   string
}

// NewSnapshotStore creates a Redis-backed snapshot store with cluster support
func NewSnapshotStore(opts Options) *SnapshotStore {
	var client redis.UniversalClient

	if opts.ClusterMode {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        opts.Addrs,
			Password:     opts.Password,
			MaxRetries:   3,
			PoolSize:     opts.PoolSize,
			MinIdleConns: 5,
			PoolTimeout:  30 * time.Second,
		})
	} else {
		addr := "localhost:6379"
		if len(opts.Addrs) > 0 {
			addr = opts.Addrs[0]
		}
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
			DB:       0,
			PoolSize: opts.PoolSize,
		})
	}

	return &SnapshotStore{
		client:    client,
		ttl:       opts.TTL,
		keyPrefix: opts.KeyPrefix,
	}
}

// NewSnapshotStoreWithClient wraps an existing client (used by tests)
func NewSnapshotStoreWithClient(client redis.UniversalClient, ttl time.Duration, keyPrefix string) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

// GetCatalogSnapshot retrieves a cached catalog record, (nil, nil) on miss
func (s *SnapshotStore) GetCatalogSnapshot(ctx context.Context, itemID string) (*models.CatalogSnapshot, error) {
	var snapshot models.CatalogSnapshot
	ok, err := s.get(ctx, s.catalogKey(itemID), &snapshot)
	if err != nil || !ok {
		return nil, err
	}
	return &snapshot, nil
}

// SetCatalogSnapshot overwrites the cached catalog record for an item
func (s *SnapshotStore) SetCatalogSnapshot(ctx context.Context, itemID string, snapshot *models.CatalogSnapshot) error {
	return s.set(ctx, s.catalogKey(itemID), snapshot)
}

// GetProfileSnapshot retrieves a cached user profile, (nil, nil) on miss
func (s *SnapshotStore) GetProfileSnapshot(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
	var snapshot models.ProfileSnapshot
	ok, err := s.get(ctx, s.profileKey(userID), &snapshot)
	if err != nil || !ok {
		return nil, err
	}
	return &snapshot, nil
}

// SetProfileSnapshot overwrites the cached profile for a user
func (s *SnapshotStore) SetProfileSnapshot(ctx context.Context, userID string, snapshot *models.ProfileSnapshot) error {
	return s.set(ctx, s.profileKey(userID), snapshot)
}

// GetLoanSnapshot retrieves a cached loan list, (nil, nil) on miss
func (s *SnapshotStore) GetLoanSnapshot(ctx context.Context, userID string) (*models.LoanSnapshot, error) {
	var snapshot models.LoanSnapshot
	ok, err := s.get(ctx, s.loansKey(userID), &snapshot)
	if err != nil || !ok {
		return nil, err
	}
	return &snapshot, nil
}

// SetLoanSnapshot overwrites the cached loan list for a user
func (s *SnapshotStore) SetLoanSnapshot(ctx context.Context, userID string, snapshot *models.LoanSnapshot) error {
	return s.set(ctx, s.loansKey(userID), snapshot)
}

func (s *SnapshotStore) get(ctx context.Context, key string, out any) (bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to get snapshot from cache")
		return false, fmt.Errorf("failed to get snapshot from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(val), out); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to unmarshal cached snapshot")
		return false, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}

	log.Debug().Str("key", key).Msg("Snapshot cache hit")
	return true, nil
}

func (s *SnapshotStore) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to set snapshot in cache")
		return fmt.Errorf("failed to set snapshot in cache: %w", err)
	}

	log.Debug().Str("key", key).Msg("Cached snapshot")
	return nil
}

// Ping checks if Redis is available
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

func (s *SnapshotStore) catalogKey(itemID string) string {
	return fmt.Sprintf("%scatalog:%s", s.keyPrefix, itemID)
}

func (s *SnapshotStore) profileKey(userID string) string {
	return fmt.Sprintf("%sprofile:%s", s.keyPrefix, userID)
}

func (s *SnapshotStore) loansKey(userID string) string {
	return fmt.Sprintf("%sloans:%s", s.keyPrefix, userID)
}
