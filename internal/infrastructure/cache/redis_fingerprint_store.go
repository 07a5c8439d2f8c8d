package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// RedisFingerprintStore implements FingerprintStore using Redis
// This is suitable for distributed deployments where multiple instances
// need to share the dedup window
type RedisFingerprintStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisFingerprintStore creates a new Redis-based fingerprint store
func NewRedisFingerprintStore(cfg RedisConfig) (*RedisFingerprintStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFingerprintStore{
		client:    client,
		keyPrefix: "import:fingerprint:",
	}, nil
}

// NewRedisFingerprintStoreWithClient creates a store with an existing Redis
// client. This is useful for testing or when sharing a client across
// components.
func NewRedisFingerprintStoreWithClient(client *redis.Client, keyPrefix string) *RedisFingerprintStore {
	if keyPrefix == "" {
		keyPrefix = "import:fingerprint:"
	}
	return &RedisFingerprintStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkSeen records a fingerprint with a TTL
// Returns true if the fingerprint was newly recorded, false if it was
// already present. Uses SETNX for an atomic check-and-set.
func (s *RedisFingerprintStore) MarkSeen(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + fingerprint

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark fingerprint as seen: %w", err)
	}

	return result, nil
}

// IsSeen checks if a fingerprint has already been recorded
func (s *RedisFingerprintStore) IsSeen(ctx context.Context, fingerprint string) (bool, error) {
	key := s.keyPrefix + fingerprint

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}

	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisFingerprintStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisFingerprintStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisFingerprintStore implements FingerprintStore
var _ shared.FingerprintStore = (*RedisFingerprintStore)(nil)
