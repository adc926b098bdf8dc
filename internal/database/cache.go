package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/models"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/registry"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned by getters when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache implementation
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	TrialResultsKey = "trials:results:%s"
	SystemHealthKey = "system:health"
)

// CacheTrialResults stores a trial search result under key.
func (c *Cache) CacheTrialResults(ctx context.Context, key string, result registry.SearchResult, expiration time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal trial results: %w", err)
	}

	return c.client.Set(ctx, fmt.Sprintf(TrialResultsKey, key), data, expiration).Err()
}

// GetCachedTrialResults returns ErrCacheMiss when nothing is stored under key.
func (c *Cache) GetCachedTrialResults(ctx context.Context, key string) (registry.SearchResult, error) {
	var result registry.SearchResult

	data, err := c.client.Get(ctx, fmt.Sprintf(TrialResultsKey, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, ErrCacheMiss
	}
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal trial results: %w", err)
	}
	return result, nil
}

// CacheSystemHealth caches system health status
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal system health: %w", err)
	}

	return c.client.Set(ctx, SystemHealthKey, data, expiration).Err()
}

// GetCachedSystemHealth retrieves cached system health
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	data, err := c.client.Get(ctx, SystemHealthKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var health []models.SystemHealth
	err = json.Unmarshal(data, &health)
	return health, err
}
