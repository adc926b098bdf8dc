package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/database"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/registry"
	"github.com/Ayash-Bera/clinical-trials-sorter/pkg/utils"
	"github.com/sirupsen/logrus"
)

// TrialFetcher is satisfied by *registry.Client.
type TrialFetcher interface {
	FetchRecruitingTrials(ctx context.Context, condition string, maxStudies int) (registry.SearchResult, error)
}

// TrialCache is satisfied by *database.Cache.
type TrialCache interface {
	GetCachedTrialResults(ctx context.Context, key string) (registry.SearchResult, error)
	CacheTrialResults(ctx context.Context, key string, result registry.SearchResult, expiration time.Duration) error
}

type TrialService struct {
	fetcher TrialFetcher
	cache   TrialCache
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewTrialService wraps fetcher with an optional cache; a nil cache or a
// non-positive ttl disables caching.
func NewTrialService(fetcher TrialFetcher, cache TrialCache, ttl time.Duration, logger *logrus.Logger) *TrialService {
	return &TrialService{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// SearchRecruitingTrials serves a cached result when one exists. Partial
// results caused by registry failures are returned but never cached.
func (s *TrialService) SearchRecruitingTrials(ctx context.Context, condition string, maxStudies int) registry.SearchResult {
	key := cacheKey(condition, maxStudies)

	if s.cachingEnabled() {
		cached, err := s.cache.GetCachedTrialResults(ctx, key)
		if err == nil {
			s.logger.WithField("condition", condition).Debug("Trial results served from cache")
			return cached
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			s.logger.WithError(err).Warn("Failed to read cached trial results")
		}
	}

	start := time.Now()
	result, err := s.fetcher.FetchRecruitingTrials(ctx, condition, maxStudies)

	fields := logrus.Fields{
		"condition":     condition,
		"max_studies":   maxStudies,
		"results_count": result.Len(),
		"response_time": time.Since(start).Milliseconds(),
	}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to fetch clinical trial data")
		return result
	}
	s.logger.WithFields(fields).Info("Trial search completed")

	if s.cachingEnabled() {
		if err := s.cache.CacheTrialResults(ctx, key, result, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Failed to cache trial results")
		}
	}

	return result
}

func (s *TrialService) cachingEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// cacheKey hashes the condition exactly as it is sent to the registry.
func cacheKey(condition string, maxStudies int) string {
	return fmt.Sprintf("%s:%d", utils.MD5Hash(condition), maxStudies)
}
