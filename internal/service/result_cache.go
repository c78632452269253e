package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

const defaultResultCacheTTL = 5 * time.Minute

// CacheStore persists serialized cache entries.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ResultCache keeps presentation listings of processed results keyed by examination scope.
// A nil or disabled cache behaves as a permanent miss.
type ResultCache struct {
	store   CacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewResultCache constructs a results cache over the given store.
func NewResultCache(store CacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *ResultCache {
	if ttl <= 0 {
		ttl = defaultResultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups reach the store.
func (c *ResultCache) Enabled() bool {
	return c != nil && c.enabled && c.store != nil
}

// Views loads the cached listing for the scope. Backend failures count as a miss and are returned alongside.
func (c *ResultCache) Views(ctx context.Context, examID string, filter models.ResultFilter) ([]models.ResultView, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	key := resultsCacheKey(examID, filter.ClassID, filter.Status)
	start := time.Now()
	var views []models.ResultView
	err := c.store.Get(ctx, key, &views)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return views, true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return nil, false, nil
	default:
		c.logger.Warn("results cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false, err
	}
}

// StoreViews caches a listing for the scope.
func (c *ResultCache) StoreViews(ctx context.Context, examID string, filter models.ResultFilter, views []models.ResultView) error {
	if !c.Enabled() {
		return nil
	}
	key := resultsCacheKey(examID, filter.ClassID, filter.Status)
	start := time.Now()
	err := c.store.Set(ctx, key, views, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("results cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// InvalidateExamination drops every cached listing of the examination, whatever the class or status filter.
func (c *ResultCache) InvalidateExamination(ctx context.Context, examID string) error {
	if !c.Enabled() {
		return nil
	}
	pattern := resultsCachePattern(examID)
	if err := c.store.DeleteByPattern(ctx, pattern); err != nil {
		c.logger.Warn("results cache invalidation failed", zap.String("examination_id", examID), zap.Error(err))
		return err
	}
	return nil
}

func resultsCacheKey(examID, classID string, status models.ResultPassStatus) string {
	if classID == "" {
		classID = "all"
	}
	if status == "" {
		status = "any"
	}
	return fmt.Sprintf("results:%s:%s:%s", examID, classID, strings.ToLower(string(status)))
}

func resultsCachePattern(examID string) string {
	return "results:" + examID + ":*"
}
