package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"morsel/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "morsel:scrape:"

// CachedScraper remembers successful scrapes in Redis so a link forwarded again
// within the TTL is not fetched twice. Failures are never cached, and a Redis
// outage degrades to plain scraping.
type CachedScraper struct {
	next   Scraper
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedScraper connects to Redis and wraps next.
func NewCachedScraper(ctx context.Context, next Scraper, redisAddr string, ttl time.Duration, logger *zap.Logger) (*CachedScraper, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &CachedScraper{next: next, rdb: rdb, ttl: ttl, logger: logger}, nil
}

// Close cleans up the Redis connection.
func (c *CachedScraper) Close() error {
	return c.rdb.Close()
}

func (c *CachedScraper) Scrape(ctx context.Context, url string) (*model.ScrapedArticle, error) {
	key := cacheKey(url)

	val, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached model.ScrapedArticle
		if err := json.Unmarshal(val, &cached); err == nil {
			c.logger.Debug("Scrape cache hit", zap.String("url", url))
			return &cached, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Scrape cache read failed", zap.String("url", url), zap.Error(err))
	}

	article, err := c.next.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(article)
	if err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Scrape cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return article, nil
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
