// Package redis caches generated summaries keyed by article ID, so a
// redelivered classified event never spends a second model call on the
// same article.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(addr, password string, db int, ttl time.Duration) (*SummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SummaryCache{client: client, ttl: ttl}, nil
}

func (c *SummaryCache) Close() error {
	return c.client.Close()
}

// Get returns the cached summary for the article, or ok=false on a
// miss. Cache errors degrade to a miss; the caller regenerates.
func (c *SummaryCache) Get(ctx context.Context, articleID string) (string, bool, error) {
	val, err := c.client.Get(ctx, summaryKey(articleID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (c *SummaryCache) Set(ctx context.Context, articleID, summary string) error {
	if err := c.client.Set(ctx, summaryKey(articleID), summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func summaryKey(articleID string) string {
	return "summary:" + articleID
}
