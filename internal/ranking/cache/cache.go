// Package cache keeps the current rankings of each region in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"supplier-ranking/internal/models"

	"github.com/redis/go-redis/v9"
)

const allRegions = "_all"

// RankingCache stores the full ranked list per region; limits are applied
// by the reader.
type RankingCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(client *redis.Client, prefix string, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, prefix: prefix, ttl: ttl}
}

// Key is the cache key of a region; an empty region is the cross-region list.
func (c *RankingCache) Key(regionID string) string {
	if regionID == "" {
		regionID = allRegions
	}
	return fmt.Sprintf("%s:rankings:%s", c.prefix, regionID)
}

// Get returns the cached list and whether it was present.
func (c *RankingCache) Get(ctx context.Context, regionID string) ([]models.ScoreSnapshot, bool, error) {
	val, err := c.client.Get(ctx, c.Key(regionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snapshots []models.ScoreSnapshot
	if err := json.Unmarshal([]byte(val), &snapshots); err != nil {
		return nil, false, fmt.Errorf("decode cached rankings: %w", err)
	}
	return snapshots, true, nil
}

func (c *RankingCache) Set(ctx context.Context, regionID string, snapshots []models.ScoreSnapshot) error {
	data, err := json.Marshal(snapshots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(regionID), data, c.ttl).Err()
}

// InvalidateRegions drops the given regions and the cross-region list.
func (c *RankingCache) InvalidateRegions(ctx context.Context, regions []string) error {
	keys := make([]string, 0, len(regions)+1)
	for _, r := range regions {
		keys = append(keys, c.Key(r))
	}
	keys = append(keys, c.Key(""))
	return c.client.Del(ctx, keys...).Err()
}
