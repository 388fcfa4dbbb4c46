// Package redis provides the best-effort live volume counters. The
// settlement transaction never reads these; they feed previews and
// dashboards while the betting window is open.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/redis/go-redis/v9"
)

// VolumeCache implements domain.VolumeCache on a Redis hash per instance
type VolumeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewVolumeCache creates a new volume cache
func NewVolumeCache(rdb *redis.Client) *VolumeCache {
	return &VolumeCache{
		rdb: rdb,
		ttl: 24 * time.Hour, // instances are settled long before this
	}
}

func volumeKey(key domain.InstanceKey) string {
	return fmt.Sprintf("predict_volume:%s:%d", key.RoundID, key.StartTime.UnixMilli())
}

// Incr bumps the stake counter of one card
func (c *VolumeCache) Incr(ctx context.Context, key domain.InstanceKey, cardIndex int, amount int64) error {
	k := volumeKey(key)

	pipe := c.rdb.Pipeline()
	pipe.HIncrBy(ctx, k, strconv.Itoa(cardIndex), amount)
	pipe.Expire(ctx, k, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Read returns the cached per-card volumes. Errors when nothing is
// cached for the instance so callers fall back to the store.
func (c *VolumeCache) Read(ctx context.Context, key domain.InstanceKey, cardCount int) ([]int64, error) {
	fields, err := c.rdb.HGetAll(ctx, volumeKey(key)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no cached volumes for %s", key)
	}

	volumes := make([]int64, cardCount)
	for field, raw := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 0 || idx >= cardCount {
			return nil, fmt.Errorf("corrupt volume field %q for %s", field, key)
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt volume value %q for %s", raw, key)
		}
		volumes[idx] = v
	}
	return volumes, nil
}
