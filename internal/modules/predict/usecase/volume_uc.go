package usecase

import (
	"context"
	"fmt"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// VolumeReader aggregates stake volume per card for one instance.
// Reads prefer the live cache and fall back to the store; concurrent
// readers of the same instance are collapsed into one lookup. This is the
// best-effort preview path; the settlement transaction does its own
// in-transaction aggregation.
type VolumeReader struct {
	wagerRepo domain.WagerRepository
	cache     domain.VolumeCache
	sf        singleflight.Group
}

// NewVolumeReader creates a new volume reader
func NewVolumeReader(wagerRepo domain.WagerRepository, cache domain.VolumeCache) *VolumeReader {
	return &VolumeReader{wagerRepo: wagerRepo, cache: cache}
}

// Volumes returns per-card stake sums and the total for one instance
func (vr *VolumeReader) Volumes(ctx context.Context, key domain.InstanceKey, cardCount int) ([]int64, int64, error) {
	v, err, _ := vr.sf.Do(key.String(), func() (interface{}, error) {
		if vr.cache != nil {
			if vols, err := vr.cache.Read(ctx, key, cardCount); err == nil {
				return vols, nil
			} else {
				logger.Debug(ctx).
					Err(err).
					Str("instance", key.String()).
					Msg("Volume cache miss, reading store")
			}
		}
		return vr.wagerRepo.Volumes(ctx, key, cardCount)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read volumes for %s: %w", key, err)
	}

	volumes := v.([]int64)
	var total int64
	for _, vol := range volumes {
		total += vol
	}
	return volumes, total, nil
}
