package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/dbctx"
	"gorm.io/gorm"
)

// WagerRepository persists wager entries
type WagerRepository struct {
	db *gorm.DB
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *gorm.DB) *WagerRepository {
	return &WagerRepository{db: db}
}

// Place writes a new wager entry under the (user, instance, card)
// uniqueness guard.
func (r *WagerRepository) Place(ctx context.Context, entry *domain.WagerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateWager
		}
		return fmt.Errorf("failed to create wager entry: %w", err)
	}
	return nil
}

// Volumes sums stake per card for exactly one instance. Filtering by the
// full instance key matters: round ID alone would leak entries from a
// previous instance sharing the slot.
func (r *WagerRepository) Volumes(ctx context.Context, key domain.InstanceKey, cardCount int) ([]int64, error) {
	return volumesInTx(r.db.WithContext(ctx), key, cardCount)
}

// ListUnprocessed returns up to limit entries of the instance that have
// not been paid out yet.
func (r *WagerRepository) ListUnprocessed(ctx context.Context, key domain.InstanceKey, limit int) ([]*domain.WagerEntry, error) {
	var entries []*domain.WagerEntry
	err := r.db.WithContext(ctx).
		Where("round_id = ? AND round_start = ? AND payout_processed = ?", key.RoundID, key.StartTime, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed wagers: %w", err)
	}
	return entries, nil
}

// ClaimProcessed flips PayoutProcessed false→true for one entry. The
// processed filter in the WHERE clause is what makes the transition
// happen exactly once across concurrent distributor runs. The credit
// callback runs in the same transaction (the handle travels via
// dbctx), so the flag only commits together with the credit.
func (r *WagerRepository) ClaimProcessed(ctx context.Context, entryID string, won bool, payoutAmount int64, payoutError string, credit func(ctx context.Context) error) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.WagerEntry{}).
			Where("entry_id = ? AND payout_processed = ?", entryID, false).
			Updates(map[string]interface{}{
				"payout_processed": true,
				"won":              won,
				"payout_amount":    payoutAmount,
				"payout_error":     payoutError,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true
		if credit != nil {
			if err := credit(dbctx.With(ctx, tx)); err != nil {
				claimed = false
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to claim wager entry: %w", err)
	}
	return claimed, nil
}

// ListSettledUnprocessed returns instance keys that have a history record
// but still carry unprocessed entries.
func (r *WagerRepository) ListSettledUnprocessed(ctx context.Context, limit int) ([]domain.InstanceKey, error) {
	var rows []struct {
		RoundID    string
		RoundStart time.Time
	}
	err := r.db.WithContext(ctx).Model(&domain.WagerEntry{}).
		Select("DISTINCT wager_entries.round_id, wager_entries.round_start").
		Joins("JOIN round_history ON round_history.round_id = wager_entries.round_id AND round_history.round_start = wager_entries.round_start").
		Where("wager_entries.payout_processed = ?", false).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list settled unprocessed instances: %w", err)
	}

	keys := make([]domain.InstanceKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, domain.InstanceKey{RoundID: row.RoundID, StartTime: row.RoundStart})
	}
	return keys, nil
}
