// Package db implements the prediction game repositories on gorm.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errSettledConflict signals that the history insert hit the unique
// index: another writer settled the instance first. The transaction is
// aborted and the existing record read back outside it.
var errSettledConflict = errors.New("instance settled concurrently")

// RoundRepository persists round slots and runs the settlement
// transaction.
type RoundRepository struct {
	db      *gorm.DB
	retries int
}

// NewRoundRepository creates a new round repository. retries bounds the
// settlement transaction's attempts on contention.
func NewRoundRepository(db *gorm.DB, retries int) *RoundRepository {
	if retries <= 0 {
		retries = 3
	}
	return &RoundRepository{db: db, retries: retries}
}

// Create creates a round slot
func (r *RoundRepository) Create(ctx context.Context, round *domain.Round) error {
	if err := r.db.WithContext(ctx).Create(round).Error; err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// Get retrieves a round slot by ID
func (r *RoundRepository) Get(ctx context.Context, roundID string) (*domain.Round, error) {
	var round domain.Round
	if err := r.db.WithContext(ctx).Where("round_id = ?", roundID).First(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return &round, nil
}

// FinalizeInstance runs the settlement decision transaction with a
// bounded retry on contention.
func (r *RoundRepository) FinalizeInstance(ctx context.Context, key domain.InstanceKey, decide domain.DecideFunc) (*domain.SettleOutcome, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retries; attempt++ {
		outcome, err := r.finalizeOnce(ctx, key, decide)
		if err == nil {
			return outcome, nil
		}
		if errors.Is(err, errSettledConflict) {
			return r.settledOutcome(ctx, key)
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		logger.Warn(ctx).
			Err(err).
			Str("instance", key.String()).
			Int("attempt", attempt).
			Msg("Settlement transaction contention, retrying")
	}
	return nil, fmt.Errorf("settlement transaction exhausted %d attempts: %w", r.retries, lastErr)
}

func (r *RoundRepository) finalizeOnce(ctx context.Context, key domain.InstanceKey, decide domain.DecideFunc) (*domain.SettleOutcome, error) {
	var outcome *domain.SettleOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round domain.Round
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("round_id = ?", key.RoundID).
			First(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRoundNotFound
			}
			return fmt.Errorf("failed to lock round: %w", err)
		}

		// Slot already rolled past this instance: the winner lives in the
		// history record.
		if !round.StartTime.Equal(key.StartTime) {
			var record domain.RoundHistoryRecord
			err := tx.Where("round_id = ? AND round_start = ?", key.RoundID, key.StartTime).
				First(&record).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("instance %s superseded without history record", key)
				}
				return fmt.Errorf("failed to read history: %w", err)
			}
			outcome = &domain.SettleOutcome{
				WinningCardIndex: record.WinningCardIndex,
				AlreadySettled:   true,
			}
			return nil
		}

		// First idempotency witness: the winner index on the row.
		if round.WinningCardIndex != domain.WinnerUndecided {
			outcome = &domain.SettleOutcome{
				WinningCardIndex: round.WinningCardIndex,
				AlreadySettled:   true,
			}
			return nil
		}

		volumes, err := volumesInTx(tx, key, round.CardCount)
		if err != nil {
			return err
		}

		winner, err := decide(&round, volumes)
		if err != nil {
			return err
		}

		closedAt := time.Now()

		// Second idempotency witness: the insert-only history record. Its
		// unique index is the true lock against out-of-band writers.
		record := domain.NewRoundHistoryRecord(key, winner, round.StakeUnit, closedAt)
		if err := tx.Create(record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errSettledConflict
			}
			return fmt.Errorf("failed to insert history record: %w", err)
		}

		if round.Mode == domain.RoundModeAuto {
			// Close the old instance and open the new one atomically: the
			// slot must never look closed to bettors but open to settlement.
			theme, question := round.NextTheme()
			updates := map[string]interface{}{
				"status":             domain.RoundStatusActive,
				"start_time":         closedAt,
				"winning_card_index": domain.WinnerUndecided,
				"theme":              theme,
				"question":           question,
				"updated_at":         closedAt,
			}
			if err := tx.Model(&domain.Round{}).
				Where("round_id = ?", key.RoundID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to recycle round: %w", err)
			}
			outcome = &domain.SettleOutcome{
				WinningCardIndex: winner,
				NewStartTime:     closedAt,
			}
			return nil
		}

		updates := map[string]interface{}{
			"status":             domain.RoundStatusInactive,
			"winning_card_index": winner,
			"updated_at":         closedAt,
		}
		if err := tx.Model(&domain.Round{}).
			Where("round_id = ?", key.RoundID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to archive round: %w", err)
		}
		outcome = &domain.SettleOutcome{
			WinningCardIndex: winner,
			Archived:         true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// settledOutcome reads back the winner after losing the history-insert
// race.
func (r *RoundRepository) settledOutcome(ctx context.Context, key domain.InstanceKey) (*domain.SettleOutcome, error) {
	var record domain.RoundHistoryRecord
	if err := r.db.WithContext(ctx).
		Where("round_id = ? AND round_start = ?", key.RoundID, key.StartTime).
		First(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to read concurrent settlement: %w", err)
	}
	return &domain.SettleOutcome{
		WinningCardIndex: record.WinningCardIndex,
		AlreadySettled:   true,
	}, nil
}

// ListForSweep returns rounds in any state that may require action
func (r *RoundRepository) ListForSweep(ctx context.Context) ([]*domain.Round, error) {
	var rounds []*domain.Round
	err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.RoundStatus{domain.RoundStatusActive, domain.RoundStatusExpired}).
		Or("mode = ? AND status = ?", domain.RoundModeAuto, domain.RoundStatusInactive).
		Find(&rounds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds for sweep: %w", err)
	}
	return rounds, nil
}

// FindReplacementSlot locates a live slot matching a vanished one's
// configuration.
func (r *RoundRepository) FindReplacementSlot(ctx context.Context, durationSeconds int, tierRestricted bool) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Where("duration_seconds = ? AND tier_restricted = ? AND status = ?",
			durationSeconds, tierRestricted, domain.RoundStatusActive).
		Order("start_time DESC").
		First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to find replacement slot: %w", err)
	}
	return &round, nil
}

// DeleteArchivedBefore garbage collects stale manual archived slots.
// Auto slots are never deleted: that would remove an advertised game
// slot permanently.
func (r *RoundRepository) DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("mode = ? AND status = ? AND updated_at < ?",
			domain.RoundModeManual, domain.RoundStatusInactive, cutoff).
		Delete(&domain.Round{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete archived rounds: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// volumesInTx aggregates stake per card for exactly one instance inside
// the settlement transaction.
func volumesInTx(tx *gorm.DB, key domain.InstanceKey, cardCount int) ([]int64, error) {
	var rows []struct {
		CardIndex int
		Total     int64
	}
	err := tx.Model(&domain.WagerEntry{}).
		Select("card_index, COALESCE(SUM(stake_amount), 0) AS total").
		Where("round_id = ? AND round_start = ?", key.RoundID, key.StartTime).
		Group("card_index").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate volumes: %w", err)
	}

	volumes := make([]int64, cardCount)
	for _, row := range rows {
		if row.CardIndex < 0 || row.CardIndex >= cardCount {
			return nil, fmt.Errorf("%w: found stake on card %d of %d", domain.ErrCardIndexOutOfRange, row.CardIndex, cardCount)
		}
		volumes[row.CardIndex] = row.Total
	}
	return volumes, nil
}

// isRetryable reports whether the settlement transaction may be retried
// after this error (Postgres serialization/deadlock contention).
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}
