package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

// SweepReport summarizes one recovery sweep run
type SweepReport struct {
	Processed int   `json:"processed"`
	Awarded   int   `json:"awarded"`
	Deleted   int64 `json:"deleted"`
}

// SweepUseCase is the backstop that guarantees eventual progress: on a
// fixed external cadence it drives every round needing action through
// settlement, re-runs payouts for instances that settled but never paid,
// and garbage collects stale archived manual slots.
type SweepUseCase struct {
	roundRepo   domain.RoundRepository
	wagerRepo   domain.WagerRepository
	historyRepo domain.HistoryRepository
	settle      *SettleUseCase
	payout      *PayoutUseCase
	grace       time.Duration
	now         func() time.Time
}

// NewSweepUseCase creates a new sweep use case
func NewSweepUseCase(
	roundRepo domain.RoundRepository,
	wagerRepo domain.WagerRepository,
	historyRepo domain.HistoryRepository,
	settle *SettleUseCase,
	payout *PayoutUseCase,
	grace time.Duration,
) *SweepUseCase {
	return &SweepUseCase{
		roundRepo:   roundRepo,
		wagerRepo:   wagerRepo,
		historyRepo: historyRepo,
		settle:      settle,
		payout:      payout,
		grace:       grace,
		now:         time.Now,
	}
}

// Sweep scans for rounds in any state requiring action and drives each
// through the state machine. Safe to run concurrently with every other
// trigger: settlement is idempotent and payouts claim per entry.
func (uc *SweepUseCase) Sweep(ctx context.Context) (SweepReport, error) {
	start := uc.now()
	report := SweepReport{}

	rounds, err := uc.roundRepo.ListForSweep(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list rounds for sweep: %w", err)
	}

	for _, round := range rounds {
		if !round.DueForSettlement(uc.now()) {
			continue
		}
		key := round.Key()

		outcome, err := uc.settle.Settle(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrRoundNotDue) || errors.Is(err, domain.ErrRoundNotFound) {
				continue
			}
			logger.Error(ctx).
				Err(err).
				Str("instance", key.String()).
				Msg("Sweep settlement failed, continuing with next round")
			continue
		}
		report.Processed++

		// Payouts run synchronously here: the sweep is the last line of
		// defense and must not depend on the background worker being alive.
		rep, err := uc.payout.Distribute(ctx, key, outcome.WinningCardIndex)
		report.Awarded += rep.Winners
		if err != nil {
			logger.Error(ctx).
				Err(err).
				Str("instance", key.String()).
				Msg("Sweep payout run failed, next sweep retries")
		}
	}

	report = uc.catchUpPayouts(ctx, report)

	deleted, err := uc.roundRepo.DeleteArchivedBefore(ctx, uc.now().Add(-uc.grace))
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Sweep garbage collection failed")
	}
	report.Deleted = deleted

	logger.Info(ctx).
		Int("processed", report.Processed).
		Int("awarded", report.Awarded).
		Int64("deleted", report.Deleted).
		Dur("duration_ms", uc.now().Sub(start)).
		Msg("Recovery sweep completed")

	return report, nil
}

// catchUpPayouts re-drives distribution for instances whose decision
// committed but whose payout run died before finishing.
func (uc *SweepUseCase) catchUpPayouts(ctx context.Context, report SweepReport) SweepReport {
	keys, err := uc.wagerRepo.ListSettledUnprocessed(ctx, 50)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to list settled-but-unpaid instances")
		return report
	}

	for _, key := range keys {
		record, err := uc.historyRepo.Get(ctx, key)
		if err != nil {
			logger.Error(ctx).
				Err(err).
				Str("instance", key.String()).
				Msg("Missing history record for unpaid instance")
			continue
		}

		rep, err := uc.payout.Distribute(ctx, key, record.WinningCardIndex)
		report.Awarded += rep.Winners
		if err != nil {
			logger.Error(ctx).
				Err(err).
				Str("instance", key.String()).
				Msg("Catch-up payout run failed")
			continue
		}
		if rep.Processed > 0 {
			report.Processed++
			logger.Info(ctx).
				Str("instance", key.String()).
				Int("processed", rep.Processed).
				Msg("Caught up payouts for previously settled instance")
		}
	}

	return report
}
