package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

// CommissionDispatcher submits a referral commission without blocking the
// payout path.
type CommissionDispatcher interface {
	Submit(beneficiaryID int64, amount int64, source string)
}

// PayoutReport summarizes one distributor run
type PayoutReport struct {
	Processed int `json:"processed"`
	Winners   int `json:"winners"`
}

type payoutJob struct {
	key    domain.InstanceKey
	winner int
}

// PayoutUseCase walks every wager entry of a settled instance exactly
// once: winners get credited and ledgered, losers get tagged. The whole
// run is at-least-once and re-invocable; per-entry idempotency comes
// from the conditional PayoutProcessed claim, which commits together
// with the winner's credit.
type PayoutUseCase struct {
	wagerRepo  domain.WagerRepository
	ledgerRepo domain.LedgerRepository
	walletSvc  wallet.Service
	referrals  CommissionDispatcher

	multiplier int64
	batchSize  int

	jobs chan payoutJob
	done chan struct{}
}

// NewPayoutUseCase creates a new payout use case
func NewPayoutUseCase(
	wagerRepo domain.WagerRepository,
	ledgerRepo domain.LedgerRepository,
	walletSvc wallet.Service,
	referrals CommissionDispatcher,
	multiplier int64,
	batchSize int,
) *PayoutUseCase {
	if multiplier <= 0 {
		multiplier = 2
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PayoutUseCase{
		wagerRepo:  wagerRepo,
		ledgerRepo: ledgerRepo,
		walletSvc:  walletSvc,
		referrals:  referrals,
		multiplier: multiplier,
		batchSize:  batchSize,
		jobs:       make(chan payoutJob, 64),
		done:       make(chan struct{}),
	}
}

// Submit queues a payout run for a settled instance. Safe to call
// redundantly: already-processed entries are filtered by the query. When
// the queue is full the job is dropped with a warning; the recovery sweep
// picks the instance up again.
func (uc *PayoutUseCase) Submit(key domain.InstanceKey, winningCardIndex int) {
	select {
	case uc.jobs <- payoutJob{key: key, winner: winningCardIndex}:
	default:
		logger.WarnGlobal().
			Str("instance", key.String()).
			Msg("Payout queue full, dropping job (sweep will retry)")
	}
}

// Start runs the payout worker until ctx is cancelled
func (uc *PayoutUseCase) Start(ctx context.Context) {
	defer close(uc.done)
	for {
		select {
		case job := <-uc.jobs:
			jobCtx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
			if _, err := uc.Distribute(jobCtx, job.key, job.winner); err != nil {
				logger.Error(jobCtx).
					Err(err).
					Str("instance", job.key.String()).
					Msg("Background payout run failed, sweep will retry")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until the worker has stopped
func (uc *PayoutUseCase) Wait() {
	<-uc.done
}

// Distribute pays every unprocessed wager entry of the instance.
// Batches are independent: a failure in a later batch never rolls back
// earlier ones, and the whole call is a safe no-op for entries already
// claimed.
func (uc *PayoutUseCase) Distribute(ctx context.Context, key domain.InstanceKey, winningCardIndex int) (PayoutReport, error) {
	start := time.Now()
	report := PayoutReport{}

	ctx = logger.WithFields(ctx, map[string]interface{}{
		"instance":     key.String(),
		"winning_card": winningCardIndex,
	})
	logger.Info(ctx).Msg("Starting payout distribution")

	batchNum := 0
	for {
		entries, err := uc.wagerRepo.ListUnprocessed(ctx, key, uc.batchSize)
		if err != nil {
			return report, fmt.Errorf("failed to list unprocessed wagers (batch %d): %w", batchNum+1, err)
		}
		if len(entries) == 0 {
			break
		}
		batchNum++

		claimed := 0
		for _, entry := range entries {
			ok, winner, err := uc.settleEntry(ctx, entry, winningCardIndex)
			if err != nil {
				logger.Error(ctx).
					Err(err).
					Str("entry_id", entry.EntryID).
					Int("batch", batchNum).
					Msg("Failed to settle wager entry, continuing batch")
				continue
			}
			if ok {
				claimed++
				report.Processed++
				if winner {
					report.Winners++
				}
			}
		}

		if claimed == 0 {
			// Every entry in the batch failed or was claimed elsewhere and
			// still shows unprocessed: bail out instead of spinning.
			return report, fmt.Errorf("%w: batch %d of %s", domain.ErrNoProgress, batchNum, key)
		}
	}

	logger.Info(ctx).
		Int("processed", report.Processed).
		Int("winners", report.Winners).
		Int("batches", batchNum).
		Dur("duration_ms", time.Since(start)).
		Msg("Payout distribution completed")

	return report, nil
}

// settleEntry processes one wager entry. Returns whether this caller
// claimed the entry and whether it won.
func (uc *PayoutUseCase) settleEntry(ctx context.Context, entry *domain.WagerEntry, winningCardIndex int) (bool, bool, error) {
	// Poison entries are quarantined, never retried, never block siblings.
	if entry.UserID == 0 {
		ok, err := uc.wagerRepo.ClaimProcessed(ctx, entry.EntryID, false, 0, "missing user id", nil)
		if err != nil {
			return false, false, fmt.Errorf("failed to quarantine entry: %w", err)
		}
		if ok {
			logger.Warn(ctx).
				Str("entry_id", entry.EntryID).
				Msg("Quarantined wager entry with missing user")
		}
		return ok, false, nil
	}

	won := entry.CardIndex == winningCardIndex
	var payout int64
	if won {
		payout = entry.StakeAmount * uc.multiplier
	}

	source := "win:" + entry.Key().String()

	// The credit commits in the same atomic unit as the claim, with the
	// processed flag as the last write. A failed credit leaves the entry
	// unclaimed so the sweep retries it.
	var credit func(ctx context.Context) error
	if won && payout > 0 {
		credit = func(ctx context.Context) error {
			_, err := uc.walletSvc.AddBalance(ctx, entry.UserID, payout, source)
			return err
		}
	}

	claimed, err := uc.wagerRepo.ClaimProcessed(ctx, entry.EntryID, won, payout, "", credit)
	if err != nil {
		return false, false, fmt.Errorf("failed to claim entry: %w", err)
	}
	if !claimed {
		// Another distributor run got here first.
		return false, false, nil
	}

	if !won {
		return true, false, nil
	}

	ledgerEntry := domain.NewLedgerEntry(entry.UserID, domain.LedgerKindWin, payout, source)
	if err := uc.ledgerRepo.Append(ctx, ledgerEntry); err != nil {
		logger.Error(ctx).
			Err(err).
			Int64("user_id", entry.UserID).
			Str("entry_id", entry.EntryID).
			Msg("Failed to append win ledger entry")
	}

	if uc.referrals != nil {
		uc.referrals.Submit(entry.UserID, payout, source)
	}

	logger.Debug(ctx).
		Int64("user_id", entry.UserID).
		Int64("payout", payout).
		Str("entry_id", entry.EntryID).
		Msg("Winnings credited")

	return true, true, nil
}
