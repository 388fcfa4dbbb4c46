// Package usecase implements the business logic of the round settlement
// engine.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/engine"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

// PayoutDispatcher submits a payout run for a settled instance without
// blocking the caller.
type PayoutDispatcher interface {
	Submit(key domain.InstanceKey, winningCardIndex int)
}

// CycleResult describes the externally visible outcome of Cycle
type CycleResult struct {
	WinningCardIndex int
	AlreadySettled   bool
	Archived         bool
	NewKey           *domain.InstanceKey // nil when archived
}

// SettleUseCase owns the round lifecycle transition out of active. All
// concurrent triggers (user timer, recovery sweep, admin action) funnel
// through here; correctness rests on the store transaction plus the
// double idempotency witness, never on in-process locks.
type SettleUseCase struct {
	roundRepo domain.RoundRepository
	selector  *engine.Selector
	payouts   PayoutDispatcher
	now       func() time.Time
}

// NewSettleUseCase creates a new settle use case
func NewSettleUseCase(roundRepo domain.RoundRepository, selector *engine.Selector, payouts PayoutDispatcher) *SettleUseCase {
	return &SettleUseCase{
		roundRepo: roundRepo,
		selector:  selector,
		payouts:   payouts,
		now:       time.Now,
	}
}

// Settle runs the decision transaction for one instance and returns its
// outcome without dispatching payouts. Callers that run the distributor
// themselves (the recovery sweep) use this; everyone else wants Finalize
// or Cycle.
func (uc *SettleUseCase) Settle(ctx context.Context, key domain.InstanceKey) (*domain.SettleOutcome, error) {
	now := uc.now()

	decide := func(round *domain.Round, volumes []int64) (int, error) {
		if !round.DueForSettlement(now) {
			return 0, domain.ErrRoundNotDue
		}
		if len(volumes) != round.CardCount {
			return 0, fmt.Errorf("%w: %d volumes for %d cards", domain.ErrCardIndexOutOfRange, len(volumes), round.CardCount)
		}

		winner, err := uc.selector.Pick(volumes)
		if err != nil {
			return 0, fmt.Errorf("winner selection failed: %w", err)
		}
		if winner < 0 || winner >= round.CardCount {
			return 0, fmt.Errorf("%w: selected %d of %d", domain.ErrCardIndexOutOfRange, winner, round.CardCount)
		}
		return winner, nil
	}

	outcome, err := uc.roundRepo.FinalizeInstance(ctx, key, decide)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotDue) || errors.Is(err, domain.ErrRoundNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to finalize instance %s: %w", key, err)
	}

	if outcome.AlreadySettled {
		logger.Debug(ctx).
			Str("instance", key.String()).
			Int("winning_card", outcome.WinningCardIndex).
			Msg("Instance already settled, returning existing winner")
		return outcome, nil
	}

	logger.Info(ctx).
		Str("instance", key.String()).
		Int("winning_card", outcome.WinningCardIndex).
		Bool("archived", outcome.Archived).
		Time("new_start", outcome.NewStartTime).
		Msg("Instance settled")

	return outcome, nil
}

// Finalize settles one instance and returns the winning card index.
// Idempotent: concurrent and duplicate triggers all observe the same
// value. Payout distribution is submitted after commit and does not
// block the caller.
func (uc *SettleUseCase) Finalize(ctx context.Context, key domain.InstanceKey) (int, error) {
	outcome, err := uc.Settle(ctx, key)
	if err != nil {
		return domain.WinnerUndecided, err
	}

	if !outcome.AlreadySettled && uc.payouts != nil {
		uc.payouts.Submit(key, outcome.WinningCardIndex)
	}
	return outcome.WinningCardIndex, nil
}

// Cycle drives settlement and recycling/archival in one call. This is
// the entry point the user-facing timer hits when a round's clock runs
// out.
func (uc *SettleUseCase) Cycle(ctx context.Context, key domain.InstanceKey) (*CycleResult, error) {
	outcome, err := uc.Settle(ctx, key)
	if err != nil {
		return nil, err
	}

	if !outcome.AlreadySettled && uc.payouts != nil {
		uc.payouts.Submit(key, outcome.WinningCardIndex)
	}

	result := &CycleResult{
		WinningCardIndex: outcome.WinningCardIndex,
		AlreadySettled:   outcome.AlreadySettled,
		Archived:         outcome.Archived,
	}

	switch {
	case outcome.Archived:
		// manual slot, no further instances
	case !outcome.NewStartTime.IsZero():
		result.NewKey = &domain.InstanceKey{RoundID: key.RoundID, StartTime: outcome.NewStartTime}
	default:
		// Already settled earlier; the slot was recycled then. Report the
		// instance currently open on the slot.
		round, err := uc.roundRepo.Get(ctx, key.RoundID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recycled round %s: %w", key.RoundID, err)
		}
		if round.Status == domain.RoundStatusInactive {
			result.Archived = true
		} else {
			k := round.Key()
			result.NewKey = &k
		}
	}

	return result, nil
}

// FindReplacement is the documented recovery path for ErrRoundNotFound:
// a vanished slot is substituted by a live one with matching
// configuration.
func (uc *SettleUseCase) FindReplacement(ctx context.Context, durationSeconds int, tierRestricted bool) (*domain.Round, error) {
	round, err := uc.roundRepo.FindReplacementSlot(ctx, durationSeconds, tierRestricted)
	if err != nil {
		return nil, fmt.Errorf("no replacement slot available: %w", err)
	}
	return round, nil
}
