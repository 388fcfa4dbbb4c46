package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/engine"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/repository/memory"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
)

func newSweepFixture(store *memory.Store, walletSvc wallet.Service, grace time.Duration) (*SweepUseCase, *SettleUseCase, *PayoutUseCase) {
	payout := NewPayoutUseCase(store.Wagers(), store.Ledger(), walletSvc, nil, 2, 100)
	settle := NewSettleUseCase(store.Rounds(), engine.NewSelector(), nil)
	sweep := NewSweepUseCase(store.Rounds(), store.Wagers(), store.History(), settle, payout, grace)
	return sweep, settle, payout
}

func TestSweepSettlesOverdueRound(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	round := overdueRound(t, store, "r-sweep")
	key := round.Key()

	// One stake on card 0, two on card 1: card 0 wins.
	placeWagers(t, store, key, map[int64]int{101: 0, 102: 1, 103: 1})

	sweep, _, _ := newSweepFixture(store, walletSvc, time.Hour)

	ctx := context.Background()
	report, err := sweep.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Awarded)

	balance, _ := walletSvc.GetBalance(ctx, 101)
	assert.Equal(t, int64(20), balance)

	assert.Equal(t, 1, store.History().Count())

	recycled, err := store.Rounds().Get(ctx, round.RoundID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusActive, recycled.Status)
	assert.True(t, recycled.StartTime.After(key.StartTime))

	// A second sweep finds nothing left to do.
	again, err := sweep.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Processed)
	assert.Equal(t, 0, again.Awarded)
}

func TestSweepCatchesUpUnpaidSettledInstance(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	round := overdueRound(t, store, "r-catchup")
	key := round.Key()
	placeWagers(t, store, key, map[int64]int{101: 0, 102: 1, 103: 1})

	sweep, settle, _ := newSweepFixture(store, walletSvc, time.Hour)

	// Decision committed, payout run never happened (simulated crash
	// between the two phases).
	ctx := context.Background()
	outcome, err := settle.Settle(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.WinningCardIndex)

	balance, _ := walletSvc.GetBalance(ctx, 101)
	require.Equal(t, int64(0), balance, "no payout before the sweep")

	report, err := sweep.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Awarded)

	balance, _ = walletSvc.GetBalance(ctx, 101)
	assert.Equal(t, int64(20), balance)
}

func TestSweepGarbageCollectsStaleManualRounds(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	ctx := context.Background()

	manual := &domain.Round{
		RoundID:          "r-old-manual",
		Mode:             domain.RoundModeManual,
		Status:           domain.RoundStatusActive,
		StartTime:        time.Now().Add(-10 * time.Minute),
		DurationSeconds:  300,
		WinningCardIndex: domain.WinnerUndecided,
		StakeUnit:        10,
		CardCount:        2,
	}
	require.NoError(t, store.Rounds().Create(ctx, manual))

	// Auto slot with a window long enough to stay open past the fake
	// clock below. Auto slots are never garbage collected.
	auto := &domain.Round{
		RoundID:          "r-keep-auto",
		Mode:             domain.RoundModeAuto,
		Status:           domain.RoundStatusActive,
		StartTime:        time.Now(),
		DurationSeconds:  100000,
		WinningCardIndex: domain.WinnerUndecided,
		StakeUnit:        10,
		CardCount:        2,
	}
	require.NoError(t, store.Rounds().Create(ctx, auto))

	sweep, settle, _ := newSweepFixture(store, walletSvc, time.Hour)

	// Settle and archive the manual round.
	_, err := settle.Cycle(ctx, manual.Key())
	require.NoError(t, err)

	// First sweep: the archive is younger than the grace period.
	report, err := sweep.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Deleted)

	// Advance the sweep's clock past the grace period.
	sweep.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	report, err = sweep.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Deleted)

	_, err = store.Rounds().Get(ctx, "r-old-manual")
	assert.ErrorIs(t, err, domain.ErrRoundNotFound)

	_, err = store.Rounds().Get(ctx, "r-keep-auto")
	assert.NoError(t, err)
}
