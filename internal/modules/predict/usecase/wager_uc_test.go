package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/repository/memory"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
)

// fakeVolumeCache implements domain.VolumeCache over a map
type fakeVolumeCache struct {
	counts map[string][]int64
}

func newFakeVolumeCache() *fakeVolumeCache {
	return &fakeVolumeCache{counts: make(map[string][]int64)}
}

func (c *fakeVolumeCache) Incr(ctx context.Context, key domain.InstanceKey, cardIndex int, amount int64) error {
	vols := c.counts[key.String()]
	for len(vols) <= cardIndex {
		vols = append(vols, 0)
	}
	vols[cardIndex] += amount
	c.counts[key.String()] = vols
	return nil
}

func (c *fakeVolumeCache) Read(ctx context.Context, key domain.InstanceKey, cardCount int) ([]int64, error) {
	vols, ok := c.counts[key.String()]
	if !ok {
		return nil, fmt.Errorf("no cached volumes for %s", key)
	}
	out := make([]int64, cardCount)
	copy(out, vols)
	return out, nil
}

func openRound(t *testing.T, store *memory.Store, roundID string) *domain.Round {
	t.Helper()
	round := &domain.Round{
		RoundID:          roundID,
		Mode:             domain.RoundModeAuto,
		Status:           domain.RoundStatusActive,
		StartTime:        time.Now().Add(-time.Minute),
		DurationSeconds:  3600,
		WinningCardIndex: domain.WinnerUndecided,
		StakeUnit:        10,
		CardCount:        2,
	}
	require.NoError(t, store.Rounds().Create(context.Background(), round))
	return round
}

func TestPlaceWagerDebitsAndRecords(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	cache := newFakeVolumeCache()
	round := openRound(t, store, "r-bet")

	walletSvc.SetBalance(101, 100)
	uc := NewWagerUseCase(store.Rounds(), store.Wagers(), store.Ledger(), walletSvc, cache)

	ctx := context.Background()
	entry, err := uc.PlaceWager(ctx, 101, "r-bet", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), entry.StakeAmount)
	assert.Equal(t, round.StartTime.UnixMilli(), entry.RoundStart.UnixMilli())

	balance, _ := walletSvc.GetBalance(ctx, 101)
	assert.Equal(t, int64(90), balance)

	vols, err := store.Wagers().Volumes(ctx, round.Key(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 0}, vols)

	cached, err := cache.Read(ctx, round.Key(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 0}, cached)

	wagers := store.Ledger().ListByKind(domain.LedgerKindWager)
	require.Len(t, wagers, 1)
	assert.Equal(t, int64(101), wagers[0].UserID)
}

func TestPlaceWagerDuplicateRefunded(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	openRound(t, store, "r-dup")

	walletSvc.SetBalance(101, 100)
	uc := NewWagerUseCase(store.Rounds(), store.Wagers(), store.Ledger(), walletSvc, nil)

	ctx := context.Background()
	_, err := uc.PlaceWager(ctx, 101, "r-dup", 0)
	require.NoError(t, err)

	_, err = uc.PlaceWager(ctx, 101, "r-dup", 0)
	assert.ErrorIs(t, err, domain.ErrDuplicateWager)

	// The rejected stake went back.
	balance, _ := walletSvc.GetBalance(ctx, 101)
	assert.Equal(t, int64(90), balance)

	// The other card is still open to the same user.
	_, err = uc.PlaceWager(ctx, 101, "r-dup", 1)
	require.NoError(t, err)
	balance, _ = walletSvc.GetBalance(ctx, 101)
	assert.Equal(t, int64(80), balance)
}

func TestPlaceWagerOutsideWindow(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	expired := &domain.Round{
		RoundID:          "r-late",
		Mode:             domain.RoundModeAuto,
		Status:           domain.RoundStatusActive,
		StartTime:        time.Now().Add(-10 * time.Minute),
		DurationSeconds:  60,
		WinningCardIndex: domain.WinnerUndecided,
		StakeUnit:        10,
		CardCount:        2,
	}
	require.NoError(t, store.Rounds().Create(context.Background(), expired))

	walletSvc.SetBalance(101, 100)
	uc := NewWagerUseCase(store.Rounds(), store.Wagers(), store.Ledger(), walletSvc, nil)

	ctx := context.Background()
	_, err := uc.PlaceWager(ctx, 101, "r-late", 0)
	assert.ErrorIs(t, err, domain.ErrWagerClosed)

	balance, _ := walletSvc.GetBalance(ctx, 101)
	assert.Equal(t, int64(100), balance, "no debit on rejected wager")
}

func TestPlaceWagerInsufficientBalance(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	openRound(t, store, "r-poor")

	walletSvc.SetBalance(101, 5)
	uc := NewWagerUseCase(store.Rounds(), store.Wagers(), store.Ledger(), walletSvc, nil)

	_, err := uc.PlaceWager(context.Background(), 101, "r-poor", 0)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}

func TestPlaceWagerBadCardIndex(t *testing.T) {
	store := memory.NewStore()
	walletSvc := wallet.NewMockService()
	openRound(t, store, "r-card")

	walletSvc.SetBalance(101, 100)
	uc := NewWagerUseCase(store.Rounds(), store.Wagers(), store.Ledger(), walletSvc, nil)

	ctx := context.Background()
	for _, card := range []int{-1, 2, 7} {
		_, err := uc.PlaceWager(ctx, 101, "r-card", card)
		assert.ErrorIs(t, err, domain.ErrCardIndexOutOfRange, "card %d", card)
	}
}

func TestVolumeReaderPrefersCache(t *testing.T) {
	store := memory.NewStore()
	cache := newFakeVolumeCache()
	round := openRound(t, store, "r-vol")
	key := round.Key()

	ctx := context.Background()
	require.NoError(t, store.Wagers().Place(ctx, domain.NewWagerEntry(key, 101, 0, 10)))

	vr := NewVolumeReader(store.Wagers(), cache)

	// Cache miss falls back to the store.
	vols, total, err := vr.Volumes(ctx, key, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 0}, vols)
	assert.Equal(t, int64(10), total)

	// Cached values win over the store once present.
	require.NoError(t, cache.Incr(ctx, key, 1, 30))
	vols, total, err = vr.Volumes(ctx, key, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 30}, vols)
	assert.Equal(t, int64(30), total)
}
