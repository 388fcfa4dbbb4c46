package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

// WagerUseCase handles wager placement: debit the stake, write the entry
// under the (user, instance, card) uniqueness guard, bump the live volume
// counters.
type WagerUseCase struct {
	roundRepo   domain.RoundRepository
	wagerRepo   domain.WagerRepository
	ledgerRepo  domain.LedgerRepository
	walletSvc   wallet.Service
	volumeCache domain.VolumeCache
	now         func() time.Time
}

// NewWagerUseCase creates a new wager use case
func NewWagerUseCase(
	roundRepo domain.RoundRepository,
	wagerRepo domain.WagerRepository,
	ledgerRepo domain.LedgerRepository,
	walletSvc wallet.Service,
	volumeCache domain.VolumeCache,
) *WagerUseCase {
	return &WagerUseCase{
		roundRepo:   roundRepo,
		wagerRepo:   wagerRepo,
		ledgerRepo:  ledgerRepo,
		walletSvc:   walletSvc,
		volumeCache: volumeCache,
		now:         time.Now,
	}
}

// PlaceWager stakes one unit on a card of the round's current instance
func (uc *WagerUseCase) PlaceWager(ctx context.Context, userID int64, roundID string, cardIndex int) (*domain.WagerEntry, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"user_id":  userID,
		"round_id": roundID,
	})

	round, err := uc.roundRepo.Get(ctx, roundID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if !round.CanAcceptWager(now) {
		logger.Warn(ctx).
			Str("status", string(round.Status)).
			Time("deadline", round.Deadline()).
			Msg("Wager rejected outside betting window")
		return nil, domain.ErrWagerClosed
	}
	if cardIndex < 0 || cardIndex >= round.CardCount {
		return nil, fmt.Errorf("%w: card %d of %d", domain.ErrCardIndexOutOfRange, cardIndex, round.CardCount)
	}

	key := round.Key()
	stake := round.StakeUnit

	if _, err := uc.walletSvc.DeductBalance(ctx, userID, stake, "wager:"+key.String()); err != nil {
		logger.Warn(ctx).Err(err).Int64("stake", stake).Msg("Wager stake deduction failed")
		return nil, fmt.Errorf("failed to deduct stake: %w", err)
	}

	entry := domain.NewWagerEntry(key, userID, cardIndex, stake)
	if err := uc.wagerRepo.Place(ctx, entry); err != nil {
		// Stake already left the wallet, give it back before failing.
		if _, refundErr := uc.walletSvc.AddBalance(ctx, userID, stake, "wager-refund:"+key.String()); refundErr != nil {
			logger.Error(ctx).
				Err(refundErr).
				Int64("stake", stake).
				Msg("Failed to refund stake after rejected wager")
		}
		if errors.Is(err, domain.ErrDuplicateWager) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to place wager: %w", err)
	}

	if uc.volumeCache != nil {
		if err := uc.volumeCache.Incr(ctx, key, cardIndex, stake); err != nil {
			logger.Warn(ctx).Err(err).Msg("Volume cache increment failed")
		}
	}

	meta := fmt.Sprintf("%s card=%d", key, cardIndex)
	if err := uc.ledgerRepo.Append(ctx, domain.NewLedgerEntry(userID, domain.LedgerKindWager, stake, meta)); err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to append wager ledger entry")
	}

	logger.Info(ctx).
		Str("entry_id", entry.EntryID).
		Int("card_index", cardIndex).
		Int64("stake", stake).
		Msg("Wager placed")

	return entry, nil
}
