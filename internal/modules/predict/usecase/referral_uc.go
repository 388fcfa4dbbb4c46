package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	userdomain "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/domain"
	userrepo "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/repository"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

type commissionJob struct {
	beneficiaryID int64
	amount        int64
	source        string
}

// ReferralUseCase awards tiered commissions to referrers of credited
// users. Deliberately decoupled from the payout path: commissions are a
// courtesy multiplier, not a financial guarantee, so failures are logged
// and dropped without touching the underlying payout.
type ReferralUseCase struct {
	userRepo   userdomain.Repository
	walletSvc  wallet.Service
	ledgerRepo domain.LedgerRepository

	standardRatePct int64
	premiumRatePct  int64

	jobs chan commissionJob
	done chan struct{}
}

// NewReferralUseCase creates a new referral use case
func NewReferralUseCase(
	userRepo userdomain.Repository,
	walletSvc wallet.Service,
	ledgerRepo domain.LedgerRepository,
	standardRatePct, premiumRatePct int64,
	queueSize int,
) *ReferralUseCase {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &ReferralUseCase{
		userRepo:        userRepo,
		walletSvc:       walletSvc,
		ledgerRepo:      ledgerRepo,
		standardRatePct: standardRatePct,
		premiumRatePct:  premiumRatePct,
		jobs:            make(chan commissionJob, queueSize),
		done:            make(chan struct{}),
	}
}

// Submit queues a commission award. Non-blocking: a full queue drops the
// job with a warning, accepted for best-effort commissions.
func (uc *ReferralUseCase) Submit(beneficiaryID int64, amount int64, source string) {
	select {
	case uc.jobs <- commissionJob{beneficiaryID: beneficiaryID, amount: amount, source: source}:
	default:
		logger.WarnGlobal().
			Int64("beneficiary_id", beneficiaryID).
			Str("source", source).
			Msg("Commission queue full, dropping job")
	}
}

// Start runs the commission worker until ctx is cancelled
func (uc *ReferralUseCase) Start(ctx context.Context) {
	defer close(uc.done)
	for {
		select {
		case job := <-uc.jobs:
			jobCtx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
			if err := uc.AwardCommission(jobCtx, job.beneficiaryID, job.amount, job.source); err != nil {
				logger.Error(jobCtx).
					Err(err).
					Int64("beneficiary_id", job.beneficiaryID).
					Str("source", job.source).
					Msg("Commission award failed, dropped")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until the worker has stopped
func (uc *ReferralUseCase) Wait() {
	<-uc.done
}

// AwardCommission pays the beneficiary's referrer their cut of a credited
// amount. No-ops silently when the beneficiary has no referrer or the
// commission floors to zero.
func (uc *ReferralUseCase) AwardCommission(ctx context.Context, beneficiaryID int64, amount int64, source string) error {
	beneficiary, err := uc.userRepo.GetByID(ctx, beneficiaryID)
	if err != nil {
		return fmt.Errorf("failed to load beneficiary %d: %w", beneficiaryID, err)
	}
	if beneficiary.ReferredBy == "" {
		return nil
	}

	referrer, err := uc.userRepo.GetByReferralCode(ctx, beneficiary.ReferredBy)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			logger.Warn(ctx).
				Int64("beneficiary_id", beneficiaryID).
				Str("referral_code", beneficiary.ReferredBy).
				Msg("Referral code points at no user, skipping commission")
			return nil
		}
		return fmt.Errorf("failed to resolve referrer: %w", err)
	}

	rate := uc.standardRatePct
	if referrer.Premium {
		rate = uc.premiumRatePct
	}

	commission := amount * rate / 100
	if commission <= 0 {
		return nil
	}

	reason := "commission:" + source
	if _, err := uc.walletSvc.AddBalance(ctx, referrer.UserID, commission, reason); err != nil {
		return fmt.Errorf("failed to credit referrer %d: %w", referrer.UserID, err)
	}

	meta := fmt.Sprintf("%s beneficiary=%d rate=%d%%", source, beneficiaryID, rate)
	if err := uc.ledgerRepo.Append(ctx, domain.NewLedgerEntry(referrer.UserID, domain.LedgerKindCommission, commission, meta)); err != nil {
		logger.Error(ctx).
			Err(err).
			Int64("referrer_id", referrer.UserID).
			Msg("Failed to append commission ledger entry")
	}

	logger.Info(ctx).
		Int64("referrer_id", referrer.UserID).
		Int64("beneficiary_id", beneficiaryID).
		Int64("commission", commission).
		Int64("rate_pct", rate).
		Msg("Commission awarded")

	return nil
}
