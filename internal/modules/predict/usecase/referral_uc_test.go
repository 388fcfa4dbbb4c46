package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	userdomain "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/domain"
	userrepo "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/repository"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
)

// fakeUserRepo implements the user repository over a map
type fakeUserRepo struct {
	users map[int64]*userdomain.User
}

func newFakeUserRepo(users ...*userdomain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*userdomain.User)}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *userdomain.User) error {
	r.users[user.UserID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID int64) (*userdomain.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, userrepo.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByReferralCode(ctx context.Context, code string) (*userdomain.User, error) {
	for _, u := range r.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, userrepo.ErrUserNotFound
}

func newReferralFixture(users ...*userdomain.User) (*ReferralUseCase, *wallet.MockService, *memoryLedger) {
	walletSvc := wallet.NewMockService()
	ledger := &memoryLedger{}
	uc := NewReferralUseCase(newFakeUserRepo(users...), walletSvc, ledger, 5, 20, 16)
	return uc, walletSvc, ledger
}

// memoryLedger collects appended entries
type memoryLedger struct {
	entries []*domain.LedgerEntry
}

func (l *memoryLedger) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memoryLedger) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	return nil, nil
}

func TestAwardCommissionPremiumRate(t *testing.T) {
	referrer := &userdomain.User{UserID: 1, Username: "ref", ReferralCode: "REF1", Premium: true}
	bettor := &userdomain.User{UserID: 2, Username: "win", ReferralCode: "WIN1", ReferredBy: "REF1"}
	uc, walletSvc, ledger := newReferralFixture(referrer, bettor)

	ctx := context.Background()
	require.NoError(t, uc.AwardCommission(ctx, 2, 100, "win:r-1@0"))

	balance, _ := walletSvc.GetBalance(ctx, 1)
	assert.Equal(t, int64(20), balance, "premium referrer gets the premium cut")

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, domain.LedgerKindCommission, ledger.entries[0].Kind)
	assert.Equal(t, int64(20), ledger.entries[0].Amount)
}

func TestAwardCommissionStandardRate(t *testing.T) {
	referrer := &userdomain.User{UserID: 1, Username: "ref", ReferralCode: "REF1"}
	bettor := &userdomain.User{UserID: 2, Username: "win", ReferralCode: "WIN1", ReferredBy: "REF1"}
	uc, walletSvc, _ := newReferralFixture(referrer, bettor)

	ctx := context.Background()
	require.NoError(t, uc.AwardCommission(ctx, 2, 100, "win:r-1@0"))

	balance, _ := walletSvc.GetBalance(ctx, 1)
	assert.Equal(t, int64(5), balance)
}

func TestAwardCommissionNoReferrer(t *testing.T) {
	bettor := &userdomain.User{UserID: 2, Username: "solo", ReferralCode: "SOLO"}
	uc, walletSvc, ledger := newReferralFixture(bettor)

	ctx := context.Background()
	require.NoError(t, uc.AwardCommission(ctx, 2, 100, "win:r-1@0"))

	balance, _ := walletSvc.GetBalance(ctx, 2)
	assert.Equal(t, int64(0), balance)
	assert.Empty(t, ledger.entries)
}

func TestAwardCommissionDanglingCode(t *testing.T) {
	// Referrer account was deleted; the commission is skipped, not failed.
	bettor := &userdomain.User{UserID: 2, Username: "orphan", ReferralCode: "ORP1", ReferredBy: "GONE"}
	uc, _, ledger := newReferralFixture(bettor)

	require.NoError(t, uc.AwardCommission(context.Background(), 2, 100, "win:r-1@0"))
	assert.Empty(t, ledger.entries)
}

func TestAwardCommissionFloorsToZero(t *testing.T) {
	referrer := &userdomain.User{UserID: 1, Username: "ref", ReferralCode: "REF1"}
	bettor := &userdomain.User{UserID: 2, Username: "win", ReferralCode: "WIN1", ReferredBy: "REF1"}
	uc, walletSvc, ledger := newReferralFixture(referrer, bettor)

	// 5% of 10 floors to 0: no credit, no ledger noise.
	ctx := context.Background()
	require.NoError(t, uc.AwardCommission(ctx, 2, 10, "win:r-1@0"))

	balance, _ := walletSvc.GetBalance(ctx, 1)
	assert.Equal(t, int64(0), balance)
	assert.Empty(t, ledger.entries)
}

func TestAwardCommissionUnknownBeneficiary(t *testing.T) {
	uc, _, _ := newReferralFixture()
	err := uc.AwardCommission(context.Background(), 404, 100, "win:r-1@0")
	assert.Error(t, err)
}
