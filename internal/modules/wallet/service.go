// Package wallet exposes the balance-credit primitive used by the
// settlement engine.
package wallet

import (
	"context"
	"errors"
	"fmt"

	userdomain "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/dbctx"
	"gorm.io/gorm"
)

// ErrInsufficientBalance is returned when a deduction would go negative
var ErrInsufficientBalance = errors.New("insufficient balance")

// Service is the wallet contract consumed by the engine
type Service interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AddBalance(ctx context.Context, userID int64, amount int64, reason string) (int64, error)
	DeductBalance(ctx context.Context, userID int64, amount int64, reason string) (int64, error)
}

// DBService implements Service with atomic in-place increments on the
// user's balance column. Writes join a transaction carried by the
// context (dbctx), so callers can commit a credit together with their
// own state change.
type DBService struct {
	db *gorm.DB
}

// NewDBService creates a DB-backed wallet service
func NewDBService(db *gorm.DB) *DBService {
	return &DBService{db: db}
}

// GetBalance returns the user's balance
func (s *DBService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var user userdomain.User
	if err := dbctx.From(ctx, s.db).WithContext(ctx).Select("balance").First(&user, userID).Error; err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return user.Balance, nil
}

// AddBalance atomically credits the user's balance
func (s *DBService) AddBalance(ctx context.Context, userID int64, amount int64, reason string) (int64, error) {
	res := dbctx.From(ctx, s.db).WithContext(ctx).Model(&userdomain.User{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to credit balance (%s): %w", reason, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("credit target user %d not found (%s)", userID, reason)
	}
	return s.GetBalance(ctx, userID)
}

// DeductBalance atomically debits the user's balance, refusing to go
// negative.
func (s *DBService) DeductBalance(ctx context.Context, userID int64, amount int64, reason string) (int64, error) {
	res := dbctx.From(ctx, s.db).WithContext(ctx).Model(&userdomain.User{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to debit balance (%s): %w", reason, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficientBalance
	}
	return s.GetBalance(ctx, userID)
}
