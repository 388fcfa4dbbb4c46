package db

import (
	"context"
	"fmt"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"gorm.io/gorm"
)

// LedgerRepository appends activity records
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append writes one ledger entry
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns a user's latest ledger entries, newest first
func (r *LedgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}
