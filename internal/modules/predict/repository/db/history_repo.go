package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"gorm.io/gorm"
)

// HistoryRepository reads settlement witnesses. Records are only ever
// created inside the settlement transaction.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Get retrieves the record for one instance
func (r *HistoryRepository) Get(ctx context.Context, key domain.InstanceKey) (*domain.RoundHistoryRecord, error) {
	var record domain.RoundHistoryRecord
	err := r.db.WithContext(ctx).
		Where("round_id = ? AND round_start = ?", key.RoundID, key.StartTime).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}
	return &record, nil
}

// ListRecent returns the latest settled instances of a slot, newest first
func (r *HistoryRepository) ListRecent(ctx context.Context, roundID string, limit int) ([]*domain.RoundHistoryRecord, error) {
	var records []*domain.RoundHistoryRecord
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("closed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	return records, nil
}
