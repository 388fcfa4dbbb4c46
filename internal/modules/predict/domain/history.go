package domain

import "time"

// RoundHistoryRecord is the append-only witness of one settled instance.
// The unique index on (RoundID, RoundStart) makes its insert an
// idempotency lock: a second settlement attempt for the same instance
// fails on conflict instead of settling twice.
type RoundHistoryRecord struct {
	RecordID         string    `gorm:"primaryKey;type:varchar(64)" json:"record_id"`
	RoundID          string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_history_instance,priority:1" json:"round_id"`
	RoundStart       time.Time `gorm:"not null;uniqueIndex:idx_history_instance,priority:2" json:"round_start"`
	WinningCardIndex int       `gorm:"not null" json:"winning_card_index"`
	StakeUnit        int64     `gorm:"not null" json:"stake_unit"`
	ClosedAt         time.Time `gorm:"not null" json:"closed_at"`
}

// TableName overrides the table name
func (RoundHistoryRecord) TableName() string {
	return "round_history"
}

// Key returns the instance key the record witnesses
func (r *RoundHistoryRecord) Key() InstanceKey {
	return InstanceKey{RoundID: r.RoundID, StartTime: r.RoundStart}
}

// NewRoundHistoryRecord builds the settlement witness for an instance
func NewRoundHistoryRecord(key InstanceKey, winningCardIndex int, stakeUnit int64, closedAt time.Time) *RoundHistoryRecord {
	return &RoundHistoryRecord{
		RecordID:         generateID(),
		RoundID:          key.RoundID,
		RoundStart:       key.StartTime,
		WinningCardIndex: winningCardIndex,
		StakeUnit:        stakeUnit,
		ClosedAt:         closedAt,
	}
}
