package domain

import "time"

// LedgerKind classifies a ledger entry
type LedgerKind string

const (
	LedgerKindWager      LedgerKind = "wager"
	LedgerKindWin        LedgerKind = "win"
	LedgerKindCommission LedgerKind = "commission"
)

// LedgerEntry is an append-only activity record. Never mutated after
// creation.
type LedgerEntry struct {
	EntryID   string     `gorm:"primaryKey;type:varchar(64)" json:"entry_id"`
	UserID    int64      `gorm:"not null;index:idx_ledger_user" json:"user_id"`
	Kind      LedgerKind `gorm:"type:varchar(32);not null;index:idx_ledger_kind" json:"kind"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Metadata  string     `gorm:"type:varchar(512)" json:"metadata"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

// TableName overrides the table name
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a ledger entry
func NewLedgerEntry(userID int64, kind LedgerKind, amount int64, metadata string) *LedgerEntry {
	return &LedgerEntry{
		EntryID:   generateID(),
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
