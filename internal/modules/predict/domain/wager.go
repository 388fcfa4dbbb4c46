package domain

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// WagerEntry is one user's stake on one card for one round instance.
// The unique index enforces at most one entry per (user, instance, card).
// Once the instance leaves the betting window only the payout fields may
// change, and PayoutProcessed flips false→true exactly once.
type WagerEntry struct {
	EntryID         string    `gorm:"primaryKey;type:varchar(64)" json:"entry_id"`
	UserID          int64     `gorm:"not null;uniqueIndex:idx_wagers_once,priority:1;index:idx_wagers_user" json:"user_id"`
	RoundID         string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_wagers_once,priority:2;index:idx_wagers_instance,priority:1" json:"round_id"`
	RoundStart      time.Time `gorm:"not null;uniqueIndex:idx_wagers_once,priority:3;index:idx_wagers_instance,priority:2" json:"round_start"`
	CardIndex       int       `gorm:"not null;uniqueIndex:idx_wagers_once,priority:4" json:"card_index"`
	StakeAmount     int64     `gorm:"not null" json:"stake_amount"`
	PayoutProcessed bool      `gorm:"not null;default:false;index:idx_wagers_unprocessed" json:"payout_processed"`
	PayoutAmount    int64     `gorm:"not null;default:0" json:"payout_amount"`
	Won             bool      `gorm:"not null;default:false" json:"won"`
	PayoutError     string    `gorm:"type:varchar(256)" json:"payout_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the table name
func (WagerEntry) TableName() string {
	return "wager_entries"
}

// Key returns the instance key the entry belongs to
func (w *WagerEntry) Key() InstanceKey {
	return InstanceKey{RoundID: w.RoundID, StartTime: w.RoundStart}
}

var (
	node *snowflake.Node
	once sync.Once
)

func initSnowflake() {
	var err error
	// TODO: take the node ID from config once we run more than one instance
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// NewWagerEntry creates a wager entry for one instance
func NewWagerEntry(key InstanceKey, userID int64, cardIndex int, stakeAmount int64) *WagerEntry {
	return &WagerEntry{
		EntryID:     generateID(),
		UserID:      userID,
		RoundID:     key.RoundID,
		RoundStart:  key.StartTime,
		CardIndex:   cardIndex,
		StakeAmount: stakeAmount,
		CreatedAt:   time.Now(),
	}
}

func generateID() string {
	once.Do(initSnowflake)
	return node.Generate().String()
}
