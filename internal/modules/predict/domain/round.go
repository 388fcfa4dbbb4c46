// Package domain holds the core types of the two-card prediction game.
package domain

import (
	"fmt"
	"time"
)

// RoundMode defines how a round slot behaves after settlement
type RoundMode string

const (
	// RoundModeAuto recycles into a fresh instance after every settlement
	RoundModeAuto RoundMode = "auto"
	// RoundModeManual archives after a single settlement
	RoundModeManual RoundMode = "manual"
)

// RoundStatus defines the status of a round slot
type RoundStatus string

const (
	RoundStatusPreparing RoundStatus = "preparing" // created, betting window not open yet
	RoundStatusActive    RoundStatus = "active"    // accepting wagers
	RoundStatusExpired   RoundStatus = "expired"   // past deadline, awaiting settlement
	RoundStatusInactive  RoundStatus = "inactive"  // settled manual round, archived
)

// WinnerUndecided is the winning card index of an unsettled instance
const WinnerUndecided = -1

// Round is a persistent game slot. The row is reused across many round
// instances: each recycle rewrites StartTime, so (RoundID, StartTime)
// identifies one concrete betting window.
type Round struct {
	RoundID          string      `gorm:"primaryKey;type:varchar(64)" json:"round_id"`
	Mode             RoundMode   `gorm:"type:varchar(16);not null;default:'auto'" json:"mode"`
	Status           RoundStatus `gorm:"type:varchar(16);not null;index:idx_rounds_status" json:"status"`
	StartTime        time.Time   `gorm:"not null" json:"start_time"`
	DurationSeconds  int         `gorm:"not null" json:"duration_seconds"`
	WinningCardIndex int         `gorm:"not null;default:-1" json:"winning_card_index"`
	StakeUnit        int64       `gorm:"not null" json:"stake_unit"`
	CardCount        int         `gorm:"not null;default:2" json:"card_count"`
	TierRestricted   bool        `gorm:"not null;default:false" json:"tier_restricted"`
	Theme            string      `gorm:"type:varchar(128)" json:"theme"`
	Question         string      `gorm:"type:varchar(512)" json:"question"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TableName overrides the table name
func (Round) TableName() string {
	return "prediction_rounds"
}

// Key returns the instance key of the round's current instance
func (r *Round) Key() InstanceKey {
	return InstanceKey{RoundID: r.RoundID, StartTime: r.StartTime}
}

// Deadline returns the end of the current betting window
func (r *Round) Deadline() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationSeconds) * time.Second)
}

// IsExpired reports whether the current instance is past its deadline
func (r *Round) IsExpired(now time.Time) bool {
	return !now.Before(r.Deadline())
}

// CanAcceptWager reports whether the slot accepts wagers right now
func (r *Round) CanAcceptWager(now time.Time) bool {
	return r.Status == RoundStatusActive && now.Before(r.Deadline()) && !now.Before(r.StartTime)
}

// DueForSettlement reports whether any trigger may finalize the current
// instance. Expired/inactive auto rounds are the self-healing recovery
// case: a crash or missed trigger left the slot in a state it should
// never persist in.
func (r *Round) DueForSettlement(now time.Time) bool {
	if r.Status == RoundStatusActive && r.IsExpired(now) {
		return true
	}
	if r.Mode == RoundModeAuto && (r.Status == RoundStatusExpired || r.Status == RoundStatusInactive) {
		return true
	}
	return false
}

// InstanceKey identifies one round instance: the slot plus the start time
// of one concrete betting window. Side effects (payouts, history) must
// always be keyed by the full instance key, never by RoundID alone.
type InstanceKey struct {
	RoundID   string
	StartTime time.Time
}

// String renders the key for logs and ledger metadata
func (k InstanceKey) String() string {
	return fmt.Sprintf("%s@%d", k.RoundID, k.StartTime.UnixMilli())
}

// themes rotated through on recycle so consecutive instances of a slot
// show different card pairs.
var themes = []struct {
	Theme    string
	Question string
}{
	{"crypto", "Which coin pumps harder today?"},
	{"sports", "Which team takes the next match?"},
	{"weather", "Sun or rain tomorrow?"},
	{"stocks", "Bull or bear by close?"},
}

// NextTheme returns the theme/question following the current one in the
// rotation.
func (r *Round) NextTheme() (string, string) {
	for i, t := range themes {
		if t.Theme == r.Theme {
			next := themes[(i+1)%len(themes)]
			return next.Theme, next.Question
		}
	}
	return themes[0].Theme, themes[0].Question
}
