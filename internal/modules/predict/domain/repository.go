package domain

import (
	"context"
	"time"
)

// DecideFunc picks the winning card index from the locked round and its
// aggregated per-card volumes. Called inside the settlement transaction.
type DecideFunc func(round *Round, volumes []int64) (int, error)

// SettleOutcome describes the result of finalizing one instance
type SettleOutcome struct {
	WinningCardIndex int
	AlreadySettled   bool      // idempotency guard hit; existing value returned
	Archived         bool      // manual round archived, no further instances
	NewStartTime     time.Time // start of the recycled instance (auto mode)
}

// RoundRepository persists round slots and owns the settlement
// transaction.
type RoundRepository interface {
	Create(ctx context.Context, round *Round) error
	Get(ctx context.Context, roundID string) (*Round, error)

	// FinalizeInstance atomically decides and records the winner for one
	// instance: lock the round row, run decide, write the winner index,
	// insert the history record, and recycle (auto) or archive (manual) in
	// the same transaction. Returns AlreadySettled without calling decide
	// when the winner index is already set.
	FinalizeInstance(ctx context.Context, key InstanceKey, decide DecideFunc) (*SettleOutcome, error)

	// ListForSweep returns rounds in any state that may require action:
	// active, expired, or inactive while configured auto.
	ListForSweep(ctx context.Context) ([]*Round, error)

	// FindReplacementSlot locates a live slot matching the configuration of
	// a vanished one (recovery path for ErrRoundNotFound).
	FindReplacementSlot(ctx context.Context, durationSeconds int, tierRestricted bool) (*Round, error)

	// DeleteArchivedBefore garbage collects manual, already-archived slots
	// untouched since the cutoff. Auto slots are never deleted.
	DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WagerRepository persists wager entries
type WagerRepository interface {
	// Place writes a new entry; ErrDuplicateWager when the
	// (user, instance, card) uniqueness guard trips.
	Place(ctx context.Context, entry *WagerEntry) error

	// Volumes sums stake per card for exactly one instance
	Volumes(ctx context.Context, key InstanceKey, cardCount int) ([]int64, error)

	// ListUnprocessed returns up to limit entries of the instance that have
	// not been paid out yet.
	ListUnprocessed(ctx context.Context, key InstanceKey, limit int) ([]*WagerEntry, error)

	// ClaimProcessed flips PayoutProcessed false→true for one entry,
	// recording the payout fields. When credit is non-nil it runs inside
	// the same atomic unit, before the flag commits: a failed credit
	// leaves the entry unclaimed for a later run to retry. Returns false
	// when the entry was already claimed by another caller.
	ClaimProcessed(ctx context.Context, entryID string, won bool, payoutAmount int64, payoutError string, credit func(ctx context.Context) error) (bool, error)

	// ListSettledUnprocessed returns instance keys that have a history
	// record but still carry unprocessed entries (payout crashed after the
	// decision committed).
	ListSettledUnprocessed(ctx context.Context, limit int) ([]InstanceKey, error)
}

// HistoryRepository reads settlement witnesses. Creation happens inside
// FinalizeInstance only.
type HistoryRepository interface {
	Get(ctx context.Context, key InstanceKey) (*RoundHistoryRecord, error)
	ListRecent(ctx context.Context, roundID string, limit int) ([]*RoundHistoryRecord, error)
}

// LedgerRepository appends activity records
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error)
}

// VolumeCache is the best-effort live volume counter. Never authoritative
// for settlement; the decision transaction aggregates from the store.
type VolumeCache interface {
	Incr(ctx context.Context, key InstanceKey, cardIndex int, amount int64) error
	Read(ctx context.Context, key InstanceKey, cardCount int) ([]int64, error)
}
