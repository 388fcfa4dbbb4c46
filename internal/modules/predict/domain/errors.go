package domain

import "errors"

var (
	// ErrRoundNotFound means the round slot vanished between trigger and
	// transaction. Retryable: callers may look for a recycled replacement
	// slot with matching configuration.
	ErrRoundNotFound = errors.New("round not found")

	// ErrRoundNotDue rejects a premature settlement trigger. No state change.
	ErrRoundNotDue = errors.New("round not due for settlement")

	// ErrCardIndexOutOfRange flags a card index inconsistent with the
	// round's configured card count. Data-integrity error, never defaulted.
	ErrCardIndexOutOfRange = errors.New("card index out of range")

	// ErrDuplicateWager means the user already staked this card for this
	// instance.
	ErrDuplicateWager = errors.New("duplicate wager for this card")

	// ErrWagerClosed rejects wagers outside the betting window.
	ErrWagerClosed = errors.New("betting closed for this round")

	// ErrNoProgress aborts a payout run whose batch claimed nothing,
	// instead of spinning on the same entries.
	ErrNoProgress = errors.New("payout batch made no progress")
)
