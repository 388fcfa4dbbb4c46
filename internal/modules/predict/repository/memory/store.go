// Package memory provides in-memory prediction game repositories for
// tests and local runs. One mutex guards the whole store so the
// settlement transaction keeps the same all-or-nothing behavior the
// Postgres implementation gets from row locks.
package memory

import (
	"sort"
	"sync"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
)

// Store holds all prediction game state in memory
type Store struct {
	mu      sync.Mutex
	rounds  map[string]*domain.Round
	wagers  map[string]*domain.WagerEntry
	history map[string]*domain.RoundHistoryRecord
	ledger  []*domain.LedgerEntry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		rounds:  make(map[string]*domain.Round),
		wagers:  make(map[string]*domain.WagerEntry),
		history: make(map[string]*domain.RoundHistoryRecord),
	}
}

// Rounds returns the round repository view
func (s *Store) Rounds() *RoundRepository { return &RoundRepository{s: s} }

// Wagers returns the wager repository view
func (s *Store) Wagers() *WagerRepository { return &WagerRepository{s: s} }

// History returns the history repository view
func (s *Store) History() *HistoryRepository { return &HistoryRepository{s: s} }

// Ledger returns the ledger repository view
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

func cloneRound(r *domain.Round) *domain.Round {
	c := *r
	return &c
}

func cloneWager(w *domain.WagerEntry) *domain.WagerEntry {
	c := *w
	return &c
}

// instanceWagers returns the instance's entries sorted by entry ID
// (snowflake IDs are time-ordered). Caller holds the lock.
func (s *Store) instanceWagers(key domain.InstanceKey) []*domain.WagerEntry {
	var entries []*domain.WagerEntry
	for _, w := range s.wagers {
		if w.RoundID == key.RoundID && w.RoundStart.Equal(key.StartTime) {
			entries = append(entries, w)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryID < entries[j].EntryID })
	return entries
}
