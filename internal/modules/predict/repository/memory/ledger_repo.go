package memory

import (
	"context"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
)

// LedgerRepository implements domain.LedgerRepository in memory
type LedgerRepository struct {
	s *Store
}

// Append writes one ledger entry
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *entry
	r.s.ledger = append(r.s.ledger, &c)
	return nil
}

// ListByUser returns a user's latest ledger entries, newest first
func (r *LedgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*domain.LedgerEntry
	for i := len(r.s.ledger) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.s.ledger[i].UserID == userID {
			c := *r.s.ledger[i]
			entries = append(entries, &c)
		}
	}
	return entries, nil
}

// ListByKind returns all entries of one kind (test helper)
func (r *LedgerRepository) ListByKind(kind domain.LedgerKind) []*domain.LedgerEntry {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*domain.LedgerEntry
	for _, e := range r.s.ledger {
		if e.Kind == kind {
			c := *e
			entries = append(entries, &c)
		}
	}
	return entries
}
