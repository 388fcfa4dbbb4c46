package memory

import (
	"context"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
)

// WagerRepository implements domain.WagerRepository in memory
type WagerRepository struct {
	s *Store
}

// Place writes a new wager entry, enforcing the (user, instance, card)
// uniqueness guard.
func (r *WagerRepository) Place(ctx context.Context, entry *domain.WagerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.wagers {
		if w.UserID == entry.UserID &&
			w.RoundID == entry.RoundID &&
			w.RoundStart.Equal(entry.RoundStart) &&
			w.CardIndex == entry.CardIndex {
			return domain.ErrDuplicateWager
		}
	}
	r.s.wagers[entry.EntryID] = cloneWager(entry)
	return nil
}

// Volumes sums stake per card for exactly one instance
func (r *WagerRepository) Volumes(ctx context.Context, key domain.InstanceKey, cardCount int) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	volumes := make([]int64, cardCount)
	for _, w := range r.s.instanceWagers(key) {
		if w.CardIndex >= 0 && w.CardIndex < cardCount {
			volumes[w.CardIndex] += w.StakeAmount
		}
	}
	return volumes, nil
}

// ListUnprocessed returns up to limit unpaid entries of the instance
func (r *WagerRepository) ListUnprocessed(ctx context.Context, key domain.InstanceKey, limit int) ([]*domain.WagerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*domain.WagerEntry
	for _, w := range r.s.instanceWagers(key) {
		if w.PayoutProcessed {
			continue
		}
		entries = append(entries, cloneWager(w))
		if len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// ClaimProcessed flips PayoutProcessed false→true exactly once. The
// credit runs under the store lock before the flag flips, so a failed
// credit leaves the entry unclaimed for a later run.
func (r *WagerRepository) ClaimProcessed(ctx context.Context, entryID string, won bool, payoutAmount int64, payoutError string, credit func(ctx context.Context) error) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wagers[entryID]
	if !ok || w.PayoutProcessed {
		return false, nil
	}
	if credit != nil {
		if err := credit(ctx); err != nil {
			return false, err
		}
	}
	w.PayoutProcessed = true
	w.Won = won
	w.PayoutAmount = payoutAmount
	w.PayoutError = payoutError
	return true, nil
}

// ListSettledUnprocessed returns instance keys with a history record and
// unpaid entries.
func (r *WagerRepository) ListSettledUnprocessed(ctx context.Context, limit int) ([]domain.InstanceKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[string]bool)
	var keys []domain.InstanceKey
	for _, w := range r.s.wagers {
		if w.PayoutProcessed {
			continue
		}
		key := w.Key()
		if seen[key.String()] {
			continue
		}
		if _, settled := r.s.history[key.String()]; !settled {
			continue
		}
		seen[key.String()] = true
		keys = append(keys, key)
		if len(keys) >= limit {
			break
		}
	}
	return keys, nil
}

// Get returns one entry by ID (test helper)
func (r *WagerRepository) Get(ctx context.Context, entryID string) (*domain.WagerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wagers[entryID]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	return cloneWager(w), nil
}
