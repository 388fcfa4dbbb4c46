package memory

import (
	"context"
	"sort"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
)

// HistoryRepository implements domain.HistoryRepository in memory
type HistoryRepository struct {
	s *Store
}

// Get retrieves the record for one instance
func (r *HistoryRepository) Get(ctx context.Context, key domain.InstanceKey) (*domain.RoundHistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.history[key.String()]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	c := *record
	return &c, nil
}

// ListRecent returns the latest settled instances of a slot, newest first
func (r *HistoryRepository) ListRecent(ctx context.Context, roundID string, limit int) ([]*domain.RoundHistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var records []*domain.RoundHistoryRecord
	for _, record := range r.s.history {
		if record.RoundID == roundID {
			c := *record
			records = append(records, &c)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ClosedAt.After(records[j].ClosedAt) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Count returns the number of records (test helper)
func (r *HistoryRepository) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.history)
}
