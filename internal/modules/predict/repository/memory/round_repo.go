package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
)

// RoundRepository implements domain.RoundRepository in memory
type RoundRepository struct {
	s *Store
}

// Create creates a round slot
func (r *RoundRepository) Create(ctx context.Context, round *domain.Round) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.rounds[round.RoundID]; exists {
		return fmt.Errorf("round %s already exists", round.RoundID)
	}
	now := time.Now()
	round.CreatedAt = now
	round.UpdatedAt = now
	r.s.rounds[round.RoundID] = cloneRound(round)
	return nil
}

// Get retrieves a round slot by ID
func (r *RoundRepository) Get(ctx context.Context, roundID string) (*domain.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	round, ok := r.s.rounds[roundID]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	return cloneRound(round), nil
}

// FinalizeInstance runs the settlement decision under the store lock,
// mirroring the Postgres implementation's row-lock discipline.
func (r *RoundRepository) FinalizeInstance(ctx context.Context, key domain.InstanceKey, decide domain.DecideFunc) (*domain.SettleOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	round, ok := r.s.rounds[key.RoundID]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}

	if !round.StartTime.Equal(key.StartTime) {
		record, ok := r.s.history[key.String()]
		if !ok {
			return nil, fmt.Errorf("instance %s superseded without history record", key)
		}
		return &domain.SettleOutcome{
			WinningCardIndex: record.WinningCardIndex,
			AlreadySettled:   true,
		}, nil
	}

	if round.WinningCardIndex != domain.WinnerUndecided {
		return &domain.SettleOutcome{
			WinningCardIndex: round.WinningCardIndex,
			AlreadySettled:   true,
		}, nil
	}

	volumes := make([]int64, round.CardCount)
	for _, w := range r.s.instanceWagers(key) {
		if w.CardIndex < 0 || w.CardIndex >= round.CardCount {
			return nil, fmt.Errorf("%w: found stake on card %d of %d", domain.ErrCardIndexOutOfRange, w.CardIndex, round.CardCount)
		}
		volumes[w.CardIndex] += w.StakeAmount
	}

	winner, err := decide(cloneRound(round), volumes)
	if err != nil {
		return nil, err
	}

	if _, exists := r.s.history[key.String()]; exists {
		record := r.s.history[key.String()]
		return &domain.SettleOutcome{
			WinningCardIndex: record.WinningCardIndex,
			AlreadySettled:   true,
		}, nil
	}

	closedAt := time.Now()
	r.s.history[key.String()] = domain.NewRoundHistoryRecord(key, winner, round.StakeUnit, closedAt)

	if round.Mode == domain.RoundModeAuto {
		theme, question := round.NextTheme()
		round.Status = domain.RoundStatusActive
		round.StartTime = closedAt
		round.WinningCardIndex = domain.WinnerUndecided
		round.Theme = theme
		round.Question = question
		round.UpdatedAt = closedAt
		return &domain.SettleOutcome{
			WinningCardIndex: winner,
			NewStartTime:     closedAt,
		}, nil
	}

	round.Status = domain.RoundStatusInactive
	round.WinningCardIndex = winner
	round.UpdatedAt = closedAt
	return &domain.SettleOutcome{
		WinningCardIndex: winner,
		Archived:         true,
	}, nil
}

// ListForSweep returns rounds in any state that may require action
func (r *RoundRepository) ListForSweep(ctx context.Context) ([]*domain.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rounds []*domain.Round
	for _, round := range r.s.rounds {
		switch {
		case round.Status == domain.RoundStatusActive || round.Status == domain.RoundStatusExpired:
			rounds = append(rounds, cloneRound(round))
		case round.Mode == domain.RoundModeAuto && round.Status == domain.RoundStatusInactive:
			rounds = append(rounds, cloneRound(round))
		}
	}
	return rounds, nil
}

// FindReplacementSlot locates a live slot matching the configuration
func (r *RoundRepository) FindReplacementSlot(ctx context.Context, durationSeconds int, tierRestricted bool) (*domain.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var best *domain.Round
	for _, round := range r.s.rounds {
		if round.DurationSeconds != durationSeconds || round.TierRestricted != tierRestricted {
			continue
		}
		if round.Status != domain.RoundStatusActive {
			continue
		}
		if best == nil || round.StartTime.After(best.StartTime) {
			best = round
		}
	}
	if best == nil {
		return nil, domain.ErrRoundNotFound
	}
	return cloneRound(best), nil
}

// DeleteArchivedBefore garbage collects stale manual archived slots
func (r *RoundRepository) DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for id, round := range r.s.rounds {
		if round.Mode == domain.RoundModeManual &&
			round.Status == domain.RoundStatusInactive &&
			round.UpdatedAt.Before(cutoff) {
			delete(r.s.rounds, id)
			deleted++
		}
	}
	return deleted, nil
}
