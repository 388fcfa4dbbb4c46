// Package engine implements the winner selection algorithm for the
// prediction game.
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Selector picks the winning card from per-card stake volumes. The house
// favors the card with the least total stake, minimizing payout
// liability ("smart winner"). Ties, and empty rounds, fall back to a
// uniform random pick.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector creates a selector seeded from the clock
func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource creates a selector with an injected random source
// so tests can fix the sequence.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

// Pick returns the winning card index for the given volumes.
//
//   - argmin over volumes: the least-staked card wins
//   - tie between minimal cards: uniform among the tied candidates
//   - zero total volume: uniform among all cards
func (s *Selector) Pick(volumes []int64) (int, error) {
	if len(volumes) == 0 {
		return 0, fmt.Errorf("no cards to pick from")
	}

	var total int64
	for i, v := range volumes {
		if v < 0 {
			return 0, fmt.Errorf("negative volume %d on card %d", v, i)
		}
		total += v
	}

	if total == 0 {
		return s.intn(len(volumes)), nil
	}

	min := volumes[0]
	for _, v := range volumes[1:] {
		if v < min {
			min = v
		}
	}

	candidates := make([]int, 0, len(volumes))
	for i, v := range volumes {
		if v == min {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return candidates[s.intn(len(candidates))], nil
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
