package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickMinimumVolume(t *testing.T) {
	s := NewSelectorWithSource(rand.NewSource(1))

	cases := []struct {
		name    string
		volumes []int64
		want    int
	}{
		{"second card lighter", []int64{30, 10}, 1},
		{"first card lighter", []int64{10, 30}, 0},
		{"one sided round", []int64{0, 50}, 0},
		{"three cards", []int64{40, 20, 60}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Pick(tc.volumes)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPickTieIsRoughlyUniform(t *testing.T) {
	s := NewSelectorWithSource(rand.NewSource(42))

	counts := make(map[int]int)
	const trials = 10000
	for i := 0; i < trials; i++ {
		got, err := s.Pick([]int64{20, 20})
		require.NoError(t, err)
		counts[got]++
	}

	assert.Len(t, counts, 2, "both tied cards should win sometimes")
	for idx, n := range counts {
		assert.InDelta(t, trials/2, n, trials/10, "card %d win count far from uniform", idx)
	}
}

func TestPickEmptyRoundIsRoughlyUniform(t *testing.T) {
	s := NewSelectorWithSource(rand.NewSource(7))

	counts := make(map[int]int)
	const trials = 10000
	for i := 0; i < trials; i++ {
		got, err := s.Pick([]int64{0, 0})
		require.NoError(t, err)
		counts[got]++
	}

	assert.Len(t, counts, 2)
	for idx, n := range counts {
		assert.InDelta(t, trials/2, n, trials/10, "card %d win count far from uniform", idx)
	}
}

func TestPickRejectsBadInput(t *testing.T) {
	s := NewSelectorWithSource(rand.NewSource(1))

	_, err := s.Pick(nil)
	assert.Error(t, err)

	_, err = s.Pick([]int64{10, -5})
	assert.Error(t, err)
}

func TestPickDeterministicWithFixedSource(t *testing.T) {
	a := NewSelectorWithSource(rand.NewSource(99))
	b := NewSelectorWithSource(rand.NewSource(99))

	for i := 0; i < 100; i++ {
		got1, err1 := a.Pick([]int64{5, 5, 5})
		got2, err2 := b.Pick([]int64{5, 5, 5})
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, got1, got2)
	}
}
