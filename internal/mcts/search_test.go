package mcts

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/backgammon"
)

type constEval struct{ v float64 }

func (c constEval) Evaluate(obs []float64) (float64, bool) { return c.v, true }

func newTestSearch(t *testing.T) *Search {
	t.Helper()
	state := backgammon.NewInitialState(backgammon.DefaultConfig())
	cfg := Config{
		UCTC:           1.4,
		MinSimulations: 20,
		MaxSimulations: 40,
		MaxMemoryMB:    0,
		Rand:           rand.New(rand.NewSource(7)),
	}
	return NewSearch(cfg, state, constEval{v: 0.1})
}

func TestSearchRunsAndExpandsRoot(t *testing.T) {
	s := newTestSearch(t)
	n := s.Run()
	require.GreaterOrEqual(t, n, s.cfg.MinSimulations)
	require.True(t, s.Root().IsExpanded())
}

func TestChanceNodeChildPriorsSumToOne(t *testing.T) {
	s := newTestSearch(t)
	s.Run()
	// The initial backgammon state is a chance node (opening roll); its
	// children's priors must sum to 1, matching the SearchNode invariant
	// from spec.md section 3.
	sum := 0.0
	for _, c := range s.Root().Children {
		sum += c.Prior
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestSelectActionTemperatureDrop(t *testing.T) {
	s := newTestSearch(t)
	s.Run()
	chosen := s.SelectAction(100, 1.0, 0)
	require.NotNil(t, chosen)
	require.Equal(t, mostVisited(s.Root().Children), chosen)
}
