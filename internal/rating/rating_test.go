package rating

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/backgammon"
	"github.com/mattrek/alphazero-stochastic/internal/game"
	"github.com/mattrek/alphazero-stochastic/internal/mcts"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

type constEval struct{ v float64 }

func (c constEval) Evaluate(obs []float64) (float64, bool) { return c.v, true }

func newBackgammon() game.State {
	return backgammon.NewInitialState(backgammon.DefaultConfig())
}

func TestRegistryRecordAndMean(t *testing.T) {
	r := NewRegistry(3)
	r.Record(0, 1.0)
	r.Record(0, -1.0)
	r.Record(0, 1.0)
	r.Record(0, -1.0) // evicts the first 1.0
	require.InDelta(t, -1.0/3.0, r.Mean(0), 1e-9)
}

func TestRegistryMeansSnapshot(t *testing.T) {
	r := NewRegistry(10)
	r.Record(0, 1.0)
	r.Record(1, -1.0)
	means := r.Means()
	require.InDelta(t, 1.0, means[0], 1e-9)
	require.InDelta(t, -1.0, means[1], 1e-9)
}

func TestEvaluatorPlaysOneGameAndStopsOnToken(t *testing.T) {
	stop := stoptoken.New()
	registry := NewRegistry(10)
	cfg := Config{
		Search: mcts.Config{
			UCTC:           1.4,
			MinSimulations: 2,
			MaxSimulations: 4,
		},
		DifficultyLevels: 2,
		BaseSimulations:  2,
	}
	log := logrus.New()
	e := New(0, cfg, newBackgammon, constEval{v: 0.1}, registry, stop, log.WithField("test", "rating"))

	ret, ok := e.playOne(0, true)
	require.True(t, ok)
	// A backgammon game scores 1, 2 (gammon) or 3 (backgammon) points.
	require.GreaterOrEqual(t, ret, -3.0)
	require.LessOrEqual(t, ret, 3.0)

	// Run must return promptly once the stop token has already fired.
	stop.Stop()
	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("evaluator did not stop after token fired")
	}
}
