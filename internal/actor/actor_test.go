package actor

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

func TestActorPlaysAndPublishesTrajectory(t *testing.T) {
	stop := stoptoken.New()
	cfg := Config{
		Search: mcts.Config{
			UCTC:           1.4,
			MinSimulations: 4,
			MaxSimulations: 8,
		},
		Temperature:       1.0,
		TemperatureDrop:   0,
		CutoffProbability: 0,
		CutoffValue:       0.99,
	}
	log := logrus.New()
	a := New(0, cfg, newBackgammon, constEval{v: 0.05}, stop, log.WithField("test", "actor"))

	go a.Run()

	select {
	case traj := <-a.Output():
		require.NotNil(t, traj)
		require.NotEmpty(t, traj.States)
		require.Len(t, traj.Returns, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("actor did not publish a trajectory in time")
	}
	stop.Stop()
}

func TestActorStopsOnToken(t *testing.T) {
	stop := stoptoken.New()
	cfg := Config{
		Search: mcts.Config{UCTC: 1.4, MinSimulations: 2, MaxSimulations: 4},
		Temperature:       1.0,
		CutoffProbability: 0,
	}
	log := logrus.New()
	a := New(1, cfg, newBackgammon, constEval{v: 0.0}, stop, log.WithField("test", "actor"))

	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()

	stop.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("actor did not stop after token fired")
	}
}
