package trajectory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

func TestFanInMergesActorChannels(t *testing.T) {
	stop := stoptoken.New()
	q := NewQueue(4, stop)

	a := make(chan *Trajectory, 1)
	b := make(chan *Trajectory, 1)
	FanIn(stop, q, a, b)

	ta := &Trajectory{Returns: []float64{1, -1}}
	tb := &Trajectory{Returns: []float64{-1, 1}}
	a <- ta
	b <- tb

	seen := map[*Trajectory]bool{}
	for i := 0; i < 2; i++ {
		select {
		case got, ok := <-q.ch:
			require.True(t, ok)
			seen[got] = true
		case <-time.After(2 * time.Second):
			t.Fatal("fan-in did not forward both trajectories in time")
		}
	}
	require.True(t, seen[ta])
	require.True(t, seen[tb])

	stop.Stop()
	close(a)
	close(b)
}
