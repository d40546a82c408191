package learner

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/device"
	"github.com/mattrek/alphazero-stochastic/internal/network"
	"github.com/mattrek/alphazero-stochastic/internal/rating"
	"github.com/mattrek/alphazero-stochastic/internal/replay"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
	"github.com/mattrek/alphazero-stochastic/internal/trajectory"
)

type noopEvaluator struct{}

func (noopEvaluator) ClearCache() {}
func (noopEvaluator) CacheSnapshot() (float64, int64, int64) { return 0, 0, 0 }

func TestLearnerRunsOneStep(t *testing.T) {
	net, err := network.New(network.ModelConfig{
		ObservationShape: [3]int{1, 1, 4},
		NNDepth:          1,
		NNWidth:          4,
		LearningRate:     0.01,
		WeightDecay:      1e-4,
		NNModel:          "mlp",
	})
	require.NoError(t, err)

	mgr := device.New()
	learnerDev := mgr.AddDevice("cpu", 8, net)

	dir := t.TempDir()
	tok := stoptoken.New()
	q := trajectory.NewQueue(4, tok)

	traj := &trajectory.Trajectory{
		States: []trajectory.TrajState{
			{Observation: []float64{0.1, 0.2, 0.3, 0.4}, CurrentPlayer: 0, ValueAfterAction: 0.2, AccumulatedLuckP0: 0},
			{Observation: []float64{0.2, 0.3, 0.4, 0.5}, CurrentPlayer: 1, ValueAfterAction: -0.1, AccumulatedLuckP0: 0.05},
		},
		Returns: []float64{1, -1},
	}
	require.NoError(t, q.Push(traj))

	cfg := Config{
		Path:              dir,
		ReplayBufferSize:  2,
		ReplayBufferReuse: 1,
		TrainBatchSize:    2,
		CheckpointFreq:    10,
		TDLambda:          0.5,
		TDNSteps:          0,
		PlayerCentric:     true,
	}

	buf := replay.New(cfg.ReplayBufferSize)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	l := New(cfg, q, buf, mgr, learnerDev, noopEvaluator{}, rating.NewRegistry(10), tok, logger.WithField("c", "t"), 0, 0, 0)
	require.NoError(t, l.runStep())
	require.Equal(t, 1, l.Step())
	require.Equal(t, 1, l.TotalTrajectories())
	require.Equal(t, 2, buf.Size())

	require.NoError(t, net.LoadCheckpoint(dir, network.LatestCheckpointStep))
	_ = filepath.Join(dir, "replay_buffer.data")
}
