package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/network"
)

func testNet(t *testing.T) network.Net {
	t.Helper()
	n, err := network.New(network.ModelConfig{
		ObservationShape: [3]int{1, 1, 4},
		NNDepth:          1,
		NNWidth:          4,
		LearningRate:     0.01,
		WeightDecay:      1e-4,
		NNModel:          "mlp",
	})
	require.NoError(t, err)
	return n
}

func TestManagerExcludesLearningDevice(t *testing.T) {
	m := New()
	learner := m.AddDevice("gpu:0", 8, testNet(t))
	m.AddDevice("cpu", 8, testNet(t))
	require.Equal(t, 2, m.Count())

	m.SetLearning(learner, true)
	loan, err := m.Get(8, "")
	require.NoError(t, err)
	require.NotEqual(t, learner, loan.dev)
	loan.Close()

	m.SetLearning(learner, false)
	_, err = m.Get(8, "")
	require.NoError(t, err)
}

func TestManagerAllLearningErrors(t *testing.T) {
	m := New()
	d := m.AddDevice("gpu:0", 8, testNet(t))
	m.SetLearning(d, true)
	_, err := m.Get(8, "")
	require.Error(t, err)
}

// Invariant 8 (weight coherence): after the learner saves a "latest"
// checkpoint, BroadcastReload must bring every other replica's weights
// back in sync with it, and must never touch the excluded device.
func TestBroadcastReloadKeepsWeightsCoherent(t *testing.T) {
	dir := t.TempDir()
	m := New()
	learnerNet := testNet(t)
	learner := m.AddDevice("gpu:0", 8, learnerNet)
	other := m.AddDevice("cpu", 8, testNet(t))

	require.NoError(t, learnerNet.SaveCheckpoint(dir, network.LatestCheckpointStep))

	require.NoError(t, m.BroadcastReload(dir, learner))

	learnerOut := learnerNet.Forward([][]float64{{0.1, 0.2, 0.3, 0.4}})
	otherOut := other.Net.Forward([][]float64{{0.1, 0.2, 0.3, 0.4}})
	require.InDelta(t, learnerOut[0], otherOut[0], 1e-9)
}
