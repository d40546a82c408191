package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testModelConfig(nnModel string) ModelConfig {
	return ModelConfig{
		ObservationShape: [3]int{1, 1, 4},
		NNDepth:          2,
		NNWidth:          6,
		LearningRate:     0.01,
		WeightDecay:      1e-4,
		NNModel:          nnModel,
	}
}

func TestNewRejectsUnknownModel(t *testing.T) {
	_, err := New(testModelConfig("transformer"))
	require.Error(t, err)
}

func TestNewConstructsBothArchitectures(t *testing.T) {
	for _, name := range []string{"mlp", "resnet"} {
		net, err := New(testModelConfig(name))
		require.NoError(t, err)
		require.NotNil(t, net)
		require.Equal(t, name, net.Config().NNModel)
	}
}

func trainAFew(t *testing.T, net Net, steps int) {
	t.Helper()
	batch := [][]float64{{0.1, -0.2, 0.3, 0.4}, {-0.1, 0.2, -0.3, -0.4}}
	targets := []float64{0.5, -0.5}
	for i := 0; i < steps; i++ {
		net.Train(batch, targets)
	}
}

// Crash-resume must be lossless: a reloaded checkpoint reproduces the
// exact same forward output as the network that saved it, for both
// nn_model variants.
func TestCheckpointRoundTripMLP(t *testing.T) {
	cfg := testModelConfig("mlp")
	net, err := New(cfg)
	require.NoError(t, err)
	trainAFew(t, net, 3)

	batch := [][]float64{{1, 2, 3, 4}, {0.5, -0.5, 0.25, -0.25}}
	want := net.Forward(batch)

	dir := t.TempDir()
	require.NoError(t, net.SaveCheckpoint(dir, LatestCheckpointStep))

	reloaded, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadCheckpoint(dir, LatestCheckpointStep))

	got := reloaded.Forward(batch)
	require.InDeltaSlice(t, want, got, 1e-9)
}

func TestCheckpointRoundTripResNet(t *testing.T) {
	cfg := testModelConfig("resnet")
	net, err := New(cfg)
	require.NoError(t, err)
	trainAFew(t, net, 3)

	batch := [][]float64{{1, 2, 3, 4}, {0.5, -0.5, 0.25, -0.25}}
	want := net.Forward(batch)

	dir := t.TempDir()
	require.NoError(t, net.SaveCheckpoint(dir, LatestCheckpointStep))

	reloaded, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadCheckpoint(dir, LatestCheckpointStep))

	got := reloaded.Forward(batch)
	require.InDeltaSlice(t, want, got, 1e-9)
}

func TestResNetCheckpointRejectsShapeMismatch(t *testing.T) {
	net, err := New(testModelConfig("resnet"))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, net.SaveCheckpoint(dir, LatestCheckpointStep))

	other, err := New(ModelConfig{
		ObservationShape: [3]int{1, 1, 4},
		NNDepth:          1,
		NNWidth:          3,
		LearningRate:     0.01,
		WeightDecay:      1e-4,
		NNModel:          "resnet",
	})
	require.NoError(t, err)
	require.Error(t, other.LoadCheckpoint(dir, LatestCheckpointStep))
}

func TestConfigMarshalRoundTrip(t *testing.T) {
	cfg := testModelConfig("resnet")
	parsed, err := ParseModelConfig(cfg.Marshal())
	require.NoError(t, err)
	require.Equal(t, cfg, parsed)
}
