package inference

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/device"
	"github.com/mattrek/alphazero-stochastic/internal/network"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

func newTestEvaluator(t *testing.T, batchSize int) (*Evaluator, *stoptoken.Token) {
	t.Helper()
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
	mgr.AddDevice("cpu", batchSize, net)

	tok := stoptoken.New()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	eval, err := New(Config{
		BatchSize: batchSize,
		MaxWait:   50 * time.Millisecond,
		Threads:   1,
		CacheSize: 1024,
	}, mgr, tok, logger.WithField("component", "test"))
	require.NoError(t, err)
	return eval, tok
}

// S5: 10 concurrent clients with distinct observations and batch_size=4
// must invoke the model ceil(10/4)=3 times.
func TestEvaluatorBatchesConcurrentRequests(t *testing.T) {
	eval, tok := newTestEvaluator(t, 4)
	defer tok.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obs := []float64{float64(i), float64(i) + 1, float64(i) + 2, float64(i) + 3}
			_, ok := eval.Evaluate(obs)
			require.True(t, ok)
		}(i)
	}
	wg.Wait()

	snap := eval.Counters().Snapshot()
	require.Equal(t, 3, snap.BatchCount)
}

// Invariant 6: two Evaluate calls with byte-equal observations return
// identical values within one step (the second is served from cache).
func TestEvaluatorCacheConsistency(t *testing.T) {
	eval, tok := newTestEvaluator(t, 1)
	defer tok.Stop()

	obs := []float64{0.1, 0.2, 0.3, 0.4}
	v1, ok := eval.Evaluate(obs)
	require.True(t, ok)
	v2, ok := eval.Evaluate(obs)
	require.True(t, ok)
	require.Equal(t, v1, v2)

	snap := eval.Counters().Snapshot()
	require.Equal(t, int64(1), snap.CacheHits)
}

func TestEvaluatorStopUnblocksWaiters(t *testing.T) {
	eval, tok := newTestEvaluator(t, 1000)
	go func() {
		time.Sleep(20 * time.Millisecond)
		tok.Stop()
	}()
	_, ok := eval.Evaluate([]float64{1, 2, 3, 4})
	require.False(t, ok)
}

// spec.md section 4.11: batch_size<=1 with a GPU learner device forces
// inference loans onto the CPU replica via PreferredDevice.
func TestEvaluatorHonorsPreferredDevice(t *testing.T) {
	gpuNet, err := network.New(network.ModelConfig{
		ObservationShape: [3]int{1, 1, 4},
		NNDepth:          1,
		NNWidth:          4,
		LearningRate:     0.01,
		WeightDecay:      1e-4,
		NNModel:          "mlp",
	})
	require.NoError(t, err)
	cpuNet, err := network.New(network.ModelConfig{
		ObservationShape: [3]int{1, 1, 4},
		NNDepth:          1,
		NNWidth:          4,
		LearningRate:     0.01,
		WeightDecay:      1e-4,
		NNModel:          "mlp",
	})
	require.NoError(t, err)

	mgr := device.New()
	gpuDev := mgr.AddDevice("gpu:0", 1, gpuNet)
	mgr.AddDevice("cpu", 1, cpuNet)
	mgr.SetLearning(gpuDev, true)

	tok := stoptoken.New()
	defer tok.Stop()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	eval, err := New(Config{
		BatchSize:       1,
		MaxWait:         50 * time.Millisecond,
		Threads:         1,
		CacheSize:       1024,
		PreferredDevice: "cpu",
	}, mgr, tok, logger.WithField("component", "test"))
	require.NoError(t, err)

	_, ok := eval.Evaluate([]float64{0.1, 0.2, 0.3, 0.4})
	require.True(t, ok)
}
