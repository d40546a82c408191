package replay

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Invariant 7: after k adds with capacity C, size = min(k,C) and
// total_added = k; save then load yields an equal buffer.
func TestBufferSizeAndTotalAdded(t *testing.T) {
	b := New(5)
	for i := 0; i < 8; i++ {
		b.Add(Sample{Observation: []float64{float64(i)}, Target: float64(i) / 10})
	}
	require.Equal(t, 5, b.Size())
	require.Equal(t, int64(8), b.TotalAdded())
}

func TestBufferSaveLoadRoundTrip(t *testing.T) {
	b := New(4)
	for i := 0; i < 6; i++ {
		b.Add(Sample{Observation: []float64{float64(i), float64(i) * 2}, Target: 0.5})
	}
	path := filepath.Join(t.TempDir(), "replay_buffer.data")
	require.NoError(t, b.Save(path))

	loaded := New(1)
	require.NoError(t, loaded.Load(path))
	require.Equal(t, b.Size(), loaded.Size())
	require.Equal(t, b.TotalAdded(), loaded.TotalAdded())
}

func TestBufferSampleUniform(t *testing.T) {
	b := New(3)
	b.Add(Sample{Target: 1})
	b.Add(Sample{Target: 2})
	b.Add(Sample{Target: 3})
	rng := rand.New(rand.NewSource(1))
	out := b.Sample(rng, 10)
	require.Len(t, out, 10)
}
