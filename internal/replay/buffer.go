// Package replay implements the bounded circular sample buffer from
// spec.md section 4.6, grounded in janpfeifer-hiveGo's LabeledBoards
// rotating-append buffer and timpalpant-alphacats's gob-persisted
// training sample store.
package replay

import (
	"encoding/gob"
	"math/rand"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Sample is spec.md section 3's ReplaySample: an observation paired
// with its luck-adjusted TD(lambda) scalar target.
type Sample struct {
	Observation []float64
	Target      float64
}

// Buffer is a fixed-capacity circular FIFO over Sample, safe for
// concurrent use by the learner.
type Buffer struct {
	mu         sync.Mutex
	data       []Sample
	capacity   int
	next       int // next write index
	size       int // number of live entries, <= capacity
	totalAdded int64
}

// New returns an empty buffer with the given capacity.
func New(capacity int) *Buffer {
	return &Buffer{
		data:     make([]Sample, capacity),
		capacity: capacity,
	}
}

// Add inserts one sample, overwriting the oldest entry once the
// buffer is full.
func (b *Buffer) Add(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[b.next] = s
	b.next = (b.next + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	b.totalAdded++
}

// Size returns the number of live entries: min(total_added, capacity).
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// TotalAdded returns the lifetime count of Add calls.
func (b *Buffer) TotalAdded() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalAdded
}

// Sample draws n samples uniformly with replacement from the live
// entries.
func (b *Buffer) Sample(rng *rand.Rand, n int) []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = b.data[rng.Intn(b.size)]
	}
	return out
}

// persisted is the gob-serializable snapshot used by Save/Load.
type persisted struct {
	Data       []Sample
	Capacity   int
	Next       int
	Size       int
	TotalAdded int64
}

// Save writes the buffer to path, called by the learner every step so
// crash-resume is lossless (spec.md section 4.6).
func (b *Buffer) Save(path string) error {
	b.mu.Lock()
	snap := persisted{
		Data:       append([]Sample{}, b.data...),
		Capacity:   b.capacity,
		Next:       b.next,
		Size:       b.size,
		TotalAdded: b.totalAdded,
	}
	b.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "replay: create")
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return errors.Wrap(err, "replay: encode")
	}
	return nil
}

// Load replaces the buffer's contents with the snapshot at path.
func (b *Buffer) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "replay: open")
	}
	defer f.Close()
	var snap persisted
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return errors.Wrap(err, "replay: decode")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = snap.Data
	b.capacity = snap.Capacity
	b.next = snap.Next
	b.size = snap.Size
	b.totalAdded = snap.TotalAdded
	return nil
}
