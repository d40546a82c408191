// Package inference implements the batched, cached value-evaluation
// service described in spec.md section 4.4: callers enqueue a request
// and block until a pool of worker threads fills a batch (or a
// deadline passes), invokes the model once, and wakes every waiter.
package inference

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/mattrek/alphazero-stochastic/internal/device"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

// Counters are the observed statistics that feed into the learner's log
// record: batch sizes and cache hit/miss counts. Snapshot reports the
// batch sizes as a mean and a batch count; no histogram is reported.
type Counters struct {
	mu          sync.Mutex
	batchSizes  []int
	cacheHits   int64
	cacheMisses int64
}

func (c *Counters) recordBatch(n int) {
	c.mu.Lock()
	c.batchSizes = append(c.batchSizes, n)
	c.mu.Unlock()
}

func (c *Counters) recordHit()  { c.mu.Lock(); c.cacheHits++; c.mu.Unlock() }
func (c *Counters) recordMiss() { c.mu.Lock(); c.cacheMisses++; c.mu.Unlock() }

// Snapshot is an immutable copy of the counters for logging.
type Snapshot struct {
	MeanBatchSize float64
	BatchCount    int
	CacheHits     int64
	CacheMisses   int64
}

// Snapshot returns the current counter values and resets the
// batch-size history (the learner log record covers one step's worth).
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{BatchCount: len(c.batchSizes), CacheHits: c.cacheHits, CacheMisses: c.cacheMisses}
	sum := 0
	for _, b := range c.batchSizes {
		sum += b
	}
	if len(c.batchSizes) > 0 {
		snap.MeanBatchSize = float64(sum) / float64(len(c.batchSizes))
	}
	c.batchSizes = nil
	return snap
}

// request is one caller's enqueued observation, paired with a channel
// the batching thread signals once a result (or cancellation) exists.
type request struct {
	key    string
	obs    []float64
	result chan float64
}

// Evaluator serves Evaluate(observation) -> value to any number of
// concurrent callers, batching, caching, and respecting the shared
// stop token (spec.md section 4.4).
type Evaluator struct {
	batchSize       int
	maxWait         time.Duration
	threads         int
	loanBatch       int
	preferredDevice string
	devices         *device.Manager
	stop            *stoptoken.Token
	log             *logrus.Entry
	counters        Counters

	cache *lru.Cache[string, float64]

	mu      sync.Mutex
	pending []request
	notify  chan struct{}
}

// Config controls batching and cache behavior.
type Config struct {
	BatchSize       int
	MaxWait         time.Duration
	Threads         int
	CacheSize       int
	PreferredDevice string
}

// New constructs an Evaluator backed by devices, starting Config.Threads
// worker goroutines that stop when tok fires.
func New(cfg Config, devices *device.Manager, tok *stoptoken.Token, log *logrus.Entry) (*Evaluator, error) {
	cache, err := lru.New[string, float64](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	e := &Evaluator{
		batchSize:       cfg.BatchSize,
		maxWait:         cfg.MaxWait,
		threads:         cfg.Threads,
		loanBatch:       cfg.BatchSize,
		preferredDevice: cfg.PreferredDevice,
		devices:         devices,
		stop:            tok,
		log:             log,
		cache:           cache,
		notify:          make(chan struct{}, 1),
	}
	for i := 0; i < cfg.Threads; i++ {
		go e.loop(i)
	}
	return e, nil
}

// ClearCache drops all cached entries. Called by the learner after
// every training step so new weights aren't masked by stale hits
// (spec.md section 4.4).
func (e *Evaluator) ClearCache() {
	e.cache.Purge()
}

// Counters exposes the observed batching/cache statistics.
func (e *Evaluator) Counters() *Counters { return &e.counters }

// CacheSnapshot reports the current batching/cache statistics for the
// learner's structured log record (spec.md section 4.10).
func (e *Evaluator) CacheSnapshot() (meanBatchSize float64, hits, misses int64) {
	s := e.counters.Snapshot()
	return s.MeanBatchSize, s.CacheHits, s.CacheMisses
}

// observationKey hashes an observation into a stable cache key: cache
// keys are stable under bitwise observation equality (spec.md section
// 4.4 invariant), so the key is the raw float64 bit pattern, not a
// lossy approximation.
func observationKey(obs []float64) string {
	buf := make([]byte, 8*len(obs))
	for i, v := range obs {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return string(buf)
}

// Evaluate blocks until the observation has been scored, either from
// cache or from a completed batch, or until the stop token fires (in
// which case it returns false).
func (e *Evaluator) Evaluate(obs []float64) (float64, bool) {
	key := observationKey(obs)
	if v, ok := e.cache.Get(key); ok {
		e.counters.recordHit()
		return v, true
	}
	e.counters.recordMiss()

	req := request{key: key, obs: obs, result: make(chan float64, 1)}
	e.mu.Lock()
	e.pending = append(e.pending, req)
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}

	select {
	case v, ok := <-req.result:
		return v, ok
	case <-e.stop.Done():
		return 0, false
	}
}

// loop is one inference worker thread: repeatedly drains up to
// batchSize pending requests (waiting at most maxWait for the batch to
// fill), invokes the model once, and wakes every waiting caller.
func (e *Evaluator) loop(id int) {
	for {
		select {
		case <-e.stop.Done():
			e.drainOnStop()
			return
		default:
		}

		batch := e.collectBatch()
		if len(batch) == 0 {
			continue
		}
		e.runBatch(batch)
	}
}

func (e *Evaluator) collectBatch() []request {
	deadline := time.NewTimer(e.maxWait)
	defer deadline.Stop()

	for {
		e.mu.Lock()
		if len(e.pending) >= e.batchSize {
			batch := e.pending[:e.batchSize]
			e.pending = e.pending[e.batchSize:]
			e.mu.Unlock()
			return batch
		}
		e.mu.Unlock()

		select {
		case <-e.notify:
		case <-deadline.C:
			e.mu.Lock()
			if len(e.pending) == 0 {
				e.mu.Unlock()
				return nil
			}
			n := len(e.pending)
			if n > e.batchSize {
				n = e.batchSize
			}
			batch := e.pending[:n]
			e.pending = e.pending[n:]
			e.mu.Unlock()
			return batch
		case <-e.stop.Done():
			return nil
		}
	}
}

func (e *Evaluator) runBatch(batch []request) {
	obsBatch := make([][]float64, len(batch))
	for i, r := range batch {
		obsBatch[i] = r.obs
	}

	loan, err := e.devices.Get(e.loanBatch, e.preferredDevice)
	if err != nil {
		e.log.WithError(err).Warn("inference: no device available, dropping batch")
		for _, r := range batch {
			close(r.result)
		}
		return
	}
	defer loan.Close()

	values := loan.Net().Forward(obsBatch)
	e.counters.recordBatch(len(batch))

	for i, r := range batch {
		e.cache.Add(r.key, values[i])
		r.result <- values[i]
	}
}

func (e *Evaluator) drainOnStop() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, r := range pending {
		close(r.result)
	}
}
