package trajectory

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

// pushTimeout is the fixed push deadline from spec.md section 4.8
// ("Push the Trajectory onto the trajectory queue with a 10-second
// timeout; on timeout, log and retry").
const pushTimeout = 10 * time.Second

// ErrBlocked is returned by Push once the queue has been told to stop
// accepting new values (spec.md section 5: "block_new_values").
var ErrBlocked = errors.New("trajectory: queue no longer accepts new values")

// Queue is the bounded, cancellable producer/consumer channel between
// actors and the learner (spec.md section 2 and section 5).
type Queue struct {
	ch      chan *Trajectory
	blocked chan struct{}
	stop    *stoptoken.Token
}

// NewQueue returns a queue with the given buffer capacity.
func NewQueue(capacity int, stop *stoptoken.Token) *Queue {
	return &Queue{
		ch:      make(chan *Trajectory, capacity),
		blocked: make(chan struct{}),
		stop:    stop,
	}
}

// Push enqueues t, waiting up to 10s for room. FanIn, which pushes on
// the actors' behalf, retries on a timeout error.
func (q *Queue) Push(t *Trajectory) error {
	select {
	case <-q.blocked:
		return ErrBlocked
	default:
	}

	timer := time.NewTimer(pushTimeout)
	defer timer.Stop()

	select {
	case q.ch <- t:
		return nil
	case <-timer.C:
		return errors.New("trajectory: push timed out after 10s")
	case <-q.blocked:
		return ErrBlocked
	case <-q.stop.Done():
		return ErrBlocked
	}
}

// Pop waits for a trajectory or for the stop token to fire.
func (q *Queue) Pop() (*Trajectory, bool) {
	select {
	case t := <-q.ch:
		return t, true
	case <-q.stop.Done():
		select {
		case t := <-q.ch:
			return t, true
		default:
			return nil, false
		}
	}
}

// BlockNewValues stops the queue from accepting further Push calls,
// unblocking any producer waiting in Push (spec.md section 5).
func (q *Queue) BlockNewValues() {
	select {
	case <-q.blocked:
	default:
		close(q.blocked)
	}
}

// Clear drains and discards any trajectories still buffered, for
// shutdown (spec.md section 5: "expose block_new_values() and clear()
// to unblock producers on shutdown").
func (q *Queue) Clear() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}

// Len reports the number of trajectories currently buffered.
func (q *Queue) Len() int { return len(q.ch) }
