// Package stoptoken implements the single cooperative cancellation signal
// shared by every long-running loop in the training pipeline: actors,
// evaluators, the learner, and the inference service all poll the same
// token in their loop headers, per spec.md section 5.
package stoptoken

import (
	"context"
	"sync"
)

// Token is a cooperative stop signal. It is cheap to poll (Stopped) and
// cheap to wait on (Done), and Stop is idempotent so any thread may call
// it without coordination.
type Token struct {
	mu   sync.Mutex
	done chan struct{}
	ctx  context.Context
	fire context.CancelFunc
}

// New returns an unfired token.
func New() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{
		done: make(chan struct{}),
		ctx:  ctx,
		fire: cancel,
	}
}

// Stop fires the token. Safe to call more than once and from any goroutine.
func (t *Token) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		// already stopped
	default:
		close(t.done)
		t.fire()
	}
}

// Stopped reports whether Stop has been called.
func (t *Token) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that closes when Stop is called, for use in
// select statements and as the `done <-chan struct{}` argument expected
// by channerics fan-in/fan-out helpers.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Context returns a context.Context that is canceled when Stop is called,
// for passing to blocking calls that accept one.
func (t *Token) Context() context.Context {
	return t.ctx
}
