package crawler

import (
	"context"
	"sync"
	"time"
)

// pauseWaitTimeout bounds every wait on the latch so a coordinator bug can
// never strand a worker forever.
const pauseWaitTimeout = 300 * time.Second

// PauseLatch is the level-triggered signal that gates all workers. Set means
// run; Clear suspends every worker at its next wait point. Waking is a
// broadcast: setting the latch releases all waiters at once.
type PauseLatch struct {
	mu sync.Mutex
	ch chan struct{} // closed while the latch is set
}

// NewPauseLatch returns a latch in the set (running) state.
func NewPauseLatch() *PauseLatch {
	ch := make(chan struct{})
	close(ch)
	return &PauseLatch{ch: ch}
}

// Set releases all waiters. Idempotent.
func (l *PauseLatch) Set() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
	default:
		close(l.ch)
	}
}

// Clear pauses the fleet: the next Wait call suspends. Idempotent.
func (l *PauseLatch) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
		l.ch = make(chan struct{})
	default:
	}
}

// IsSet reports whether the latch is in the running state.
func (l *PauseLatch) IsSet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the latch is set, the context ends, or the safety
// timeout expires. Returns false only on timeout; the caller logs and
// proceeds without mutating the latch, which stays the coordinator's job.
func (l *PauseLatch) Wait(ctx context.Context) bool {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()

	timer := time.NewTimer(pauseWaitTimeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
