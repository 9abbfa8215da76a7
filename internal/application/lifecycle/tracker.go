package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/avatarctic/catalog-service/internal/core/ports"
)

// ErrDraining is returned to work that arrives after shutdown has begun.
var ErrDraining = errors.New("service is shutting down")

// Tracker counts in-flight work and refuses new work once closed.
type Tracker struct {
	mu     sync.Mutex
	active int
	closed bool
	idle   chan struct{} // closed when active drops to zero after Close
}

func NewTracker() *Tracker {
	return &Tracker{idle: make(chan struct{})}
}

// Enter admits one unit of work.
func (t *Tracker) Enter() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrDraining
	}
	t.active++
	return nil
}

// Done releases a unit of work.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == 0 {
		return
	}
	t.active--
	if t.closed && t.active == 0 {
		t.signalIdle()
	}
}

// Go runs fn as tracked work. It is admitted even while draining because it
// is spawned by work that was already admitted.
func (t *Tracker) Go(fn func()) {
	t.mu.Lock()
	t.active++
	t.mu.Unlock()
	go func() {
		defer t.Done()
		fn()
	}()
}

// Close stops admission. It is safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.active == 0 {
		t.signalIdle()
	}
}

// Wait blocks until all admitted work has finished or ctx ends. Call after Close.
func (t *Tracker) Wait(ctx context.Context) error {
	select {
	case <-t.idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports the amount of in-flight work.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Tracker) signalIdle() {
	select {
	case <-t.idle:
	default:
		close(t.idle)
	}
}

var _ ports.WorkTracker = (*Tracker)(nil)
