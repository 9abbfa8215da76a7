package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/catalog-service/internal/core/ports"
)

// State is the coordinator's position in Running → Draining → Closed.
type State int32

const (
	Running State = iota
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ShutdownError reports every resource that failed to drain or close.
type ShutdownError struct {
	Errors *multierror.Error
}

func (e *ShutdownError) Error() string { return "shutdown incomplete: " + e.Errors.Error() }
func (e *ShutdownError) Unwrap() error { return e.Errors.ErrorOrNil() }

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Coordinator drains live work and then closes pooled resources concurrently.
type Coordinator struct {
	logger *logrus.Logger
	budget time.Duration

	mu      sync.Mutex
	state   State
	drains  []hook
	closers []hook
	done    chan struct{}
	result  error
}

// NewCoordinator creates a coordinator whose whole sequence is bounded by budget.
func NewCoordinator(budget time.Duration, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{logger: logger, budget: budget, done: make(chan struct{})}
}

// OnDrain registers a step run sequentially, in order, before any resource is closed.
func (c *Coordinator) OnDrain(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drains = append(c.drains, hook{name: name, fn: fn})
}

// OnClose registers a resource closed concurrently with the others.
func (c *Coordinator) OnClose(closer ports.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, hook{name: closer.Name(), fn: closer.Close})
}

// DrainTracker stops admission on t and waits for its in-flight work.
func (c *Coordinator) DrainTracker(name string, t *Tracker) {
	c.OnDrain(name, func(ctx context.Context) error {
		t.Close()
		return t.Wait(ctx)
	})
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Shutdown runs the drain and close sequence exactly once. Concurrent and later
// callers wait for that single run and get its result.
func (c *Coordinator) Shutdown(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		c.logger.WithField("reason", reason).Debug("shutdown already in progress")
		select {
		case <-c.done:
			return c.result
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.state = Draining
	drains := append([]hook(nil), c.drains...)
	closers := append([]hook(nil), c.closers...)
	c.mu.Unlock()

	start := time.Now()
	c.logger.WithField("reason", reason).Info("shutting down")

	if c.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	var merr *multierror.Error
	for _, d := range drains {
		if err := d.fn(ctx); err != nil {
			c.logger.WithError(err).WithField("step", d.name).Error("drain step failed")
			merr = multierror.Append(merr, fmt.Errorf("drain %s: %w", d.name, err))
		}
	}

	merr = multierror.Append(merr, c.closeAll(ctx, closers).Errors...)

	var result error
	if merr.ErrorOrNil() != nil {
		result = &ShutdownError{Errors: merr}
	}

	c.mu.Lock()
	c.state = Closed
	c.result = result
	close(c.done)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"elapsed": time.Since(start).String(), "clean": result == nil}).Info("shutdown complete")
	return result
}

// closeAll issues every close at once and waits for all of them, failed or not.
func (c *Coordinator) closeAll(ctx context.Context, closers []hook) *multierror.Error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		merr = &multierror.Error{}
	)
	for _, h := range closers {
		wg.Add(1)
		go func(h hook) {
			defer wg.Done()
			err := safeClose(ctx, h)
			if err != nil {
				c.logger.WithError(err).WithField("resource", h.name).Error("resource failed to close")
				mu.Lock()
				merr = multierror.Append(merr, fmt.Errorf("close %s: %w", h.name, err))
				mu.Unlock()
				return
			}
			c.logger.WithField("resource", h.name).Info("resource closed")
		}(h)
	}
	wg.Wait()
	return merr
}

func safeClose(ctx context.Context, h hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx)
}

// CloserFunc adapts a function to ports.Closer.
type CloserFunc struct {
	ResourceName string
	Fn           func(ctx context.Context) error
}

func (f CloserFunc) Name() string                    { return f.ResourceName }
func (f CloserFunc) Close(ctx context.Context) error { return f.Fn(ctx) }
