// Package lifecycle coordinates startup hooks, shutdown hooks, and readiness
// across the service's subsystems.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker reports whether a subsystem can serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// ReadinessFunc adapts a function to ReadinessChecker.
type ReadinessFunc func() bool

func (f ReadinessFunc) Ready() bool { return f() }

// StartupPending is reported by Pending until WaitForStartup returns.
const StartupPending = "startup"

type check struct {
	name    string
	checker ReadinessChecker
}

// Coordinator runs startup hooks concurrently, holds the context that
// shutdown hooks wait on, and aggregates named readiness checks.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup  sync.WaitGroup
	shutdown sync.WaitGroup

	mu      sync.RWMutex
	started bool
	checks  []check
}

func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn in its own goroutine. WaitForStartup blocks until every
// startup hook returns.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// OnShutdown runs fn in its own goroutine. fn must block on
// <-c.Context().Done() before cleaning up.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdown.Go(fn)
}

// AddReadiness registers a named check consulted by Ready and Pending.
func (c *Coordinator) AddReadiness(name string, checker ReadinessChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name, checker})
}

// Pending names what is not yet ready, in registration order. Before
// startup completes it reports StartupPending first.
func (c *Coordinator) Pending() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	if !c.started {
		out = append(out, StartupPending)
	}
	for _, ch := range c.checks {
		if !ch.checker.Ready() {
			out = append(out, ch.name)
		}
	}
	return out
}

// Ready reports whether startup has completed and every check passes.
func (c *Coordinator) Ready() bool {
	return len(c.Pending()) == 0
}

// WaitForStartup blocks until the startup hooks finish.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// Shutdown cancels the context and waits up to timeout for the shutdown
// hooks to return.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdown.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown hooks still running after %v", timeout)
	}
}
