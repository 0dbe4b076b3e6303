// Package keepalive reference-counts in-flight work and holds an elevated
// execution guard while the count is above zero.
package keepalive

import (
	"context"
	"log/slog"
	"sync"
)

type Coordinator struct {
	mu      sync.Mutex
	count   int
	active  bool
	guard   Guard
	perms   PermissionRequester
	logger  *slog.Logger
	onCount func(int)
}

type Option func(*Coordinator)

// WithPermissionRequester makes the 0->1 transition ask for permission first;
// a denial leaves the coordinator running without a guard.
func WithPermissionRequester(p PermissionRequester) Option {
	return func(c *Coordinator) { c.perms = p }
}

// WithCountObserver is called with the new count after every change, under
// the coordinator's lock. It must not call back into the coordinator.
func WithCountObserver(fn func(int)) Option {
	return func(c *Coordinator) { c.onCount = fn }
}

func NewCoordinator(guard Guard, logger *slog.Logger, opts ...Option) *Coordinator {
	if guard == nil {
		guard = NoopGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{guard: guard, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire registers one in-flight task and starts the guard on 0->1.
// Failure to obtain the guard is not an error: work proceeds unprotected.
func (c *Coordinator) Acquire(ctx context.Context, taskName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	c.notify()
	if c.count != 1 {
		return
	}

	if c.perms != nil {
		granted, err := c.perms.EnsurePermission(ctx)
		if err != nil || !granted {
			c.logger.WarnContext(ctx, "keep-alive permission unavailable, continuing without it",
				"task", taskName, "error", err)
			return
		}
	}
	if err := c.guard.Start(ctx); err != nil {
		c.logger.WarnContext(ctx, "keep-alive guard could not start, continuing without it",
			"task", taskName, "error", err)
		return
	}
	c.active = true
	c.logger.DebugContext(ctx, "keep-alive started", "task", taskName)
}

// Release drops one in-flight task and stops the guard on 1->0. A release
// without a matching acquire is ignored.
func (c *Coordinator) Release(ctx context.Context, taskName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		c.logger.WarnContext(ctx, "keep-alive release without acquire", "task", taskName)
		return
	}
	c.count--
	c.notify()
	if c.count != 0 || !c.active {
		return
	}

	if err := c.guard.Stop(ctx); err != nil {
		c.logger.WarnContext(ctx, "keep-alive guard stop failed", "task", taskName, "error", err)
	}
	c.active = false
	c.logger.DebugContext(ctx, "keep-alive stopped", "task", taskName)
}

func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Active reports whether the guard is currently held.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) notify() {
	if c.onCount != nil {
		c.onCount(c.count)
	}
}
