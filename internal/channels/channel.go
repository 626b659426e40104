// Package channels provides the transport abstraction between chat platforms
// and the event handler. A channel turns platform updates into bus events and
// hands each one to the handler on its own goroutine.
package channels

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
)

// DefaultMaxConcurrent bounds in-flight events when none is configured.
const DefaultMaxConcurrent = 64

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g. "telegram").
	Name() string

	// Start begins receiving updates and delivering them to h.
	// Should be non-blocking after setup.
	Start(ctx context.Context, h bus.Handler) error

	// Stop stops receiving updates and waits for in-flight events.
	Stop(ctx context.Context) error

	// IsRunning returns whether the channel is actively processing updates.
	IsRunning() bool
}

// ErrorHook is called for every event whose handler returned an error.
// Without a hook the failure is logged with slog.Warn.
type ErrorHook func(ev bus.Event, err error)

// BaseChannel provides shared functionality for all channel implementations.
// Channel implementations should embed this struct.
type BaseChannel struct {
	name    string
	running atomic.Bool

	// mu guards the fields below. Dispatch holds it for reading while it
	// enqueues, so Close guarantees no enqueue races a later Wait.
	mu       sync.RWMutex
	handler  bus.Handler
	onError  ErrorHook
	closed   bool
	inflight errgroup.Group
}

// NewBaseChannel creates a BaseChannel that runs at most maxConcurrent
// events at once (0 = DefaultMaxConcurrent).
func NewBaseChannel(name string, maxConcurrent int) *BaseChannel {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	c := &BaseChannel{name: name}
	c.inflight.SetLimit(maxConcurrent)
	return c
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running.Store(running) }

// SetHandler installs the consumer for dispatched events and reopens a
// closed channel.
func (c *BaseChannel) SetHandler(h bus.Handler) {
	c.mu.Lock()
	c.handler = h
	c.closed = false
	c.mu.Unlock()
}

// Handler returns the installed consumer, or nil before Start.
func (c *BaseChannel) Handler() bus.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

// OnError installs a hook invoked for every failed event.
func (c *BaseChannel) OnError(hook ErrorHook) {
	c.mu.Lock()
	c.onError = hook
	c.mu.Unlock()
}

// Close rejects further dispatches. Events already accepted keep running;
// call Wait to drain them.
func (c *BaseChannel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Dispatch runs the handler for ev on its own goroutine and reports whether
// the event was accepted. It blocks while the concurrency limit is reached.
// The event keeps running after ctx is cancelled so shutdown does not abort
// half-applied work; Wait drains it.
func (c *BaseChannel) Dispatch(ctx context.Context, ev bus.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		slog.Debug("event dropped: channel closed", "channel", c.name, "kind", ev.Kind())
		return false
	}
	h, hook := c.handler, c.onError
	if h == nil {
		slog.Warn("event dropped: no handler", "channel", c.name, "kind", ev.Kind())
		return false
	}

	ctx = context.WithoutCancel(ctx)
	c.inflight.Go(func() error {
		err := h.Handle(ctx, ev)
		switch {
		case err == nil:
		case hook != nil:
			hook(ev, err)
		default:
			slog.Warn("event handling failed", "channel", c.name, "kind", ev.Kind(), "error", err)
		}
		return nil
	})
	return true
}

// Wait blocks until every dispatched event has finished or ctx is done.
// It reports whether all events finished. Close first so no new event
// is accepted while waiting.
func (c *BaseChannel) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		_ = c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
