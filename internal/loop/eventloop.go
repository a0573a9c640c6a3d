// internal/loop/eventloop.go
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"
)

// EventLoop is the production Scheduler. It drives a goja_nodejs event loop in
// the background; every posted job and timer callback runs on the loop's
// goroutine.
type EventLoop struct {
	loop   *eventloop.EventLoop
	logger *zap.Logger

	mu      sync.Mutex
	running bool
}

var _ Scheduler = (*EventLoop)(nil)

// NewEventLoop creates a stopped loop. Call Start before posting work that
// must run.
func NewEventLoop(logger *zap.Logger) *EventLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLoop{
		loop:   eventloop.NewEventLoop(),
		logger: logger.Named("loop"),
	}
}

// Start runs the loop on a background goroutine. Calling Start twice is a no-op.
func (l *EventLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.loop.Start()
	l.running = true
	l.logger.Debug("Event loop started.")
}

// Stop halts the loop and waits for the current job to finish. Jobs still
// queued are dropped.
func (l *EventLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.loop.Stop()
	l.running = false
	l.logger.Debug("Event loop stopped.")
}

// Post implements Scheduler.
func (l *EventLoop) Post(fn func()) {
	l.loop.RunOnLoop(func(*goja.Runtime) {
		l.run(fn)
	})
}

// AfterFunc implements Scheduler.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) func() {
	timer := l.loop.SetTimeout(func(*goja.Runtime) {
		l.run(fn)
	}, d)
	return func() {
		l.loop.ClearTimeout(timer)
	}
}

// Sync blocks until every job posted before the call has run, or ctx is done.
func (l *EventLoop) Sync(ctx context.Context) error {
	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event loop: %w", ctx.Err())
	}
}

// run keeps a panicking job from taking the loop goroutine down with it.
func (l *EventLoop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Panic in loop job.", zap.Any("panic_reason", r), zap.Stack("stack"))
		}
	}()
	fn()
}
