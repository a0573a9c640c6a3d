// internal/mraid/waiter.go
package mraid

import (
	"github.com/xkilldash9x/mraidhost/internal/loop"
)

// LayoutTarget is a view the waiter can measure. *view.Node and everything
// embedding it satisfies it.
type LayoutTarget interface {
	Width() int
	Height() int
	AddLayoutObserver(fn func()) (remove func())
}

// ScreenMetricsWaiter waits until a set of views has been through a layout
// pass. At most one request is outstanding: starting a new one, or calling
// CancelLastRequest, retires the previous request's generation and its
// continuation never runs.
type ScreenMetricsWaiter struct {
	sched      loop.Scheduler
	generation uint64
	last       *WaitRequest
}

// NewScreenMetricsWaiter creates a waiter that checks views on sched.
func NewScreenMetricsWaiter(sched loop.Scheduler) *ScreenMetricsWaiter {
	return &ScreenMetricsWaiter{sched: sched}
}

// WaitRequest is a single-shot barrier over a fixed set of views.
type WaitRequest struct {
	waiter    *ScreenMetricsWaiter
	gen       uint64
	targets   []LayoutTarget
	remaining int
	done      func()
	removers  []func()
}

// WaitFor supersedes any outstanding request and returns a new one. Nothing
// happens until Start is called.
func (w *ScreenMetricsWaiter) WaitFor(targets ...LayoutTarget) *WaitRequest {
	w.CancelLastRequest()
	r := &WaitRequest{
		waiter:  w,
		gen:     w.generation,
		targets: targets,
	}
	w.last = r
	return r
}

// CancelLastRequest drops the outstanding request, if any.
func (w *ScreenMetricsWaiter) CancelLastRequest() {
	w.generation++
	if w.last != nil {
		w.last.cancel()
		w.last = nil
	}
}

// Generation identifies the current request. It changes on every WaitFor and
// CancelLastRequest.
func (w *ScreenMetricsWaiter) Generation() uint64 { return w.generation }

// Start schedules the check on the loop. done runs exactly once, on the loop,
// after every target has a size; never inside Start itself.
func (r *WaitRequest) Start(done func()) {
	r.done = done
	r.remaining = len(r.targets)
	r.waiter.sched.Post(r.check)
}

func (r *WaitRequest) live() bool {
	return r.done != nil && r.gen == r.waiter.generation
}

func (r *WaitRequest) check() {
	if !r.live() {
		return
	}
	if len(r.targets) == 0 {
		r.finish()
		return
	}
	for _, t := range r.targets {
		if t.Width() > 0 || t.Height() > 0 {
			r.countDown()
			continue
		}
		r.removers = append(r.removers, t.AddLayoutObserver(r.countDown))
	}
}

func (r *WaitRequest) countDown() {
	if !r.live() {
		return
	}
	r.remaining--
	if r.remaining == 0 {
		r.finish()
	}
}

func (r *WaitRequest) finish() {
	fn := r.done
	r.done = nil
	r.removers = nil
	if r.waiter.last == r {
		r.waiter.last = nil
	}
	fn()
}

func (r *WaitRequest) cancel() {
	r.done = nil
	for _, remove := range r.removers {
		remove()
	}
	r.removers = nil
}
