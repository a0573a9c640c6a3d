// internal/loop/scheduler.go
//
// Package loop provides the single cooperative scheduling loop that the ad
// controller, its view tree and its rendering surfaces share. Nothing in the
// controller is synchronized; every callback runs on the loop, one at a time.
package loop

import "time"

// Scheduler posts work onto the loop. Implementations must run posted
// functions one at a time, in FIFO order, never inside the Post call itself.
type Scheduler interface {
	// Post schedules fn to run on a later loop iteration. Safe to call from
	// any goroutine.
	Post(fn func())

	// AfterFunc schedules fn to run on the loop once d has elapsed. The
	// returned cancel function prevents fn from running if it has not yet run.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Holder is implemented by schedulers that must know about work running off
// the loop, so that draining them does not finish before that work posts its
// result. Queue is one.
type Holder interface {
	// Hold registers outstanding work. The returned release is called once
	// the work has posted everything it will post.
	Hold() (release func())
}

// Go runs fn on a new goroutine. If sched is a Holder it stays held until fn
// returns.
func Go(sched Scheduler, fn func()) {
	release := func() {}
	if h, ok := sched.(Holder); ok {
		release = h.Hold()
	}
	go func() {
		defer release()
		fn()
	}()
}
