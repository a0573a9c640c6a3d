package chrome

import (
	"context"
	"sync"
)

// opQueue is an unbounded FIFO of DevTools requests. put never blocks: the
// loop may be the only thing that can unblock the worker, for example by
// answering a dialog the page opened in the middle of an evaluation.
type opQueue struct {
	mu     sync.Mutex
	ops    []func(context.Context)
	closed bool
	signal chan struct{}
}

func newOpQueue() *opQueue {
	return &opQueue{signal: make(chan struct{}, 1)}
}

// put appends op and reports whether the queue accepted it.
func (q *opQueue) put(op func(context.Context)) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.ops = append(q.ops, op)
	q.mu.Unlock()
	q.notify()
	return true
}

// take blocks until an op is available. It returns false once the queue is
// closed and empty.
func (q *opQueue) take() (func(context.Context), bool) {
	for {
		q.mu.Lock()
		if len(q.ops) > 0 {
			op := q.ops[0]
			q.ops[0] = nil
			q.ops = q.ops[1:]
			q.mu.Unlock()
			return op, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

// close stops accepting ops. Ops already queued are still handed out.
func (q *opQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
}

func (q *opQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

func (q *opQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
