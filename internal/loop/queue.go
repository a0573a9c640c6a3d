// internal/loop/queue.go
package loop

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrRunaway is returned when draining the queue exceeds MaxJobsPerDrain,
// which almost always means two jobs keep re-posting each other.
var ErrRunaway = errors.New("loop: job queue did not go idle")

// MaxJobsPerDrain bounds a single RunUntilIdle call.
const MaxJobsPerDrain = 100000

// Queue is a deterministic Scheduler driven by the caller. Jobs run only when
// RunUntilIdle or Advance is called, and timers fire against a virtual clock.
// The simulator and tests use it to replay scenarios step by step.
type Queue struct {
	mu sync.Mutex
	// wake is signalled on Post and when a hold is released.
	wake   *sync.Cond
	held   int
	jobs   []func()
	timers []*queueTimer
	now    time.Duration
	seq    uint64
}

type queueTimer struct {
	due       time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

var (
	_ Scheduler = (*Queue)(nil)
	_ Holder    = (*Queue)(nil)
)

// NewQueue returns an empty queue with its clock at zero.
func NewQueue() *Queue {
	q := &Queue{}
	q.wake = sync.NewCond(&q.mu)
	return q
}

// Post implements Scheduler.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.jobs = append(q.jobs, fn)
	q.wake.Broadcast()
	q.mu.Unlock()
}

// Hold implements Holder. While a hold is outstanding RunUntilIdle waits for
// the held work to post instead of reporting the queue idle.
func (q *Queue) Hold() (release func()) {
	q.mu.Lock()
	q.held++
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			q.held--
			q.wake.Broadcast()
			q.mu.Unlock()
		})
	}
}

// Held returns the number of outstanding holds.
func (q *Queue) Held() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.held
}

// AfterFunc implements Scheduler.
func (q *Queue) AfterFunc(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	q.mu.Lock()
	q.seq++
	t := &queueTimer{due: q.now + d, seq: q.seq, fn: fn}
	q.timers = append(q.timers, t)
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		t.cancelled = true
		q.mu.Unlock()
	}
}

// Now returns the virtual clock.
func (q *Queue) Now() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now
}

// Pending returns the number of queued jobs, not counting timers.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// RunOnce runs the oldest queued job, if any, and reports whether one ran.
func (q *Queue) RunOnce() bool {
	q.mu.Lock()
	if len(q.jobs) == 0 {
		q.mu.Unlock()
		return false
	}
	fn := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	q.mu.Unlock()

	fn()
	return true
}

// RunUntilIdle runs jobs, including the ones they post, until the queue is
// empty and nothing holds it. Timers are not advanced.
func (q *Queue) RunUntilIdle() error {
	for ran := 0; ran < MaxJobsPerDrain; {
		if q.RunOnce() {
			ran++
			continue
		}
		if !q.awaitHeld() {
			return nil
		}
	}
	return ErrRunaway
}

// awaitHeld blocks while the queue is empty but held, and reports whether a
// job arrived.
func (q *Queue) awaitHeld() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && q.held > 0 {
		q.wake.Wait()
	}
	return len(q.jobs) > 0
}

// Advance moves the virtual clock forward by d. Timers fire in due order, and
// the job queue is drained after each one.
func (q *Queue) Advance(d time.Duration) error {
	if err := q.RunUntilIdle(); err != nil {
		return err
	}

	q.mu.Lock()
	target := q.now + d
	q.mu.Unlock()

	for {
		t := q.nextTimer(target)
		if t == nil {
			break
		}
		t.fn()
		if err := q.RunUntilIdle(); err != nil {
			return err
		}
	}

	q.mu.Lock()
	q.now = target
	q.mu.Unlock()
	return nil
}

// nextTimer pops the earliest live timer due at or before target and moves
// the clock to its due time.
func (q *Queue) nextTimer(target time.Duration) *queueTimer {
	q.mu.Lock()
	defer q.mu.Unlock()

	live := q.timers[:0]
	for _, t := range q.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	q.timers = live
	if len(q.timers) == 0 {
		return nil
	}

	sort.Slice(q.timers, func(i, j int) bool {
		if q.timers[i].due == q.timers[j].due {
			return q.timers[i].seq < q.timers[j].seq
		}
		return q.timers[i].due < q.timers[j].due
	})

	next := q.timers[0]
	if next.due > target {
		return nil
	}
	q.timers = q.timers[1:]
	q.now = next.due
	return next
}
