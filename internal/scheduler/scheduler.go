// Package scheduler runs callbacks at display refresh boundaries.
//
// A callback scheduled with a zero delay runs at the next refresh; a
// positive delay postpones it to the first refresh at or after the delay.
// Every Schedule returns a cancel function that is safe to call at any
// time, including after the callback ran.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type task struct {
	due      time.Time
	seq      uint64
	fn       func()
	canceled bool
}

// queue is the task list shared by Loop and Manual.
type queue struct {
	mu    sync.Mutex
	tasks []*task
	seq   uint64
}

func (q *queue) add(due time.Time, fn func()) func() {
	q.mu.Lock()
	q.seq++
	t := &task{due: due, seq: q.seq, fn: fn}
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		t.canceled = true
		q.mu.Unlock()
	}
}

// due removes and returns the live tasks due at now, ordered by due time
// then scheduling order.
func (q *queue) due(now time.Time) []*task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready, rest []*task
	for _, t := range q.tasks {
		switch {
		case t.canceled:
		case !t.due.After(now):
			ready = append(ready, t)
		default:
			rest = append(rest, t)
		}
	}
	q.tasks = rest
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].due.Equal(ready[j].due) {
			return ready[i].seq < ready[j].seq
		}
		return ready[i].due.Before(ready[j].due)
	})
	return ready
}

func (q *queue) run(now time.Time) int {
	n := 0
	for _, t := range q.due(now) {
		q.mu.Lock()
		canceled := t.canceled
		q.mu.Unlock()
		if canceled {
			continue
		}
		t.fn()
		n++
	}
	return n
}

func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}

// Manual is a deterministic scheduler driven by Advance. It is the
// scheduler of tests and of hosts that own their own event loop.
type Manual struct {
	q   queue
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Schedule(delay time.Duration, fn func()) func() {
	m.q.mu.Lock()
	now := m.now
	m.q.mu.Unlock()
	return m.q.add(now.Add(delay), fn)
}

// Advance moves the clock to now and runs every callback due by then.
// Callbacks scheduled while Advance runs wait for the next call.
func (m *Manual) Advance(now time.Time) int {
	m.q.mu.Lock()
	if now.After(m.now) {
		m.now = now
	}
	now = m.now
	m.q.mu.Unlock()
	return m.q.run(now)
}

// Refresh runs the callbacks due without moving the clock.
func (m *Manual) Refresh() int {
	m.q.mu.Lock()
	now := m.now
	m.q.mu.Unlock()
	return m.q.run(now)
}

func (m *Manual) Now() time.Time {
	m.q.mu.Lock()
	defer m.q.mu.Unlock()
	return m.now
}

func (m *Manual) Pending() int { return m.q.pending() }

// Loop is a real-time scheduler running every callback on the goroutine
// that calls Run, once per refresh tick.
type Loop struct {
	q       queue
	refresh time.Duration
	posts   chan func()
}

// NewLoop returns a loop refreshing fps times per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		refresh: time.Second / time.Duration(fps),
		posts:   make(chan func(), 64),
	}
}

func (l *Loop) Schedule(delay time.Duration, fn func()) func() {
	return l.q.add(time.Now().Add(delay), fn)
}

// Post runs fn on the loop goroutine before the next refresh.
func (l *Loop) Post(fn func()) {
	l.posts <- fn
}

func (l *Loop) Refresh() time.Duration { return l.refresh }

// Run processes posts and refreshes until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posts:
			fn()
		case now := <-ticker.C:
			l.drainPosts()
			l.q.run(now)
		}
	}
}

func (l *Loop) drainPosts() {
	for {
		select {
		case fn := <-l.posts:
			fn()
		default:
			return
		}
	}
}
