// Package clock schedules recurring ticks. Real drives them from wall-clock
// time; Manual lets tests move time forward explicitly.
package clock

import (
	"sync"
	"time"
)

// Timer is a recurring tick that can be cancelled. Stop is idempotent and
// never blocks waiting for an in-flight tick.
type Timer interface {
	Stop()
}

// Scheduler runs fn every interval until the returned Timer is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// ── Real ────────────────────────────────────────────────────────────────────

// Real schedules ticks on a time.Ticker goroutine.
type Real struct{}

func (Real) Every(interval time.Duration, fn func()) Timer {
	t := &realTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type realTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTimer) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.ticker.C:
			fn()
		case <-t.done:
			return
		}
	}
}

func (t *realTimer) Stop() {
	t.once.Do(func() { close(t.done) })
}

// ── Manual ──────────────────────────────────────────────────────────────────

// Manual fires ticks only when Advance is called, on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

// NewManual returns a scheduler whose time starts at zero.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Every(interval time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{
		interval: interval,
		next:     m.now + interval,
		fn:       fn,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves time forward by d, firing every tick that falls due in order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next += t.interval
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// Active returns the number of timers that have not been stopped.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.timers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// nextDue returns the earliest running timer due at or before target.
func (m *Manual) nextDue(target time.Duration) *manualTimer {
	var due *manualTimer
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.isStopped() {
			continue
		}
		live = append(live, t)
		if t.next <= target && (due == nil || t.next < due.next) {
			due = t
		}
	}
	m.timers = live
	return due
}

type manualTimer struct {
	interval time.Duration
	next     time.Duration
	fn       func()

	mu      sync.Mutex
	stopped bool
}

func (t *manualTimer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
