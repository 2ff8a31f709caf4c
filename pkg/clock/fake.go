package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Advance fires due
// callbacks synchronously, in deadline order, outside the internal lock so a
// callback may schedule or stop other timers.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

func NewFake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *FakeClock) Every(d time.Duration, fn func()) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, interval: d, next: c.now.Add(d), fn: fn}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward, firing every timer and ticker whose
// deadline falls within the window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		fn, at, ok := c.nextDueLocked(target)
		if !ok {
			break
		}
		c.now = at
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// nextDueLocked finds the earliest due timer or ticker within the window,
// marks it consumed under the lock, and hands back its callback.
func (c *FakeClock) nextDueLocked(target time.Time) (func(), time.Time, bool) {
	var (
		bestTimer  *fakeTimer
		bestTicker *fakeTicker
		bestAt     time.Time
		found      bool
	)

	consider := func(at time.Time) bool {
		if at.After(target) {
			return false
		}
		if !found || at.Before(bestAt) {
			bestAt = at
			found = true
			return true
		}
		return false
	}

	for _, t := range c.timers {
		if !t.stopped && !t.fired && consider(t.deadline) {
			bestTimer, bestTicker = t, nil
		}
	}
	for _, t := range c.tickers {
		if !t.stopped && consider(t.next) {
			bestTimer, bestTicker = nil, t
		}
	}

	if !found {
		return nil, time.Time{}, false
	}

	if bestTimer != nil {
		bestTimer.fired = true
		return bestTimer.fn, bestAt, true
	}
	bestTicker.next = bestTicker.next.Add(bestTicker.interval)
	return bestTicker.fn, bestAt, true
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeTicker struct {
	clock    *FakeClock
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}
