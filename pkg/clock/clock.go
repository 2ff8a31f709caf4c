package clock

import "time"

// Timer is a single-shot scheduled callback. Stop reports whether the
// callback was prevented from running; stopping an already-fired or
// already-stopped timer is a safe no-op.
type Timer interface {
	Stop() bool
}

// Ticker is a periodic scheduled callback.
type Ticker interface {
	Stop()
}

// Clock schedules callbacks. Components take it as a dependency so tests can
// drive time manually.
type Clock interface {
	Now() time.Time
	After(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Ticker
}

type systemClock struct{}

// NewSystem returns a Clock backed by the runtime timers.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

func (systemClock) Every(d time.Duration, fn func()) Ticker {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return &systemTicker{t: t, done: done}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) Stop() bool {
	return s.t.Stop()
}

type systemTicker struct {
	t    *time.Ticker
	done chan struct{}
}

func (s *systemTicker) Stop() {
	s.t.Stop()
	close(s.done)
}
