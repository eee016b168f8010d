package camcorder

import (
	"sync"
	"sync/atomic"
	"time"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeTimer struct {
	d       time.Duration
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }
func (t *fakeTimer) Stop() bool          { return !t.stopped.Swap(true) }

// fakeTime hands out tickers and timers that only fire when told to.
type fakeTime struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

func newFakeTime() *fakeTime {
	return &fakeTime{now: time.Unix(1700000000, 0)}
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTime) NewTicker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeTime) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{d: d, ch: make(chan time.Time, 1)}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTime) tickerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

func (f *fakeTime) timerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *fakeTime) ticker(i int) *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[i]
}

func (f *fakeTime) timer(i int) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[i]
}

// tick fires the most recent ticker once.
func (f *fakeTime) tick() {
	f.mu.Lock()
	t := f.tickers[len(f.tickers)-1]
	f.now = f.now.Add(250 * time.Millisecond)
	now := f.now
	f.mu.Unlock()
	t.ch <- now
}

// fire expires timer i.
func (f *fakeTime) fire(i int) {
	f.mu.Lock()
	t := f.timers[i]
	f.now = f.now.Add(t.d)
	now := f.now
	f.mu.Unlock()
	t.ch <- now
}
