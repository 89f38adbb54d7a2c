package fetcher

import (
	"sync"
	"time"
)

// Clock schedules callbacks. Tests substitute a virtual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

type debounceState int

const (
	debounceIdle debounceState = iota
	// debounceCooling: the leading call ran and the window is open with no
	// further calls.
	debounceCooling
	// debounceScheduled: calls arrived during the window; a trailing call is due
	// when it closes.
	debounceScheduled
)

// Debouncer invokes fn on the leading and trailing edge of a burst of calls.
// A call while idle runs fn immediately and opens a window of length wait;
// every call inside the window extends it, and if any arrived, fn runs once
// more when it closes. A burst of any size therefore runs fn at most twice.
type Debouncer struct {
	clock Clock
	wait  time.Duration
	fn    func()

	mu    sync.Mutex
	state debounceState
	timer Timer
	seq   uint64
}

// NewDebouncer creates a Debouncer for fn.
func NewDebouncer(clock Clock, wait time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: clock, wait: wait, fn: fn}
}

// Call registers a call. fn runs synchronously on the leading edge and from
// the clock's goroutine on the trailing edge.
func (d *Debouncer) Call() {
	d.mu.Lock()
	if d.state == debounceIdle {
		d.state = debounceCooling
		d.arm()
		d.mu.Unlock()
		d.fn()
		return
	}
	d.state = debounceScheduled
	d.arm()
	d.mu.Unlock()
}

// Stop cancels any pending trailing call and returns to idle.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.state = debounceIdle
}

// arm restarts the window. Must be called with mu held.
func (d *Debouncer) arm() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.wait, func() { d.expire(seq) })
}

func (d *Debouncer) expire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq {
		// Superseded by a later arm or a Stop.
		d.mu.Unlock()
		return
	}
	trailing := d.state == debounceScheduled
	d.state = debounceIdle
	d.timer = nil
	d.mu.Unlock()

	if trailing {
		d.fn()
	}
}
