// Package atomicflag provides a lock-free boolean gate with compare-and-swap
// transitions.
//
// An AtomicFlag guarantees at-most-one-winner semantics when several
// goroutines race to start the same operation: exactly one TrySet succeeds
// between two successful TryClear calls, and every loser must skip the
// guarded work.
//
//	flag := atomicflag.New()
//	if !flag.TrySet() {
//	    return ErrAlreadyRunning
//	}
//	defer flag.TryClear()
package atomicflag

import "sync/atomic"

// AtomicFlag is a single bit that is either clear or set.
//
// The zero value is a clear flag and is ready to use. An AtomicFlag must not
// be copied after first use.
type AtomicFlag struct {
	v atomic.Bool
}

// New returns a cleared flag.
func New() *AtomicFlag {
	return &AtomicFlag{}
}

// IsClear reports whether the flag is clear.
func (f *AtomicFlag) IsClear() bool {
	return !f.v.Load()
}

// IsSet reports whether the flag is set.
func (f *AtomicFlag) IsSet() bool {
	return f.v.Load()
}

// TrySet transitions the flag from clear to set. It returns false, leaving
// the flag untouched, if the flag was already set.
func (f *AtomicFlag) TrySet() bool {
	return f.v.CompareAndSwap(false, true)
}

// TryClear transitions the flag from set to clear. It returns false, leaving
// the flag untouched, if the flag was already clear.
func (f *AtomicFlag) TryClear() bool {
	return f.v.CompareAndSwap(true, false)
}
