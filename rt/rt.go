// Package rt provides the realtime-safety primitives shared by the
// decode and playback paths: a spinlock usable from an audio callback,
// a mutex that panics if it is ever acquired from a thread marked
// realtime, and a coordinator that drives one goroutine per device
// exactly the way a poll(2)-based audio back-end would drive its own
// thread.
package rt

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Spinlock is a non-blocking mutual-exclusion primitive safe to take on
// the realtime path: it never calls into the scheduler's blocking
// wait queues, only spins on an atomic flag.
type Spinlock struct {
	state atomic.Int32
}

// Lock spins until the lock is acquired.
func (s *Spinlock) Lock() {
	for !s.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (s *Spinlock) Unlock() {
	s.state.Store(0)
}

// goroutineID extracts the calling goroutine's ID from the runtime
// stack trace header. It is the only portable way to get a
// goroutine-local marker without threading an explicit token through
// every call site.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return 0
	}
	id, _ := strconv.ParseUint(string(b[:i]), 10, 64)
	return id
}

var rtGoroutines sync.Map // goroutine ID -> struct{}

// MarkRT marks the calling goroutine as a realtime thread: a thread
// driving an audio callback or device poll loop. Call once, from the
// goroutine itself, before entering its run loop.
func MarkRT() {
	rtGoroutines.Store(goroutineID(), struct{}{})
}

// UnmarkRT removes the calling goroutine's realtime marker, normally
// deferred right after MarkRT.
func UnmarkRT() {
	rtGoroutines.Delete(goroutineID())
}

// OnRT reports whether the calling goroutine is currently marked
// realtime.
func OnRT() bool {
	_, ok := rtGoroutines.Load(goroutineID())
	return ok
}

// Mutex wraps sync.Mutex with an assertion that it is never locked
// from a thread marked realtime: taking a blocking lock on the audio
// thread is the single most common way to turn an underrun into a
// glitch, so we make the mistake panic immediately in development and
// testing rather than show up as an intermittent click in production.
type Mutex struct {
	mu sync.Mutex
}

// Lock acquires the mutex, panicking if called from a realtime thread.
func (m *Mutex) Lock() {
	if OnRT() {
		panic(fmt.Sprintf("rt: mutex locked from realtime goroutine %d", goroutineID()))
	}
	m.mu.Lock()
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.mu.Unlock()
}
