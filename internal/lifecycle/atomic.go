package lifecycle

import "sync/atomic"

// atomicInt is a minimal concurrent-safe int, used for the exit code a
// kill file can set from the sentinel-poll goroutine and Run then reads
// after every service has stopped.
type atomicInt struct {
	v atomic.Int32
}

func (a *atomicInt) set(n int) { a.v.Store(int32(n)) }
func (a *atomicInt) get() int  { return int(a.v.Load()) }
