package rxl

import (
	"math"
	"sync/atomic"
)

// Wakeup states. nextWakeupNanos is:
//
//	awake        while the loop is processing
//	noneDeadline while the loop is blocked with no deadline
//	other T      while the loop is blocked with a deadline at T nanos
const (
	awake        = int64(-1)
	noneDeadline = int64(math.MaxInt64)
)

func newWakeupCoordinator(wakeFd WakeFd) *wakeupCoordinator {
	w := &wakeupCoordinator{wakeFd: wakeFd}
	w.nextWakeupNanos.Store(awake)
	return w
}

// wakeupCoordinator holds the only loop state visible to other threads.
type wakeupCoordinator struct {
	nextWakeupNanos atomic.Int64
	wakeFd          WakeFd
}

// wake forces the state to awake. Only the caller whose transition left
// an idle state writes the wake descriptor, so any number of concurrent
// wakeups collapse into one outstanding notification.
func (w *wakeupCoordinator) wake() error {
	for {
		state := w.nextWakeupNanos.Load()
		if state == awake {
			return nil
		}
		if w.nextWakeupNanos.CompareAndSwap(state, awake) {
			return w.wakeFd.Write(1)
		}
	}
}

// publishIdle announces the deadline the loop is about to block with.
// Loop thread only.
func (w *wakeupCoordinator) publishIdle(deadlineNanos int64) {
	w.nextWakeupNanos.Store(deadlineNanos)
}

// consume forces the state back to awake after the blocking wait and
// reports whether an external wake descriptor write is in flight.
// Loop thread only.
func (w *wakeupCoordinator) consume() bool {
	return w.nextWakeupNanos.Load() == awake || w.nextWakeupNanos.Swap(awake) == awake
}
