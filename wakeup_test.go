package rxl

import (
	"sync"
	"sync/atomic"
	"testing"
)

type countingWakeFd struct {
	writes atomic.Int64
	value  atomic.Uint64
	closed atomic.Bool
}

func (w *countingWakeFd) Fd() int {
	return 999
}

func (w *countingWakeFd) Write(value uint64) error {
	w.value.Add(value)
	w.writes.Add(1)
	return nil
}

func (w *countingWakeFd) Read() (uint64, error) {
	return w.value.Swap(0), nil
}

func (w *countingWakeFd) Close() error {
	w.closed.Store(true)
	return nil
}

func TestWakeupBackToBackCollapses(t *testing.T) {
	wakeFd := &countingWakeFd{}
	w := newWakeupCoordinator(wakeFd)
	w.publishIdle(noneDeadline)
	if err := w.wake(); err != nil {
		t.Fatal(err)
	}
	if err := w.wake(); err != nil {
		t.Fatal(err)
	}
	if n := wakeFd.writes.Load(); n != 1 {
		t.Fatal("writes", n)
	}
}

func TestWakeupConcurrentCallsProduceOneNotify(t *testing.T) {
	wakeFd := &countingWakeFd{}
	w := newWakeupCoordinator(wakeFd)
	w.publishIdle(123456789)
	wg := new(sync.WaitGroup)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			_ = w.wake()
			wg.Done()
		}()
	}
	wg.Wait()
	if n := wakeFd.writes.Load(); n != 1 {
		t.Fatal("writes", n)
	}
	if !w.consume() {
		t.Fatal("expected an in-flight wakeup")
	}
}

func TestWakeupConsumeWithoutExternalNotify(t *testing.T) {
	wakeFd := &countingWakeFd{}
	w := newWakeupCoordinator(wakeFd)
	w.publishIdle(42)
	if w.consume() {
		t.Fatal("no wakeup was issued")
	}
	// the state is awake now, wake must not write
	if err := w.wake(); err != nil {
		t.Fatal(err)
	}
	if n := wakeFd.writes.Load(); n != 0 {
		t.Fatal("writes", n)
	}
}

func TestWakeupAfterConsumeNotifiesAgain(t *testing.T) {
	wakeFd := &countingWakeFd{}
	w := newWakeupCoordinator(wakeFd)
	w.publishIdle(noneDeadline)
	_ = w.wake()
	if !w.consume() {
		t.Fatal("expected an in-flight wakeup")
	}
	w.publishIdle(noneDeadline)
	_ = w.wake()
	if n := wakeFd.writes.Load(); n != 2 {
		t.Fatal("writes", n)
	}
}
