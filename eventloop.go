//go:build linux

package rxl

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxl/pkg/queue"
	"github.com/rs/zerolog"
)

const (
	loopStarting int32 = iota
	loopRunning
	loopShuttingDown
	loopTerminated
)

const shutdownRetryDelay = 10 * time.Millisecond

func newEventLoop(r Ring, wakeFd WakeFd, options Options) *EventLoop {
	loop := &EventLoop{
		ring:         r,
		wakeFd:       wakeFd,
		wakeup:       newWakeupCoordinator(wakeFd),
		registry:     newRegistry(options.Logger),
		tasks:        queue.New[func()](),
		sched:        &scheduler{},
		prevDeadline: noneDeadline,
		done:         make(chan struct{}),
		log:          options.Logger,
	}
	return loop
}

// EventLoop is a single-threaded reactor over one ring. The loop thread
// exclusively owns the ring, the registry, prevDeadline and
// pendingWakeup; the only state shared with other threads is the wakeup
// coordinator and the task queue.
type EventLoop struct {
	ring          Ring
	wakeFd        WakeFd
	wakeup        *wakeupCoordinator
	registry      *registry
	tasks         *queue.Queue[func()]
	sched         *scheduler
	hooks         []func()
	prevDeadline  int64
	pendingWakeup bool
	state         atomic.Int32
	done          chan struct{}
	log           zerolog.Logger
}

// Ring exposes the submission facility; channels submit their own accept,
// read and write operations directly through it.
func (loop *EventLoop) Ring() Ring {
	return loop.ring
}

// Register maps the channel's descriptor to the channel. Loop thread
// only; off-loop callers go through Execute.
func (loop *EventLoop) Register(ch Channel) error {
	if ch == nil {
		return errors.From(ErrNilChannel, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	if ch.Fd() < 0 {
		return errors.From(ErrInvalidFd, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	loop.registry.add(ch)
	return nil
}

// Deregister removes the channel's mapping, reconciling descriptor reuse.
// Loop thread only.
func (loop *EventLoop) Deregister(ch Channel) error {
	if ch == nil {
		return errors.From(ErrNilChannel, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	loop.registry.remove(ch)
	return nil
}

// Execute enqueues task for execution on the loop thread. Safe from any
// goroutine.
func (loop *EventLoop) Execute(task func()) error {
	if task == nil {
		return errors.From(ErrNilTask, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	if loop.state.Load() == loopTerminated {
		return errors.From(ErrClosed, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	loop.tasks.Enqueue(task)
	loop.Wakeup()
	return nil
}

// Schedule runs task on the loop thread after delay.
func (loop *EventLoop) Schedule(delay time.Duration, task func()) error {
	if task == nil {
		return errors.From(ErrNilTask, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	deadline := time.Now().UnixNano() + delay.Nanoseconds()
	return loop.Execute(func() {
		loop.sched.schedule(deadline, task)
	})
}

// AddShutdownHook registers a hook that runs on the loop thread while the
// shutdown confirmation is evaluated.
func (loop *EventLoop) AddShutdownHook(hook func()) error {
	if hook == nil {
		return errors.From(ErrNilTask, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	return loop.Execute(func() {
		loop.hooks = append(loop.hooks, hook)
	})
}

// Wakeup interrupts the loop's blocking wait. Idempotent while a
// notification is outstanding: concurrent calls collapse into a single
// wake descriptor write. Safe from any goroutine, including the loop
// thread, where the state is already awake and the call is a no-op.
func (loop *EventLoop) Wakeup() {
	if err := loop.wakeup.wake(); err != nil {
		loop.log.Error().Err(err).Msg("rxl: wake descriptor write failed")
	}
}

// Shutdown requests shutdown and blocks until the loop has closed every
// registered channel, confirmed shutdown and released its resources.
func (loop *EventLoop) Shutdown() error {
	for {
		state := loop.state.Load()
		if state >= loopShuttingDown {
			break
		}
		if loop.state.CompareAndSwap(state, loopShuttingDown) {
			break
		}
	}
	loop.Wakeup()
	<-loop.done
	return nil
}

func (loop *EventLoop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(loop.done)

	// arm the wake descriptor before doing any real work
	if err := loop.ring.SubmitPoll(loop.wakeFd.Fd()); err != nil {
		loop.log.Error().Err(err).Msg("rxl: arm wake descriptor poll failed")
	}
	if err := loop.ring.Flush(); err != nil {
		loop.log.Error().Err(err).Msg("rxl: flush failed")
	}
	loop.state.CompareAndSwap(loopStarting, loopRunning)

	for {
		deadline := loop.sched.nextDeadline()
		loop.wakeup.publishIdle(deadline)

		// Only submit a timeout and block when there is nothing to run and
		// shutdown has not been requested; a shutting-down loop must reach
		// the confirmation below on every cycle.
		if !loop.hasTasks() && loop.state.Load() < loopShuttingDown {
			if deadline != loop.prevDeadline {
				loop.prevDeadline = deadline
				if err := loop.ring.SubmitTimeout(delayUntil(deadline)); err != nil {
					loop.log.Error().Err(err).Msg("rxl: submit timeout failed")
				} else if err = loop.ring.Flush(); err != nil {
					loop.log.Error().Err(err).Msg("rxl: flush failed")
				}
			}
			if loop.ring.DrainNonBlocking(loop.dispatch) == -1 {
				if err := loop.ring.WaitForOne(); err != nil {
					loop.log.Error().Err(err).Msg("rxl: wait for completion failed")
				}
			}
			// Covers both "completion arrived" and "external wakeup": an
			// already-awake state means a wake descriptor write is in
			// flight and its poll completion is still owed.
			if loop.wakeup.consume() {
				loop.pendingWakeup = true
			}
		}

		loop.ring.DrainNonBlocking(loop.dispatch)

		if loop.hasTasks() {
			loop.runAllTasks()
		}

		if loop.state.Load() == loopShuttingDown {
			if loop.shutdownCycle() {
				break
			}
			// the shutting-down loop no longer blocks on the ring, so a
			// failed confirmation pauses before the retry
			time.Sleep(shutdownRetryDelay)
		}
	}

	loop.cleanup()
}

func (loop *EventLoop) hasTasks() bool {
	return !loop.tasks.IsEmpty() || loop.sched.hasExpired(time.Now().UnixNano())
}

func (loop *EventLoop) runAllTasks() {
	now := time.Now().UnixNano()
	for {
		task, ok := loop.sched.expired(now)
		if !ok {
			break
		}
		loop.safeRun(task)
	}
	for {
		task, ok := loop.tasks.Dequeue()
		if !ok {
			break
		}
		loop.safeRun(task)
	}
}

func (loop *EventLoop) safeRun(task func()) {
	defer func() {
		if cause := recover(); cause != nil {
			loop.log.Error().Interface("cause", cause).Msg("rxl: task panicked")
		}
	}()
	task()
}

// shutdownCycle closes every registered channel from a snapshot, then
// tests the shutdown confirmation. A panic while confirming is logged and
// the loop retries on the next cycle instead of terminating abnormally.
func (loop *EventLoop) shutdownCycle() (confirmed bool) {
	defer func() {
		if cause := recover(); cause != nil {
			confirmed = false
			loop.log.Error().Interface("cause", cause).Msg("rxl: shutdown confirmation failed")
		}
	}()
	loop.closeAll()
	confirmed = loop.confirmShutdown()
	return
}

func (loop *EventLoop) closeAll() {
	loop.log.Trace().Msg("rxl: close all channels")
	for _, ch := range loop.registry.snapshot() {
		if err := ch.Close(); err != nil {
			loop.log.Error().Err(err).Int("fd", ch.Fd()).Msg("rxl: close channel failed")
		}
	}
}

func (loop *EventLoop) confirmShutdown() bool {
	loop.runAllTasks()
	loop.runShutdownHooks()
	return loop.registry.size() == 0 && loop.tasks.IsEmpty()
}

func (loop *EventLoop) runShutdownHooks() {
	hooks := loop.hooks
	loop.hooks = nil
	for _, hook := range hooks {
		hook()
	}
}

// cleanup releases the wake descriptor and the ring independently; one
// failure never suppresses the other release.
func (loop *EventLoop) cleanup() {
	loop.state.Store(loopTerminated)
	if err := loop.wakeFd.Close(); err != nil {
		loop.log.Error().Err(err).Msg("rxl: close wake descriptor failed")
	}
	if err := loop.ring.Close(); err != nil {
		loop.log.Error().Err(err).Msg("rxl: close ring failed")
	}
}

func delayUntil(deadlineNanos int64) time.Duration {
	if deadlineNanos == noneDeadline {
		return time.Duration(noneDeadline)
	}
	delay := deadlineNanos - time.Now().UnixNano()
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
