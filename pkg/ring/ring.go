//go:build linux

package ring

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

var (
	ErrSQFull     = errors.Define("ring: submission queue is full")
	ErrEmptyBytes = errors.Define("ring: empty bytes")
)

// userdata of the single timeout operation, fd slot holds -1
const timeoutUserdata = uint64(uint32(0xffffffff)) | uint64(OpTimeout)<<32

func New(entries uint32) (*Ring, error) {
	if entries == 0 {
		entries = DefaultEntries
	}
	r, rErr := giouring.CreateRing(entries)
	if rErr != nil {
		return nil, errors.From(
			errors.Define("ring: create failed"),
			errors.WithWrap(rErr),
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		)
	}
	return &Ring{
		ring: r,
		cqes: make([]*giouring.CompletionQueueEvent, entries),
	}, nil
}

// Ring adapts the raw submission/completion queues to the operations the
// reactor consumes. It is owned by the loop thread; no method is safe for
// concurrent use.
type Ring struct {
	ring         *giouring.Ring
	cqes         []*giouring.CompletionQueueEvent
	timeoutTS    syscall.Timespec
	timeoutArmed bool
}

func (r *Ring) SubmitPoll(fd int) error {
	return r.submitPoll(fd, unix.POLLIN)
}

// SubmitRemoteHangupPoll arms a poll that fires when the peer closes its
// side of the connection.
func (r *Ring) SubmitRemoteHangupPoll(fd int) error {
	return r.submitPoll(fd, unix.POLLRDHUP)
}

func (r *Ring) submitPoll(fd int, pollMask uint32) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return errors.From(ErrSQFull, errors.WithMeta(errMetaOpKey, errMetaOpPoll))
	}
	sqe.PreparePollAdd(fd, pollMask)
	sqe.SetData64(PackUserdata(fd, OpPoll, pollMask))
	return nil
}

// SubmitTimeout arms the loop timeout. The previously armed timeout, if
// still outstanding, is updated in place so that at most one timeout
// operation ever exists in the ring.
//
// The timeout entries are prepared by hand: giouring's timeout helpers
// point the SQE at their own stack locals, and its update helper puts
// the timespec pointer in the slot the kernel reads the target userdata
// from. r.timeoutTS outlives the submission, so its address stays valid.
func (r *Ring) SubmitTimeout(delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	r.timeoutTS = syscall.NsecToTimespec(delay.Nanoseconds())
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return errors.From(ErrSQFull, errors.WithMeta(errMetaOpKey, errMetaOpTimeout))
	}
	if r.timeoutArmed {
		// the update CQE carries no userdata and is skipped on drain;
		// a concurrent expiry makes it fail with ENOENT, which is fine
		// because the expiry completion resets the armed state.
		prepareTimeoutUpdate(sqe, &r.timeoutTS, timeoutUserdata)
		return nil
	}
	prepareTimeout(sqe, &r.timeoutTS)
	sqe.SetData64(timeoutUserdata)
	r.timeoutArmed = true
	return nil
}

// prepareTimeout fills an OP_TIMEOUT entry: Addr carries the timespec,
// Len the timespec count of one.
func prepareTimeout(sqe *giouring.SubmissionQueueEntry, ts *syscall.Timespec) {
	prepareTimeoutSQE(sqe, giouring.OpTimeout, uint64(uintptr(unsafe.Pointer(ts))), 1, 0, 0)
}

// prepareTimeoutUpdate fills an OP_TIMEOUT_REMOVE entry with the update
// flag: Addr carries the userdata of the timeout to retarget, Off the
// new timespec.
func prepareTimeoutUpdate(sqe *giouring.SubmissionQueueEntry, ts *syscall.Timespec, target uint64) {
	prepareTimeoutSQE(sqe, giouring.OpTimeoutRemove, target, 0, uint64(uintptr(unsafe.Pointer(ts))), giouring.TimeoutUpdate)
}

func prepareTimeoutSQE(sqe *giouring.SubmissionQueueEntry, opcode uint8, addr uint64, length uint32, off uint64, flags uint32) {
	sqe.OpCode = opcode
	sqe.Flags = 0
	sqe.IoPrio = 0
	sqe.Fd = -1
	sqe.Off = off
	sqe.Addr = addr
	sqe.Len = length
	sqe.OpcodeFlags = flags
	sqe.UserData = 0
	sqe.BufIG = 0
	sqe.Personality = 0
	sqe.SpliceFdIn = 0
}

func (r *Ring) SubmitAccept(fd int) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return errors.From(ErrSQFull, errors.WithMeta(errMetaOpKey, errMetaOpAccept))
	}
	sqe.PrepareAccept(fd, 0, 0, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	sqe.SetData64(PackUserdata(fd, OpAccept, 0))
	return nil
}

// SubmitRead submits a read into b. The caller must keep b alive and
// untouched until the matching completion is dispatched.
func (r *Ring) SubmitRead(fd int, b []byte) error {
	if len(b) == 0 {
		return errors.From(ErrEmptyBytes, errors.WithMeta(errMetaOpKey, errMetaOpRead))
	}
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return errors.From(ErrSQFull, errors.WithMeta(errMetaOpKey, errMetaOpRead))
	}
	sqe.PrepareRead(fd, uintptr(unsafe.Pointer(&b[0])), uint32(len(b)), 0)
	sqe.SetData64(PackUserdata(fd, OpRead, 0))
	return nil
}

// SubmitWrite submits a write of b. The caller must keep b alive and
// untouched until the matching completion is dispatched.
func (r *Ring) SubmitWrite(fd int, b []byte) error {
	if len(b) == 0 {
		return errors.From(ErrEmptyBytes, errors.WithMeta(errMetaOpKey, errMetaOpWrite))
	}
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return errors.From(ErrSQFull, errors.WithMeta(errMetaOpKey, errMetaOpWrite))
	}
	sqe.PrepareWrite(fd, uintptr(unsafe.Pointer(&b[0])), uint32(len(b)), 0)
	sqe.SetData64(PackUserdata(fd, OpWrite, 0))
	return nil
}

func (r *Ring) Flush() error {
	for {
		_, err := r.ring.Submit()
		if err != nil {
			if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
				continue
			}
			return err
		}
		return nil
	}
}

// DrainNonBlocking hands every currently available completion to dispatch
// and reports how many were consumed, or -1 when none were available.
func (r *Ring) DrainNonBlocking(dispatch Dispatch) int {
	peeked := r.ring.PeekBatchCQE(r.cqes)
	if peeked == 0 {
		return -1
	}
	for i := uint32(0); i < peeked; i++ {
		cqe := r.cqes[i]
		r.cqes[i] = nil
		if cqe.UserData == 0 {
			continue
		}
		fd, op, pollMask := UnpackUserdata(cqe.UserData)
		if op == OpTimeout {
			r.timeoutArmed = false
		}
		if !dispatch(fd, cqe.Res, cqe.Flags, op, pollMask) {
			r.ring.CQAdvance(i + 1)
			return int(i + 1)
		}
	}
	r.ring.CQAdvance(peeked)
	return int(peeked)
}

// WaitForOne blocks until at least one completion is available. It is the
// only blocking call in the reactor.
func (r *Ring) WaitForOne() error {
	for {
		_, err := r.ring.SubmitAndWait(1)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
		return nil
	}
}

func (r *Ring) Close() error {
	r.ring.QueueExit()
	return nil
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "ring"

	errMetaOpKey     = "op"
	errMetaOpPoll    = "poll"
	errMetaOpTimeout = "timeout"
	errMetaOpAccept  = "accept"
	errMetaOpRead    = "read"
	errMetaOpWrite   = "write"
)
