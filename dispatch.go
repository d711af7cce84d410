//go:build linux

package rxl

import (
	"github.com/brickingsoft/rxl/pkg/ring"
	"golang.org/x/sys/unix"
)

// dispatch routes one completion record. It never aborts draining; every
// branch reports "continue".
func (loop *EventLoop) dispatch(fd int, res int32, flags uint32, op uint8, pollMask uint32) bool {
	switch op {
	case ring.OpAccept:
		ch, ok := loop.registry.get(fd)
		if !ok {
			break
		}
		srv, ok := ch.(ServerChannel)
		if !ok {
			break
		}
		srv.SetAcceptPending(false)
		if res != -1 && res != -int32(unix.EAGAIN) && res != -int32(unix.EWOULDBLOCK) {
			srv.AcceptComplete(int(res))
			// observe a later peer close on the accepted descriptor
			if err := loop.ring.SubmitRemoteHangupPoll(int(res)); err != nil {
				loop.log.Error().Err(err).Int("fd", int(res)).Msg("rxl: arm remote hangup poll failed")
			} else if err = loop.ring.Flush(); err != nil {
				loop.log.Error().Err(err).Msg("rxl: flush failed")
			}
		}
	case ring.OpRead:
		ch, ok := loop.registry.get(fd)
		if !ok {
			break
		}
		ch.ReadComplete(int(res))
	case ring.OpWrite:
		ch, ok := loop.registry.get(fd)
		if !ok {
			break
		}
		if res == -int32(unix.EPIPE) {
			// a broken pipe on write means the peer half-closed, not a
			// write failure
			ch.ShutdownInput(false)
		} else {
			ch.WriteComplete(int(res))
		}
	case ring.OpTimeout:
		if res == -int32(unix.ETIME) {
			// force resubmission of the next distinct deadline
			loop.prevDeadline = noneDeadline
		}
	case ring.OpPoll:
		if fd == loop.wakeFd.Fd() {
			loop.pendingWakeup = false
			// drain the accumulated value and re-arm, otherwise later
			// external wakeups are lost
			if _, err := loop.wakeFd.Read(); err != nil {
				loop.log.Error().Err(err).Msg("rxl: wake descriptor read failed")
			}
			if err := loop.ring.SubmitPoll(fd); err != nil {
				loop.log.Error().Err(err).Msg("rxl: arm wake descriptor poll failed")
			} else if err = loop.ring.Flush(); err != nil {
				loop.log.Error().Err(err).Msg("rxl: flush failed")
			}
			break
		}
		if pollMask&unix.POLLRDHUP != 0 {
			if ch, ok := loop.registry.get(fd); ok && !ch.IsActive() {
				ch.ShutdownInput(true)
			}
			break
		}
		loop.log.Trace().Int("fd", fd).Uint32("mask", pollMask).Msg("rxl: ignored poll completion")
	default:
		loop.log.Error().Uint8("op", op).Int("fd", fd).Msg("rxl: unknown completion operation")
	}
	return true
}
