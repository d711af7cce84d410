package rxl

import (
	"time"

	"github.com/brickingsoft/rxl/pkg/ring"
)

// Ring is the submission/completion facility the loop drives. Channels
// submit their own accept, read and write operations through it; the loop
// owns poll and timeout submissions, the flush, the non-blocking drain
// and the single blocking wait.
//
// Owned by the loop thread after construction.
type Ring interface {
	SubmitPoll(fd int) error
	SubmitRemoteHangupPoll(fd int) error
	SubmitTimeout(delay time.Duration) error
	SubmitAccept(fd int) error
	SubmitRead(fd int, b []byte) error
	SubmitWrite(fd int, b []byte) error
	Flush() error
	// DrainNonBlocking dispatches all currently available completions,
	// returning how many, or -1 when none were available.
	DrainNonBlocking(dispatch ring.Dispatch) int
	// WaitForOne blocks until at least one completion is available.
	WaitForOne() error
	Close() error
}

// WakeFd is the dedicated descriptor used solely to interrupt a blocking
// wait from another thread.
type WakeFd interface {
	Fd() int
	Write(value uint64) error
	Read() (uint64, error)
	Close() error
}
