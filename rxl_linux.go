//go:build linux

package rxl

import (
	"github.com/brickingsoft/rxl/pkg/ring"
	"github.com/brickingsoft/rxl/pkg/sys"
)

// New creates an event loop and starts its loop goroutine.
func New(options ...Option) (*EventLoop, error) {
	opts := defaultOptions()
	for _, option := range options {
		if err := option(&opts); err != nil {
			return nil, err
		}
	}
	r, rErr := ring.New(opts.RingEntries)
	if rErr != nil {
		return nil, rErr
	}
	efd, efdErr := sys.NewEventFd()
	if efdErr != nil {
		_ = r.Close()
		return nil, efdErr
	}
	loop := newEventLoop(r, efd, opts)
	go loop.run()
	return loop, nil
}
