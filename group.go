//go:build linux

package rxl

import (
	"runtime"
	"sync/atomic"
)

// NewGroup creates n event loops. n < 1 means one loop per CPU.
func NewGroup(n int, options ...Option) (*Group, error) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	group := &Group{loops: make([]*EventLoop, 0, n)}
	for i := 0; i < n; i++ {
		loop, err := New(options...)
		if err != nil {
			_ = group.Shutdown()
			return nil, err
		}
		group.loops = append(group.loops, loop)
	}
	return group, nil
}

type Group struct {
	loops []*EventLoop
	idx   atomic.Uint64
}

// Next picks a loop round-robin.
func (group *Group) Next() *EventLoop {
	return group.loops[(group.idx.Add(1)-1)%uint64(len(group.loops))]
}

func (group *Group) Size() int {
	return len(group.loops)
}

// Shutdown shuts every loop down, returning the first failure.
func (group *Group) Shutdown() error {
	var err error
	for _, loop := range group.loops {
		if sErr := loop.Shutdown(); sErr != nil && err == nil {
			err = sErr
		}
	}
	return err
}
