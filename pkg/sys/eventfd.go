//go:build linux

package sys

import (
	"encoding/binary"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

// NewEventFd creates the wake descriptor used to interrupt a blocking
// completion wait from another thread. Nonblocking, close-on-exec.
func NewEventFd() (*EventFd, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, errors.From(
			errors.Define("sys: create eventfd failed"),
			errors.WithWrap(err),
		)
	}
	return &EventFd{fd: fd}, nil
}

type EventFd struct {
	fd int
}

func (efd *EventFd) Fd() int {
	return efd.fd
}

func (efd *EventFd) Write(value uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, value)
	for {
		_, err := unix.Write(efd.fd, b)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			// counter saturated, a pending notification already exists
			return nil
		}
		return err
	}
}

// Read drains the accumulated counter. Returns 0 when no write happened
// since the last drain.
func (efd *EventFd) Read() (uint64, error) {
	b := make([]byte, 8)
	for {
		n, err := unix.Read(efd.fd, b)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		if n != 8 {
			return 0, nil
		}
		return binary.LittleEndian.Uint64(b), nil
	}
}

func (efd *EventFd) Close() error {
	return unix.Close(efd.fd)
}
