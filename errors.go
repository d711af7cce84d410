package rxl

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrClosed     = errors.Define("rxl: closed")
	ErrNilTask    = errors.Define("rxl: task is nil")
	ErrNilChannel = errors.Define("rxl: channel is nil")
	ErrInvalidFd  = errors.Define("rxl: invalid descriptor")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "rxl"
)
