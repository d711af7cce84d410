package rxl

import (
	"github.com/brickingsoft/rxl/pkg/ring"
	"github.com/rs/zerolog"
)

type Options struct {
	RingEntries uint32
	Logger      zerolog.Logger
}

type Option func(options *Options) (err error)

// WithRingEntries sets the submission queue depth. Defaults to
// ring.DefaultEntries.
func WithRingEntries(entries uint32) Option {
	return func(options *Options) (err error) {
		if entries > 0 {
			options.RingEntries = entries
		}
		return
	}
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(options *Options) (err error) {
		options.Logger = logger
		return
	}
}

func defaultOptions() Options {
	return Options{
		RingEntries: ring.DefaultEntries,
		Logger:      zerolog.Nop(),
	}
}
