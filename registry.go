package rxl

import (
	"github.com/rs/zerolog"
)

func newRegistry(log zerolog.Logger) *registry {
	return &registry{
		channels: make(map[int]Channel, 1024),
		log:      log,
	}
}

// registry maps descriptors to registered channels. Owned by the loop
// thread; no locking after construction.
type registry struct {
	channels map[int]Channel
	log      zerolog.Logger
}

func (r *registry) add(ch Channel) {
	fd := ch.Fd()
	r.log.Trace().Int("fd", fd).Msg("rxl: register channel")
	r.channels[fd] = ch
}

func (r *registry) remove(ch Channel) {
	fd := ch.Fd()
	r.log.Trace().Int("fd", fd).Msg("rxl: deregister channel")
	old, ok := r.channels[fd]
	if !ok {
		return
	}
	delete(r.channels, fd)
	if old != ch {
		// The kernel reassigned the descriptor before this channel was
		// deregistered; the mapping belongs to the newer channel.
		r.channels[fd] = old
		if ch.IsOpen() {
			panic("rxl: deregistered an open channel whose descriptor was reassigned")
		}
	}
}

// get returns the mapped channel; absence is a normal outcome because a
// completion may arrive after its channel was closed.
func (r *registry) get(fd int) (Channel, bool) {
	ch, ok := r.channels[fd]
	return ch, ok
}

func (r *registry) size() int {
	return len(r.channels)
}

// snapshot copies the registered channels out so close-all can mutate the
// map while iterating.
func (r *registry) snapshot() []Channel {
	channels := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	return channels
}
