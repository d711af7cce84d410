package rxl

// Channel is the completion surface of one registered endpoint. The loop
// holds a non-owning reference while the channel is registered; the
// surrounding channel lifecycle owns the descriptor.
//
// All methods are invoked on the loop thread.
type Channel interface {
	// Fd returns the channel's descriptor, non-negative while open.
	Fd() int
	// ReadComplete receives the signed result of a read submission:
	// bytes read when >= 0, a negated kernel error code otherwise.
	ReadComplete(res int)
	// WriteComplete receives the signed result of a write submission.
	WriteComplete(res int)
	// ShutdownInput signals that no further input will arrive. forced is
	// true when the peer hung up, false when a broken pipe was observed
	// on write.
	ShutdownInput(forced bool)
	IsActive() bool
	IsOpen() bool
	// Close is invoked by the shutdown sequence.
	Close() error
}

// ServerChannel is a listening endpoint.
type ServerChannel interface {
	Channel
	// AcceptComplete receives the descriptor of an accepted connection.
	AcceptComplete(fd int)
	// SetAcceptPending tracks whether an accept submission is in flight.
	SetAcceptPending(pending bool)
}
