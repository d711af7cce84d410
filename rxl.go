// Package rxl is a single-threaded reactor over an io_uring completion
// ring. One goroutine, locked to its OS thread, owns the ring and a
// descriptor-to-channel registry; other goroutines hand it work through a
// lock-free task queue and interrupt its blocking wait through a wake
// descriptor. It is the execution engine beneath a channel layer:
// channels submit their own accept, read and write operations through
// the ring and receive their completions on the loop thread.
package rxl
