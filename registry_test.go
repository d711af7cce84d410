package rxl

import (
	"testing"

	"github.com/rs/zerolog"
)

type testChannel struct {
	fd            int
	open          bool
	active        bool
	closed        bool
	reads         []int
	writes        []int
	shutdowns     []bool
	accepts       []int
	acceptPending bool
	onClose       func(ch *testChannel) error
}

func (ch *testChannel) Fd() int {
	return ch.fd
}

func (ch *testChannel) ReadComplete(res int) {
	ch.reads = append(ch.reads, res)
}

func (ch *testChannel) WriteComplete(res int) {
	ch.writes = append(ch.writes, res)
}

func (ch *testChannel) ShutdownInput(forced bool) {
	ch.shutdowns = append(ch.shutdowns, forced)
}

func (ch *testChannel) IsActive() bool {
	return ch.active
}

func (ch *testChannel) IsOpen() bool {
	return ch.open
}

func (ch *testChannel) Close() error {
	ch.closed = true
	ch.open = false
	ch.active = false
	if ch.onClose != nil {
		return ch.onClose(ch)
	}
	return nil
}

func (ch *testChannel) AcceptComplete(fd int) {
	ch.accepts = append(ch.accepts, fd)
}

func (ch *testChannel) SetAcceptPending(pending bool) {
	ch.acceptPending = pending
}

func TestRegistryAddGet(t *testing.T) {
	r := newRegistry(zerolog.Nop())
	ch := &testChannel{fd: 3, open: true}
	r.add(ch)
	got, ok := r.get(3)
	if !ok || got != Channel(ch) {
		t.Fatal("get after add failed")
	}
	if r.size() != 1 {
		t.Fatal("size", r.size())
	}
}

func TestRegistryGetAbsent(t *testing.T) {
	r := newRegistry(zerolog.Nop())
	if _, ok := r.get(42); ok {
		t.Fatal("absent descriptor returned a channel")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newRegistry(zerolog.Nop())
	ch := &testChannel{fd: 3}
	r.add(ch)
	r.remove(ch)
	if _, ok := r.get(3); ok {
		t.Fatal("channel still mapped after remove")
	}
	// removing again is a no-op
	r.remove(ch)
}

func TestRegistryRemoveReconcilesDescriptorReuse(t *testing.T) {
	r := newRegistry(zerolog.Nop())
	closed := &testChannel{fd: 5}
	reused := &testChannel{fd: 5, open: true, active: true}
	r.add(closed)
	// the kernel handed fd 5 to a new channel before the old one was
	// deregistered
	r.add(reused)
	r.remove(closed)
	got, ok := r.get(5)
	if !ok || got != Channel(reused) {
		t.Fatal("reused mapping was not restored")
	}
	if r.size() != 1 {
		t.Fatal("size", r.size())
	}
}

func TestRegistryRemoveOpenChannelOnReusedDescriptorPanics(t *testing.T) {
	r := newRegistry(zerolog.Nop())
	stillOpen := &testChannel{fd: 5, open: true}
	reused := &testChannel{fd: 5, open: true}
	r.add(stillOpen)
	r.add(reused)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	r.remove(stillOpen)
}

func TestRegistrySnapshotAllowsMutation(t *testing.T) {
	r := newRegistry(zerolog.Nop())
	for fd := 1; fd <= 3; fd++ {
		r.add(&testChannel{fd: fd, open: true})
	}
	snapshot := r.snapshot()
	if len(snapshot) != 3 {
		t.Fatal("snapshot size", len(snapshot))
	}
	for _, ch := range snapshot {
		r.remove(ch)
	}
	if r.size() != 0 {
		t.Fatal("registry not empty after removing snapshot")
	}
}
