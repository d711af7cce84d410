package ring_test

import (
	"testing"

	"github.com/brickingsoft/rxl/pkg/ring"
)

func TestPackUserdata(t *testing.T) {
	for _, c := range []struct {
		fd   int
		op   uint8
		mask uint32
	}{
		{0, ring.OpAccept, 0},
		{5, ring.OpRead, 0},
		{1023, ring.OpWrite, 0},
		{-1, ring.OpTimeout, 0},
		{7, ring.OpPoll, 0x2000},
		{7, ring.OpPoll, 0x1},
	} {
		u := ring.PackUserdata(c.fd, c.op, c.mask)
		if u == 0 {
			t.Fatal("packed userdata is zero for", c)
		}
		fd, op, mask := ring.UnpackUserdata(u)
		if fd != c.fd || op != c.op || mask != c.mask {
			t.Fatal("round trip mismatch", c, fd, op, mask)
		}
	}
}

func TestPackUserdataDistinctOps(t *testing.T) {
	seen := make(map[uint64]bool)
	for _, op := range []uint8{ring.OpAccept, ring.OpRead, ring.OpWrite, ring.OpTimeout, ring.OpPoll} {
		u := ring.PackUserdata(3, op, 0)
		if seen[u] {
			t.Fatal("userdata collision for op", op)
		}
		seen[u] = true
	}
}
