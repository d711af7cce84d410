package ring

// DefaultEntries is the default submission queue depth.
const DefaultEntries = 1024

// Operation tags carried in CQE userdata. The dispatcher switches over
// these; zero is reserved so that a zero userdata can be skipped as
// "no operation attached".
const (
	OpAccept uint8 = iota + 1
	OpRead
	OpWrite
	OpTimeout
	OpPoll
)

// Dispatch handles one completion record. It reports whether draining
// should continue with the next record.
type Dispatch func(fd int, res int32, flags uint32, op uint8, pollMask uint32) bool

// PackUserdata encodes {fd, op, poll mask} into one 64 bit userdata:
// fd in the low 32 bits (signed), op in the next 8, mask in the next 16.
func PackUserdata(fd int, op uint8, pollMask uint32) uint64 {
	return uint64(uint32(int32(fd))) | uint64(op)<<32 | uint64(uint16(pollMask))<<40
}

func UnpackUserdata(userdata uint64) (fd int, op uint8, pollMask uint32) {
	fd = int(int32(uint32(userdata)))
	op = uint8(userdata >> 32)
	pollMask = uint32(uint16(userdata >> 40))
	return
}
