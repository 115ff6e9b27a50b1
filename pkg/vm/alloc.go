package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when the arena is exhausted.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidAlignment is returned for an alignment that is not a power of two.
	ErrInvalidAlignment = errors.New("alignment must be a power of two")
)

// Arena is a monotonic bump allocator. Blocks are never freed; the only
// way back is Reset to an earlier Mark.
type Arena struct {
	start uint32
	next  uint32
	limit uint32
}

// NewArena creates an allocator serving [start, limit).
func NewArena(start, limit uint32) *Arena {
	return &Arena{start: start, next: start, limit: limit}
}

// Alloc reserves size bytes at a multiple of align and returns the address.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAlignment, align)
	}
	ptr := (uint64(a.next) + uint64(align) - 1) &^ (uint64(align) - 1)
	end := ptr + uint64(size)
	if end > uint64(a.limit) {
		return 0, fmt.Errorf("%w: %d bytes (align %d), %d left", ErrOutOfMemory, size, align, a.limit-a.next)
	}
	a.next = uint32(end)
	return uint32(ptr), nil
}

// Mark returns the current allocation pointer.
func (a *Arena) Mark() uint32 { return a.next }

// Reset returns the allocator to an earlier mark.
func (a *Arena) Reset(mark uint32) {
	if mark < a.start || mark > a.next {
		panic(fmt.Sprintf("vm: arena reset to 0x%08x outside [0x%08x, 0x%08x]", mark, a.start, a.next))
	}
	a.next = mark
}

// Used returns the number of bytes handed out, including alignment padding.
func (a *Arena) Used() uint32 { return a.next - a.start }
