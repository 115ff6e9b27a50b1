// Package vm implements the guest machine state the host simulator keeps:
// a sparse 32-bit address space, a bump allocator and a cycle meter.
package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Address space layout.
const (
	PageSize = uint32(4096)

	// NullGuard is the first mapped address. Accesses below it fault.
	NullGuard = uint32(0x0000_1000)

	// HeapStart is where the allocator hands out its first block.
	HeapStart = uint32(0x0020_0000)

	// MaxMemory is the first address past the end of guest memory.
	MaxMemory = uint32(0x7800_0000)
)

var (
	// ErrInvalidMemoryAccess is returned for accesses outside guest memory.
	ErrInvalidMemoryAccess = errors.New("invalid memory access")

	// ErrMisaligned is returned for word accesses off a 4-byte boundary.
	ErrMisaligned = errors.New("misaligned word access")

	// ErrCheckpointActive is returned when a checkpoint is taken while
	// another one is open.
	ErrCheckpointActive = errors.New("memory checkpoint already active")

	// ErrNoCheckpoint is returned by Rollback without a checkpoint.
	ErrNoCheckpoint = errors.New("no memory checkpoint")
)

type page [PageSize]byte

// Memory is a sparse, zero-initialised guest address space. Pages are
// materialised on first write.
//
// While a checkpoint is open, the first write to each page saves its prior
// contents so Rollback can restore the memory exactly.
type Memory struct {
	pages   map[uint32]*page
	journal map[uint32]*page // page index -> saved copy, nil if unmapped
}

// NewMemory creates an empty address space.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*page)}
}

func (m *Memory) check(addr uint32, size uint32) error {
	end := uint64(addr) + uint64(size)
	if addr < NullGuard || end > uint64(MaxMemory) {
		return fmt.Errorf("%w: 0x%08x (size %d)", ErrInvalidMemoryAccess, addr, size)
	}
	return nil
}

// Read copies len(p) bytes at addr into p.
func (m *Memory) Read(addr uint32, p []byte) error {
	if err := m.check(addr, uint32(len(p))); err != nil {
		return err
	}
	for len(p) > 0 {
		idx, off := addr/PageSize, addr%PageSize
		n := copyLen(off, len(p))
		if pg := m.pages[idx]; pg != nil {
			copy(p[:n], pg[off:])
		} else {
			clear(p[:n])
		}
		p = p[n:]
		addr += uint32(n)
	}
	return nil
}

// Write copies p to addr.
func (m *Memory) Write(addr uint32, p []byte) error {
	if err := m.check(addr, uint32(len(p))); err != nil {
		return err
	}
	for len(p) > 0 {
		idx, off := addr/PageSize, addr%PageSize
		n := copyLen(off, len(p))
		copy(m.page(idx)[off:], p[:n])
		p = p[n:]
		addr += uint32(n)
	}
	return nil
}

func copyLen(off uint32, want int) int {
	n := int(PageSize - off)
	if want < n {
		return want
	}
	return n
}

// page returns the writable page idx, saving it to the journal first.
func (m *Memory) page(idx uint32) *page {
	pg := m.pages[idx]
	if m.journal != nil {
		if _, saved := m.journal[idx]; !saved {
			if pg != nil {
				cp := *pg
				m.journal[idx] = &cp
			} else {
				m.journal[idx] = nil
			}
		}
	}
	if pg == nil {
		pg = new(page)
		m.pages[idx] = pg
	}
	return pg
}

// ReadWords reads len(w) little-endian words at a 4-aligned addr.
func (m *Memory) ReadWords(addr uint32, w []uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("%w: 0x%08x", ErrMisaligned, addr)
	}
	b := make([]byte, 4*len(w))
	if err := m.Read(addr, b); err != nil {
		return err
	}
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return nil
}

// WriteWords writes w as little-endian words at a 4-aligned addr.
func (m *Memory) WriteWords(addr uint32, w []uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("%w: 0x%08x", ErrMisaligned, addr)
	}
	b := make([]byte, 4*len(w))
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return m.Write(addr, b)
}

// Read32 reads one aligned word.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	var w [1]uint32
	err := m.ReadWords(addr, w[:])
	return w[0], err
}

// Write32 writes one aligned word.
func (m *Memory) Write32(addr uint32, v uint32) error {
	return m.WriteWords(addr, []uint32{v})
}

// Checkpoint starts journaling page writes.
func (m *Memory) Checkpoint() error {
	if m.journal != nil {
		return ErrCheckpointActive
	}
	m.journal = make(map[uint32]*page)
	return nil
}

// Rollback restores every page written since Checkpoint and closes the
// checkpoint.
func (m *Memory) Rollback() error {
	if m.journal == nil {
		return ErrNoCheckpoint
	}
	for idx, saved := range m.journal {
		if saved == nil {
			delete(m.pages, idx)
		} else {
			m.pages[idx] = saved
		}
	}
	m.journal = nil
	return nil
}

// Pages returns the number of materialised pages.
func (m *Memory) Pages() int {
	return len(m.pages)
}
