package vm

import (
	"bytes"
	"errors"
	"testing"
)

// TestCycleMeter tests the cycle meter.
func TestCycleMeter(t *testing.T) {
	cm := NewCycleMeter(1000)

	if cm.Remaining() != 1000 {
		t.Errorf("Remaining() = %d, want 1000", cm.Remaining())
	}
	if err := cm.Consume(400); err != nil {
		t.Errorf("Consume(400) failed: %v", err)
	}
	if err := cm.Consume(600); err != nil {
		t.Errorf("Consume(600) failed: %v", err)
	}
	if cm.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", cm.Remaining())
	}

	// Should fail on next consume
	if err := cm.Consume(1); !errors.Is(err, ErrCycleLimit) {
		t.Errorf("Consume(1) = %v, want ErrCycleLimit", err)
	}

	unlimited := NewCycleMeter(0)
	if err := unlimited.Consume(1 << 40); err != nil {
		t.Errorf("unlimited Consume() = %v, want nil", err)
	}
	if unlimited.Consumed() != 1<<40 {
		t.Errorf("Consumed() = %d, want %d", unlimited.Consumed(), uint64(1<<40))
	}
}

func TestMemoryBounds(t *testing.T) {
	m := NewMemory()

	tests := []struct {
		name string
		addr uint32
		size int
		ok   bool
	}{
		{"null page", 0, 4, false},
		{"just below guard", NullGuard - 1, 1, false},
		{"guard", NullGuard, 4, true},
		{"heap", HeapStart, 64, true},
		{"last byte", MaxMemory - 1, 1, true},
		{"past end", MaxMemory - 2, 4, false},
		{"wraps", 0xFFFF_FFFE, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Write(tt.addr, make([]byte, tt.size))
			if (err == nil) != tt.ok {
				t.Errorf("Write(0x%x, %d) = %v, want ok=%v", tt.addr, tt.size, err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrInvalidMemoryAccess) {
				t.Errorf("Write() error = %v, want ErrInvalidMemoryAccess", err)
			}
		})
	}
}

func TestMemoryCrossPage(t *testing.T) {
	m := NewMemory()
	addr := HeapStart + PageSize - 3
	want := []byte{1, 2, 3, 4, 5, 6, 7}

	if err := m.Write(addr, want); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if m.Pages() != 2 {
		t.Errorf("Pages() = %d, want 2", m.Pages())
	}

	got := make([]byte, len(want))
	if err := m.Read(addr, got); err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Read() = %v, want %v", got, want)
	}

	// Untouched memory reads as zero and does not materialise pages
	zero := make([]byte, 16)
	if err := m.Read(0x1000_0000, zero); err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if !bytes.Equal(zero, make([]byte, 16)) {
		t.Errorf("fresh memory = %v, want zeros", zero)
	}
	if m.Pages() != 2 {
		t.Errorf("Pages() after read = %d, want 2", m.Pages())
	}
}

func TestMemoryWords(t *testing.T) {
	m := NewMemory()

	if err := m.Write32(HeapStart+2, 1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("Write32(unaligned) = %v, want ErrMisaligned", err)
	}
	if err := m.Write32(HeapStart, 0xdeadbeef); err != nil {
		t.Fatalf("Write32() failed: %v", err)
	}

	b := make([]byte, 4)
	if err := m.Read(HeapStart, b); err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if !bytes.Equal(b, []byte{0xef, 0xbe, 0xad, 0xde}) {
		t.Errorf("word bytes = %x, want efbeadde", b)
	}

	v, err := m.Read32(HeapStart)
	if err != nil || v != 0xdeadbeef {
		t.Errorf("Read32() = 0x%x, %v, want 0xdeadbeef", v, err)
	}
}

func TestMemoryRollback(t *testing.T) {
	m := NewMemory()
	if err := m.Write32(HeapStart, 7); err != nil {
		t.Fatal(err)
	}

	if err := m.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint() failed: %v", err)
	}
	if err := m.Checkpoint(); !errors.Is(err, ErrCheckpointActive) {
		t.Errorf("second Checkpoint() = %v, want ErrCheckpointActive", err)
	}

	if err := m.Write32(HeapStart, 8); err != nil {
		t.Fatal(err)
	}
	if err := m.Write32(HeapStart+16*PageSize, 9); err != nil {
		t.Fatal(err)
	}
	if err := m.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	if v, _ := m.Read32(HeapStart); v != 7 {
		t.Errorf("after rollback Read32() = %d, want 7", v)
	}
	if m.Pages() != 1 {
		t.Errorf("Pages() = %d, want 1", m.Pages())
	}
	if err := m.Rollback(); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("Rollback() without checkpoint = %v, want ErrNoCheckpoint", err)
	}
}

func TestArena(t *testing.T) {
	a := NewArena(HeapStart, HeapStart+256)

	p, err := a.Alloc(3, 1)
	if err != nil || p != HeapStart {
		t.Fatalf("Alloc(3, 1) = 0x%x, %v, want 0x%x", p, err, HeapStart)
	}

	p, err = a.Alloc(8, 8)
	if err != nil {
		t.Fatalf("Alloc(8, 8) failed: %v", err)
	}
	if p != HeapStart+8 {
		t.Errorf("Alloc(8, 8) = 0x%x, want 0x%x", p, HeapStart+8)
	}

	mark := a.Mark()
	if _, err := a.Alloc(100, 4); err != nil {
		t.Fatal(err)
	}
	a.Reset(mark)
	if a.Mark() != mark {
		t.Errorf("Mark() after Reset = 0x%x, want 0x%x", a.Mark(), mark)
	}

	if _, err := a.Alloc(4, 3); !errors.Is(err, ErrInvalidAlignment) {
		t.Errorf("Alloc(align 3) = %v, want ErrInvalidAlignment", err)
	}
	if _, err := a.Alloc(4, 0); !errors.Is(err, ErrInvalidAlignment) {
		t.Errorf("Alloc(align 0) = %v, want ErrInvalidAlignment", err)
	}
	if _, err := a.Alloc(1024, 4); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Alloc(1024) = %v, want ErrOutOfMemory", err)
	}

	// Zero-size allocations are valid and do not advance past alignment
	p, err = a.Alloc(0, 4)
	if err != nil || p%4 != 0 {
		t.Errorf("Alloc(0, 4) = 0x%x, %v", p, err)
	}
	if a.Used() != 16 {
		t.Errorf("Used() = %d, want 16", a.Used())
	}
}
