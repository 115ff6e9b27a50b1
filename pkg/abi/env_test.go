package abi

import (
	"testing"
)

type call struct {
	code Code
	args [5]uint32
}

// fakeMachine is a flat memory with a scripted ecall.
type fakeMachine struct {
	mem   map[uint32]byte
	calls []call
	next  uint32
	on    func(m *fakeMachine, c call) uint32
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{mem: make(map[uint32]byte), next: 0x1000}
}

func (m *fakeMachine) Ecall(code Code, a0, a1, a2, a3, a4 uint32) uint32 {
	c := call{code, [5]uint32{a0, a1, a2, a3, a4}}
	m.calls = append(m.calls, c)
	if code == AllocAligned {
		ptr := (m.next + a1 - 1) &^ (a1 - 1)
		m.next = ptr + a0
		return ptr
	}
	if m.on != nil {
		return m.on(m, c)
	}
	return 0
}

func (m *fakeMachine) Load(addr uint32, p []byte) {
	for i := range p {
		p[i] = m.mem[addr+uint32(i)]
	}
}

func (m *fakeMachine) Store(addr uint32, p []byte) {
	for i, b := range p {
		m.mem[addr+uint32(i)] = b
	}
}

func (m *fakeMachine) count(code Code) int {
	n := 0
	for _, c := range m.calls {
		if c.code == code {
			n++
		}
	}
	return n
}

func TestCodeTable(t *testing.T) {
	if len(Codes()) != 41 {
		t.Errorf("len(Codes()) = %d, want 41", len(Codes()))
	}
	if Sha256Extend.ExtraCycles() != 48 {
		t.Errorf("SHA_EXTEND extra cycles = %d, want 48", Sha256Extend.ExtraCycles())
	}
	if got := Code(0x77).String(); got != "SYSCALL_0x00000077" {
		t.Errorf("String() = %q", got)
	}
	if U256x2048Mul.String() != "U256XU2048_MUL" {
		t.Errorf("String() = %q", U256x2048Mul.String())
	}
}

func TestScratchAllocatedOnce(t *testing.T) {
	m := newFakeMachine()
	env := NewEnv(m)

	var st KeccakState
	env.KeccakPermute(&st)
	env.KeccakPermute(&st)
	var w ShaSchedule
	env.Sha256Extend(&w)

	if n := m.count(AllocAligned); n != 1 {
		t.Errorf("ALLOC_ALIGNED calls = %d, want 1", n)
	}
}

func TestAddAliasesSameBuffer(t *testing.T) {
	m := newFakeMachine()
	env := NewEnv(m)

	p := Point256{1}
	q := Point256{2}
	env.Secp256k1Add(&p, &p)
	env.Secp256k1Add(&p, &q)

	adds := m.calls[len(m.calls)-2:]
	if adds[0].args[0] != adds[0].args[1] {
		t.Errorf("add(p, p) used addresses 0x%x, 0x%x, want same", adds[0].args[0], adds[0].args[1])
	}
	if adds[1].args[0] == adds[1].args[1] {
		t.Errorf("add(p, q) used the same address for both operands")
	}
}

func TestHostResultCopiedBack(t *testing.T) {
	m := newFakeMachine()
	m.on = func(m *fakeMachine, c call) uint32 {
		if c.code == Uint256MulMod {
			// result 42 into x
			m.Store(c.args[0], []byte{42, 0, 0, 0})
		}
		return 0
	}
	env := NewEnv(m)

	x, y, mod := NewUint256(6), NewUint256(7), NewUint256(100)
	env.Uint256MulMod(&x, &y, &mod)
	if x != NewUint256(42) {
		t.Errorf("x = %v, want 42", x)
	}

	// modulus immediately follows y
	c := m.calls[len(m.calls)-1]
	b := make([]byte, 4)
	m.Load(c.args[1]+32, b)
	if b[0] != 100 {
		t.Errorf("modulus word = %d, want 100", b[0])
	}
}

func TestWideMulAliasPanics(t *testing.T) {
	env := NewEnv(newFakeMachine())
	var x, hi Uint256
	var y Uint2048

	defer func() {
		if r := recover(); r != ErrAliasedBuffers {
			t.Errorf("recover() = %v, want ErrAliasedBuffers", r)
		}
	}()
	env.U256x2048Mul(&x, &y, &y, &hi)
}

func TestWriteChunks(t *testing.T) {
	m := newFakeMachine()
	env := NewEnv(m)

	env.Write(FdStdout, make([]byte, 2*ioChunk+1))
	if n := m.count(Write); n != 3 {
		t.Errorf("WRITE calls = %d, want 3", n)
	}
	last := m.calls[len(m.calls)-1]
	if last.args[2] != 1 {
		t.Errorf("last chunk = %d bytes, want 1", last.args[2])
	}
}

func TestUnconstrainedScope(t *testing.T) {
	m := newFakeMachine()
	m.on = func(_ *fakeMachine, c call) uint32 {
		if c.code == EnterUnconstrained {
			return 1
		}
		return 0
	}
	env := NewEnv(m)

	scope, run := env.EnterUnconstrained()
	if !run || !env.Unconstrained() {
		t.Fatalf("EnterUnconstrained() = %v, Unconstrained() = %v", run, env.Unconstrained())
	}
	scope.Exit()
	if env.Unconstrained() {
		t.Error("Unconstrained() after Exit = true")
	}

	// scratch was allocated before entering
	if m.calls[0].code != AllocAligned || m.calls[1].code != EnterUnconstrained {
		t.Errorf("calls = %v", m.calls)
	}

	defer func() {
		if r := recover(); r != ErrScopeClosed {
			t.Errorf("recover() = %v, want ErrScopeClosed", r)
		}
	}()
	scope.Exit()
}

func TestExitCommitsThenHalts(t *testing.T) {
	m := newFakeMachine()
	env := NewEnv(m)
	env.Write(FdPublicValues, []byte("pv"))

	func() {
		defer func() { recover() }()
		env.Exit(0)
	}()

	if n := m.count(Commit); n != 8 {
		t.Errorf("COMMIT calls = %d, want 8", n)
	}
	last := m.calls[len(m.calls)-1]
	if last.code != Halt {
		t.Errorf("last call = %s, want HALT", last.code)
	}
	d := env.PublicValuesDigest()
	first := m.calls[len(m.calls)-9]
	if want := uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16 | uint32(d[3])<<24; first.args[1] != want {
		t.Errorf("first committed word = 0x%x, want 0x%x", first.args[1], want)
	}
}
