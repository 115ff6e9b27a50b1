// Package syscall implements the host side of the zkVM syscall table.
//
// Syscalls are host functions a guest reaches with ecall. Each syscall is
// identified by its abi.Code. Arguments are passed in a0-a4, and the
// return value is placed in the result register.
package syscall

import (
	"errors"
	"fmt"

	"github.com/fortiblox/zilkworm/pkg/abi"
)

// Syscall errors.
var (
	ErrUnknownSyscall  = errors.New("unknown syscall")
	ErrInvalidPointer  = errors.New("invalid pointer")
	ErrInvalidLength   = errors.New("invalid length")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOverlap         = errors.New("overlapping buffers")
)

// Cycle costs for syscalls. Each call is billed CyclesSyscallBase plus the
// extra cycles encoded in its code plus the operation cost below.
const (
	CyclesSyscallBase   = uint64(1)
	CyclesIOPerWord     = uint64(1)
	CyclesShaCompress   = uint64(80)
	CyclesKeccakPermute = uint64(24)
	CyclesCurveAdd      = uint64(100)
	CyclesCurveDouble   = uint64(100)
	CyclesDecompress    = uint64(200)
	CyclesFieldOp       = uint64(10)
	CyclesUint256MulMod = uint64(10)
	CyclesBigint        = uint64(10)
	CyclesU256x2048Mul  = uint64(40)
	CyclesVerifyProof   = uint64(1000)
)

// MaxIOSize bounds a single READ, WRITE or HINT_READ transfer.
const MaxIOSize = 16 * 1024 * 1024

// Memory is guest memory as seen by handlers. Word accesses must be
// 4-aligned.
type Memory interface {
	Read(addr uint32, p []byte) error
	Write(addr uint32, p []byte) error
	ReadWords(addr uint32, w []uint32) error
	WriteWords(addr uint32, w []uint32) error
}

// Context provides execution state to syscalls.
type Context interface {
	Memory() Memory

	// Cycle metering
	ConsumeCycles(cost uint64) error

	// Allocation
	Alloc(size, align uint32) (uint32, error)

	// Channels
	ReadInput(fd uint32, p []byte) error
	WriteOutput(fd uint32, p []byte) error

	// Hints
	HintLen() (uint32, error)
	HintRead(p []byte) error

	// Execution mode
	EnterUnconstrained() (bool, error)
	ExitUnconstrained() error

	// Termination and public state
	Commit(index, word uint32) error
	Halt(exitCode uint32) error
	VerifyProof(vk abi.VKDigest, pv abi.PublicValuesDigest) error
}

// SyscallFunc is a host handler.
type SyscallFunc func(ctx Context, a0, a1, a2, a3, a4 uint32) (uint32, error)

// Syscall is a registered handler.
type Syscall struct {
	Code abi.Code
	Name string
	Cost uint64
	Fn   SyscallFunc
}

// Registry holds all registered syscalls.
type Registry struct {
	syscalls map[abi.Code]*Syscall
}

// NewRegistry creates a new syscall registry with the full table.
func NewRegistry() *Registry {
	r := &Registry{
		syscalls: make(map[abi.Code]*Syscall),
	}

	r.registerIO()
	r.registerControl()
	r.registerHints()
	r.registerHash()
	r.registerCurves()
	r.registerFields()
	r.registerArith()

	return r
}

// Get returns a syscall by code.
func (r *Registry) Get(code abi.Code) (*Syscall, bool) {
	sc, ok := r.syscalls[code]
	return sc, ok
}

// Dispatch bills and runs the handler for code.
func (r *Registry) Dispatch(ctx Context, code abi.Code, a0, a1, a2, a3, a4 uint32) (uint32, error) {
	sc, ok := r.syscalls[code]
	if !ok {
		return 0, fmt.Errorf("%w: 0x%08x", ErrUnknownSyscall, uint32(code))
	}
	if err := ctx.ConsumeCycles(sc.Cost); err != nil {
		return 0, err
	}
	return sc.Fn(ctx, a0, a1, a2, a3, a4)
}

// register adds a syscall to the registry.
func (r *Registry) register(code abi.Code, cost uint64, fn SyscallFunc) {
	r.syscalls[code] = &Syscall{
		Code: code,
		Name: code.String(),
		Cost: CyclesSyscallBase + code.ExtraCycles() + cost,
		Fn:   fn,
	}
}

// registerIO registers the byte channel syscalls.
func (r *Registry) registerIO() {
	// READ(fd, ptr, n)
	r.register(abi.Read, 0, func(ctx Context, fd, ptr, n, _, _ uint32) (uint32, error) {
		if n > MaxIOSize {
			return 0, fmt.Errorf("%w: read of %d bytes", ErrInvalidLength, n)
		}
		if err := ctx.ConsumeCycles(CyclesIOPerWord * words(n)); err != nil {
			return 0, err
		}
		buf := make([]byte, n)
		if err := ctx.ReadInput(fd, buf); err != nil {
			return 0, err
		}
		if err := ctx.Memory().Write(ptr, buf); err != nil {
			return 0, err
		}
		return n, nil
	})

	// WRITE(fd, ptr, n)
	r.register(abi.Write, 0, func(ctx Context, fd, ptr, n, _, _ uint32) (uint32, error) {
		if n > MaxIOSize {
			return 0, fmt.Errorf("%w: write of %d bytes", ErrInvalidLength, n)
		}
		if err := ctx.ConsumeCycles(CyclesIOPerWord * words(n)); err != nil {
			return 0, err
		}
		buf := make([]byte, n)
		if err := ctx.Memory().Read(ptr, buf); err != nil {
			return 0, err
		}
		if err := ctx.WriteOutput(fd, buf); err != nil {
			return 0, err
		}
		return n, nil
	})
}

// registerControl registers termination, mode and allocation syscalls.
func (r *Registry) registerControl() {
	r.register(abi.Halt, 0, func(ctx Context, code, _, _, _, _ uint32) (uint32, error) {
		return 0, ctx.Halt(code)
	})

	r.register(abi.EnterUnconstrained, 0, func(ctx Context, _, _, _, _, _ uint32) (uint32, error) {
		run, err := ctx.EnterUnconstrained()
		if err != nil || !run {
			return 0, err
		}
		return 1, nil
	})

	r.register(abi.ExitUnconstrained, 0, func(ctx Context, _, _, _, _, _ uint32) (uint32, error) {
		return 0, ctx.ExitUnconstrained()
	})

	// COMMIT(index, word)
	r.register(abi.Commit, 0, func(ctx Context, index, word, _, _, _ uint32) (uint32, error) {
		return 0, ctx.Commit(index, word)
	})

	// ALLOC_ALIGNED(bytes, align) returns the block address.
	r.register(abi.AllocAligned, 0, func(ctx Context, size, align, _, _, _ uint32) (uint32, error) {
		return ctx.Alloc(size, align)
	})

	// VERIFY_PROOF(vk, pv)
	r.register(abi.VerifyProof, CyclesVerifyProof, func(ctx Context, vkPtr, pvPtr, _, _, _ uint32) (uint32, error) {
		var vk abi.VKDigest
		if err := ctx.Memory().ReadWords(vkPtr, vk[:]); err != nil {
			return 0, err
		}
		var pv abi.PublicValuesDigest
		if err := ctx.Memory().Read(pvPtr, pv[:]); err != nil {
			return 0, err
		}
		return 0, ctx.VerifyProof(vk, pv)
	})
}

// registerHints registers the hint queue syscalls.
func (r *Registry) registerHints() {
	r.register(abi.HintLen, 0, func(ctx Context, _, _, _, _, _ uint32) (uint32, error) {
		return ctx.HintLen()
	})

	// HINT_READ(ptr, n)
	r.register(abi.HintRead, 0, func(ctx Context, ptr, n, _, _, _ uint32) (uint32, error) {
		if ptr%4 != 0 {
			return 0, fmt.Errorf("%w: hint buffer 0x%08x not word aligned", ErrInvalidPointer, ptr)
		}
		if n > MaxIOSize {
			return 0, fmt.Errorf("%w: hint of %d bytes", ErrInvalidLength, n)
		}
		if err := ctx.ConsumeCycles(CyclesIOPerWord * words(n)); err != nil {
			return 0, err
		}
		buf := make([]byte, n)
		if err := ctx.HintRead(buf); err != nil {
			return 0, err
		}
		return 0, ctx.Memory().Write(ptr, buf)
	})
}

func words(n uint32) uint64 {
	return (uint64(n) + 3) / 4
}

// overlaps reports whether [a, a+an) and [b, b+bn) intersect.
func overlaps(a, an, b, bn uint32) bool {
	return uint64(a) < uint64(b)+uint64(bn) && uint64(b) < uint64(a)+uint64(an)
}
