// Package host runs guest programs against an in-process model of the
// zkVM: guest memory, the syscall table and the execution mode state
// machine. Every contract violation stops the guest with a *Fault.
package host

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"go.uber.org/zap"

	"github.com/fortiblox/zilkworm/internal/logging"
	"github.com/fortiblox/zilkworm/internal/types"
	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/syscall"
	"github.com/fortiblox/zilkworm/pkg/vm"
)

// Mode is the execution mode.
type Mode int

const (
	// Constrained is the proven mode every run starts in.
	Constrained Mode = iota
	// Unconstrained runs native work that is not proven.
	Unconstrained
)

func (m Mode) String() string {
	if m == Unconstrained {
		return "unconstrained"
	}
	return "constrained"
}

// Entry is a guest entry point.
type Entry func(env *abi.Env)

// Config configures an Executor.
type Config struct {
	// MaxCycles bounds proven cycles. Zero means unlimited.
	MaxCycles uint64

	// SkipUnconstrained makes ENTER_UNCONSTRAINED report that the region
	// is not executed, as a prover does.
	SkipUnconstrained bool

	// Stdout and Stderr, when set, mirror fd 1 and fd 2.
	Stdout io.Writer
	Stderr io.Writer

	// ReplayHints supplies, per unconstrained entry in order, the hints
	// that region wrote when it was executed. When SkipUnconstrained is
	// set they are queued as each skipped region exits.
	ReplayHints [][][]byte

	// Verifier decides VERIFY_PROOF claims not supplied with the input.
	Verifier ProofVerifier

	// Recorder receives one event per syscall.
	Recorder Recorder

	Logger *zap.Logger
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		MaxCycles: 1 << 32,
	}
}

// Report summarises a completed run.
type Report struct {
	ExitCode             uint32                 `cbor:"exit_code"`
	Cycles               uint64                 `cbor:"cycles"`
	UnconstrainedCycles  uint64                 `cbor:"unconstrained_cycles"`
	Syscalls             map[string]uint64      `cbor:"syscalls"`
	Stdout               []byte                 `cbor:"stdout"`
	Stderr               []byte                 `cbor:"stderr"`
	PublicValues         []byte                 `cbor:"public_values"`
	PublicValuesDigest   abi.PublicValuesDigest `cbor:"public_values_digest"`
	UnconstrainedEntries int                    `cbor:"unconstrained_entries"`
	RegionHints          [][][]byte             `cbor:"region_hints,omitempty"`
	VerifiedProofs       []Claim                `cbor:"verified_proofs"`
	HeapUsed             uint32                 `cbor:"heap_used"`
	MemoryPages          int                    `cbor:"memory_pages"`
}

// haltSignal unwinds the guest after a successful HALT.
type haltSignal struct{}

// Executor runs one guest. It implements abi.Machine for the guest and
// syscall.Context for the handlers.
type Executor struct {
	cfg      Config
	log      *zap.Logger
	ctx      context.Context
	registry *syscall.Registry
	mem      *vm.Memory
	arena    *vm.Arena
	meter    *vm.CycleMeter
	verifier verifiers

	mode       Mode
	checkpoint struct {
		arena     uint32
		hintHead  int
		inputHead int
	}

	hints       [][]byte
	hintHead    int
	regionHints [][][]byte
	input       []byte
	inputHead   int

	stdout   bytes.Buffer
	stderr   bytes.Buffer
	pv       bytes.Buffer
	pvHash   hash.Hash
	commits  uint8 // bitmask of committed digest words
	words    [types.DigestWords]uint32
	verified []Claim

	started           bool
	halted            bool
	exitCode          uint32
	seq               uint64
	counts            map[abi.Code]uint64
	entries           int
	unconstrainedCost uint64
}

// NewExecutor creates an executor for one run with the given input.
func NewExecutor(cfg Config, stdin *Stdin) *Executor {
	if stdin == nil {
		stdin = NewStdin()
	}
	in := stdin.Clone()

	var vs verifiers
	if len(in.Proofs) > 0 {
		vs = append(vs, NewClaimSet(in.Proofs...))
	}
	if cfg.Verifier != nil {
		vs = append(vs, cfg.Verifier)
	}

	return &Executor{
		cfg:      cfg,
		log:      logging.OrNop(cfg.Logger).Named("host"),
		registry: syscall.NewRegistry(),
		mem:      vm.NewMemory(),
		arena:    vm.NewArena(vm.HeapStart, vm.MaxMemory),
		meter:    vm.NewCycleMeter(cfg.MaxCycles),
		verifier: vs,
		hints:    in.Hints,
		input:    in.Raw,
		pvHash:   sha256.New(),
		counts:   make(map[abi.Code]uint64),
	}
}

// Run executes entry to completion. It returns a *Fault error if the
// guest violates any contract, panics, or returns without halting.
func (e *Executor) Run(ctx context.Context, entry Entry) (rep *Report, err error) {
	if e.started {
		return nil, ErrAlreadyRun
	}
	e.started = true
	e.ctx = ctx

	defer func() {
		r := recover()
		switch r := r.(type) {
		case nil:
		case haltSignal:
			rep, err = e.report(), nil
			e.log.Debug("guest halted",
				zap.Uint32("exit_code", e.exitCode),
				zap.Uint64("cycles", e.meter.Consumed()))
			return
		case *Fault:
			err = r
		case error:
			err = e.newFault("guest", 0, fmt.Errorf("%w: %w", ErrGuestPanic, r))
		default:
			err = e.newFault("guest", 0, fmt.Errorf("%w: %v", ErrGuestPanic, r))
		}
		if err != nil {
			rep = nil
			e.log.Warn("guest fault", zap.Error(err))
		}
	}()

	entry(abi.NewEnv(e))
	e.raise("guest", 0, ErrNoHalt)
	return nil, nil
}

func (e *Executor) newFault(op string, code abi.Code, err error) *Fault {
	return &Fault{Op: op, Code: code, Cycle: e.meter.Consumed(), Err: err}
}

func (e *Executor) raise(op string, code abi.Code, err error) {
	panic(e.newFault(op, code, err))
}

// Ecall implements abi.Machine.
func (e *Executor) Ecall(code abi.Code, a0, a1, a2, a3, a4 uint32) uint32 {
	if e.halted {
		e.raise(code.String(), code, ErrAfterHalt)
	}
	if e.ctx != nil {
		if err := e.ctx.Err(); err != nil {
			e.raise(code.String(), code, err)
		}
	}

	mode := e.mode
	ret, err := e.registry.Dispatch(e, code, a0, a1, a2, a3, a4)
	e.counts[code]++
	e.record(code, [5]uint32{a0, a1, a2, a3, a4}, ret, mode, err)

	if err != nil {
		e.raise(code.String(), code, err)
	}
	if e.halted {
		panic(haltSignal{})
	}
	return ret
}

func (e *Executor) record(code abi.Code, args [5]uint32, ret uint32, mode Mode, err error) {
	e.seq++
	if e.cfg.Recorder == nil {
		return
	}
	ev := Event{
		Seq:           e.seq,
		Code:          code,
		Name:          code.String(),
		Args:          args,
		Ret:           ret,
		Cycle:         e.meter.Consumed(),
		Unconstrained: mode == Unconstrained,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	if rerr := e.cfg.Recorder.Record(ev); rerr != nil {
		e.log.Warn("trace record failed", zap.Uint64("seq", e.seq), zap.Error(rerr))
	}
}

// Load implements abi.Machine.
func (e *Executor) Load(addr uint32, p []byte) {
	if err := e.mem.Read(addr, p); err != nil {
		e.raise("load", 0, err)
	}
}

// Store implements abi.Machine.
func (e *Executor) Store(addr uint32, p []byte) {
	if err := e.mem.Write(addr, p); err != nil {
		e.raise("store", 0, err)
	}
}

func (e *Executor) report() *Report {
	counts := make(map[string]uint64, len(e.counts))
	for code, n := range e.counts {
		counts[code.String()] = n
	}
	return &Report{
		ExitCode:             e.exitCode,
		Cycles:               e.meter.Consumed(),
		UnconstrainedCycles:  e.unconstrainedCost,
		Syscalls:             counts,
		Stdout:               bytes.Clone(e.stdout.Bytes()),
		Stderr:               bytes.Clone(e.stderr.Bytes()),
		PublicValues:         bytes.Clone(e.pv.Bytes()),
		PublicValuesDigest:   e.pvDigest(),
		UnconstrainedEntries: e.entries,
		RegionHints:          e.regionHints,
		VerifiedProofs:       e.verified,
		HeapUsed:             e.arena.Used(),
		MemoryPages:          e.mem.Pages(),
	}
}

func (e *Executor) pvDigest() abi.PublicValuesDigest {
	var d abi.PublicValuesDigest
	copy(d[:], e.pvHash.Sum(nil))
	return d
}

// Mode returns the current execution mode.
func (e *Executor) Mode() Mode { return e.mode }

// Memory implements syscall.Context.
func (e *Executor) Memory() syscall.Memory { return e.mem }

// ConsumeCycles implements syscall.Context. Unconstrained work is tallied
// but not charged.
func (e *Executor) ConsumeCycles(cost uint64) error {
	if e.mode == Unconstrained {
		e.unconstrainedCost += cost
		return nil
	}
	return e.meter.Consume(cost)
}

// Alloc implements syscall.Context.
func (e *Executor) Alloc(size, align uint32) (uint32, error) {
	return e.arena.Alloc(size, align)
}

// ReadInput implements syscall.Context.
func (e *Executor) ReadInput(fd uint32, p []byte) error {
	if fd != abi.FdStdin {
		return fmt.Errorf("%w: read from fd %d", ErrInvalidFd, fd)
	}
	if len(p) > len(e.input)-e.inputHead {
		return fmt.Errorf("%w: want %d bytes, %d left", ErrInputExhausted, len(p), len(e.input)-e.inputHead)
	}
	e.inputHead += copy(p, e.input[e.inputHead:])
	return nil
}

// WriteOutput implements syscall.Context.
func (e *Executor) WriteOutput(fd uint32, p []byte) error {
	switch fd {
	case abi.FdStdout:
		e.stdout.Write(p)
		return mirror(e.cfg.Stdout, p)
	case abi.FdStderr:
		e.stderr.Write(p)
		return mirror(e.cfg.Stderr, p)
	case abi.FdPublicValues:
		if e.mode == Unconstrained {
			return fmt.Errorf("%w: public values write", ErrUnconstrainedOp)
		}
		e.pv.Write(p)
		e.pvHash.Write(p)
		return nil
	case abi.FdHint:
		e.queueHint(p)
		return nil
	}
	return fmt.Errorf("%w: write to fd %d", ErrInvalidFd, fd)
}

func (e *Executor) queueHint(p []byte) {
	h := bytes.Clone(p)
	e.hints = append(e.hints, h)
	if e.mode == Unconstrained {
		e.regionHints[len(e.regionHints)-1] = append(e.regionHints[len(e.regionHints)-1], h)
	}
}

func mirror(w io.Writer, p []byte) error {
	if w == nil {
		return nil
	}
	_, err := w.Write(p)
	return err
}

// HintLen implements syscall.Context.
func (e *Executor) HintLen() (uint32, error) {
	if e.hintHead >= len(e.hints) {
		return 0, ErrHintQueueEmpty
	}
	return uint32(len(e.hints[e.hintHead])), nil
}

// HintRead implements syscall.Context.
func (e *Executor) HintRead(p []byte) error {
	if e.hintHead >= len(e.hints) {
		return ErrHintQueueEmpty
	}
	next := e.hints[e.hintHead]
	if len(next) != len(p) {
		return fmt.Errorf("%w: read %d bytes, next hint has %d", ErrHintLength, len(p), len(next))
	}
	copy(p, next)
	e.hintHead++
	return nil
}

// EnterUnconstrained implements syscall.Context.
func (e *Executor) EnterUnconstrained() (bool, error) {
	if e.mode == Unconstrained {
		return false, ErrNestedUnconstrained
	}
	if err := e.mem.Checkpoint(); err != nil {
		return false, err
	}
	e.checkpoint.arena = e.arena.Mark()
	e.checkpoint.hintHead = e.hintHead
	e.checkpoint.inputHead = e.inputHead
	e.mode = Unconstrained
	e.entries++
	e.regionHints = append(e.regionHints, nil)

	run := !e.cfg.SkipUnconstrained
	e.log.Debug("enter unconstrained", zap.Bool("execute", run), zap.Int("entry", e.entries))
	return run, nil
}

// ExitUnconstrained implements syscall.Context. Memory, allocations and
// input positions are restored to their state at entry; hints written
// inside the region stay queued. A skipped region queues its replayed
// hints instead.
func (e *Executor) ExitUnconstrained() error {
	if e.mode != Unconstrained {
		return ErrNotUnconstrained
	}
	if err := e.mem.Rollback(); err != nil {
		return err
	}
	e.arena.Reset(e.checkpoint.arena)
	e.hintHead = e.checkpoint.hintHead
	e.inputHead = e.checkpoint.inputHead
	if i := e.entries - 1; e.cfg.SkipUnconstrained && i < len(e.cfg.ReplayHints) {
		for _, h := range e.cfg.ReplayHints[i] {
			e.queueHint(h)
		}
	}
	e.mode = Constrained
	e.log.Debug("exit unconstrained", zap.Int("hints_queued", len(e.hints)-e.hintHead))
	return nil
}

// Commit implements syscall.Context. Each word must match the digest of
// the public values written so far, and still match it at HALT.
func (e *Executor) Commit(index, word uint32) error {
	if e.mode == Unconstrained {
		return fmt.Errorf("%w: commit", ErrUnconstrainedOp)
	}
	if index >= types.DigestWords {
		return fmt.Errorf("%w: %d", ErrInvalidCommit, index)
	}
	d := e.pvDigest()
	want := types.Digest(d).Words()[index]
	if word != want {
		return fmt.Errorf("%w: word %d is 0x%08x, want 0x%08x", ErrCommitMismatch, index, word, want)
	}
	e.commits |= 1 << index
	e.words[index] = word
	return nil
}

// Halt implements syscall.Context.
func (e *Executor) Halt(exitCode uint32) error {
	if e.mode == Unconstrained {
		return fmt.Errorf("%w: halt", ErrUnconstrainedOp)
	}
	if e.commits != 0 && e.commits != 0xFF {
		return fmt.Errorf("%w: mask 0x%02x", ErrIncompleteCommit, e.commits)
	}
	if e.commits != 0 && e.words != types.Digest(e.pvDigest()).Words() {
		return fmt.Errorf("%w: public values written after commit", ErrCommitMismatch)
	}
	e.halted = true
	e.exitCode = exitCode
	return nil
}

// VerifyProof implements syscall.Context.
func (e *Executor) VerifyProof(vk abi.VKDigest, pv abi.PublicValuesDigest) error {
	if e.mode == Unconstrained {
		return fmt.Errorf("%w: verify proof", ErrUnconstrainedOp)
	}
	if err := e.verifier.VerifyClaim(vk, pv); err != nil {
		return err
	}
	e.verified = append(e.verified, Claim{VK: vk, PublicValues: pv})
	return nil
}

// Run is a convenience wrapper that executes entry with a fresh executor.
func Run(ctx context.Context, cfg Config, stdin *Stdin, entry Entry) (*Report, error) {
	return NewExecutor(cfg, stdin).Run(ctx, entry)
}

// ExitCodeError is returned by callers that require a zero exit code.
type ExitCodeError struct {
	Code uint32
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("guest exited with code %d", e.Code)
}

// RequireSuccess returns an *ExitCodeError for a non-zero exit code.
func (r *Report) RequireSuccess() error {
	if r.ExitCode != 0 {
		return &ExitCodeError{Code: r.ExitCode}
	}
	return nil
}

// compile-time interface checks
var (
	_ abi.Machine     = (*Executor)(nil)
	_ syscall.Context = (*Executor)(nil)
	_ ProofVerifier   = ClaimSet(nil)
	_ error           = (*Fault)(nil)
)
