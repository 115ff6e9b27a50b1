package abi

import (
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/fortiblox/zilkworm/internal/types"
)

// Machine is the guest's view of the core it runs on: its own memory and
// the ecall instruction. Implementations abort the execution from inside
// these calls on any contract violation, so none of them return an error.
type Machine interface {
	// Ecall issues syscall code with five argument registers and returns
	// the value the host leaves in the result register.
	Ecall(code Code, a0, a1, a2, a3, a4 uint32) uint32
	// Load copies len(p) bytes of guest memory starting at addr into p.
	Load(addr uint32, p []byte)
	// Store copies p into guest memory starting at addr.
	Store(addr uint32, p []byte)
}

// Guest-side contract violations. They are raised as panics because the
// guest has no way to recover from them.
var (
	ErrNestedUnconstrained = errors.New("abi: unconstrained region already open")
	ErrScopeClosed         = errors.New("abi: unconstrained scope already closed")
	ErrAliasedBuffers      = errors.New("abi: wide multiply buffers overlap")
	ErrHaltReturned        = errors.New("abi: halt returned")
)

const (
	// scratchSize bounds the largest single syscall frame: the
	// 256x2048 multiply needs 32+256+256+32 bytes.
	scratchSize  = 1024
	scratchAlign = 8

	// ioChunk is the largest slice moved per READ or WRITE ecall.
	ioChunk = 512
)

// Env is the guest's typed syscall surface. Every method copies its
// operands into a scratch area of guest memory, issues the ecall and
// copies mutated buffers back. An Env is not safe for concurrent use;
// a guest has a single thread.
type Env struct {
	m       Machine
	scratch uint32
	pv      hash.Hash
	scope   *UnconstrainedScope
	locals  map[any]any
}

// NewEnv returns an Env bound to m.
func NewEnv(m Machine) *Env {
	return &Env{m: m, pv: sha256.New()}
}

// Machine returns the underlying machine.
func (e *Env) Machine() Machine { return e.m }

// SetLocal stores v under key for the rest of the run. Program state that
// start-up routines hand to main lives here, so one program value can run
// on many machines at once.
func (e *Env) SetLocal(key, v any) {
	if e.locals == nil {
		e.locals = make(map[any]any)
	}
	e.locals[key] = v
}

// Local returns the value stored under key, or nil.
func (e *Env) Local(key any) any { return e.locals[key] }

// frame hands out consecutive word-aligned slots of the scratch area for
// one syscall.
type frame struct {
	e   *Env
	off uint32
}

func (e *Env) frame() *frame {
	e.ensureScratch()
	return &frame{e: e, off: e.scratch}
}

// ensureScratch allocates the scratch area on first use. It must not run
// inside an unconstrained region, whose allocations are rolled back, so
// EnterUnconstrained calls it first.
func (e *Env) ensureScratch() {
	if e.scratch == 0 {
		e.scratch = e.AllocAligned(scratchSize, scratchAlign)
	}
}

func (f *frame) words(w []uint32) uint32 {
	addr := f.off
	f.e.storeWords(addr, w)
	f.off += uint32(len(w)) * types.WordSize
	return addr
}

func (f *frame) bytes(p []byte) uint32 {
	addr := f.off
	f.e.m.Store(addr, p)
	f.off += (uint32(len(p)) + types.WordSize - 1) &^ (types.WordSize - 1)
	return addr
}

func (f *frame) lanes(l []uint64) uint32 {
	w := make([]uint32, 2*len(l))
	types.Uint64sToWords(w, l)
	return f.words(w)
}

func (e *Env) storeWords(addr uint32, w []uint32) {
	b := make([]byte, len(w)*types.WordSize)
	types.PutWordsLE(b, w)
	e.m.Store(addr, b)
}

func (e *Env) loadWords(addr uint32, w []uint32) {
	b := make([]byte, len(w)*types.WordSize)
	e.m.Load(addr, b)
	types.WordsFromLE(w, b)
}

func (e *Env) loadLanes(addr uint32, l []uint64) {
	w := make([]uint32, 2*len(l))
	e.loadWords(addr, w)
	types.WordsToUint64s(l, w)
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Halt terminates the guest with exitCode. It does not return.
func (e *Env) Halt(exitCode uint8) {
	e.m.Ecall(Halt, uint32(exitCode), 0, 0, 0, 0)
	panic(ErrHaltReturned)
}

// Exit commits the digest of everything written to the public-values
// channel and halts.
func (e *Env) Exit(exitCode uint8) {
	var d PublicValuesDigest
	copy(d[:], e.pv.Sum(nil))
	var words [types.DigestWords]uint32
	types.WordsFromLE(words[:], d[:])
	for i, w := range words {
		e.m.Ecall(Commit, uint32(i), w, 0, 0, 0)
	}
	e.Halt(exitCode)
}

// PublicValuesDigest returns the running digest of the public-values
// channel.
func (e *Env) PublicValuesDigest() PublicValuesDigest {
	var d PublicValuesDigest
	copy(d[:], e.pv.Sum(nil))
	return d
}

// Write sends p on channel fd.
func (e *Env) Write(fd uint32, p []byte) {
	if fd == FdPublicValues {
		e.pv.Write(p)
	}
	for len(p) > 0 {
		n := min(len(p), ioChunk)
		addr := e.frame().bytes(p[:n])
		e.m.Ecall(Write, fd, addr, uint32(n), 0, 0)
		p = p[n:]
	}
}

// Read fills p from channel fd.
func (e *Env) Read(fd uint32, p []byte) {
	for len(p) > 0 {
		n := min(len(p), ioChunk)
		addr := e.frame().off
		e.m.Ecall(Read, fd, addr, uint32(n), 0, 0)
		e.m.Load(addr, p[:n])
		p = p[n:]
	}
}

// AllocAligned reserves bytes of guest memory at a multiple of align.
// The memory is never freed.
func (e *Env) AllocAligned(bytes, align uint32) uint32 {
	return e.m.Ecall(AllocAligned, bytes, align, 0, 0, 0)
}

// Sha256Extend fills w[16:64] from w[0:16].
func (e *Env) Sha256Extend(w *ShaSchedule) {
	addr := e.frame().words(w[:])
	e.m.Ecall(Sha256Extend, addr, 0, 0, 0, 0)
	e.loadWords(addr, w[:])
}

// Sha256Compress runs the 64 compression rounds of an extended schedule
// into state.
func (e *Env) Sha256Compress(w *ShaSchedule, state *ShaState) {
	f := e.frame()
	wa := f.words(w[:])
	sa := f.words(state[:])
	e.m.Ecall(Sha256Compress, wa, sa, 0, 0, 0)
	e.loadWords(sa, state[:])
}

// KeccakPermute applies Keccak-f[1600] to st.
func (e *Env) KeccakPermute(st *KeccakState) {
	addr := e.frame().lanes(st[:])
	e.m.Ecall(KeccakPermute, addr, 0, 0, 0, 0)
	e.loadLanes(addr, st[:])
}

func (e *Env) add(code Code, p, q []uint32, same bool) {
	f := e.frame()
	pa := f.words(p)
	qa := pa
	if !same {
		qa = f.words(q)
	}
	e.m.Ecall(code, pa, qa, 0, 0, 0)
	e.loadWords(pa, p)
}

func (e *Env) double(code Code, p []uint32) {
	pa := e.frame().words(p)
	e.m.Ecall(code, pa, 0, 0, 0, 0)
	e.loadWords(pa, p)
}

func (e *Env) decompress(code Code, point []byte, isOdd bool) {
	addr := e.frame().bytes(point)
	e.m.Ecall(code, addr, boolArg(isOdd), 0, 0, 0)
	e.m.Load(addr, point)
}

// Secp256k1Add sets p = p + q. p and q may be the same point.
func (e *Env) Secp256k1Add(p, q *Point256) { e.add(Secp256k1Add, p[:], q[:], p == q) }

// Secp256k1Double sets p = 2p.
func (e *Env) Secp256k1Double(p *Point256) { e.double(Secp256k1Double, p[:]) }

// Secp256k1Decompress takes x big-endian in bytes 0-31 and writes the
// matching y of the requested parity big-endian to bytes 32-63.
func (e *Env) Secp256k1Decompress(point *CompressedPoint256, isOdd bool) {
	e.decompress(Secp256k1Decompress, point[:], isOdd)
}

// Secp256r1Add sets p = p + q. p and q may be the same point.
func (e *Env) Secp256r1Add(p, q *Point256) { e.add(Secp256r1Add, p[:], q[:], p == q) }

// Secp256r1Double sets p = 2p.
func (e *Env) Secp256r1Double(p *Point256) { e.double(Secp256r1Double, p[:]) }

// Secp256r1Decompress uses the Secp256k1Decompress layout.
func (e *Env) Secp256r1Decompress(point *CompressedPoint256, isOdd bool) {
	e.decompress(Secp256r1Decompress, point[:], isOdd)
}

// Bn254Add sets p = p + q. p and q may be the same point.
func (e *Env) Bn254Add(p, q *Point256) { e.add(Bn254Add, p[:], q[:], p == q) }

// Bn254Double sets p = 2p.
func (e *Env) Bn254Double(p *Point256) { e.double(Bn254Double, p[:]) }

// EdAdd sets p = p + q on ed25519. p and q may be the same point.
func (e *Env) EdAdd(p, q *Point256) { e.add(EdAdd, p[:], q[:], p == q) }

// EdDecompress takes the 32-byte compressed encoding in bytes 32-63 and
// writes x little-endian to bytes 0-31.
func (e *Env) EdDecompress(point *CompressedPoint256) {
	addr := e.frame().bytes(point[:])
	e.m.Ecall(EdDecompress, addr, 0, 0, 0, 0)
	e.m.Load(addr, point[:])
}

// Bls12381Add sets p = p + q. p and q may be the same point.
func (e *Env) Bls12381Add(p, q *Point381) { e.add(Bls12381Add, p[:], q[:], p == q) }

// Bls12381Double sets p = 2p.
func (e *Env) Bls12381Double(p *Point381) { e.double(Bls12381Double, p[:]) }

// Bls12381Decompress takes x big-endian in bytes 0-47 and writes y
// big-endian to bytes 48-95.
func (e *Env) Bls12381Decompress(point *CompressedPoint381, isOdd bool) {
	e.decompress(Bls12381Decompress, point[:], isOdd)
}

// Field operations write the result into p.

func (e *Env) Bn254FpAddMod(p, q *Bn254Fp) { e.add(Bn254FpAddMod, p[:], q[:], p == q) }
func (e *Env) Bn254FpSubMod(p, q *Bn254Fp) { e.add(Bn254FpSubMod, p[:], q[:], p == q) }
func (e *Env) Bn254FpMulMod(p, q *Bn254Fp) { e.add(Bn254FpMulMod, p[:], q[:], p == q) }
func (e *Env) Bn254Fp2AddMod(p, q *Bn254Fp2) { e.add(Bn254Fp2AddMod, p[:], q[:], p == q) }
func (e *Env) Bn254Fp2SubMod(p, q *Bn254Fp2) { e.add(Bn254Fp2SubMod, p[:], q[:], p == q) }
func (e *Env) Bn254Fp2MulMod(p, q *Bn254Fp2) { e.add(Bn254Fp2MulMod, p[:], q[:], p == q) }

func (e *Env) Bls12381FpAddMod(p, q *Bls12381Fp) { e.add(Bls12381FpAddMod, p[:], q[:], p == q) }
func (e *Env) Bls12381FpSubMod(p, q *Bls12381Fp) { e.add(Bls12381FpSubMod, p[:], q[:], p == q) }
func (e *Env) Bls12381FpMulMod(p, q *Bls12381Fp) { e.add(Bls12381FpMulMod, p[:], q[:], p == q) }
func (e *Env) Bls12381Fp2AddMod(p, q *Bls12381Fp2) { e.add(Bls12381Fp2AddMod, p[:], q[:], p == q) }
func (e *Env) Bls12381Fp2SubMod(p, q *Bls12381Fp2) { e.add(Bls12381Fp2SubMod, p[:], q[:], p == q) }
func (e *Env) Bls12381Fp2MulMod(p, q *Bls12381Fp2) { e.add(Bls12381Fp2MulMod, p[:], q[:], p == q) }

// Uint256MulMod sets x = x*y mod modulus. A zero modulus means 2^256.
func (e *Env) Uint256MulMod(x, y, modulus *Uint256) {
	f := e.frame()
	xa := f.words(x[:])
	ya := f.words(y[:])
	f.words(modulus[:])
	e.m.Ecall(Uint256MulMod, xa, ya, 0, 0, 0)
	e.loadWords(xa, x[:])
}

// Bigint sets result = op(x, y) mod modulus.
func (e *Env) Bigint(result *Uint256, op BigintOp, x, y, modulus *Uint256) {
	f := e.frame()
	ra := f.words(result[:])
	xa := f.words(x[:])
	ya := f.words(y[:])
	ma := f.words(modulus[:])
	e.m.Ecall(Bigint, ra, uint32(op), xa, ya, ma)
	e.loadWords(ra, result[:])
}

// U256x2048Mul computes x*y as a 2304-bit product, low 2048 bits into lo
// and high 256 bits into hi. lo and hi must not alias x or y.
func (e *Env) U256x2048Mul(x *Uint256, y *Uint2048, lo *Uint2048, hi *Uint256) {
	if lo == y || hi == x {
		panic(ErrAliasedBuffers)
	}
	f := e.frame()
	xa := f.words(x[:])
	ya := f.words(y[:])
	la := f.words(lo[:])
	ha := f.words(hi[:])
	e.m.Ecall(U256x2048Mul, xa, ya, la, ha, 0)
	e.loadWords(la, lo[:])
	e.loadWords(ha, hi[:])
}

// VerifyProof asserts that a proof for vk with public values digest pv
// exists. The host aborts the guest otherwise.
func (e *Env) VerifyProof(vk *VKDigest, pv *PublicValuesDigest) {
	f := e.frame()
	va := f.words(vk[:])
	pa := f.bytes(pv[:])
	e.m.Ecall(VerifyProof, va, pa, 0, 0, 0)
}

// HintLen returns the byte length of the next queued hint without
// consuming it.
func (e *Env) HintLen() uint32 {
	return e.m.Ecall(HintLen, 0, 0, 0, 0, 0)
}

// HintRead consumes the next hint into p. len(p) must equal HintLen().
func (e *Env) HintRead(p []byte) {
	n := uint32(len(p))
	addr := e.AllocAligned(roundWord(n), types.WordSize)
	e.m.Ecall(HintRead, addr, n, 0, 0, 0)
	e.m.Load(addr, p)
}

// ReadVecRaw moves the next hint into a freshly allocated guest buffer
// and hands ownership of it to the caller.
func (e *Env) ReadVecRaw() ReadVecResult {
	n := e.HintLen()
	c := roundWord(n)
	ptr := e.AllocAligned(c, types.WordSize)
	e.m.Ecall(HintRead, ptr, n, 0, 0, 0)
	return ReadVecResult{Ptr: ptr, Len: n, Cap: c}
}

// Bytes copies the contents of a ReadVecRaw buffer out of guest memory.
func (e *Env) Bytes(r ReadVecResult) []byte {
	p := make([]byte, r.Len)
	e.m.Load(r.Ptr, p)
	return p
}

func roundWord(n uint32) uint32 {
	return (n + types.WordSize - 1) &^ (types.WordSize - 1)
}

// UnconstrainedScope is an open unconstrained region. Exit must be called
// exactly once.
type UnconstrainedScope struct {
	e      *Env
	closed bool
}

// EnterUnconstrained opens an unconstrained region. The flag reports
// whether the host executes the region; when it is false the caller must
// skip straight to Exit.
func (e *Env) EnterUnconstrained() (*UnconstrainedScope, bool) {
	if e.scope != nil {
		panic(ErrNestedUnconstrained)
	}
	e.ensureScratch()
	run := e.m.Ecall(EnterUnconstrained, 0, 0, 0, 0, 0) != 0
	e.scope = &UnconstrainedScope{e: e}
	return e.scope, run
}

// Exit closes the region.
func (s *UnconstrainedScope) Exit() {
	if s.closed {
		panic(ErrScopeClosed)
	}
	s.closed = true
	s.e.scope = nil
	s.e.m.Ecall(ExitUnconstrained, 0, 0, 0, 0, 0)
}

// Unconstrained reports whether a region is open.
func (e *Env) Unconstrained() bool { return e.scope != nil }
