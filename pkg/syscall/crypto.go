package syscall

import (
	"fmt"

	"github.com/fortiblox/zilkworm/internal/types"
	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/precompile"
)

// registerHash registers the SHA-256 and Keccak syscalls.
func (r *Registry) registerHash() {
	// SHA_EXTEND(w)
	r.register(abi.Sha256Extend, 0, func(ctx Context, wPtr, _, _, _, _ uint32) (uint32, error) {
		var w [64]uint32
		if err := ctx.Memory().ReadWords(wPtr, w[:]); err != nil {
			return 0, err
		}
		precompile.Sha256Extend(&w)
		return 0, ctx.Memory().WriteWords(wPtr+16*4, w[16:])
	})

	// SHA_COMPRESS(w, state)
	r.register(abi.Sha256Compress, CyclesShaCompress, func(ctx Context, wPtr, hPtr, _, _, _ uint32) (uint32, error) {
		var w [64]uint32
		var h [8]uint32
		if err := ctx.Memory().ReadWords(wPtr, w[:]); err != nil {
			return 0, err
		}
		if err := ctx.Memory().ReadWords(hPtr, h[:]); err != nil {
			return 0, err
		}
		precompile.Sha256Compress(&w, &h)
		return 0, ctx.Memory().WriteWords(hPtr, h[:])
	})

	// KECCAK_PERMUTE(state)
	r.register(abi.KeccakPermute, CyclesKeccakPermute, func(ctx Context, ptr, _, _, _, _ uint32) (uint32, error) {
		var w [50]uint32
		if err := ctx.Memory().ReadWords(ptr, w[:]); err != nil {
			return 0, err
		}
		var st [25]uint64
		types.WordsToUint64s(st[:], w[:])
		precompile.KeccakF1600(&st)
		types.Uint64sToWords(w[:], st[:])
		return 0, ctx.Memory().WriteWords(ptr, w[:])
	})
}

// registerCurves registers point addition, doubling and decompression.
func (r *Registry) registerCurves() {
	r.registerCurve(abi.Secp256k1Add, abi.Secp256k1Double, precompile.Secp256k1)
	r.registerCurve(abi.Secp256r1Add, abi.Secp256r1Double, precompile.Secp256r1)
	r.registerCurve(abi.Bn254Add, abi.Bn254Double, precompile.Bn254)
	r.registerCurve(abi.Bls12381Add, abi.Bls12381Double, precompile.Bls12381)

	edAdd, _ := curveHandlers(precompile.Ed25519)
	r.register(abi.EdAdd, CyclesCurveAdd, edAdd)

	r.registerDecompress(abi.Secp256k1Decompress, 64, precompile.Secp256k1)
	r.registerDecompress(abi.Secp256r1Decompress, 64, precompile.Secp256r1)
	r.registerDecompress(abi.Bls12381Decompress, 96, precompile.Bls12381)

	// ED_DECOMPRESS(point)
	r.register(abi.EdDecompress, CyclesDecompress, func(ctx Context, ptr, _, _, _, _ uint32) (uint32, error) {
		buf := make([]byte, 64)
		if err := ctx.Memory().Read(ptr, buf); err != nil {
			return 0, err
		}
		if err := precompile.EdDecompress(buf); err != nil {
			return 0, fmt.Errorf("ed25519 decompress: %w", err)
		}
		return 0, ctx.Memory().Write(ptr, buf[:32])
	})
}

func (r *Registry) registerCurve(add, double abi.Code, c precompile.Curve) {
	addFn, doubleFn := curveHandlers(c)
	r.register(add, CyclesCurveAdd, addFn)
	r.register(double, CyclesCurveDouble, doubleFn)
}

func curveHandlers(c precompile.Curve) (add, double SyscallFunc) {
	n := uint32(2 * c.CoordWords())

	// ADD(p, q): p = p + q. p and q are either the same buffer or disjoint.
	add = func(ctx Context, pPtr, qPtr, _, _, _ uint32) (uint32, error) {
		if pPtr != qPtr && overlaps(pPtr, 4*n, qPtr, 4*n) {
			return 0, fmt.Errorf("%w: %s add", ErrOverlap, c.Name())
		}
		p := make([]uint32, n)
		q := make([]uint32, n)
		if err := ctx.Memory().ReadWords(pPtr, p); err != nil {
			return 0, err
		}
		if err := ctx.Memory().ReadWords(qPtr, q); err != nil {
			return 0, err
		}
		if err := c.Add(p, q); err != nil {
			return 0, fmt.Errorf("%s add: %w", c.Name(), err)
		}
		return 0, ctx.Memory().WriteWords(pPtr, p)
	}

	// DOUBLE(p): p = 2p.
	double = func(ctx Context, pPtr, _, _, _, _ uint32) (uint32, error) {
		p := make([]uint32, n)
		if err := ctx.Memory().ReadWords(pPtr, p); err != nil {
			return 0, err
		}
		if err := c.Double(p); err != nil {
			return 0, fmt.Errorf("%s double: %w", c.Name(), err)
		}
		return 0, ctx.Memory().WriteWords(pPtr, p)
	}
	return add, double
}

// DECOMPRESS(point, isOdd)
func (r *Registry) registerDecompress(code abi.Code, size int, d precompile.Decompressor) {
	r.register(code, CyclesDecompress, func(ctx Context, ptr, isOdd, _, _, _ uint32) (uint32, error) {
		if isOdd > 1 {
			return 0, fmt.Errorf("%w: parity flag %d", ErrInvalidArgument, isOdd)
		}
		buf := make([]byte, size)
		if err := ctx.Memory().Read(ptr, buf); err != nil {
			return 0, err
		}
		if err := d.Decompress(buf, isOdd == 1); err != nil {
			return 0, fmt.Errorf("%s: %w", code, err)
		}
		return 0, ctx.Memory().Write(ptr, buf)
	})
}

// registerFields registers bn254 and bls12-381 base field arithmetic.
func (r *Registry) registerFields() {
	fields := []struct {
		f             precompile.Field
		add, sub, mul abi.Code
	}{
		{precompile.Bn254Fp, abi.Bn254FpAddMod, abi.Bn254FpSubMod, abi.Bn254FpMulMod},
		{precompile.Bn254Fp2, abi.Bn254Fp2AddMod, abi.Bn254Fp2SubMod, abi.Bn254Fp2MulMod},
		{precompile.Bls12381Fp, abi.Bls12381FpAddMod, abi.Bls12381FpSubMod, abi.Bls12381FpMulMod},
		{precompile.Bls12381Fp2, abi.Bls12381Fp2AddMod, abi.Bls12381Fp2SubMod, abi.Bls12381Fp2MulMod},
	}
	for _, fc := range fields {
		r.register(fc.add, CyclesFieldOp, fieldHandler(fc.f, precompile.FieldAdd))
		r.register(fc.sub, CyclesFieldOp, fieldHandler(fc.f, precompile.FieldSub))
		r.register(fc.mul, CyclesFieldOp, fieldHandler(fc.f, precompile.FieldMul))
	}
}

// fieldHandler returns OP(p, q): p = p op q.
func fieldHandler(f precompile.Field, op precompile.FieldOp) SyscallFunc {
	n := uint32(f.Words())
	return func(ctx Context, pPtr, qPtr, _, _, _ uint32) (uint32, error) {
		p := make([]uint32, n)
		q := make([]uint32, n)
		if err := ctx.Memory().ReadWords(pPtr, p); err != nil {
			return 0, err
		}
		if err := ctx.Memory().ReadWords(qPtr, q); err != nil {
			return 0, err
		}
		if err := f.Apply(op, p, q); err != nil {
			return 0, fmt.Errorf("%s %s: %w", f.Name(), op, err)
		}
		return 0, ctx.Memory().WriteWords(pPtr, p)
	}
}
