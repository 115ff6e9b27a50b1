package syscall

import (
	"fmt"

	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/precompile"
)

const (
	uint256Bytes  = 32
	uint2048Bytes = 256
)

// registerArith registers the 256-bit and wide integer syscalls.
func (r *Registry) registerArith() {
	// UINT256_MULMOD(x, y): x = x*y mod m, where m follows y in memory.
	r.register(abi.Uint256MulMod, CyclesUint256MulMod, func(ctx Context, xPtr, yPtr, _, _, _ uint32) (uint32, error) {
		var x [8]uint32
		var ym [16]uint32
		if err := ctx.Memory().ReadWords(xPtr, x[:]); err != nil {
			return 0, err
		}
		if err := ctx.Memory().ReadWords(yPtr, ym[:]); err != nil {
			return 0, err
		}
		var y, m [8]uint32
		copy(y[:], ym[:8])
		copy(m[:], ym[8:])
		out := precompile.Uint256MulMod(&x, &y, &m)
		return 0, ctx.Memory().WriteWords(xPtr, out[:])
	})

	// BIGINT(result, op, x, y, modulus)
	r.register(abi.Bigint, CyclesBigint, func(ctx Context, rPtr, op, xPtr, yPtr, mPtr uint32) (uint32, error) {
		var x, y, m, out [8]uint32
		for _, in := range []struct {
			ptr uint32
			w   []uint32
		}{{xPtr, x[:]}, {yPtr, y[:]}, {mPtr, m[:]}} {
			if err := ctx.Memory().ReadWords(in.ptr, in.w); err != nil {
				return 0, err
			}
		}
		if err := precompile.Bigint(&out, precompile.BigintOp(op), &x, &y, &m); err != nil {
			return 0, fmt.Errorf("%w: bigint op %d", err, op)
		}
		return 0, ctx.Memory().WriteWords(rPtr, out[:])
	})

	// U256X2048_MUL(x, y, lo, hi)
	r.register(abi.U256x2048Mul, CyclesU256x2048Mul, func(ctx Context, xPtr, yPtr, loPtr, hiPtr, _ uint32) (uint32, error) {
		bufs := [4]struct{ ptr, size uint32 }{
			{xPtr, uint256Bytes}, {yPtr, uint2048Bytes}, {loPtr, uint2048Bytes}, {hiPtr, uint256Bytes},
		}
		for i := range bufs {
			for j := i + 1; j < len(bufs); j++ {
				if overlaps(bufs[i].ptr, bufs[i].size, bufs[j].ptr, bufs[j].size) {
					return 0, fmt.Errorf("%w: wide multiply operands %d and %d", ErrOverlap, i, j)
				}
			}
		}

		var x [8]uint32
		var y [64]uint32
		if err := ctx.Memory().ReadWords(xPtr, x[:]); err != nil {
			return 0, err
		}
		if err := ctx.Memory().ReadWords(yPtr, y[:]); err != nil {
			return 0, err
		}
		lo, hi := precompile.U256x2048Mul(&x, &y)
		if err := ctx.Memory().WriteWords(loPtr, lo[:]); err != nil {
			return 0, err
		}
		return 0, ctx.Memory().WriteWords(hiPtr, hi[:])
	})
}
