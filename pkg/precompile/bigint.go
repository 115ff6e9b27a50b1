package precompile

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/fortiblox/zilkworm/internal/types"
)

// BigintOp selects the Bigint operation.
type BigintOp uint32

const (
	BigintMulMod BigintOp = 0
	BigintAddMod BigintOp = 1
	BigintSubMod BigintOp = 2
)

func toUint256(w *[8]uint32) *uint256.Int {
	var z uint256.Int
	types.WordsToUint64s(z[:], w[:])
	return &z
}

func fromUint256(w *[8]uint32, z *uint256.Int) {
	types.Uint64sToWords(w[:], z[:])
}

// Uint256MulMod returns x*y mod m. A zero m means 2^256.
func Uint256MulMod(x, y, m *[8]uint32) [8]uint32 {
	var out [8]uint32
	if err := Bigint(&out, BigintMulMod, x, y, m); err != nil {
		panic(err)
	}
	return out
}

// Bigint sets result = op(x, y) mod m. A zero m means 2^256.
func Bigint(result *[8]uint32, op BigintOp, x, y, m *[8]uint32) error {
	a, b, mod := toUint256(x), toUint256(y), toUint256(m)
	var z uint256.Int
	wrap := mod.IsZero()

	switch op {
	case BigintMulMod:
		if wrap {
			z.Mul(a, b)
		} else {
			z.MulMod(a, b, mod)
		}
	case BigintAddMod:
		if wrap {
			z.Add(a, b)
		} else {
			z.AddMod(a, b, mod)
		}
	case BigintSubMod:
		if wrap {
			z.Sub(a, b)
		} else {
			a.Mod(a, mod)
			b.Mod(b, mod)
			if a.Cmp(b) >= 0 {
				z.Sub(a, b)
			} else {
				z.Sub(mod, b)
				z.Add(&z, a)
			}
		}
	default:
		return ErrInvalidOp
	}
	fromUint256(result, &z)
	return nil
}

// U256x2048Mul computes the 2304-bit product x*y, returning the low 2048
// bits and the high 256 bits.
func U256x2048Mul(x *[8]uint32, y *[64]uint32) (lo [64]uint32, hi [8]uint32) {
	var acc [72]uint32
	for i := 0; i < 8; i++ {
		var carry uint64
		for j := 0; j < 64; j++ {
			t := uint64(x[i])*uint64(y[j]) + uint64(acc[i+j]) + carry
			acc[i+j] = uint32(t)
			carry = t >> 32
		}
		acc[i+64] = uint32(carry)
	}
	copy(lo[:], acc[:64])
	copy(hi[:], acc[64:])
	return lo, hi
}

// canonical reports whether the little-endian limbs w encode a value
// below m.
func canonical(w []uint32, m *big.Int) bool {
	return canonicalBytes(types.WordsToBE(w), m)
}

func canonicalBytes(be []byte, m *big.Int) bool {
	return new(big.Int).SetBytes(be).Cmp(m) < 0
}
