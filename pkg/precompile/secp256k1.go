package precompile

import (
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fortiblox/zilkworm/internal/types"
)

const words256 = 8

type secp256k1Curve struct{}

// Secp256k1 is the secp256k1 group.
var Secp256k1 interface {
	Curve
	Decompressor
} = secp256k1Curve{}

func (secp256k1Curve) Name() string    { return "secp256k1" }
func (secp256k1Curve) CoordWords() int { return words256 }

func (c secp256k1Curve) Add(p, q []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	if err := checkPoint(c, q); err != nil {
		return err
	}
	a, err := k1Point(p)
	if err != nil {
		return err
	}
	b, err := k1Point(q)
	if err != nil {
		return err
	}
	var r secp.JacobianPoint
	secp.AddNonConst(&a, &b, &r)
	k1Store(p, &r)
	return nil
}

func (c secp256k1Curve) Double(p []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	a, err := k1Point(p)
	if err != nil {
		return err
	}
	var r secp.JacobianPoint
	secp.DoubleNonConst(&a, &r)
	k1Store(p, &r)
	return nil
}

// Decompress reads x big-endian from buf[0:32] and writes y big-endian to
// buf[32:64].
func (secp256k1Curve) Decompress(buf []byte, isOdd bool) error {
	if len(buf) != 64 {
		return ErrInvalidLength
	}
	var x, y secp.FieldVal
	if overflow := x.SetByteSlice(buf[:32]); overflow {
		return ErrInvalidPoint
	}
	if !secp.DecompressY(&x, isOdd, &y) {
		return ErrNoSquareRoot
	}
	y.Normalize()
	copy(buf[32:], y.Bytes()[:])
	return nil
}

// k1Point parses an affine ABI point. The zero point is the identity,
// which decred represents with Z = 0.
func k1Point(w []uint32) (secp.JacobianPoint, error) {
	var pt secp.JacobianPoint
	if types.AllZero(w) {
		return pt, nil
	}
	if overflow := pt.X.SetByteSlice(types.WordsToBE(w[:words256])); overflow {
		return pt, ErrInvalidPoint
	}
	if overflow := pt.Y.SetByteSlice(types.WordsToBE(w[words256:])); overflow {
		return pt, ErrInvalidPoint
	}
	if !secp.NewPublicKey(&pt.X, &pt.Y).IsOnCurve() {
		return pt, ErrInvalidPoint
	}
	pt.Z.SetInt(1)
	return pt, nil
}

func k1Store(w []uint32, pt *secp.JacobianPoint) {
	if pt.Z.Normalize().IsZero() {
		clear(w)
		return
	}
	pt.ToAffine()
	types.WordsFromBE(w[:words256], pt.X.Bytes()[:])
	types.WordsFromBE(w[words256:], pt.Y.Bytes()[:])
}
