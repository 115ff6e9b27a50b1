package precompile

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	blsfp "github.com/consensys/gnark-crypto/ecc/bls12-381/fp"

	"github.com/fortiblox/zilkworm/internal/types"
)

const (
	words381 = 12
	bytes381 = 48
	bls381B  = 4
)

type bls12381Curve struct{}

// Bls12381 is the bls12-381 G1 group, y^2 = x^3 + 4.
var Bls12381 interface {
	Curve
	Decompressor
} = bls12381Curve{}

func (bls12381Curve) Name() string    { return "bls12381" }
func (bls12381Curve) CoordWords() int { return words381 }

func (c bls12381Curve) Add(p, q []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	if err := checkPoint(c, q); err != nil {
		return err
	}
	a, err := blsPoint(p)
	if err != nil {
		return err
	}
	b, err := blsPoint(q)
	if err != nil {
		return err
	}
	var aj, bj bls12381.G1Jac
	aj.FromAffine(&a)
	bj.FromAffine(&b)
	aj.AddAssign(&bj)
	a.FromJacobian(&aj)
	blsStore(p, &a)
	return nil
}

func (c bls12381Curve) Double(p []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	a, err := blsPoint(p)
	if err != nil {
		return err
	}
	var aj bls12381.G1Jac
	aj.FromAffine(&a)
	aj.DoubleAssign()
	a.FromJacobian(&aj)
	blsStore(p, &a)
	return nil
}

// Decompress reads x big-endian from buf[0:48] and writes y big-endian to
// buf[48:96].
func (bls12381Curve) Decompress(buf []byte, isOdd bool) error {
	if len(buf) != 2*bytes381 {
		return ErrInvalidLength
	}
	var x, rhs, y, b blsfp.Element
	if !canonicalBytes(buf[:bytes381], blsfp.Modulus()) {
		return ErrInvalidPoint
	}
	x.SetBytes(buf[:bytes381])
	b.SetUint64(bls381B)
	rhs.Square(&x).Mul(&rhs, &x).Add(&rhs, &b)
	if y.Sqrt(&rhs) == nil {
		return ErrNoSquareRoot
	}
	yb := y.Bytes()
	if (yb[bytes381-1]&1 == 1) != isOdd {
		y.Neg(&y)
		yb = y.Bytes()
	}
	copy(buf[bytes381:], yb[:])
	return nil
}

func blsPoint(w []uint32) (bls12381.G1Affine, error) {
	var pt bls12381.G1Affine
	if !canonical(w[:words381], blsfp.Modulus()) || !canonical(w[words381:], blsfp.Modulus()) {
		return pt, ErrInvalidPoint
	}
	pt.X.SetBytes(types.WordsToBE(w[:words381]))
	pt.Y.SetBytes(types.WordsToBE(w[words381:]))
	if !pt.IsOnCurve() {
		return pt, ErrInvalidPoint
	}
	return pt, nil
}

func blsStore(w []uint32, pt *bls12381.G1Affine) {
	putBls(w[:words381], &pt.X)
	putBls(w[words381:], &pt.Y)
}

func putBls(w []uint32, e *blsfp.Element) {
	b := e.Bytes()
	types.WordsFromBE(w, b[:])
}

func blsElem(w []uint32) blsfp.Element {
	var e blsfp.Element
	e.SetBytes(types.WordsToBE(w))
	return e
}

type bls12381Field struct {
	ext bool
}

var (
	// Bls12381Fp is the bls12-381 base field.
	Bls12381Fp Field = bls12381Field{}

	// Bls12381Fp2 is Fp[u]/(u^2+1) over the bls12-381 base field.
	Bls12381Fp2 Field = bls12381Field{ext: true}
)

func (f bls12381Field) Name() string {
	if f.ext {
		return "bls12381_fp2"
	}
	return "bls12381_fp"
}

func (f bls12381Field) Words() int {
	if f.ext {
		return 2 * words381
	}
	return words381
}

func (f bls12381Field) Apply(op FieldOp, p, q []uint32) error {
	if err := checkElements(f, p, q); err != nil {
		return err
	}
	if !f.ext {
		x, y := blsElem(p), blsElem(q)
		switch op {
		case FieldAdd:
			x.Add(&x, &y)
		case FieldSub:
			x.Sub(&x, &y)
		case FieldMul:
			x.Mul(&x, &y)
		default:
			return ErrInvalidOp
		}
		putBls(p, &x)
		return nil
	}

	a0, a1 := blsElem(p[:words381]), blsElem(p[words381:])
	b0, b1 := blsElem(q[:words381]), blsElem(q[words381:])
	var c0, c1 blsfp.Element
	switch op {
	case FieldAdd:
		c0.Add(&a0, &b0)
		c1.Add(&a1, &b1)
	case FieldSub:
		c0.Sub(&a0, &b0)
		c1.Sub(&a1, &b1)
	case FieldMul:
		var t0, t1, t2, t3 blsfp.Element
		t0.Mul(&a0, &b0)
		t1.Mul(&a1, &b1)
		t2.Mul(&a0, &b1)
		t3.Mul(&a1, &b0)
		c0.Sub(&t0, &t1)
		c1.Add(&t2, &t3)
	default:
		return ErrInvalidOp
	}
	putBls(p[:words381], &c0)
	putBls(p[words381:], &c1)
	return nil
}
