package precompile

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"
	bnfp "github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/fortiblox/zilkworm/internal/types"
)

type bn254Curve struct{}

// Bn254 is the bn254 (alt_bn128) G1 group, y^2 = x^3 + 3.
var Bn254 Curve = bn254Curve{}

func (bn254Curve) Name() string    { return "bn254" }
func (bn254Curve) CoordWords() int { return words256 }

func (c bn254Curve) Add(p, q []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	if err := checkPoint(c, q); err != nil {
		return err
	}
	a, err := bn254Point(p)
	if err != nil {
		return err
	}
	b, err := bn254Point(q)
	if err != nil {
		return err
	}
	var aj, bj bn254.G1Jac
	aj.FromAffine(&a)
	bj.FromAffine(&b)
	aj.AddAssign(&bj)
	a.FromJacobian(&aj)
	bn254Store(p, &a)
	return nil
}

func (c bn254Curve) Double(p []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	a, err := bn254Point(p)
	if err != nil {
		return err
	}
	var aj bn254.G1Jac
	aj.FromAffine(&a)
	aj.DoubleAssign()
	a.FromJacobian(&aj)
	bn254Store(p, &a)
	return nil
}

func bn254Point(w []uint32) (bn254.G1Affine, error) {
	var pt bn254.G1Affine
	if !canonical(w[:words256], bnfp.Modulus()) || !canonical(w[words256:], bnfp.Modulus()) {
		return pt, ErrInvalidPoint
	}
	pt.X.SetBytes(types.WordsToBE(w[:words256]))
	pt.Y.SetBytes(types.WordsToBE(w[words256:]))
	if !pt.IsOnCurve() {
		return pt, ErrInvalidPoint
	}
	return pt, nil
}

func bn254Store(w []uint32, pt *bn254.G1Affine) {
	putBn254(w[:words256], &pt.X)
	putBn254(w[words256:], &pt.Y)
}

func putBn254(w []uint32, e *bnfp.Element) {
	b := e.Bytes()
	types.WordsFromBE(w, b[:])
}

func bn254Elem(w []uint32) bnfp.Element {
	var e bnfp.Element
	e.SetBytes(types.WordsToBE(w))
	return e
}

type bn254Field struct {
	ext bool
}

var (
	// Bn254Fp is the bn254 base field.
	Bn254Fp Field = bn254Field{}

	// Bn254Fp2 is Fp[u]/(u^2+1) over the bn254 base field, c0 limbs first.
	Bn254Fp2 Field = bn254Field{ext: true}
)

func (f bn254Field) Name() string {
	if f.ext {
		return "bn254_fp2"
	}
	return "bn254_fp"
}

func (f bn254Field) Words() int {
	if f.ext {
		return 2 * words256
	}
	return words256
}

func (f bn254Field) Apply(op FieldOp, p, q []uint32) error {
	if err := checkElements(f, p, q); err != nil {
		return err
	}
	if !f.ext {
		x, y := bn254Elem(p), bn254Elem(q)
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
		putBn254(p, &x)
		return nil
	}

	a0, a1 := bn254Elem(p[:words256]), bn254Elem(p[words256:])
	b0, b1 := bn254Elem(q[:words256]), bn254Elem(q[words256:])
	var c0, c1 bnfp.Element
	switch op {
	case FieldAdd:
		c0.Add(&a0, &b0)
		c1.Add(&a1, &b1)
	case FieldSub:
		c0.Sub(&a0, &b0)
		c1.Sub(&a1, &b1)
	case FieldMul:
		var t0, t1, t2, t3 bnfp.Element
		t0.Mul(&a0, &b0)
		t1.Mul(&a1, &b1)
		t2.Mul(&a0, &b1)
		t3.Mul(&a1, &b0)
		c0.Sub(&t0, &t1)
		c1.Add(&t2, &t3)
	default:
		return ErrInvalidOp
	}
	putBn254(p[:words256], &c0)
	putBn254(p[words256:], &c1)
	return nil
}
