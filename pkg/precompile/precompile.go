// Package precompile implements the host side of the accelerated
// operations guests reach through syscalls: hashing cores, elliptic curve
// group laws, base field arithmetic and 256-bit modular arithmetic.
//
// Operands use the ABI limb layout: little-endian 32-bit limbs, points as
// x limbs followed by y limbs, the short Weierstrass identity as all zeros.
package precompile

import "errors"

var (
	// ErrInvalidPoint is returned for coordinates that are out of range or
	// not on the curve.
	ErrInvalidPoint = errors.New("point not on curve")

	// ErrNoSquareRoot is returned when decompression finds no y.
	ErrNoSquareRoot = errors.New("no square root")

	// ErrInvalidLength is returned for operands of the wrong width.
	ErrInvalidLength = errors.New("invalid operand length")

	// ErrInvalidOp is returned for an unknown bigint operation.
	ErrInvalidOp = errors.New("invalid bigint operation")
)

// Curve is an elliptic curve group over affine coordinates.
type Curve interface {
	Name() string
	// CoordWords is the limb count of one coordinate.
	CoordWords() int
	// Add sets p = p + q. p and q may be the same slice.
	Add(p, q []uint32) error
	// Double sets p = 2p.
	Double(p []uint32) error
}

// Decompressor recovers a point from its x coordinate.
type Decompressor interface {
	// Decompress reads x from buf and writes the y of the requested parity
	// back into buf. The byte layout is curve specific.
	Decompress(buf []byte, isOdd bool) error
}

// FieldOp is an arithmetic operation of a Field.
type FieldOp int

const (
	FieldAdd FieldOp = iota
	FieldSub
	FieldMul
)

func (op FieldOp) String() string {
	switch op {
	case FieldAdd:
		return "add"
	case FieldSub:
		return "sub"
	case FieldMul:
		return "mul"
	}
	return "unknown"
}

// Field is a prime field or a quadratic extension of one. Operands are
// reduced before use, so non-canonical inputs are accepted; results are
// always canonical.
type Field interface {
	Name() string
	// Words is the limb count of one element.
	Words() int
	// Apply sets p = p op q.
	Apply(op FieldOp, p, q []uint32) error
}

func checkPoint(c Curve, p []uint32) error {
	if len(p) != 2*c.CoordWords() {
		return ErrInvalidLength
	}
	return nil
}

func checkElements(f Field, p, q []uint32) error {
	if len(p) != f.Words() || len(q) != f.Words() {
		return ErrInvalidLength
	}
	return nil
}
