package precompile

import (
	"bytes"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"

	"github.com/fortiblox/zilkworm/internal/types"
)

type ed25519Curve struct{}

// Ed25519 is the twisted Edwards curve of ed25519. Unlike the Weierstrass
// curves its identity is the affine point (0, 1); coordinates are
// little-endian limbs of the canonical field encoding.
var Ed25519 Curve = ed25519Curve{}

func (ed25519Curve) Name() string    { return "ed25519" }
func (ed25519Curve) CoordWords() int { return words256 }

func (c ed25519Curve) Add(p, q []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	if err := checkPoint(c, q); err != nil {
		return err
	}
	a, err := edPoint(p)
	if err != nil {
		return err
	}
	b, err := edPoint(q)
	if err != nil {
		return err
	}
	edStore(p, a.Add(a, b))
	return nil
}

func (c ed25519Curve) Double(p []uint32) error {
	return c.Add(p, p)
}

// EdDecompress reads the compressed encoding from buf[32:64] and writes x
// little-endian to buf[0:32].
func EdDecompress(buf []byte) error {
	if len(buf) != 64 {
		return ErrInvalidLength
	}
	pt, err := new(edwards25519.Point).SetBytes(buf[32:])
	if err != nil {
		return ErrNoSquareRoot
	}
	x, _ := edAffine(pt)
	copy(buf[:32], x.Bytes())
	return nil
}

func edElement(w []uint32) (*field.Element, error) {
	b := make([]byte, 32)
	types.PutWordsLE(b, w)
	e, err := new(field.Element).SetBytes(b)
	if err != nil || !bytes.Equal(e.Bytes(), b) {
		return nil, ErrInvalidPoint
	}
	return e, nil
}

func edPoint(w []uint32) (*edwards25519.Point, error) {
	x, err := edElement(w[:words256])
	if err != nil {
		return nil, err
	}
	y, err := edElement(w[words256:])
	if err != nil {
		return nil, err
	}
	t := new(field.Element).Multiply(x, y)
	pt, err := new(edwards25519.Point).SetExtendedCoordinates(x, y, new(field.Element).One(), t)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	return pt, nil
}

func edAffine(pt *edwards25519.Point) (x, y *field.Element) {
	X, Y, Z, _ := pt.ExtendedCoordinates()
	zInv := new(field.Element).Invert(Z)
	return new(field.Element).Multiply(X, zInv), new(field.Element).Multiply(Y, zInv)
}

func edStore(w []uint32, pt *edwards25519.Point) {
	x, y := edAffine(pt)
	types.WordsFromLE(w[:words256], x.Bytes())
	types.WordsFromLE(w[words256:], y.Bytes())
}
