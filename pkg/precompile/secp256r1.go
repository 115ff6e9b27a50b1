package precompile

import (
	"filippo.io/nistec"

	"github.com/fortiblox/zilkworm/internal/types"
)

type secp256r1Curve struct{}

// Secp256r1 is the NIST P-256 group.
var Secp256r1 interface {
	Curve
	Decompressor
} = secp256r1Curve{}

func (secp256r1Curve) Name() string    { return "secp256r1" }
func (secp256r1Curve) CoordWords() int { return words256 }

func (c secp256r1Curve) Add(p, q []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	if err := checkPoint(c, q); err != nil {
		return err
	}
	a, err := r1Point(p)
	if err != nil {
		return err
	}
	b, err := r1Point(q)
	if err != nil {
		return err
	}
	r1Store(p, a.Add(a, b))
	return nil
}

func (c secp256r1Curve) Double(p []uint32) error {
	if err := checkPoint(c, p); err != nil {
		return err
	}
	a, err := r1Point(p)
	if err != nil {
		return err
	}
	r1Store(p, a.Double(a))
	return nil
}

// Decompress uses the secp256k1 layout.
func (secp256r1Curve) Decompress(buf []byte, isOdd bool) error {
	if len(buf) != 64 {
		return ErrInvalidLength
	}
	enc := make([]byte, 33)
	enc[0] = 0x02
	if isOdd {
		enc[0] = 0x03
	}
	copy(enc[1:], buf[:32])
	pt, err := nistec.NewP256Point().SetBytes(enc)
	if err != nil {
		return ErrNoSquareRoot
	}
	copy(buf[32:], pt.Bytes()[33:])
	return nil
}

func r1Point(w []uint32) (*nistec.P256Point, error) {
	if types.AllZero(w) {
		return nistec.NewP256Point(), nil
	}
	enc := make([]byte, 65)
	enc[0] = 0x04
	copy(enc[1:33], types.WordsToBE(w[:words256]))
	copy(enc[33:], types.WordsToBE(w[words256:]))
	pt, err := nistec.NewP256Point().SetBytes(enc)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	return pt, nil
}

func r1Store(w []uint32, pt *nistec.P256Point) {
	enc := pt.Bytes()
	if len(enc) == 1 {
		clear(w)
		return
	}
	types.WordsFromBE(w[:words256], enc[1:33])
	types.WordsFromBE(w[words256:], enc[33:])
}
