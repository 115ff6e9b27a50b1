package types

import "encoding/binary"

// PutWordsLE writes w into b as consecutive little-endian words.
// len(b) must be 4*len(w).
func PutWordsLE(b []byte, w []uint32) {
	if len(b) != len(w)*WordSize {
		panic(ErrInvalidLength)
	}
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[i*WordSize:], v)
	}
}

// WordsFromLE fills w from consecutive little-endian words in b.
func WordsFromLE(w []uint32, b []byte) {
	if len(b) != len(w)*WordSize {
		panic(ErrInvalidLength)
	}
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*WordSize:])
	}
}

// WordsToBE renders a little-endian limb array as the big-endian byte
// encoding of the same integer.
func WordsToBE(w []uint32) []byte {
	b := make([]byte, len(w)*WordSize)
	for i, v := range w {
		binary.BigEndian.PutUint32(b[len(b)-(i+1)*WordSize:], v)
	}
	return b
}

// WordsFromBE is the inverse of WordsToBE.
func WordsFromBE(w []uint32, b []byte) {
	if len(b) != len(w)*WordSize {
		panic(ErrInvalidLength)
	}
	for i := range w {
		w[i] = binary.BigEndian.Uint32(b[len(b)-(i+1)*WordSize:])
	}
}

// Uint64sToWords splits 64-bit lanes into low/high 32-bit words.
func Uint64sToWords(w []uint32, lanes []uint64) {
	if len(w) != 2*len(lanes) {
		panic(ErrInvalidLength)
	}
	for i, l := range lanes {
		w[2*i] = uint32(l)
		w[2*i+1] = uint32(l >> 32)
	}
}

// WordsToUint64s joins low/high word pairs into 64-bit lanes.
func WordsToUint64s(lanes []uint64, w []uint32) {
	if len(w) != 2*len(lanes) {
		panic(ErrInvalidLength)
	}
	for i := range lanes {
		lanes[i] = uint64(w[2*i]) | uint64(w[2*i+1])<<32
	}
}

// Reverse returns a reversed copy of b.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// AllZero reports whether every limb is zero.
func AllZero(w []uint32) bool {
	for _, v := range w {
		if v != 0 {
			return false
		}
	}
	return true
}
