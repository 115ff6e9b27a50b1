package abi

import (
	"github.com/fortiblox/zilkworm/internal/types"
)

// Fixed-width value types of the syscall ABI. Every length below is part of
// the binary contract: the host reads and writes exactly this many limbs or
// bytes at the address it is given.
//
// Multi-limb integers are little-endian in limb order. Points are affine,
// x coordinate first then y, each coordinate in the same limb order. The
// point at infinity is all zero limbs.
type (
	// Uint256 is a 256-bit integer as eight 32-bit limbs.
	Uint256 [8]uint32

	// Uint2048 is a 2048-bit integer as sixty-four 32-bit limbs.
	Uint2048 [64]uint32

	// ShaSchedule is the SHA-256 message schedule. Words 0-15 hold the
	// block; extension fills words 16-63.
	ShaSchedule [64]uint32

	// ShaState is the SHA-256 chaining value.
	ShaState [8]uint32

	// KeccakState is the Keccak-f[1600] state, lane (x, y) at index x+5y.
	KeccakState [25]uint64

	// Point256 is an affine point on a curve with a 256-bit base field
	// (secp256k1, secp256r1, bn254, ed25519).
	Point256 [16]uint32

	// Point381 is an affine point on bls12-381 G1.
	Point381 [24]uint32

	// CompressedPoint256 is the in/out buffer of the 256-bit decompress
	// syscalls. The layout differs per curve family; see Env.
	CompressedPoint256 [64]byte

	// CompressedPoint381 is the in/out buffer of bls12-381 decompression:
	// x big-endian in bytes 0-47, y big-endian in bytes 48-95.
	CompressedPoint381 [96]byte

	// Bn254Fp is an element of the bn254 base field.
	Bn254Fp [8]uint32

	// Bn254Fp2 is an element of the bn254 quadratic extension, c0 then c1.
	Bn254Fp2 [16]uint32

	// Bls12381Fp is an element of the bls12-381 base field.
	Bls12381Fp [12]uint32

	// Bls12381Fp2 is an element of the bls12-381 quadratic extension, c0 then c1.
	Bls12381Fp2 [24]uint32

	// VKDigest identifies a verifying key.
	VKDigest [8]uint32

	// PublicValuesDigest is the SHA-256 of a proof's public values stream.
	PublicValuesDigest [32]byte
)

// ReadVecResult describes a host-populated guest buffer whose ownership has
// passed to the guest. Cap is Len rounded up to a whole word.
type ReadVecResult struct {
	Ptr uint32
	Len uint32
	Cap uint32
}

// NewUint256 returns v as a 256-bit limb array.
func NewUint256(v uint64) Uint256 {
	return Uint256{uint32(v), uint32(v >> 32)}
}

// Bytes returns the little-endian byte encoding.
func (u Uint256) Bytes() [32]byte {
	var b [32]byte
	types.PutWordsLE(b[:], u[:])
	return b
}

// IsZero reports whether u is zero.
func (u Uint256) IsZero() bool {
	return types.AllZero(u[:])
}

// String returns the base58 encoding of the digest words.
func (d VKDigest) String() string {
	return types.DigestFromWords(d).String()
}

// Digest returns the digest as bytes.
func (d VKDigest) Digest() types.Digest {
	return types.DigestFromWords(d)
}

// String returns the base58 encoding.
func (d PublicValuesDigest) String() string {
	return types.Digest(d).String()
}
