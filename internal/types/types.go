// Package types defines the digest type and limb codecs shared by the guest
// ABI, the host precompiles and the prover.
//
// Multi-word integers cross the ABI as little-endian arrays of 32-bit limbs.
// Curve and field libraries on the host side mostly speak big-endian bytes,
// so the conversions live here in one place.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size constants for core types.
const (
	WordSize    = 4
	DigestSize  = 32
	DigestWords = DigestSize / WordSize
)

var (
	// ErrInvalidDigest is returned when a digest has invalid length.
	ErrInvalidDigest = errors.New("invalid digest: must be 32 bytes")

	// ErrInvalidLength is returned when a byte buffer does not match its limb buffer.
	ErrInvalidLength = errors.New("invalid length")
)

// Digest represents a 32-byte hash value (public-values digests, seals,
// verifying-key digests in byte form).
type Digest [DigestSize]byte

// DigestFromBase58 parses a base58-encoded digest.
func DigestFromBase58(s string) (Digest, error) {
	var d Digest
	data, err := base58.Decode(s)
	if err != nil {
		return d, fmt.Errorf("base58 decode: %w", err)
	}
	if len(data) != DigestSize {
		return d, ErrInvalidDigest
	}
	copy(d[:], data)
	return d, nil
}

// DigestFromWords packs eight little-endian limbs into a digest.
func DigestFromWords(w [DigestWords]uint32) Digest {
	var d Digest
	PutWordsLE(d[:], w[:])
	return d
}

// Words splits the digest into eight little-endian limbs.
func (d Digest) Words() [DigestWords]uint32 {
	var w [DigestWords]uint32
	WordsFromLE(w[:], d[:])
	return w
}

// String returns the base58-encoded representation.
func (d Digest) String() string {
	return base58.Encode(d[:])
}

// Hex returns the hex-encoded representation.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	for _, b := range d {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := DigestFromBase58(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
